package resource

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/taskdata/taskd"
	"github.com/taskdata/taskd/kit/platform/errors"
	"github.com/taskdata/taskd/snowflake"
	"github.com/taskdata/taskd/sqlite"
	"go.uber.org/zap"
)

var _ Service = (*Engine)(nil)

// Engine executes owner-scoped reads and transactional writes for a single
// schema. Every statement it issues carries the ownership predicate, so a
// record belonging to another subject is indistinguishable from one that
// does not exist.
type Engine struct {
	store       *sqlite.SqlStore
	schema      Schema
	log         *zap.Logger
	idGenerator taskd.IDGenerator
}

// NewEngine returns an Engine for the given schema.
func NewEngine(log *zap.Logger, store *sqlite.SqlStore, schema Schema) *Engine {
	return &Engine{
		store:       store,
		schema:      schema,
		log:         log,
		idGenerator: snowflake.NewIDGenerator(),
	}
}

// ListOwned returns all of the subject's records matching the filter. The
// ownership predicate is applied before any caller-supplied predicate, so a
// filter can narrow the result but never widen it past the subject's rows.
func (e *Engine) ListOwned(ctx context.Context, owner taskd.ID, f Filter) (RecordList, error) {
	q := sq.Select(e.schema.Columns()...).
		From(e.schema.Table()).
		Where(sq.Eq{e.schema.OwnerColumn(): owner})

	for col, val := range f.Where {
		if !contains(e.schema.FilterableColumns(), col) {
			return nil, &errors.Error{
				Code: errors.EInvalid,
				Msg:  "cannot filter on field " + col,
			}
		}
		q = q.Where(sq.Eq{col: val})
	}

	if f.OrderBy != "" {
		if !contains(e.schema.Columns(), f.OrderBy) {
			return nil, &errors.Error{
				Code: errors.EInvalid,
				Msg:  "cannot order by field " + f.OrderBy,
			}
		}
		q = q.OrderBy(f.OrderBy)
	} else {
		// newest first; the ID breaks ties because snowflakes order by
		// creation time
		q = q.OrderBy("created_at DESC", e.schema.IDColumn()+" DESC")
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, e.storageError("resource.ListOwned", err)
	}

	dest := e.schema.NewList()
	if err := e.store.DB.SelectContext(ctx, dest, query, args...); err != nil {
		return nil, e.storageError("resource.ListOwned", err)
	}

	return dest, nil
}

// GetOwned returns one of the subject's records by ID, or nil when no such
// record is owned by the subject.
func (e *Engine) GetOwned(ctx context.Context, owner, id taskd.ID) (interface{}, error) {
	rec, err := e.getOwnedTx(ctx, e.store.DB, owner, id)
	if err != nil {
		return nil, e.storageError("resource.GetOwned", err)
	}

	return rec, nil
}

// IsOwned reports whether the record exists and is owned by the subject.
// False covers both a missing record and one owned by someone else.
func (e *Engine) IsOwned(ctx context.Context, owner, id taskd.ID) (bool, error) {
	rec, err := e.GetOwned(ctx, owner, id)
	if err != nil {
		return false, err
	}

	return rec != nil, nil
}

// Create persists a new record for the subject. The owner column is stamped
// from the verified subject, never from the payload, and generated ID and
// timestamps are assigned here.
func (e *Engine) Create(ctx context.Context, owner taskd.ID, payload map[string]interface{}) (interface{}, error) {
	e.store.Mu.Lock()
	defer e.store.Mu.Unlock()

	now := time.Now().UTC()
	id := e.idGenerator.ID()

	cols := []string{e.schema.IDColumn(), e.schema.OwnerColumn(), "created_at", "updated_at"}
	vals := []interface{}{id, owner, now, now}
	for _, col := range e.schema.UpdatableColumns() {
		if v, ok := payload[col]; ok {
			cols = append(cols, col)
			vals = append(vals, v)
		}
	}

	query, args, err := sq.Insert(e.schema.Table()).Columns(cols...).Values(vals...).ToSql()
	if err != nil {
		return nil, e.storageError("resource.Create", err)
	}

	tx, err := e.store.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, e.storageError("resource.Create", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return nil, e.storageError("resource.Create", err)
	}

	// the sqlite driver cannot scan timestamps out of a RETURNING clause, so
	// read the stored row back within the same transaction
	rec, err := e.getOwnedTx(ctx, tx, owner, id)
	if err != nil {
		tx.Rollback()
		return nil, e.storageError("resource.Create", err)
	}
	if rec == nil {
		tx.Rollback()
		return nil, e.storageError("resource.Create", sql.ErrNoRows)
	}

	if err := tx.Commit(); err != nil {
		return nil, e.storageError("resource.Create", err)
	}

	return rec, nil
}

// Update applies the payload's updatable fields to one of the subject's
// records and stamps a new updated timestamp. Fields outside the schema's
// updatable set, the owner column included, are dropped from the payload.
// Returns nil without writing anything when the record is absent.
func (e *Engine) Update(ctx context.Context, owner, id taskd.ID, payload map[string]interface{}) (interface{}, error) {
	e.store.Mu.Lock()
	defer e.store.Mu.Unlock()

	tx, err := e.store.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, e.storageError("resource.Update", err)
	}

	rec, err := e.getOwnedTx(ctx, tx, owner, id)
	if err != nil {
		tx.Rollback()
		return nil, e.storageError("resource.Update", err)
	}
	if rec == nil {
		tx.Rollback()
		return nil, nil
	}

	set := sq.Eq{"updated_at": time.Now().UTC()}
	for _, col := range e.schema.UpdatableColumns() {
		if v, ok := payload[col]; ok {
			set[col] = v
		}
	}

	query, args, err := sq.Update(e.schema.Table()).
		SetMap(set).
		Where(sq.Eq{e.schema.IDColumn(): id, e.schema.OwnerColumn(): owner}).
		ToSql()
	if err != nil {
		tx.Rollback()
		return nil, e.storageError("resource.Update", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return nil, e.storageError("resource.Update", err)
	}

	updated, err := e.getOwnedTx(ctx, tx, owner, id)
	if err != nil {
		tx.Rollback()
		return nil, e.storageError("resource.Update", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, e.storageError("resource.Update", err)
	}

	return updated, nil
}

// Delete removes one of the subject's records. Returns false without error
// when the record is absent, so deleting twice is a no-op rather than a
// failure.
func (e *Engine) Delete(ctx context.Context, owner, id taskd.ID) (bool, error) {
	e.store.Mu.Lock()
	defer e.store.Mu.Unlock()

	tx, err := e.store.DB.BeginTxx(ctx, nil)
	if err != nil {
		return false, e.storageError("resource.Delete", err)
	}

	rec, err := e.getOwnedTx(ctx, tx, owner, id)
	if err != nil {
		tx.Rollback()
		return false, e.storageError("resource.Delete", err)
	}
	if rec == nil {
		tx.Rollback()
		return false, nil
	}

	query, args, err := sq.Delete(e.schema.Table()).
		Where(sq.Eq{e.schema.IDColumn(): id, e.schema.OwnerColumn(): owner}).
		ToSql()
	if err != nil {
		tx.Rollback()
		return false, e.storageError("resource.Delete", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return false, e.storageError("resource.Delete", err)
	}

	if err := tx.Commit(); err != nil {
		return false, e.storageError("resource.Delete", err)
	}

	return true, nil
}

// Toggle negates a boolean field on one of the subject's records. The read
// of the current value and the write of its negation run in one transaction
// so that concurrent toggles of the same record serialize instead of losing
// an update.
func (e *Engine) Toggle(ctx context.Context, owner, id taskd.ID, field string) (interface{}, error) {
	if !contains(e.schema.UpdatableColumns(), field) {
		return nil, &errors.Error{
			Code: errors.EInvalid,
			Msg:  "cannot toggle field " + field,
		}
	}

	e.store.Mu.Lock()
	defer e.store.Mu.Unlock()

	tx, err := e.store.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, e.storageError("resource.Toggle", err)
	}

	query, args, err := sq.Select(field).
		From(e.schema.Table()).
		Where(sq.Eq{e.schema.IDColumn(): id, e.schema.OwnerColumn(): owner}).
		ToSql()
	if err != nil {
		tx.Rollback()
		return nil, e.storageError("resource.Toggle", err)
	}

	var current bool
	if err := tx.GetContext(ctx, &current, query, args...); err != nil {
		tx.Rollback()
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, e.storageError("resource.Toggle", err)
	}

	query, args, err = sq.Update(e.schema.Table()).
		SetMap(sq.Eq{
			field:        !current,
			"updated_at": time.Now().UTC(),
		}).
		Where(sq.Eq{e.schema.IDColumn(): id, e.schema.OwnerColumn(): owner}).
		ToSql()
	if err != nil {
		tx.Rollback()
		return nil, e.storageError("resource.Toggle", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return nil, e.storageError("resource.Toggle", err)
	}

	rec, err := e.getOwnedTx(ctx, tx, owner, id)
	if err != nil {
		tx.Rollback()
		return nil, e.storageError("resource.Toggle", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, e.storageError("resource.Toggle", err)
	}

	return rec, nil
}

// queryer covers both *sqlx.DB and *sqlx.Tx so the dual-predicate lookup can
// run standalone or as the validate step of a transaction.
type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

var _ queryer = (*sqlx.DB)(nil)
var _ queryer = (*sqlx.Tx)(nil)

func (e *Engine) getOwnedTx(ctx context.Context, q queryer, owner, id taskd.ID) (interface{}, error) {
	query, args, err := sq.Select(e.schema.Columns()...).
		From(e.schema.Table()).
		Where(sq.Eq{e.schema.IDColumn(): id, e.schema.OwnerColumn(): owner}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rec := e.schema.NewRecord()
	if err := q.GetContext(ctx, rec, query, args...); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return rec, nil
}

func (e *Engine) storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*errors.Error); ok {
		return pe
	}
	return &errors.Error{
		Code: errors.EInternal,
		Op:   op,
		Err:  err,
	}
}

func contains(cols []string, col string) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}
