// Package resource implements the owner-scoped data core: a query and
// mutation engine which never touches a row outside the calling subject's
// ownership boundary, and a controller factory that exposes any schema
// through a fixed set of six HTTP endpoints.
package resource

import (
	"context"

	"github.com/taskdata/taskd"
)

// Schema describes a resource class to the engine: where it is stored, how
// rows are identified and owned, and which columns a caller may set. The
// engine never inspects records through reflection; everything it needs is
// declared here.
type Schema interface {
	// Table is the backing table name.
	Table() string

	// Columns is the full select list for reading records back.
	Columns() []string

	// IDColumn names the primary key column.
	IDColumn() string

	// OwnerColumn names the column holding the owning subject. It is stamped
	// at creation and is not an updatable column, which makes the owner
	// immutable through this engine.
	OwnerColumn() string

	// UpdatableColumns lists the columns a caller-supplied payload may set.
	UpdatableColumns() []string

	// FilterableColumns lists the columns list queries may filter on.
	FilterableColumns() []string

	// NewRecord returns a pointer to a zero record for scanning one row.
	NewRecord() interface{}

	// NewList returns a pointer to an empty scannable record slice.
	NewList() RecordList
}

// RecordList is a scannable collection of records.
type RecordList interface {
	Len() int
}

// Filter narrows a list query. The ownership predicate is not part of the
// filter; the engine applies it unconditionally.
type Filter struct {
	// Where holds equality predicates, keyed by column. Columns outside the
	// schema's filterable set are rejected.
	Where map[string]interface{}

	// OrderBy is a result ordering column. When empty, results come back
	// newest first.
	OrderBy string

	Limit  uint64
	Offset uint64
}

// Service is the owner-scoped engine contract. A nil record result means the
// resource is absent for this subject; whether it does not exist at all or
// belongs to someone else is deliberately not observable.
type Service interface {
	// ListOwned returns the subject's records matching the filter.
	ListOwned(ctx context.Context, owner taskd.ID, f Filter) (RecordList, error)

	// GetOwned returns one record by ID, or nil when absent.
	GetOwned(ctx context.Context, owner, id taskd.ID) (interface{}, error)

	// Create persists a new record owned by the subject. Owner, ID and
	// timestamps in the payload are ignored and stamped by the engine.
	Create(ctx context.Context, owner taskd.ID, payload map[string]interface{}) (interface{}, error)

	// Update applies the payload's updatable fields to a record, or returns
	// nil when absent.
	Update(ctx context.Context, owner, id taskd.ID, payload map[string]interface{}) (interface{}, error)

	// Delete removes a record, reporting whether anything was deleted.
	Delete(ctx context.Context, owner, id taskd.ID) (bool, error)

	// Toggle negates a boolean field on a record, or returns nil when
	// absent. The read and write happen in one transaction.
	Toggle(ctx context.Context, owner, id taskd.ID, field string) (interface{}, error)
}
