// Package users manages accounts: registration with hashed passwords and
// credential verification at login. It sits outside the scoped data core and
// is the only place passwords are ever handled.
package users

import (
	"context"
	"database/sql"
	stderrors "errors"
	"regexp"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/taskdata/taskd"
	"github.com/taskdata/taskd/kit/platform/errors"
	"github.com/taskdata/taskd/snowflake"
	"github.com/taskdata/taskd/sqlite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var userColumns = []string{"id", "email", "name", "hashed_password", "created_at", "updated_at"}

var _ taskd.UserService = (*Service)(nil)

// Service stores and verifies user accounts.
type Service struct {
	store       *sqlite.SqlStore
	log         *zap.Logger
	idGenerator taskd.IDGenerator
}

func NewService(log *zap.Logger, store *sqlite.SqlStore) *Service {
	return &Service{
		store:       store,
		log:         log,
		idGenerator: snowflake.NewIDGenerator(),
	}
}

// CreateUser registers a new account. The password is validated, hashed with
// bcrypt and never stored in the clear.
func (s *Service) CreateUser(ctx context.Context, create taskd.UserCreate) (*taskd.User, error) {
	if err := validateCreate(create); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(create.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, s.storageError("users.CreateUser", err)
	}

	s.store.Mu.Lock()
	defer s.store.Mu.Unlock()

	tx, err := s.store.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, s.storageError("users.CreateUser", err)
	}

	// check the email before inserting so a duplicate reports a conflict
	// rather than a bare constraint error
	query, args, err := sq.Select("id").From("users").Where(sq.Eq{"email": create.Email}).ToSql()
	if err != nil {
		tx.Rollback()
		return nil, s.storageError("users.CreateUser", err)
	}

	var existing taskd.ID
	err = tx.GetContext(ctx, &existing, query, args...)
	if err == nil {
		tx.Rollback()
		return nil, taskd.ErrUserExists
	}
	if !stderrors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return nil, s.storageError("users.CreateUser", err)
	}

	now := time.Now().UTC()
	id := s.idGenerator.ID()

	query, args, err = sq.Insert("users").
		Columns(userColumns...).
		Values(id, create.Email, create.Name, string(hashed), now, now).
		ToSql()
	if err != nil {
		tx.Rollback()
		return nil, s.storageError("users.CreateUser", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return nil, s.storageError("users.CreateUser", err)
	}

	user := &taskd.User{}
	query, args, err = sq.Select(userColumns...).From("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		tx.Rollback()
		return nil, s.storageError("users.CreateUser", err)
	}
	if err := tx.GetContext(ctx, user, query, args...); err != nil {
		tx.Rollback()
		return nil, s.storageError("users.CreateUser", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.storageError("users.CreateUser", err)
	}

	return user, nil
}

// Authenticate verifies an email/password pair. A wrong email and a wrong
// password produce the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*taskd.User, error) {
	query, args, err := sq.Select(userColumns...).From("users").Where(sq.Eq{"email": email}).ToSql()
	if err != nil {
		return nil, s.storageError("users.Authenticate", err)
	}

	user := &taskd.User{}
	if err := s.store.DB.GetContext(ctx, user, query, args...); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, taskd.ErrBadCredentials
		}
		return nil, s.storageError("users.Authenticate", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, taskd.ErrBadCredentials
	}

	return user, nil
}

func validateCreate(create taskd.UserCreate) error {
	details := map[string]string{}

	if !emailPattern.MatchString(create.Email) {
		details["email"] = "email format is invalid"
	}
	if create.Name == "" {
		details["name"] = "name is required"
	}
	if len(create.Password) < 6 {
		details["password"] = "password must be at least 6 characters long"
	} else if len(create.Password) > 71 {
		// bcrypt only hashes the first 72 bytes; refuse anything longer
		// rather than silently truncating
		details["password"] = "password is too long (maximum 71 bytes)"
	}

	if len(details) > 0 {
		return &errors.Error{
			Code:    errors.EInvalid,
			Msg:     "registration payload failed validation",
			Details: details,
		}
	}

	return nil
}

func (s *Service) storageError(op string, err error) error {
	return &errors.Error{
		Code: errors.EInternal,
		Op:   op,
		Err:  err,
	}
}
