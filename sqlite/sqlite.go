package sqlite

import (
	"context"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	// DefaultFilename is the name of the sqlite database file created when
	// none is configured.
	DefaultFilename = "taskd.sqlite"

	// InmemPath opens a private in-memory database, used by tests.
	InmemPath = ":memory:"
)

// SqlStore is a wrapper around the database connection. Mu serializes
// writers; sqlite allows only a single writer at a time and returns busy
// errors rather than queueing under contention.
type SqlStore struct {
	Mu   sync.Mutex
	DB   *sqlx.DB
	log  *zap.Logger
	path string
}

// NewSqlStore opens (creating if needed) the database at path.
func NewSqlStore(path string, log *zap.Logger) (*SqlStore, error) {
	db, err := sqlx.Open("sqlite3", connectionString(path))
	if err != nil {
		return nil, err
	}

	if path == InmemPath {
		// an in-memory database exists per connection, so additional
		// connections from the pool would each see an empty database
		db.SetMaxOpenConns(1)
	}

	log.Info("Resources opened", zap.String("path", path))

	return &SqlStore{
		DB:   db,
		log:  log,
		path: path,
	}, nil
}

func connectionString(path string) string {
	return "file:" + path + "?_busy_timeout=5000&_foreign_keys=on"
}

// Close closes the database connection.
func (s *SqlStore) Close() error {
	return s.DB.Close()
}

// userVersion reads the sqlite user_version pragma, which tracks the latest
// applied migration.
func (s *SqlStore) userVersion() (int, error) {
	var v int
	if err := s.DB.Get(&v, `PRAGMA user_version`); err != nil {
		return 0, err
	}

	return v, nil
}

// execTrans runs a script of one or more statements in a single transaction.
func (s *SqlStore) execTrans(ctx context.Context, stmt string) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// tableNames lists the user tables in the database in creation order.
func (s *SqlStore) tableNames() ([]string, error) {
	var names []string
	err := s.DB.Select(&names, `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, err
	}

	return names, nil
}

// NewTestStore returns an in-memory SqlStore and a cleanup function for tests.
func NewTestStore(t *testing.T) (*SqlStore, func(t *testing.T)) {
	store, err := NewSqlStore(InmemPath, zap.NewNop())
	require.NoError(t, err, "unable to open in-memory database")

	return store, func(t *testing.T) {
		require.NoError(t, store.Close())
	}
}
