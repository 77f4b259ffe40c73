package sqlite

import (
	"context"
	"embed"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Migrator applies embedded SQL migration scripts to a SqlStore. Each script
// is named like "0001_create_tables.sql" and sets the user_version pragma to
// its own number as its final statement.
type Migrator struct {
	store *SqlStore
	log   *zap.Logger
}

func NewMigrator(store *SqlStore, log *zap.Logger) *Migrator {
	return &Migrator{
		store: store,
		log:   log,
	}
}

// Up applies, in order, every migration script newer than the database's
// current user_version. Each script runs in its own transaction.
func (m *Migrator) Up(ctx context.Context, source embed.FS) error {
	list, err := source.ReadDir(".")
	if err != nil {
		return err
	}
	// sort by name so version numbers apply in order
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})

	current, err := m.store.userVersion()
	if err != nil {
		return err
	}

	final, err := scriptVersion(list[len(list)-1].Name())
	if err != nil {
		return err
	}

	if final > current {
		m.log.Info("Bringing up metadata migrations", zap.Int("migration_count", final-current))
	}

	for _, f := range list {
		n := f.Name()
		v, err := scriptVersion(n)
		if err != nil {
			return err
		}

		// re-read the version each pass so an out-of-order script can never
		// be applied over a newer one
		c, err := m.store.userVersion()
		if err != nil {
			return err
		}

		if v > c {
			m.log.Debug("Executing metadata migration", zap.String("migration_name", n))
			mBytes, err := source.ReadFile(n)
			if err != nil {
				return err
			}

			if err := m.store.execTrans(ctx, string(mBytes)); err != nil {
				return err
			}
		}
	}

	return nil
}

// extract the version number as an integer from a file named like "0002_migration_name.sql"
func scriptVersion(filename string) (int, error) {
	vString := strings.Split(filename, "_")[0]
	vInt, err := strconv.Atoi(vString)
	if err != nil {
		return 0, err
	}

	return vInt, nil
}
