package journal

import (
	"database/sql"
	"embed"

	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationSource is the journal schema
func MigrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations,
		Root:       "migrations",
	}
}

// Migrate applies all pending up migrations and returns how many ran
func Migrate(db *sql.DB) (int, error) {
	n, err := migrate.Exec(db, "postgres", MigrationSource(), migrate.Up)
	if err != nil {
		return n, errors.Wrap(err, "failed to apply journal migrations")
	}

	return n, nil
}

// PendingMigrations lists migrations not yet applied
func PendingMigrations(db *sql.DB) ([]string, error) {
	planned, _, err := migrate.PlanMigration(db, "postgres", MigrationSource(), migrate.Up, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to plan journal migrations")
	}

	ids := make([]string, 0, len(planned))
	for _, m := range planned {
		ids = append(ids, m.Id)
	}

	return ids, nil
}
