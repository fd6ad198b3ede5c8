package db

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/util/command"
	"github/chapool/go-txpipeline/internal/wallet/journal"
)

// ErrJournalDisabled is returned when a db command runs without JOURNAL_ENABLED
var ErrJournalDisabled = errors.New("the journal is kept in memory, set JOURNAL_ENABLED=true to use Postgres")

func New() *cobra.Command {
	return command.NewSubcommandGroup("db",
		newMigrate(),
		newStatus(),
	)
}

// ApplyMigrations applies every pending journal migration and returns how many ran
func ApplyMigrations(ctx context.Context, cfg config.Server) (int, error) {
	if !cfg.Journal.Enabled {
		return 0, ErrJournalDisabled
	}

	sqlDB, err := journal.Open(ctx, cfg.Journal.Database)
	if err != nil {
		return 0, err
	}
	defer sqlDB.Close()

	return journal.Migrate(sqlDB)
}
