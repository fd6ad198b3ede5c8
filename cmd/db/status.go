package db

import (
	"fmt"

	"github.com/spf13/cobra"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/util/command"
	"github/chapool/go-txpipeline/internal/wallet/journal"
)

func newStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Lists pending journal migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg)

			if !cfg.Journal.Enabled {
				return ErrJournalDisabled
			}

			sqlDB, err := journal.Open(cmd.Context(), cfg.Journal.Database)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			pending, err := journal.PendingMigrations(sqlDB)
			if err != nil {
				return err
			}

			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Up to date.")
				return nil
			}

			for _, id := range pending {
				fmt.Fprintf(cmd.OutOrStdout(), "pending: %s\n", id)
			}

			return nil
		},
	}
}
