package db

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/util/command"
)

func newMigrate() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Applies the journal migrations",
		Long:  `Creates or upgrades the Postgres tables of the attempt journal.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg)

			return migrateCmdFunc(cmd.Context(), cfg)
		},
	}
}

func migrateCmdFunc(ctx context.Context, cfg config.Server) error {
	n, err := ApplyMigrations(ctx, cfg)
	if err != nil {
		return err
	}

	log.Info().Int("applied", n).Msg("Applied migrations")

	return nil
}
