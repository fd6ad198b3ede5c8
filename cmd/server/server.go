package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-txpipeline/cmd/db"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/util/command"
	"github/chapool/go-txpipeline/internal/wallet/signer"
)

const (
	migrateFlag string = "migrate"
)

type Flags struct {
	ApplyMigrations bool
}

func New() *cobra.Command {
	var flags Flags

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Starts the server",
		Long: `Starts the HTTP API.

Unlocks the configured keystore first. In console signer mode every
transaction has to be confirmed on the terminal running the server.
Requires configuration through ENV.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			runServer(flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.ApplyMigrations, migrateFlag, "m", false, "Apply journal migrations before starting the server")

	return cmd
}

func runServer(flags Flags) {
	cfg := config.DefaultServiceConfigFromEnv()
	command.ConfigureLogger(cfg)

	if cfg.Echo.Debug {
		log.Warn().Msg("Echo debug mode is enabled, do not use in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.ApplyMigrations && cfg.Journal.Enabled {
		n, err := db.ApplyMigrations(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Int("applied", n).Msg("Applied migrations")
	}

	sgn, err := signer.FromConfig(ctx, cfg, os.Stdin, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize signer")
	}

	err = command.WithServer(ctx, cfg, sgn, func(ctx context.Context, s *api.Server) error {
		s.StartEvents(ctx)

		go func() {
			if err := s.Start(); err != nil {
				if errors.Is(err, http.ErrServerClosed) {
					log.Info().Msg("Server closed")
					return
				}

				log.Fatal().Err(err).Msg("Failed to start server")
			}
		}()

		desc := s.Orchestrator.Signer()
		log.Info().
			Str("listen", cfg.Echo.ListenAddress).
			Str("signer", string(desc.Kind)).
			Str("address", desc.Address.Hex()).
			Msg("Server started")

		<-ctx.Done()

		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
