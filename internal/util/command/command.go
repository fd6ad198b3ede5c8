package command

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/router"
	"github/chapool/go-txpipeline/internal/util"
	"github/chapool/go-txpipeline/internal/wallet/chain"
	"github/chapool/go-txpipeline/internal/wallet/signer"
)

const (
	LogKeyCmd = "cmd"

	shutdownTimeout = 30 * time.Second
)

// NewSubcommandGroup returns a command that only groups subCommands and prints its help otherwise
func NewSubcommandGroup(name string, subCommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("%s related subcommands", name),
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				log.Error().Err(err).Msg("Failed to print help")
			}
		},
	}

	cmd.AddCommand(subCommands...)

	return cmd
}

// ConfigureLogger applies the logger settings of cfg globally
func ConfigureLogger(cfg config.Server) {
	util.ConfigureLogger(cfg.Logger.Level, cfg.Logger.PrettyPrintConsole, cfg.Logger.Caller)
}

// ConnectChain dials the configured RPC nodes. When a chain id is configured the node has to report the same one.
func ConnectChain(ctx context.Context, cfg config.Chain) (*chain.Client, error) {
	client, err := chain.NewClient(cfg.RPCURLs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to chain")
	}

	if cfg.ChainID == 0 {
		return client, nil
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to get chain id")
	}

	if chainID.Int64() != cfg.ChainID {
		client.Close()
		return nil, errors.Errorf("node serves chain %s, expected %d", chainID, cfg.ChainID)
	}

	return client, nil
}

// WithServer connects to the configured chain, builds a server around sgn and runs f.
// sgn may be nil for commands that never submit transactions.
func WithServer(ctx context.Context, cfg config.Server, sgn signer.Signer, f func(ctx context.Context, s *api.Server) error) error {
	client, err := ConnectChain(ctx, cfg.Chain)
	if err != nil {
		return err
	}

	return WithServerBackend(ctx, cfg, sgn, client, f)
}

// WithServerBackend is WithServer on an already connected backend, which is closed with the server
func WithServerBackend(ctx context.Context, cfg config.Server, sgn signer.Signer, backend api.ChainBackend, f func(ctx context.Context, s *api.Server) error) error {
	s, err := api.InitNewServer(cfg, sgn, backend)
	if err != nil {
		return errors.Wrap(err, "failed to initialize server")
	}

	if err := router.Init(s); err != nil {
		return errors.Wrap(err, "failed to initialize router")
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if errs := s.Shutdown(shutdownCtx); len(errs) > 0 {
			log.Error().Errs("shutdownErrors", errs).Msg("Failed to gracefully shut down server")
		}
	}()

	return f(ctx, s)
}
