package probe

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/util/command"
)

const (
	verboseFlag string = "verbose"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("probe",
		newLiveness(),
		newReadiness(),
	)
}

// runProbe runs probe against a server without a signer and fails when any check failed
func runProbe(cmd *cobra.Command, verbose bool, timeout func(cfg config.Server) time.Duration, probe func(ctx context.Context, s *api.Server) []string) error {
	cfg := config.DefaultServiceConfigFromEnv()
	command.ConfigureLogger(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout(cfg))
	defer cancel()

	return command.WithServer(ctx, cfg, nil, func(ctx context.Context, s *api.Server) error {
		return report(cmd.OutOrStdout(), verbose, probe(ctx, s))
	})
}

func report(out io.Writer, verbose bool, failed []string) error {
	if len(failed) == 0 {
		if verbose {
			fmt.Fprintln(out, "All checks passed.")
		}

		return nil
	}

	if verbose {
		for _, line := range failed {
			fmt.Fprintln(out, line)
		}
	}

	return fmt.Errorf("%d check(s) failed", len(failed))
}
