package probe

import (
	"time"

	"github.com/spf13/cobra"
	"github/chapool/go-txpipeline/internal/api/handlers/common"
	"github/chapool/go-txpipeline/internal/config"
)

func newReadiness() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Runs readiness probes",
		Long: `Checks that the RPC nodes and, when enabled, Postgres and Redis answer.
Exits with a non-zero code if any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd, verbose, func(cfg config.Server) time.Duration {
				return cfg.Management.ReadinessTimeout
			}, common.ProbeReadiness)
		},
	}

	cmd.Flags().BoolVarP(&verbose, verboseFlag, "v", false, "Print the result of every check")

	return cmd
}
