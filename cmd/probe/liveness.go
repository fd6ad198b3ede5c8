package probe

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/api/handlers/common"
	"github/chapool/go-txpipeline/internal/config"
)

func newLiveness() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Runs liveness probes",
		Long: `Runs the readiness checks and touches a file in every
SERVER_MANAGEMENT_PROBE_WRITEABLE_PATHS_ABS directory.
Exits with a non-zero code if any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd, verbose, func(cfg config.Server) time.Duration {
				return cfg.Management.LivenessTimeout
			}, func(ctx context.Context, s *api.Server) []string {
				return common.ProbeLiveness(ctx, s, s.Config.Management.ProbeWriteablePathsAbs, s.Config.Management.ProbeWriteableTouchfile)
			})
		},
	}

	cmd.Flags().BoolVarP(&verbose, verboseFlag, "v", false, "Print the result of every check")

	return cmd
}
