package tx

import (
	"github.com/spf13/cobra"
	"github/chapool/go-txpipeline/internal/util/command"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("tx",
		newReceipt(),
	)
}
