package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-txpipeline/cmd/db"
	"github/chapool/go-txpipeline/cmd/env"
	"github/chapool/go-txpipeline/cmd/fees"
	"github/chapool/go-txpipeline/cmd/keystore"
	"github/chapool/go-txpipeline/cmd/probe"
	"github/chapool/go-txpipeline/cmd/send"
	"github/chapool/go-txpipeline/cmd/server"
	"github/chapool/go-txpipeline/cmd/tx"
	"github/chapool/go-txpipeline/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: config.GetFormattedBuildArgs(),
	Use:     "app",
	Short:   config.ModuleName,
	Long: fmt.Sprintf(`%v

Prepares, signs and broadcasts wallet transactions and tracks every
attempt through the Idle, Started, Success and Failure states.
Requires configuration through ENV.`, config.ModuleName),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	// attach the subcommands
	rootCmd.AddCommand(
		db.New(),
		env.New(),
		fees.New(),
		keystore.New(),
		probe.New(),
		send.New(),
		server.New(),
		tx.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Failed to execute root command")
		os.Exit(1)
	}
}
