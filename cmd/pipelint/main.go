package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/githubnext/pipelint/pkg/cli"
	"github.com/githubnext/pipelint/pkg/console"
	"github.com/githubnext/pipelint/pkg/constants"
)

// Build-time variables set by GoReleaser
var (
	version = "dev"
)

// Global flags
var verbose bool

var rootCmd = &cobra.Command{
	Use:   constants.CLIName,
	Short: "Structural validation for YAML pipeline definitions",
	Long: constants.CLIName + ` validates YAML pipeline files against a JSON-Schema-like structural schema.

Anchors, aliases, merge keys and "${{ }}" template expressions are resolved before
validation, and every problem is reported with its exact line and column.

The project configuration is read from ` + constants.ConfigFileName + ` in the working
directory or one of its parents; command line flags override it.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output showing detailed information")

	rootCmd.AddCommand(cli.NewValidateCommand())
	rootCmd.AddCommand(cli.NewWatchCommand())
	rootCmd.AddCommand(cli.NewMCPCommand())
	rootCmd.AddCommand(cli.NewVersionCommand())
}

func main() {
	cli.SetVersionInfo(version)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		os.Exit(1)
	}
}
