package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/githubnext/pipelint/pkg/console"
	"github.com/githubnext/pipelint/pkg/constants"
)

// Package-level version information
var version = "dev"

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v string) {
	version = v
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), console.FormatInfoMessage(fmt.Sprintf("%s version %s", constants.CLIName, version)))
		},
	}
}
