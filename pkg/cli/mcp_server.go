package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/githubnext/pipelint/pkg/console"
	"github.com/githubnext/pipelint/pkg/constants"
	"github.com/githubnext/pipelint/pkg/diagnostics"
	"github.com/githubnext/pipelint/pkg/validator"
)

// ValidateToolInput is the argument of the validate tool
type ValidateToolInput struct {
	Content    string `json:"content" jsonschema:"the YAML pipeline document to validate"`
	SchemaPath string `json:"schema_path,omitempty" jsonschema:"optional path to a JSON or YAML schema file; the built-in pipeline schema is used when empty"`
	Policy     string `json:"policy,omitempty" jsonschema:"union comparison policy: generic or alternate"`
}

// ValidateToolOutput is the structured result of the validate tool
type ValidateToolOutput struct {
	Valid       bool                     `json:"valid"`
	Diagnostics []diagnostics.Diagnostic `json:"diagnostics"`
}

// NewMCPServer creates an MCP server exposing pipeline validation as a tool.
// defaultSchema is used when a call does not name a schema.
func NewMCPServer(defaultSchema string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: constants.CLIName, Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate",
		Description: "Validate a YAML pipeline document and return its diagnostics with zero-based line and character ranges",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in ValidateToolInput) (*mcp.CallToolResult, ValidateToolOutput, error) {
		policy, err := validator.ParsePolicy(in.Policy)
		if err != nil {
			return nil, ValidateToolOutput{}, err
		}
		schemaPath := in.SchemaPath
		if schemaPath == "" {
			schemaPath = defaultSchema
		}
		s, schemaErr := LoadSchema(schemaPath)
		_, diags := ValidateText(in.Content, s, schemaErr, policy)
		return nil, ValidateToolOutput{
			Valid:       !diagnostics.HasErrors(diags),
			Diagnostics: diags,
		}, nil
	})
	return server
}

// RunMCPServer serves the validate tool over stdio until ctx is cancelled or
// the client disconnects
func RunMCPServer(ctx context.Context, defaultSchema string) error {
	if err := NewMCPServer(defaultSchema).Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server stopped: %w", err)
	}
	return nil
}

// NewMCPCommand creates the mcp command
func NewMCPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve pipeline validation as a Model Context Protocol tool over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout.

The server exposes one tool, "validate", taking the document content and an optional
schema path, and returning the diagnostics that the validate command would report.

Examples:
  ` + constants.CLIName + ` mcp
  ` + constants.CLIName + ` mcp --schema custom-schema.json`,
		Run: func(cmd *cobra.Command, args []string) {
			schemaPath, _ := cmd.Flags().GetString("schema")
			if err := RunMCPServer(cmd.Context(), schemaPath); err != nil {
				fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringP("schema", "s", "", "Default schema file for calls that do not name one")
	return cmd
}
