package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/githubnext/pipelint/pkg/config"
	"github.com/githubnext/pipelint/pkg/console"
	"github.com/githubnext/pipelint/pkg/constants"
	"github.com/githubnext/pipelint/pkg/diagnostics"
	"github.com/githubnext/pipelint/pkg/parser"
	"github.com/githubnext/pipelint/pkg/schema"
	"github.com/githubnext/pipelint/pkg/validator"
)

// ErrProblemsFound is returned when validation reported at least one error
var ErrProblemsFound = errors.New("validation failed")

// Options configure a validation run
type Options struct {
	SchemaPath     string
	Policy         validator.ComparisonPolicy
	Format         string
	ContextLines   int
	MaxConcurrency int
	Verbose        bool
}

// FileResult holds the diagnostics of one file
type FileResult struct {
	Path        string                   `json:"path"`
	Diagnostics []diagnostics.Diagnostic `json:"diagnostics"`
	Error       string                   `json:"error,omitempty"`

	file *parser.File
}

// Counts returns the number of errors and warnings in the result
func (r FileResult) Counts() (errs, warnings int) {
	for _, d := range r.Diagnostics {
		switch d.Severity {
		case diagnostics.SeverityError:
			errs++
		case diagnostics.SeverityWarning:
			warnings++
		}
	}
	if r.Error != "" {
		errs++
	}
	return errs, warnings
}

// LoadSchema loads the schema at path, or the built-in pipeline schema when
// path is empty
func LoadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return schema.Default()
	}
	return schema.Load(path)
}

// ValidateText normalizes and validates one document. When the schema failed
// to load, only syntax diagnostics and the load error are reported.
func ValidateText(text string, s *schema.Schema, schemaErr error, policy validator.ComparisonPolicy) (*parser.File, []diagnostics.Diagnostic) {
	file := parser.Parse(text)
	if schemaErr != nil {
		return file, diagnostics.TranslateWithSchemaError(file, schemaErr)
	}
	return file, diagnostics.Translate(file, s, diagnostics.Options{Policy: policy})
}

// ValidateFiles validates files concurrently and returns their results
// sorted by path
func ValidateFiles(files []string, s *schema.Schema, schemaErr error, opts Options) []FileResult {
	if len(files) == 0 {
		return []FileResult{}
	}

	p := pool.NewWithResults[FileResult]().WithMaxGoroutines(max(opts.MaxConcurrency, 1))
	for _, path := range files {
		p.Go(func() FileResult {
			result := FileResult{Path: path, Diagnostics: []diagnostics.Diagnostic{}}
			content, err := os.ReadFile(path)
			if err != nil {
				result.Error = fmt.Sprintf("failed to read %s: %v", path, err)
				return result
			}
			result.file, result.Diagnostics = ValidateText(string(content), s, schemaErr, opts.Policy)
			return result
		})
	}

	results := p.Wait()
	slices.SortFunc(results, func(a, b FileResult) int { return strings.Compare(a.Path, b.Path) })
	return results
}

// RunValidate validates files and prints the results to w. It returns
// ErrProblemsFound when any error diagnostic was reported.
func RunValidate(w io.Writer, files []string, opts Options) error {
	if len(files) == 0 {
		return errors.New("no pipeline files to validate")
	}
	if opts.Verbose {
		fmt.Fprintln(os.Stderr, console.FormatVerboseMessage(fmt.Sprintf("Using %s schema", schemaName(opts.SchemaPath))))
	}

	s, schemaErr := LoadSchema(opts.SchemaPath)
	if schemaErr != nil && opts.Verbose {
		fmt.Fprintln(os.Stderr, console.FormatWarningMessage(schemaErr.Error()))
	}

	spinner := console.NewSpinner(fmt.Sprintf("Validating %d file(s)...", len(files)))
	spinner.Start()
	results := ValidateFiles(files, s, schemaErr, opts)
	spinner.Stop()

	switch opts.Format {
	case "", "text":
		printText(w, results, opts)
	case "json":
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		fmt.Fprintln(w, string(data))
	default:
		return fmt.Errorf("unknown output format %q (expected text or json)", opts.Format)
	}

	for _, r := range results {
		if errs, _ := r.Counts(); errs > 0 {
			return ErrProblemsFound
		}
	}
	return nil
}

func printText(w io.Writer, results []FileResult, opts Options) {
	var totalErrors, totalWarnings int
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintln(w, console.FormatErrorMessage(r.Error))
		}
		for _, d := range r.Diagnostics {
			fmt.Fprint(w, console.FormatDiagnostic(r.Path, r.file.Lines, d, opts.ContextLines))
		}
		errs, warnings := r.Counts()
		totalErrors += errs
		totalWarnings += warnings
		rows = append(rows, []string{console.ToRelativePath(r.Path), strconv.Itoa(errs), strconv.Itoa(warnings)})
	}

	if totalErrors == 0 && totalWarnings == 0 {
		fmt.Fprintln(w, console.FormatSuccessMessage(fmt.Sprintf("No problems found in %d file(s)", len(results))))
		return
	}
	if len(results) > 1 {
		fmt.Fprintln(w)
		fmt.Fprint(w, console.RenderTable(console.TableConfig{
			Headers: []string{"File", "Errors", "Warnings"},
			Rows:    rows,
			Footer:  []string{"Total", strconv.Itoa(totalErrors), strconv.Itoa(totalWarnings)},
		}))
	}
	fmt.Fprintln(w, console.FormatInfoMessage(fmt.Sprintf("%d error(s), %d warning(s) in %d file(s)", totalErrors, totalWarnings, len(results))))
}

func schemaName(path string) string {
	if path == "" {
		return "built-in pipeline"
	}
	return path
}

// resolveOptions merges the project configuration found from the working
// directory with the command flags. Flags win over the configuration.
func resolveOptions(cmd *cobra.Command, args []string) (Options, []string, error) {
	cfg, err := config.Load(".")
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return Options{}, nil, err
	}

	opts := Options{
		SchemaPath:     cfg.SchemaPath(),
		ContextLines:   cfg.ContextLines,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	policyName := cfg.Policy

	flags := cmd.Flags()
	if flags.Changed("schema") {
		opts.SchemaPath, _ = flags.GetString("schema")
	}
	if flags.Changed("policy") {
		policyName, _ = flags.GetString("policy")
	}
	if flags.Changed("context") {
		opts.ContextLines, _ = flags.GetInt("context")
	}
	if flags.Changed("jobs") {
		opts.MaxConcurrency, _ = flags.GetInt("jobs")
	}
	if flags.Lookup("format") != nil {
		opts.Format, _ = flags.GetString("format")
	}
	opts.Verbose, _ = flags.GetBool("verbose")

	if opts.Policy, err = validator.ParsePolicy(policyName); err != nil {
		return Options{}, nil, err
	}

	patterns := args
	if len(patterns) == 0 {
		patterns = cfg.Patterns()
	}
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	files, err := ResolveFiles(patterns)
	if err != nil {
		return Options{}, nil, err
	}
	return opts, files, nil
}

func addValidationFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("schema", "s", "", "Schema file (JSON or YAML) to validate against; defaults to the built-in pipeline schema")
	cmd.Flags().String("policy", "generic", "Union comparison policy: generic or alternate")
	cmd.Flags().IntP("context", "C", constants.DefaultContextLines, "Number of source lines shown around each diagnostic")
	cmd.Flags().IntP("jobs", "j", constants.DefaultMaxConcurrency, "Maximum number of files validated in parallel")
}

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [files or directories...]",
		Short: "Validate pipeline files against a schema",
		Long: `Validate YAML pipeline files against the built-in pipeline schema or a custom schema.

Arguments may be files, directories (searched recursively) or glob patterns. Without
arguments the files listed in ` + constants.ConfigFileName + ` are validated, or every
pipeline file below the current directory.

The command exits with status 1 when any error is reported.

Examples:
  ` + constants.CLIName + ` validate azure-pipelines.yml
  ` + constants.CLIName + ` validate pipelines/ --schema custom-schema.json
  ` + constants.CLIName + ` validate "ci/*.yml" --format json`,
		Run: func(cmd *cobra.Command, args []string) {
			opts, files, err := resolveOptions(cmd, args)
			if err != nil {
				fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
				os.Exit(1)
			}
			if err := RunValidate(os.Stdout, files, opts); err != nil {
				if !errors.Is(err, ErrProblemsFound) {
					fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
				}
				os.Exit(1)
			}
		},
	}
	addValidationFlags(cmd)
	cmd.Flags().StringP("format", "f", "text", "Output format: text or json")
	return cmd
}
