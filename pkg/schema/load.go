package schema

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/githubnext/pipelint/pkg/ast"
	"github.com/githubnext/pipelint/pkg/parser"
)

//go:embed schemas/meta_schema.json
var metaSchemaJSON string

//go:embed schemas/pipeline_schema.json
var pipelineSchemaJSON []byte

const metaSchemaURL = "https://github.com/githubnext/pipelint/schemas/meta_schema.json"

// ErrEmptySchema is returned for a schema document with no content
var ErrEmptySchema = errors.New("schema document is empty")

// LoadError reports a schema that could not be read, decoded or linked.
// Line and Column are 1-based and set when the failure could be traced to a
// position in the schema document.
type LoadError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid schema: %v", e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("failed to load schema %s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("failed to load schema %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads a schema document from path. JSON and YAML documents are both
// accepted. Every failure is a *LoadError.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	s, err := Parse(data)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
			return nil, loadErr
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	return s, nil
}

// Parse decodes, meta-validates and links a schema document
func Parse(data []byte) (*Schema, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &LoadError{Err: ErrEmptySchema}
	}

	jsonData := trimmed
	if trimmed[0] != '{' {
		converted, err := yaml.YAMLToJSON(trimmed)
		if err != nil {
			return nil, &LoadError{Err: fmt.Errorf("failed to convert YAML schema: %w", err)}
		}
		jsonData = converted
	}

	var doc any
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, &LoadError{Err: fmt.Errorf("failed to parse schema JSON: %w", err)}
	}
	if doc == nil {
		return nil, &LoadError{Err: ErrEmptySchema}
	}
	if err := validateDocument(doc); err != nil {
		line, column := locate(trimmed, err)
		return nil, &LoadError{Line: line, Column: column, Err: fmt.Errorf("schema document does not match the schema dialect: %s", cleanValidationMessage(err.Error()))}
	}

	var s Schema
	if err := json.Unmarshal(jsonData, &s); err != nil {
		return nil, &LoadError{Err: fmt.Errorf("failed to decode schema: %w", err)}
	}
	if err := link(&s); err != nil {
		return nil, &LoadError{Err: err}
	}
	return &s, nil
}

var defaultSchema = sync.OnceValues(func() (*Schema, error) {
	return Parse(pipelineSchemaJSON)
})

// Default returns the built-in pipeline schema. The returned schema is shared
// and must not be modified.
func Default() (*Schema, error) {
	return defaultSchema()
}

var metaSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(metaSchemaJSON), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse meta-schema JSON: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(metaSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add meta-schema resource: %w", err)
	}
	return compiler.Compile(metaSchemaURL)
})

// validateDocument checks a decoded schema document against the dialect's
// meta-schema
func validateDocument(doc any) error {
	meta, err := metaSchema()
	if err != nil {
		return err
	}
	return meta.Validate(doc)
}

// locate returns the 1-based position of the value the first leaf
// meta-validation failure points at, or zero when it cannot be found
func locate(source []byte, err error) (line, column int) {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return 0, 0
	}
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}

	file := parser.Parse(string(source))
	if len(file.Documents) != 1 || file.Documents[0].Root == nil {
		return 0, 0
	}
	node, lookupErr := ast.Lookup(file.Documents[0].Root, pointer(verr.InstanceLocation))
	if lookupErr != nil {
		return 0, 0
	}
	pos := file.Lines.Position(node.Span.Start)
	return pos.Line + 1, pos.Character + 1
}

// pointer encodes path segments as an RFC 6901 JSON pointer
func pointer(segments []string) string {
	var b strings.Builder
	for _, segment := range segments {
		segment = strings.ReplaceAll(segment, "~", "~0")
		segment = strings.ReplaceAll(segment, "/", "~1")
		b.WriteString("/")
		b.WriteString(segment)
	}
	return b.String()
}

// cleanValidationMessage drops the jsonschema banner line and the empty
// location prefix from a validation error
func cleanValidationMessage(msg string) string {
	var cleaned []string
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "jsonschema validation failed") {
			continue
		}
		line = strings.TrimPrefix(line, "- at '': ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	if len(cleaned) == 0 {
		return "schema validation failed"
	}
	return strings.Join(cleaned, "; ")
}
