package validator

import (
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/githubnext/pipelint/pkg/ast"
	"github.com/githubnext/pipelint/pkg/parser"
	"github.com/githubnext/pipelint/pkg/schema"
)

func mustSchema(t *testing.T, src string) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(src))
	require.NoError(t, err)
	return s
}

func mustRoot(t *testing.T, text string) *ast.Node {
	t.Helper()
	f := parser.Parse(text)
	require.Len(t, f.Documents, 1)
	require.Empty(t, f.Errors())
	return f.Documents[0].Root
}

func messages(problems []Problem) []string {
	out := make([]string, 0, len(problems))
	for _, p := range problems {
		out = append(out, p.Message)
	}
	return out
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		yaml   string
		want   []string
	}{
		{
			name:   "single type mismatch",
			schema: `{"properties": {"a": {"type": "object"}}}`,
			yaml:   "a: text",
			want:   []string{`Incorrect type. Expected "object".`},
		},
		{
			name:   "type list mismatch",
			schema: `{"properties": {"a": {"type": ["object", "array"]}}}`,
			yaml:   "a: text",
			want:   []string{"Incorrect type. Expected one of object, array."},
		},
		{
			name:   "custom error message",
			schema: `{"properties": {"a": {"type": "object", "errorMessage": "a must be a mapping"}}}`,
			yaml:   "a: text",
			want:   []string{"a must be a mapping"},
		},
		{
			name:   "number accepted by type list with string",
			schema: `{"properties": {"a": {"type": ["boolean", "string"]}}}`,
			yaml:   "a: 12",
		},
		{
			name:   "legacy boolean validated as string",
			schema: `{"properties": {"a": {"type": "string", "pattern": "^true$"}}}`,
			yaml:   "a: yes",
		},
		{
			name:   "number validated as string",
			schema: `{"properties": {"a": {"type": "string", "maxLength": 2}}}`,
			yaml:   "a: 1234",
			want:   []string{"String is longer than the maximum length of 2."},
		},
		{
			name:   "null validated as empty string",
			schema: `{"properties": {"a": {"type": "string", "minLength": 1}}}`,
			yaml:   "a:",
			want:   []string{"String is shorter than the minimum length of 1."},
		},
		{
			name:   "template placeholders skip type checks",
			schema: `{"properties": {"a": {"type": "boolean"}, "b": {"type": ["number"]}, "c": {"type": "object"}}}`,
			yaml:   "a: $(enabled)\nb: $[ variables.count ]\nc: ${{ parameters.settings }}",
		},
		{
			name:   "integer type",
			schema: `{"properties": {"a": {"type": "integer"}, "b": {"type": "integer"}}}`,
			yaml:   "a: 3\nb: 3.5",
			want:   []string{`Incorrect type. Expected "integer".`},
		},
		{
			name:   "numeric bounds",
			schema: `{"properties": {"a": {"minimum": 5}, "b": {"minimum": 5, "exclusiveMinimum": true}, "c": {"maximum": 1.5}, "d": {"maximum": 2, "exclusiveMaximum": true}, "e": {"multipleOf": 3}}}`,
			yaml:   "a: 4\nb: 5\nc: 2\nd: 2\ne: 7",
			want: []string{
				"Value is below the minimum of 5.",
				"Value is below the exclusive minimum of 5.",
				"Value is above the maximum of 1.5.",
				"Value is above the exclusive maximum of 2.",
				"Value is not divisible by 3.",
			},
		},
		{
			name:   "pattern messages",
			schema: `{"properties": {"a": {"pattern": "^\\d+$"}, "b": {"pattern": "^x", "patternErrorMessage": "must start with x"}}}`,
			yaml:   "a: abc\nb: abc",
			want:   []string{`String does not match the pattern of "^\d+$".`, "must start with x"},
		},
		{
			name:   "case-insensitive pattern",
			schema: `{"properties": {"a": {"pattern": "^abc$", "ignoreCase": "value"}}}`,
			yaml:   "a: ABC",
		},
		{
			name:   "enum mismatch",
			schema: `{"properties": {"a": {"enum": ["x", 1, true]}}}`,
			yaml:   "a: z",
			want:   []string{`Value is not accepted. Valid values: "x", 1, true.`},
		},
		{
			name:   "legacy boolean matches a boolean enum entry",
			schema: `{"properties": {"a": {"enum": ["x", 1, true]}}}`,
			yaml:   "a: y",
		},
		{
			name:   "enum number matches by rendering",
			schema: `{"properties": {"a": {"enum": ["1", "2"]}, "b": {"enum": [3]}}}`,
			yaml:   "a: 2\nb: 3",
		},
		{
			name:   "enum ignores value case",
			schema: `{"properties": {"a": {"enum": ["Debug", "Release"], "ignoreCase": "value"}}}`,
			yaml:   "a: release",
		},
		{
			name:   "array bounds and uniqueness",
			schema: `{"properties": {"a": {"minItems": 3, "uniqueItems": true}, "b": {"maxItems": 1}}}`,
			yaml:   "a: [1, 1]\nb: [1, 2]",
			want: []string{
				"Array has too few items. Expected 3 or more.",
				"Array has duplicate items.",
				"Array has too many items. Expected 1 or fewer.",
			},
		},
		{
			name:   "tuple with forbidden additional items",
			schema: `{"properties": {"a": {"items": [{"type": "string"}, {"type": "number"}], "additionalItems": false}}}`,
			yaml:   "a: [x, 1, extra]",
			want:   []string{"Array has too many items according to schema. Expected 2 or fewer."},
		},
		{
			name:   "tuple with additional items schema",
			schema: `{"properties": {"a": {"items": [{"type": "string"}], "additionalItems": {"type": "number"}}}}`,
			yaml:   "a: [x, 1, y]",
			want:   []string{`Incorrect type. Expected "number".`},
		},
		{
			name:   "object property counts",
			schema: `{"properties": {"a": {"maxProperties": 1}, "b": {"minProperties": 2}}}`,
			yaml:   "a: {x: 1, y: 2}\nb: {x: 1}",
			want: []string{
				"Object has more properties than limit of 1.",
				"Object has fewer properties than the required number of 2",
			},
		},
		{
			name:   "array dependencies",
			schema: `{"dependencies": {"a": ["b", "c"]}}`,
			yaml:   "a: 1\nc: 2",
			want:   []string{"Object is missing property b required by property a."},
		},
		{
			name:   "schema dependencies",
			schema: `{"dependencies": {"a": {"required": ["z"]}}}`,
			yaml:   "a: 1",
			want:   []string{`Missing property "z".`},
		},
		{
			name:   "pattern properties",
			schema: `{"patternProperties": {"^x-": {"type": "string"}}, "additionalProperties": false}`,
			yaml:   "x-one: a\nx-two: [2]\nother: 3",
			want:   []string{`Incorrect type. Expected "string".`, "Unexpected property other"},
		},
		{
			name:   "additional properties schema",
			schema: `{"properties": {"a": {}}, "additionalProperties": {"type": "boolean"}}`,
			yaml:   "a: 1\nb: true\nc: 2",
			want:   []string{`Incorrect type. Expected "boolean".`},
		},
		{
			name:   "not",
			schema: `{"properties": {"a": {"not": {"type": "string"}}}}`,
			yaml:   "a: text",
			want:   []string{"Matches a schema that is not allowed."},
		},
		{
			name:   "allOf",
			schema: `{"allOf": [{"required": ["a"]}, {"required": ["b"]}]}`,
			yaml:   "c: 1",
			want:   []string{`Missing property "a".`, `Missing property "b".`},
		},
		{
			name:   "first property single",
			schema: `{"firstProperty": ["task"]}`,
			yaml:   "inputs: {}\ntask: Npm@1",
			want:   []string{"The first property must be task"},
		},
		{
			name:   "first property list",
			schema: `{"firstProperty": ["pwsh", "powershell"]}`,
			yaml:   "script: x",
			want:   []string{"The first property must be one of: pwsh, powershell"},
		},
		{
			name:   "first property alias with case folding",
			schema: `{"firstProperty": ["job"], "properties": {"job": {"aliases": ["phase"], "ignoreCase": "key"}}}`,
			yaml:   "PHASE: build",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustSchema(t, tt.schema)
			root := mustRoot(t, tt.yaml)

			got := messages(Validate(root, s, PolicyGeneric))
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestValidateSeveritiesAndSpans(t *testing.T) {
	t.Run("missing property at the owning key", func(t *testing.T) {
		s := mustSchema(t, `{"properties": {"job": {"required": ["steps"]}}}`)
		problems := Validate(mustRoot(t, "job:\n  name: x\n"), s, PolicyGeneric)
		require.Len(t, problems, 1)
		assert.Equal(t, ast.Span{Start: 0, End: 3}, problems[0].Span)
		assert.Equal(t, SeverityWarning, problems[0].Severity)
	})

	t.Run("missing property on the root", func(t *testing.T) {
		s := mustSchema(t, `{"required": ["steps"]}`)
		problems := Validate(mustRoot(t, "name: x\n"), s, PolicyGeneric)
		require.Len(t, problems, 1)
		assert.Equal(t, ast.Span{Start: 0, End: 1}, problems[0].Span)
	})

	t.Run("unexpected properties at their keys", func(t *testing.T) {
		s := mustSchema(t, `{"properties": {"a": {}}, "additionalProperties": false}`)
		problems := Validate(mustRoot(t, "a: 1\nbb: 2\n~: 3\ncc:\n"), s, PolicyGeneric)
		require.Len(t, problems, 2, spew.Sdump(problems))
		assert.Equal(t, "Unexpected property bb", problems[0].Message)
		assert.Equal(t, ast.Span{Start: 5, End: 7}, problems[0].Span)
		assert.Equal(t, "Unexpected property cc", problems[1].Message)
		assert.Equal(t, ast.Span{Start: 16, End: 18}, problems[1].Span)
	})

	t.Run("duplicate matches through an alias", func(t *testing.T) {
		s := mustSchema(t, `{"properties": {"script": {"aliases": ["bash"]}}}`)
		problems := Validate(mustRoot(t, "script: x\nbash: y\n"), s, PolicyGeneric)
		require.Len(t, problems, 2)
		for _, p := range problems {
			assert.Equal(t, SeverityError, p.Severity)
			assert.Equal(t, "Multiple properties found matching script", p.Message)
		}
		assert.Equal(t, ast.Span{Start: 0, End: 6}, problems[0].Span)
		assert.Equal(t, ast.Span{Start: 10, End: 14}, problems[1].Span)
	})

	t.Run("enum mismatch code", func(t *testing.T) {
		s := mustSchema(t, `{"properties": {"a": {"enum": ["x"]}}}`)
		problems := Validate(mustRoot(t, "a: y\n"), s, PolicyGeneric)
		require.Len(t, problems, 1)
		assert.Equal(t, EnumValueMismatch, problems[0].Code)
	})

	t.Run("deprecation hint on the owning property", func(t *testing.T) {
		s := mustSchema(t, `{"properties": {"server": {"deprecationMessage": "use pool: server"}}}`)
		problems := Validate(mustRoot(t, "server: true\n"), s, PolicyGeneric)
		require.Len(t, problems, 1)
		assert.Equal(t, SeverityHint, problems[0].Severity)
		assert.Equal(t, "use pool: server", problems[0].Message)
		assert.Equal(t, ast.Span{Start: 0, End: 12}, problems[0].Span)
	})

	t.Run("first property error spans the property", func(t *testing.T) {
		s := mustSchema(t, `{"firstProperty": ["task"]}`)
		problems := Validate(mustRoot(t, "inputs: x\ntask: y\n"), s, PolicyGeneric)
		require.Len(t, problems, 1)
		assert.Equal(t, SeverityError, problems[0].Severity)
		assert.Equal(t, ast.Span{Start: 0, End: 9}, problems[0].Span)
	})
}

func TestValidateCaseInsensitiveRequired(t *testing.T) {
	s := mustSchema(t, `{"properties": {"Name": {"ignoreCase": "key"}}, "required": ["Name"]}`)
	assert.Empty(t, Validate(mustRoot(t, "name: x\n"), s, PolicyGeneric))

	strict := mustSchema(t, `{"properties": {"Name": {}}, "required": ["Name"]}`)
	assert.Equal(t, []string{`Missing property "Name".`}, messages(Validate(mustRoot(t, "name: x\n"), strict, PolicyGeneric)))
}

func TestValidateMergeKeyPrecedence(t *testing.T) {
	s := mustSchema(t, `{"properties": {"a": {"enum": [2]}}, "required": ["a"]}`)
	assert.Empty(t, Validate(mustRoot(t, "<<: {a: 1}\na: 2\n"), s, PolicyGeneric))
}

func TestValidateIsIdempotent(t *testing.T) {
	s := mustSchema(t, `{"properties": {"a": {"type": "number"}, "b": {"oneOf": [{"type": "string"}, {"type": "string"}]}}, "additionalProperties": false}`)
	root := mustRoot(t, "a: x\nb: y\nc: z\n")

	first := Validate(root, s, PolicyGeneric)
	second := Validate(root, s, PolicyGeneric)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestValidateNilInputs(t *testing.T) {
	assert.Empty(t, Validate(nil, mustSchema(t, `{}`), PolicyGeneric))
	assert.Empty(t, Validate(mustRoot(t, "a: 1"), nil, PolicyGeneric))
}

func TestMatchingSchemas(t *testing.T) {
	s := mustSchema(t, `{
		"properties": {
			"a": {"type": "string", "description": "first"},
			"b": {"not": {"type": "number", "description": "inverted"}}
		}
	}`)
	root := mustRoot(t, "a: x\nb: y\n")

	all := MatchingSchemas(root, s, PolicyGeneric, -1, nil)
	var descriptions []string
	for _, ms := range all {
		if ms.Schema.Description == "inverted" {
			assert.True(t, ms.Inverted)
		}
		descriptions = append(descriptions, ms.Schema.Description)
	}
	assert.Contains(t, descriptions, "first")
	assert.Contains(t, descriptions, "inverted")

	focused := MatchingSchemas(root, s, PolicyGeneric, strings.Index("a: x\nb: y\n", "x"), nil)
	for _, ms := range focused {
		assert.NotEqual(t, "inverted", ms.Schema.Description, "nodes outside the focus are skipped")
	}

	excluded := MatchingSchemas(root, s, PolicyGeneric, -1, root.Entry("a").Value)
	for _, ms := range excluded {
		assert.NotEqual(t, "first", ms.Schema.Description)
	}
}

func TestValidationProblemsFocus(t *testing.T) {
	s := mustSchema(t, `{"properties": {"a": {"type": "number"}, "b": {"type": "number"}}}`)
	text := "a: x\nb: y\n"
	root := mustRoot(t, text)

	problems := ValidationProblems(root, s, PolicyGeneric, strings.Index(text, "y"), nil)
	require.Len(t, problems, 1)
	assert.Equal(t, ast.Span{Start: 8, End: 9}, problems[0].Span)
}

func TestValidateDefaultSchema(t *testing.T) {
	s, err := schema.Default()
	require.NoError(t, err)

	valid := `trigger:
- main
pool:
  vmImage: ubuntu-latest
steps:
- script: echo hi
  displayName: Say hi
- task: Npm@1
  inputs:
    command: install
`
	assert.Empty(t, Validate(mustRoot(t, valid), s, PolicyGeneric))

	invalid := `steps:
- scrip: echo hi
`
	problems := Validate(mustRoot(t, invalid), s, PolicyGeneric)
	require.NotEmpty(t, problems)
	found := false
	for _, p := range problems {
		if strings.HasPrefix(p.Message, "The first property must be") {
			found = true
			assert.Equal(t, SeverityError, p.Severity)
		}
	}
	assert.True(t, found, "expected a first-property error in %v", messages(problems))
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name    string
		want    ComparisonPolicy
		wantErr bool
	}{
		{name: "", want: PolicyGeneric},
		{name: "generic", want: PolicyGeneric},
		{name: "Alternate", want: PolicyAlternate},
		{name: "kubernetes", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.name)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, strings.ToLower(tt.want.String()), tt.want.String())
	}
}
