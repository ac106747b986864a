package parser

import (
	"fmt"
	"math"
	"strings"

	goast "github.com/goccy/go-yaml/ast"
	yamlparser "github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/token"

	"github.com/githubnext/pipelint/pkg/ast"
)

// ErrExpectedValue is reported for a document whose root cannot be built
const ErrExpectedValue = "Expected a YAML object, array or literal"

// missingSeparatorFragments are syntax error fragments raised when content
// continues where a new document or a dedent was expected
var missingSeparatorFragments = []string{
	"end of the stream or a document separator is expected",
	"value cannot be placed after document separator",
	"non-map value is specified",
	"unexpected key name",
}

// IsMissingSeparatorError reports whether a syntax error message indicates
// content that should have started a new document
func IsMissingSeparatorError(message string) bool {
	for _, fragment := range missingSeparatorFragments {
		if strings.Contains(message, fragment) {
			return true
		}
	}
	return false
}

// Parse normalizes text into one Document per YAML document. It never fails:
// syntax errors are recorded on the documents they belong to. When the parser
// rejects the whole text, each "---" separated chunk is parsed on its own so
// the remaining documents are still produced.
func Parse(text string) *File {
	f := &File{Text: text, Lines: NewLineIndex(text)}
	if isBlank(text) {
		return f
	}

	docs, err := parseChunk(f, text, 0)
	if err == nil {
		f.Documents = docs
		return f
	}

	chunks := splitDocuments(f.Lines)
	if len(chunks) <= 1 {
		f.Documents = []*Document{syntaxErrorDocument(f, err, 0)}
		return f
	}
	for _, firstLine := range chunks {
		lastLine := f.Lines.LineCount()
		for _, next := range chunks {
			if next > firstLine {
				lastLine = next
				break
			}
		}
		chunk := text[f.Lines.LineStart(firstLine):f.Lines.LineStart(lastLine)]
		docs, err := parseChunk(f, chunk, firstLine)
		if err != nil {
			f.Documents = append(f.Documents, syntaxErrorDocument(f, err, firstLine))
			continue
		}
		f.Documents = append(f.Documents, docs...)
	}
	return f
}

func parseChunk(f *File, chunk string, firstLine int) ([]*Document, error) {
	parsed, err := yamlparser.ParseBytes([]byte(chunk), 0, yamlparser.AllowDuplicateMapKey())
	if err != nil {
		return nil, err
	}

	var docs []*Document
	for _, d := range parsed.Docs {
		if isEmptyBody(d.Body) {
			continue
		}
		b := &builder{
			file:      f,
			lineBase:  firstLine,
			doc:       &Document{},
			anchors:   make(map[string]goast.Node),
			expanding: make(map[string]bool),
		}
		docs = append(docs, b.document(d))
	}
	return docs, nil
}

// splitDocuments returns the first line of every "---" separated chunk
func splitDocuments(lines *LineIndex) []int {
	chunks := []int{0}
	for i := 1; i < lines.LineCount(); i++ {
		line := lines.Line(i)
		if line == "---" || strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "---\t") {
			chunks = append(chunks, i)
		}
	}
	return chunks
}

func syntaxErrorDocument(f *File, err error, lineOffset int) *Document {
	line, column, message, tk := ExtractYAMLError(err, lineOffset)
	span := ast.Span{Start: f.Lines.LineStart(lineOffset)}
	if line > 0 {
		span.Start = f.Lines.runeOffset(line-1, max(column-1, 0))
	}
	span.End = span.Start
	if tk != nil && tk.Value != "" && strings.HasPrefix(f.Text[span.Start:], tk.Value) {
		span.End += len(tk.Value)
	} else if span.Start < len(f.Text) {
		span.End++
	}
	return &Document{Errors: []Problem{{Span: span, Message: message}}}
}

func isEmptyBody(body goast.Node) bool {
	switch body.(type) {
	case nil, *goast.CommentGroupNode, *goast.CommentNode:
		return true
	}
	return false
}

// builder converts one goccy/go-yaml document into an ast tree
type builder struct {
	file      *File
	lineBase  int
	doc       *Document
	anchors   map[string]goast.Node
	expanding map[string]bool
}

func (b *builder) document(d *goast.DocumentNode) *Document {
	root := b.build(nil, d.Body)
	if root == nil {
		start := b.offset(d.Start)
		if tk := d.Body.GetToken(); tk != nil {
			start = b.offset(tk)
		}
		b.error(ast.Span{Start: start, End: start}, ErrExpectedValue)
	}
	b.doc.Root = root
	return b.doc
}

func (b *builder) error(span ast.Span, message string) {
	b.doc.Errors = append(b.doc.Errors, Problem{Span: span, Message: message})
}

func (b *builder) warning(span ast.Span, message string) {
	b.doc.Warnings = append(b.doc.Warnings, Problem{Span: span, Message: message})
}

// offset converts a token position into a byte offset in the full text
func (b *builder) offset(tk *token.Token) int {
	if tk == nil || tk.Position == nil {
		return b.file.Lines.LineStart(b.lineBase)
	}
	return b.file.Lines.runeOffset(tk.Position.Line-1+b.lineBase, tk.Position.Column-1)
}

// tokenSpan returns the source range of a scalar token
func (b *builder) tokenSpan(tk *token.Token) ast.Span {
	start := b.offset(tk)
	if tk == nil {
		return ast.Span{Start: start, End: start}
	}

	text := b.file.Text
	end := start
	switch tk.Type {
	case token.DoubleQuoteType:
		end = scanQuoted(text, start, '"')
	case token.SingleQuoteType:
		end = scanQuoted(text, start, '\'')
	default:
		if tk.Value != "" && strings.HasPrefix(text[start:], tk.Value) {
			end = start + len(tk.Value)
		}
	}
	if end == start {
		end = start + len(strings.TrimSpace(tk.Origin))
	}
	return ast.Span{Start: start, End: min(max(end, start), len(text))}
}

// scanQuoted returns the offset just past the closing quote of the quoted
// scalar starting at start
func scanQuoted(text string, start int, quote byte) int {
	if start >= len(text) || text[start] != quote {
		return start
	}
	for i := start + 1; i < len(text); i++ {
		switch {
		case quote == '"' && text[i] == '\\':
			i++
		case text[i] == quote:
			if quote == '\'' && i+1 < len(text) && text[i+1] == '\'' {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(text)
}

// literalSpan returns the range of a block scalar: the header indicator
// through the last non-blank line indented deeper than the header's line
func (b *builder) literalSpan(n *goast.LiteralNode) ast.Span {
	start := b.offset(n.Start)
	lines := b.file.Lines
	headerLine := lines.Position(start).Line
	indent := blockIndent(lines.Line(headerLine))
	end := lines.lineEnd(headerLine)
	for line := headerLine + 1; line < lines.LineCount(); line++ {
		content := lines.Line(line)
		if strings.TrimSpace(content) == "" {
			continue
		}
		if blockIndent(content) <= indent {
			break
		}
		end = lines.lineEnd(line)
	}
	return ast.Span{Start: start, End: end}
}

// blockIndent measures indentation, counting "- " sequence indicators as indentation
func blockIndent(line string) int {
	i := 0
	for i < len(line) {
		switch {
		case line[i] == ' ':
			i++
		case line[i] == '-' && i+1 < len(line) && line[i+1] == ' ':
			i += 2
		default:
			return i
		}
	}
	return i
}

func (b *builder) build(parent *ast.Node, n goast.Node) *ast.Node {
	switch n := n.(type) {
	case nil:
		return nil
	case *goast.TagNode:
		return b.build(parent, n.Value)
	case *goast.AnchorNode:
		b.anchors[nodeText(n.Name)] = n.Value
		return b.build(parent, n.Value)
	case *goast.AliasNode:
		return b.alias(parent, n)
	case *goast.MappingNode:
		return b.mapping(parent, n.Values, n.IsFlowStyle, n.Start, n.End)
	case *goast.MappingValueNode:
		return b.mapping(parent, []*goast.MappingValueNode{n}, false, nil, nil)
	case *goast.SequenceNode:
		return b.sequence(parent, n)
	case *goast.NullNode:
		return ast.NewNull(parent, b.tokenSpan(n.Token))
	case *goast.BoolNode:
		return ast.NewBoolean(parent, b.tokenSpan(n.Token), n.Value)
	case *goast.IntegerNode:
		return ast.NewNumber(parent, b.tokenSpan(n.Token), integerValue(n.Value), true)
	case *goast.FloatNode:
		return ast.NewNumber(parent, b.tokenSpan(n.Token), n.Value, false)
	case *goast.InfinityNode:
		return ast.NewNumber(parent, b.tokenSpan(n.Token), n.Value, false)
	case *goast.NanNode:
		return ast.NewNumber(parent, b.tokenSpan(n.Token), math.NaN(), false)
	case *goast.StringNode:
		return b.scalar(parent, n.Token, n.Value)
	case *goast.MergeKeyNode:
		return ast.NewString(parent, b.tokenSpan(n.Token), n.Token.Value, false)
	case *goast.LiteralNode:
		value := ""
		if n.Value != nil {
			value = n.Value.Value
		}
		return ast.NewString(parent, b.literalSpan(n), value, false)
	default:
		return nil
	}
}

func (b *builder) scalar(parent *ast.Node, tk *token.Token, value string) *ast.Node {
	span := b.tokenSpan(tk)
	if tk != nil && tk.Type == token.StringType {
		if v, ok := LegacyBoolean(value); ok {
			return ast.NewBoolean(parent, span, v)
		}
	}
	return ast.NewString(parent, span, value, false)
}

func integerValue(v any) float64 {
	switch v := v.(type) {
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// alias rebuilds the anchored node under parent. Every node of the rebuilt
// subtree takes the span of the alias, so problems inside the value point at
// the use site and lookups at the alias reach the whole subtree.
func (b *builder) alias(parent *ast.Node, n *goast.AliasNode) *ast.Node {
	span := ast.Span{Start: b.offset(n.Start)}
	name := nodeText(n.Value)
	span.End = span.Start + 1
	if n.Value != nil {
		span.End = max(span.End, b.tokenSpan(n.Value.GetToken()).End)
	}

	target, ok := b.anchors[name]
	switch {
	case !ok:
		b.error(span, fmt.Sprintf("Unresolved alias %q.", name))
		return ast.NewNull(parent, span)
	case b.expanding[name]:
		b.error(span, fmt.Sprintf("Alias %q is used inside its own anchor.", name))
		return ast.NewNull(parent, span)
	}

	b.expanding[name] = true
	defer delete(b.expanding, name)

	node := b.build(parent, target)
	if node == nil {
		return ast.NewNull(parent, span)
	}
	respan(node, span, make(map[*ast.Node]bool))
	return node
}

// respan sets span on n and everything below it, merged entries included
func respan(n *ast.Node, span ast.Span, seen map[*ast.Node]bool) {
	if n == nil || seen[n] {
		return
	}
	seen[n] = true
	n.Span = span
	for _, child := range n.Children() {
		respan(child, span, seen)
	}
	for _, entry := range n.Entries {
		respan(entry, span, seen)
	}
}

func (b *builder) mapping(parent *ast.Node, pairs []*goast.MappingValueNode, flow bool, startTk, endTk *token.Token) *ast.Node {
	obj := ast.NewObject(parent, ast.Span{})
	start, end := b.addProperties(obj, pairs)
	if flow && startTk != nil {
		start = b.offset(startTk)
		if endTk != nil {
			end = b.offset(endTk) + 1
		}
	}
	obj.Span = ast.Span{Start: start, End: max(start, end)}
	return obj
}

// addProperties adds the pairs of one YAML mapping to obj, resolving merge
// keys and compile-time expression keys. It returns the covered range.
func (b *builder) addProperties(obj *ast.Node, pairs []*goast.MappingValueNode) (start, end int) {
	start = -1
	seen := make(map[string]bool, len(pairs))
	for _, mv := range pairs {
		key := unwrapKey(mv.Key)
		keySpan := b.keySpan(key)
		if start < 0 {
			start = keySpan.Start
		}
		end = max(end, keySpan.End)

		if _, isMerge := key.(*goast.MergeKeyNode); isMerge {
			if merged := b.merge(obj, mv.Value); merged != nil {
				end = max(end, merged.Span.End)
			}
			continue
		}

		name := nodeText(key)
		if seen[name] {
			b.warning(keySpan, fmt.Sprintf("Duplicate key %q.", name))
		}
		seen[name] = true

		if IsCompileTimeExpression(name) {
			end = max(end, b.hoistExpression(obj, mv.Value))
			continue
		}

		p := b.property(obj, mv, keySpan, name)
		obj.AddProperty(p)
		end = max(end, p.Span.End)
	}
	return max(start, 0), end
}

func (b *builder) keySpan(key goast.Node) ast.Span {
	if key == nil {
		return ast.Span{}
	}
	return b.tokenSpan(key.GetToken())
}

func (b *builder) property(obj *ast.Node, mv *goast.MappingValueNode, keySpan ast.Span, name string) *ast.Node {
	valueStart := keySpan.End
	if mv.Start != nil && mv.Start.Type == token.MappingValueType {
		valueStart = max(valueStart, b.offset(mv.Start)+1)
	}

	p := ast.NewProperty(obj, ast.Span{Start: keySpan.Start, End: valueStart}, keySpan, name)
	var value *ast.Node
	if !isImplicitNull(mv.Value) {
		value = b.build(p, mv.Value)
	}
	if value == nil {
		value = ast.NewNull(p, ast.Span{Start: valueStart, End: valueStart})
	}
	p.SetValue(value)
	p.Span.End = max(p.Span.End, value.Span.End)
	return p
}

// merge hoists the properties of a "<<" value into obj: a mapping, or a
// sequence of mappings applied in order. The merged properties are owned by
// obj afterwards; the container they came from is not part of the tree.
func (b *builder) merge(obj *ast.Node, value goast.Node) *ast.Node {
	source := b.build(nil, value)
	if source == nil {
		return nil
	}
	switch source.Kind {
	case ast.Object:
		for _, p := range source.Entries {
			obj.MergeProperty(p)
		}
	case ast.Array:
		for _, item := range source.Items {
			if item.Kind != ast.Object {
				continue
			}
			for _, p := range item.Entries {
				obj.MergeProperty(p)
			}
		}
	}
	return source
}

// hoistExpression injects the properties of a compile-time expression's
// mapping value into obj. Other values contribute nothing.
func (b *builder) hoistExpression(obj *ast.Node, value goast.Node) int {
	switch v := value.(type) {
	case *goast.TagNode:
		return b.hoistExpression(obj, v.Value)
	case *goast.AnchorNode:
		b.anchors[nodeText(v.Name)] = v.Value
		return b.hoistExpression(obj, v.Value)
	case *goast.MappingNode:
		_, end := b.addProperties(obj, v.Values)
		return end
	case *goast.MappingValueNode:
		_, end := b.addProperties(obj, []*goast.MappingValueNode{v})
		return end
	}
	return 0
}

func (b *builder) sequence(parent *ast.Node, n *goast.SequenceNode) *ast.Node {
	arr := ast.NewArray(parent, ast.Span{})
	start := b.offset(n.Start)
	end := start + 1
	for _, item := range n.Values {
		end = max(end, b.addItem(arr, item))
	}
	if n.IsFlowStyle && n.End != nil {
		end = b.offset(n.End) + 1
	}
	arr.Span = ast.Span{Start: start, End: min(end, len(b.file.Text))}
	return arr
}

// addItem appends a sequence item to arr and returns the end of the source it
// consumed. An item whose first key is a compile-time expression is replaced
// by the expression's value: a sequence is spliced in, a mapping becomes the
// item and an absent value drops the item.
func (b *builder) addItem(arr *ast.Node, item goast.Node) int {
	if mv := firstPair(item); mv != nil && IsCompileTimeExpression(nodeText(unwrapKey(mv.Key))) {
		if isImplicitNull(mv.Value) {
			return 0
		}
		switch b.resolve(mv.Value).(type) {
		case *goast.SequenceNode:
			value := b.build(arr, mv.Value)
			for _, spliced := range value.Items {
				arr.AddItem(spliced)
			}
			return value.Span.End
		case *goast.MappingNode, *goast.MappingValueNode:
			value := b.build(arr, mv.Value)
			arr.AddItem(value)
			return value.Span.End
		}
	}

	node := b.build(arr, item)
	if node == nil {
		return 0
	}
	arr.AddItem(node)
	return node.Span.End
}

// resolve looks through tags, anchors and aliases without building anything
func (b *builder) resolve(n goast.Node) goast.Node {
	for depth := 0; depth < 32; depth++ {
		switch v := n.(type) {
		case *goast.TagNode:
			n = v.Value
		case *goast.AnchorNode:
			n = v.Value
		case *goast.AliasNode:
			target, ok := b.anchors[nodeText(v.Value)]
			if !ok {
				return n
			}
			n = target
		default:
			return n
		}
	}
	return n
}

func firstPair(n goast.Node) *goast.MappingValueNode {
	switch v := n.(type) {
	case *goast.TagNode:
		return firstPair(v.Value)
	case *goast.AnchorNode:
		return firstPair(v.Value)
	case *goast.MappingValueNode:
		return v
	case *goast.MappingNode:
		if len(v.Values) > 0 {
			return v.Values[0]
		}
	}
	return nil
}

func unwrapKey(n goast.Node) goast.Node {
	for {
		switch k := n.(type) {
		case *goast.MappingKeyNode:
			n = k.Value
		case *goast.TagNode:
			n = k.Value
		case *goast.AnchorNode:
			n = k.Value
		default:
			return n
		}
	}
}

func isImplicitNull(n goast.Node) bool {
	if n == nil {
		return true
	}
	null, ok := n.(*goast.NullNode)
	return ok && null.Token != nil && null.Token.Type == token.ImplicitNullType
}

// nodeText returns the scalar text of a key, anchor name or alias name
func nodeText(n goast.Node) string {
	switch v := n.(type) {
	case nil:
		return ""
	case *goast.StringNode:
		return v.Value
	}
	tk := n.GetToken()
	if tk == nil {
		return ""
	}
	return tk.Value
}
