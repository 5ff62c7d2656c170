package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"

	"github.com/codewithboateng/drulift/internal/ir"
)

// lowerSource parses PHP source with tree-sitter and lowers class-like
// declarations into the IR. Only namespace-level declarations are collected.
func lowerSource(ctx context.Context, content []byte) (ir.File, bool, error) {
	sp := sitter.NewParser()
	sp.SetLanguage(php.GetLanguage())
	tree, err := sp.ParseCtx(ctx, nil, content)
	if err != nil {
		return ir.File{}, false, fmt.Errorf("parse file: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	l := &lowerer{src: content, uses: map[string]string{}}
	l.declarations(root)
	return l.file, root.HasError(), nil
}

type lowerer struct {
	src  []byte
	ns   string
	uses map[string]string // lower(alias) -> fully qualified name
	file ir.File
}

func (l *lowerer) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(l.src)
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func hasChildOfType(n *sitter.Node, types ...string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		t := n.Child(i).Type()
		for _, want := range types {
			if t == want {
				return true
			}
		}
	}
	return false
}

func line(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }

func (l *lowerer) declarations(parent *sitter.Node) {
	for _, n := range namedChildren(parent) {
		switch n.Type() {
		case "namespace_definition":
			l.ns = strings.Trim(l.text(n.ChildByFieldName("name")), `\`)
			l.uses = map[string]string{}
			if l.file.Namespace == "" {
				l.file.Namespace = l.ns
			}
			if body := n.ChildByFieldName("body"); body != nil {
				l.declarations(body)
				l.ns = ""
				l.uses = map[string]string{}
			}
		case "namespace_use_declaration":
			l.useDeclaration(n)
		case "class_declaration":
			l.classLike(n, ir.KindClass)
		case "interface_declaration":
			l.classLike(n, ir.KindInterface)
		case "trait_declaration":
			l.classLike(n, ir.KindTrait)
		case "compound_statement":
			l.declarations(n)
		}
	}
}

// useDeclaration records class imports; function and const imports are
// irrelevant to type names.
func (l *lowerer) useDeclaration(n *sitter.Node) {
	if hasChildOfType(n, "function", "const") {
		return
	}
	prefix := ""
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "namespace_name", "qualified_name", "name":
			prefix = strings.Trim(l.text(c), `\`)
		case "namespace_use_clause":
			l.useClause(c, "")
		case "namespace_use_group":
			for _, gc := range namedChildren(c) {
				l.useClause(gc, prefix)
			}
		}
	}
}

func (l *lowerer) useClause(n *sitter.Node, prefix string) {
	var names []string
	alias := ""
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "qualified_name", "name", "namespace_name":
			names = append(names, l.text(c))
		case "namespace_aliasing_clause":
			for _, a := range namedChildren(c) {
				if a.Type() == "name" {
					alias = l.text(a)
				}
			}
		}
	}
	if len(names) == 0 {
		return
	}
	target := strings.Trim(names[0], `\`)
	if alias == "" && len(names) > 1 {
		alias = names[len(names)-1]
	}
	if prefix != "" {
		target = prefix + `\` + target
	}
	if alias == "" {
		alias = target[strings.LastIndex(target, `\`)+1:]
	}
	l.uses[strings.ToLower(alias)] = target
}

// resolve turns a name as written into a fully qualified name.
func (l *lowerer) resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, `\`) {
		return raw[1:]
	}
	if strings.HasPrefix(strings.ToLower(raw), `namespace\`) {
		return l.qualify(raw[len(`namespace\`):])
	}
	first, rest, qualified := strings.Cut(raw, `\`)
	if target, ok := l.uses[strings.ToLower(first)]; ok {
		if qualified {
			return target + `\` + rest
		}
		return target
	}
	return l.qualify(raw)
}

func (l *lowerer) qualify(name string) string {
	if l.ns == "" {
		return name
	}
	return l.ns + `\` + name
}

func (l *lowerer) classLike(n *sitter.Node, kind ir.ClassKind) {
	c := ir.Class{
		Name:     l.qualify(l.text(n.ChildByFieldName("name"))),
		Kind:     kind,
		Abstract: hasChildOfType(n, "abstract_modifier"),
		Line:     line(n),
	}
	for _, ch := range namedChildren(n) {
		switch ch.Type() {
		case "base_clause":
			for i, b := range typeNames(ch) {
				if kind == ir.KindClass && i == 0 {
					c.Extends = l.resolve(l.text(b))
					continue
				}
				c.Implements = append(c.Implements, l.resolve(l.text(b)))
			}
		case "class_interface_clause":
			for _, b := range typeNames(ch) {
				c.Implements = append(c.Implements, l.resolve(l.text(b)))
			}
		}
	}
	for _, m := range namedChildren(n.ChildByFieldName("body")) {
		if m.Type() == "method_declaration" {
			c.Methods = append(c.Methods, l.method(m))
		}
	}
	l.file.Classes = append(l.file.Classes, c)
}

func typeNames(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range namedChildren(n) {
		if c.Type() == "name" || c.Type() == "qualified_name" {
			out = append(out, c)
		}
	}
	return out
}

func (l *lowerer) method(n *sitter.Node) ir.Method {
	m := ir.Method{
		Name:     l.text(n.ChildByFieldName("name")),
		Line:     line(n),
		Abstract: hasChildOfType(n, "abstract_modifier"),
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return m
	}
	m.HasBody = true
	for _, st := range namedChildren(body) {
		m.Body = append(m.Body, l.statement(st))
	}
	return m
}

func (l *lowerer) statement(n *sitter.Node) ir.Stmt {
	if n.Type() == "expression_statement" {
		if kids := namedChildren(n); len(kids) > 0 {
			return &ir.ExprStmt{X: l.expr(kids[0]), Line: line(n)}
		}
	}
	return &ir.OtherStmt{Kind: n.Type(), Line: line(n)}
}

func (l *lowerer) expr(n *sitter.Node) ir.Expr {
	if n == nil {
		return &ir.OpaqueExpr{Kind: "missing"}
	}
	switch n.Type() {
	case "member_call_expression", "nullsafe_member_call_expression":
		name := n.ChildByFieldName("name")
		if name == nil || name.Type() != "name" {
			break
		}
		return &ir.MethodCall{
			Receiver: l.expr(n.ChildByFieldName("object")),
			Name:     l.text(name),
			Args:     l.arguments(n.ChildByFieldName("arguments")),
			Line:     line(n),
		}
	case "string":
		return &ir.StringLit{Value: unquoteSingle(l.text(n))}
	case "encapsed_string":
		if isPlainString(n) {
			return &ir.StringLit{Value: unquoteDouble(l.text(n))}
		}
	case "nowdoc":
		if body, ok := heredocBody(l.text(n)); ok {
			return &ir.StringLit{Value: body}
		}
	case "heredoc":
		if body, ok := heredocBody(l.text(n)); ok && isPlainHeredoc(n, body) {
			return &ir.StringLit{Value: unescape(body, heredocEscapes)}
		}
	case "array_creation_expression":
		arr := &ir.ArrayLit{}
		for _, el := range namedChildren(n) {
			if el.Type() != "array_element_initializer" {
				continue
			}
			arr.Items = append(arr.Items, l.arrayElement(el))
		}
		return arr
	case "parenthesized_expression":
		if kids := namedChildren(n); len(kids) == 1 {
			return l.expr(kids[0])
		}
	}
	return &ir.OpaqueExpr{Kind: n.Type(), Text: snippet(l.text(n))}
}

func (l *lowerer) arrayElement(el *sitter.Node) ir.Expr {
	kids := namedChildren(el)
	if len(kids) == 0 {
		return &ir.OpaqueExpr{Kind: "missing"}
	}
	// "k => v" has two children; the value is last.
	v := kids[len(kids)-1]
	if v.Type() == "variadic_unpacking" {
		return &ir.OpaqueExpr{Kind: v.Type(), Text: snippet(l.text(v))}
	}
	return l.expr(v)
}

func (l *lowerer) arguments(n *sitter.Node) []ir.Expr {
	var out []ir.Expr
	for _, a := range namedChildren(n) {
		if a.Type() != "argument" {
			out = append(out, l.expr(a))
			continue
		}
		kids := namedChildren(a)
		if len(kids) == 0 {
			out = append(out, &ir.OpaqueExpr{Kind: "missing"})
			continue
		}
		// Named arguments carry the name first; the value is last.
		v := kids[len(kids)-1]
		if v.Type() == "variadic_unpacking" {
			out = append(out, &ir.OpaqueExpr{Kind: v.Type(), Text: snippet(l.text(v))})
			continue
		}
		out = append(out, l.expr(v))
	}
	return out
}

// isPlainString reports whether a double-quoted string has no interpolation.
func isPlainString(n *sitter.Node) bool {
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "string_content", "string_value", "escape_sequence":
		default:
			return false
		}
	}
	return true
}

func stripQuotes(s string, q byte) string {
	if len(s) > 0 && (s[0] == 'b' || s[0] == 'B') {
		s = s[1:]
	}
	if len(s) >= 2 && s[0] == q && s[len(s)-1] == q {
		return s[1 : len(s)-1]
	}
	return s
}

// unquoteSingle decodes a single-quoted PHP literal: only \' and \\ escape.
func unquoteSingle(s string) string {
	s = stripQuotes(s, '\'')
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\'' || s[i+1] == '\\') {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

var doubleEscapes = map[byte]byte{
	'n': '\n', 't': '\t', 'r': '\r', 'v': '\v', 'f': '\f', 'e': 0x1b,
	'\\': '\\', '$': '$', '"': '"',
}

// Heredoc bodies do not need escaped double quotes, so \" stays as written.
var heredocEscapes = map[byte]byte{
	'n': '\n', 't': '\t', 'r': '\r', 'v': '\v', 'f': '\f', 'e': 0x1b,
	'\\': '\\', '$': '$',
}

// unquoteDouble decodes the simple escapes of an interpolation-free
// double-quoted literal. Unknown escapes are kept verbatim, as PHP does.
func unquoteDouble(s string) string {
	return unescape(stripQuotes(s, '"'), doubleEscapes)
}

func unescape(s string, escapes map[byte]byte) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			if r, ok := escapes[s[i+1]]; ok {
				sb.WriteByte(r)
				i++
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// heredocBody returns the text between the opening line and the closing
// marker of a heredoc or nowdoc. The closing marker's indentation is removed
// from every body line, as PHP 7.3+ does.
func heredocBody(src string) (string, bool) {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	open := strings.IndexByte(src, '\n')
	if open < 0 || !strings.HasPrefix(src, "<<<") {
		return "", false
	}
	rest := src[open+1:]
	body, closing := "", rest
	if i := strings.LastIndexByte(rest, '\n'); i >= 0 {
		body, closing = rest[:i], rest[i+1:]
	}
	indent := closing[:len(closing)-len(strings.TrimLeft(closing, " \t"))]
	if indent == "" {
		return body, true
	}
	lines := strings.Split(body, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimPrefix(ln, indent)
	}
	return strings.Join(lines, "\n"), true
}

// isPlainHeredoc reports whether a heredoc has no interpolation. Both the
// tree and the body text are checked.
func isPlainHeredoc(n *sitter.Node, body string) bool {
	if interpolates(n) {
		return false
	}
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '$':
			if i+1 < len(body) && (body[i+1] == '{' || body[i+1] == '_' || isLetter(body[i+1])) {
				return false
			}
		case '{':
			if i+1 < len(body) && body[i+1] == '$' {
				return false
			}
		}
	}
	return true
}

func interpolates(n *sitter.Node) bool {
	for _, c := range namedChildren(n) {
		t := c.Type()
		if t == "variable_name" || t == "dynamic_variable_name" || strings.HasSuffix(t, "_expression") {
			return true
		}
		if interpolates(c) {
			return true
		}
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
