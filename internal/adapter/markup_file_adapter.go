package adapter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"

	m "srclens.dev/pkg/srclens/internal/model"
)

// MarkupFileAdapter encapsulates grammar-specific parsing so the annotator
// only deals with element positions, never with syntax trees.
type MarkupFileAdapter interface {
	// Parse builds a syntax tree for content and lists its markup elements
	// in document order.
	Parse(ctx context.Context, path m.Path, language m.Language, content []byte) (*m.MarkupUnit, error)
}

// LanguageForPath maps a file extension to the grammar used to parse it.
func LanguageForPath(path m.Path) (m.Language, bool) {
	switch strings.ToLower(filepath.Ext(string(path))) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return m.LanguageJSX, true
	case ".tsx":
		return m.LanguageTSX, true
	case ".html", ".htm":
		return m.LanguageHTML, true
	default:
		return "", false
	}
}

// grammar describes how element nodes look in one tree-sitter grammar.
type grammar struct {
	language     func() *sitter.Language
	elements     map[string]struct{}
	closers      map[string]struct{}
	attribute    string
	nameOf       func(node *sitter.Node, src []byte) string
	attributeKey func(node *sitter.Node, src []byte) string
}

var grammars = map[m.Language]grammar{
	m.LanguageJSX: jsxGrammar(javascript.GetLanguage),
	m.LanguageTSX: jsxGrammar(tsx.GetLanguage),
	m.LanguageHTML: {
		language: html.GetLanguage,
		elements: map[string]struct{}{
			"start_tag":        {},
			"self_closing_tag": {},
		},
		closers:   map[string]struct{}{">": {}, "/>": {}},
		attribute: "attribute",
		nameOf: func(node *sitter.Node, src []byte) string {
			return firstChildContent(node, "tag_name", src)
		},
		attributeKey: func(node *sitter.Node, src []byte) string {
			return firstChildContent(node, "attribute_name", src)
		},
	},
}

func jsxGrammar(language func() *sitter.Language) grammar {
	return grammar{
		language: language,
		elements: map[string]struct{}{
			"jsx_opening_element":      {},
			"jsx_self_closing_element": {},
		},
		closers:   map[string]struct{}{">": {}, "/>": {}},
		attribute: "jsx_attribute",
		nameOf: func(node *sitter.Node, src []byte) string {
			name := node.ChildByFieldName("name")
			if name == nil {
				return ""
			}

			return name.Content(src)
		},
		attributeKey: func(node *sitter.Node, src []byte) string {
			if node.NamedChildCount() == 0 {
				return ""
			}

			return node.NamedChild(0).Content(src)
		},
	}
}

// TreeSitterMarkupAdapter is the tree-sitter backed MarkupFileAdapter.
type TreeSitterMarkupAdapter struct{}

// NewTreeSitterMarkupAdapter constructs a TreeSitterMarkupAdapter.
func NewTreeSitterMarkupAdapter() *TreeSitterMarkupAdapter {
	return &TreeSitterMarkupAdapter{}
}

// Parse implements MarkupFileAdapter. Parsers are not shared between calls, so
// Parse is safe for concurrent use.
func (a *TreeSitterMarkupAdapter) Parse(ctx context.Context, path m.Path, language m.Language, content []byte) (*m.MarkupUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g, ok := grammars[language]
	if !ok {
		return nil, fmt.Errorf("unsupported markup language %q for %s", language, path)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(g.language())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	unit := &m.MarkupUnit{
		Path:     path,
		Language: language,
		Content:  content,
	}

	walkNodes(tree.RootNode(), func(node *sitter.Node) {
		if _, isElement := g.elements[node.Type()]; !isElement {
			return
		}

		name := g.nameOf(node, content)
		if name == "" {
			// Fragments have no name and are not elements.
			return
		}

		unit.Elements = append(unit.Elements, g.element(node, name, content))
	})

	return unit, nil
}

func (g grammar) element(node *sitter.Node, name string, src []byte) m.MarkupElement {
	el := m.MarkupElement{
		Name: name,
		Line: startLine(node, src),
	}

	last := int(node.ChildCount()) - 1
	if last < 1 || node.HasError() {
		return el
	}

	end := node.Child(last)
	if _, ok := g.closers[end.Type()]; !ok || end.IsMissing() {
		return el
	}

	closer := last
	if end.Type() == ">" && node.Child(last-1).Type() == "/" {
		closer = last - 1
	}

	var prevEnd int

	insertAt := -1

	for i := 0; i < closer; i++ {
		child := node.Child(i)

		if child.Type() == g.attribute && isSourceKey(g.attributeKey(child, src)) {
			el.SourceAttrs = append(el.SourceAttrs, m.Span{Start: prevEnd, End: int(child.EndByte())})
		} else {
			insertAt = int(child.EndByte())
		}

		prevEnd = int(child.EndByte())
	}

	if insertAt < 0 {
		return el
	}

	el.InsertAt = insertAt
	el.Positioned = true

	return el
}

// startLine is the 1-based line of the element's first non-blank byte. JSX
// grammars fold the whitespace before a child element into its opening node.
func startLine(node *sitter.Node, src []byte) int {
	line := int(node.StartPoint().Row) + 1

	for i := int(node.StartByte()); i < int(node.EndByte()) && i < len(src); i++ {
		switch src[i] {
		case '\n':
			line++
		case ' ', '\t', '\r':
		default:
			return line
		}
	}

	return line
}

func isSourceKey(key string) bool {
	return key == m.SourceFileKey || key == m.SourceLineKey
}

func walkNodes(node *sitter.Node, visit func(*sitter.Node)) {
	if node == nil {
		return
	}

	visit(node)

	for i := 0; i < int(node.ChildCount()); i++ {
		walkNodes(node.Child(i), visit)
	}
}

func firstChildContent(node *sitter.Node, nodeType string, src []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == nodeType {
			return child.Content(src)
		}
	}

	return ""
}
