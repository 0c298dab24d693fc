// Package javascript extracts components and call relationships from
// JavaScript source files.
package javascript

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/parser"
)

// JavaScriptParser extracts components from JavaScript source files.
type JavaScriptParser struct{}

// NewParser creates a new JavaScript parser.
func NewParser() *JavaScriptParser {
	return &JavaScriptParser{}
}

func (p *JavaScriptParser) Language() parser.Language {
	return parser.LangJavaScript
}

func (p *JavaScriptParser) Extensions() []string {
	return parser.FileExtensions[parser.LangJavaScript]
}

func (p *JavaScriptParser) ParseFile(filePath, relPath string, content []byte) (*parser.FileResult, error) {
	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(javascript.GetLanguage())

	tree, err := sitterParser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}

	e := &extractor{
		filePath: filePath,
		relPath:  relPath,
		modPath:  parser.ModulePath(relPath),
		content:  content,
	}
	e.extract(tree.RootNode())

	return &parser.FileResult{
		Components: e.components,
		Edges:      e.edges,
		FilePath:   filePath,
		Language:   parser.LangJavaScript,
	}, nil
}

type extractor struct {
	filePath   string
	relPath    string
	modPath    string
	content    []byte
	components []*model.Component
	edges      []*model.CallEdge
}

func (e *extractor) extract(root *sitter.Node) {
	e.walkDefinitions(root, "", "")
}

// walkDefinitions emits components and, inside each definition's body,
// collects the call sites attributed to it.
func (e *extractor) walkDefinitions(node *sitter.Node, enclosingClass, callerID string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		target := child
		if child.Type() == "export_statement" {
			if decl := child.ChildByFieldName("declaration"); decl != nil {
				target = decl
			}
		}

		switch target.Type() {
		case "class_declaration":
			e.extractClass(target, child)
		case "function_declaration", "generator_function_declaration":
			e.extractFunction(target, child, enclosingClass)
		case "lexical_declaration", "variable_declaration":
			e.extractVariables(target, child)
		case "method_definition":
			e.extractMethod(target, enclosingClass)
		case "import_statement":
			e.extractImport(target)
		default:
			if callerID != "" {
				e.collectCalls(target, callerID)
			} else {
				e.walkDefinitions(target, enclosingClass, callerID)
			}
		}
	}
}

func (e *extractor) extractClass(node, span *sitter.Node) {
	name := e.fieldText(node, "name")
	if name == "" {
		return
	}
	comp := e.newComponent(e.modPath+"."+name, name, model.KindClass, span)

	for i := 0; i < int(node.ChildCount()); i++ {
		if h := node.Child(i); h != nil && h.Type() == "class_heritage" {
			base := strings.TrimSpace(strings.TrimPrefix(e.nodeText(h), "extends"))
			if isIdentifierLike(base) {
				comp.BaseTypes = append(comp.BaseTypes, base)
				e.edges = append(e.edges, &model.CallEdge{
					Caller: comp.ID,
					Callee: base,
					Line:   int(h.StartPoint().Row) + 1,
					Kind:   model.EdgeExtends,
				})
			}
		}
	}
	e.components = append(e.components, comp)

	if body := node.ChildByFieldName("body"); body != nil {
		e.walkDefinitions(body, name, "")
	}
}

func (e *extractor) extractMethod(node *sitter.Node, enclosingClass string) {
	name := e.fieldText(node, "name")
	if name == "" || enclosingClass == "" {
		return
	}
	id := e.modPath + "." + enclosingClass + "." + name
	comp := e.newComponent(id, name, model.KindMethod, node)
	comp.EnclosingClass = enclosingClass
	comp.Parameters = e.paramNames(node)
	e.components = append(e.components, comp)

	if body := node.ChildByFieldName("body"); body != nil {
		e.collectCalls(body, id)
	}
}

func (e *extractor) extractFunction(node, span *sitter.Node, enclosingClass string) {
	name := e.fieldText(node, "name")
	if name == "" {
		return
	}
	id := e.modPath + "." + name
	kind := model.KindFunction
	comp := e.newComponent(id, name, kind, span)
	comp.EnclosingClass = enclosingClass
	comp.Parameters = e.paramNames(node)
	e.components = append(e.components, comp)

	if body := node.ChildByFieldName("body"); body != nil {
		e.collectCalls(body, id)
	}
}

// extractVariables emits function components for arrow/function
// initializers and variable components otherwise. Call sites in the
// initializer are attributed to the declared name, which lets reactive
// wrappers (ref, computed) be traced to the variable.
func (e *extractor) extractVariables(node, span *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		decl := node.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		name := e.fieldText(decl, "name")
		if !isIdentifierLike(name) {
			continue
		}
		id := e.modPath + "." + name

		value := decl.ChildByFieldName("value")
		kind := model.KindVariable
		if value != nil && (value.Type() == "arrow_function" || value.Type() == "function_expression" || value.Type() == "function") {
			kind = model.KindFunction
		}
		comp := e.newComponent(id, name, kind, span)
		if kind == model.KindFunction && value != nil {
			comp.Parameters = e.paramNames(value)
		}
		e.components = append(e.components, comp)

		if value != nil {
			e.collectCalls(value, id)
		}
	}
}

func (e *extractor) extractImport(node *sitter.Node) {
	var names []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "identifier":
			names = append(names, e.nodeText(n))
		case "import_specifier":
			if local := n.ChildByFieldName("name"); local != nil {
				names = append(names, e.nodeText(local))
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(node)

	for _, name := range names {
		e.edges = append(e.edges, &model.CallEdge{
			Caller: e.modPath,
			Callee: name,
			Line:   int(node.StartPoint().Row) + 1,
			Kind:   model.EdgeImports,
		})
	}
}

// collectCalls walks an expression or body subtree and emits call edges.
func (e *extractor) collectCalls(node *sitter.Node, callerID string) {
	switch node.Type() {
	case "call_expression":
		if callee := e.calleeText(node.ChildByFieldName("function")); callee != "" {
			e.edges = append(e.edges, &model.CallEdge{
				Caller: callerID,
				Callee: callee,
				Line:   int(node.StartPoint().Row) + 1,
				Kind:   model.EdgeCalls,
			})
		}
	case "new_expression":
		if callee := e.calleeText(node.ChildByFieldName("constructor")); callee != "" {
			e.edges = append(e.edges, &model.CallEdge{
				Caller: callerID,
				Callee: callee,
				Line:   int(node.StartPoint().Row) + 1,
				Kind:   model.EdgeCalls,
			})
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		e.collectCalls(node.NamedChild(i), callerID)
	}
}

func (e *extractor) calleeText(fn *sitter.Node) string {
	if fn == nil {
		return ""
	}
	text := e.nodeText(fn)
	text = strings.TrimPrefix(text, "this.")
	if text == "" || strings.ContainsAny(text, "([{ \n)") {
		return ""
	}
	return text
}

func (e *extractor) paramNames(node *sitter.Node) []string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		text := e.nodeText(p)
		if idx := strings.IndexAny(text, "=:"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(strings.TrimLeft(text, "."))
		if isIdentifierLike(text) {
			names = append(names, text)
		}
	}
	return names
}

func (e *extractor) newComponent(id, name string, kind model.Kind, span *sitter.Node) *model.Component {
	return &model.Component{
		ID:           id,
		Name:         name,
		Kind:         kind,
		FilePath:     e.filePath,
		RelativePath: e.relPath,
		StartLine:    int(span.StartPoint().Row) + 1,
		EndLine:      int(span.EndPoint().Row) + 1,
		SourceCode:   e.nodeText(span),
	}
}

func (e *extractor) fieldText(node *sitter.Node, field string) string {
	return e.nodeText(node.ChildByFieldName(field))
}

func (e *extractor) nodeText(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Content(e.content)
}

func isIdentifierLike(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '$':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		case r == '.':
			if i == 0 || i == len(s)-1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
