// Package typescript extracts components and call relationships from
// TypeScript and TSX source files.
package typescript

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/parser"
)

// maxWalkDepth bounds AST recursion so pathological inputs cannot blow
// the stack.
const maxWalkDepth = 500

// TypeScriptParser extracts components from TypeScript source files.
type TypeScriptParser struct{}

// NewParser creates a new TypeScript parser.
func NewParser() *TypeScriptParser {
	return &TypeScriptParser{}
}

func (p *TypeScriptParser) Language() parser.Language {
	return parser.LangTypeScript
}

func (p *TypeScriptParser) Extensions() []string {
	return parser.FileExtensions[parser.LangTypeScript]
}

func (p *TypeScriptParser) ParseFile(filePath, relPath string, content []byte) (*parser.FileResult, error) {
	lang := typescript.GetLanguage()
	if filepath.Ext(filePath) == ".tsx" {
		lang = tsx.GetLanguage()
	}
	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(lang)

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
	e.walkDefinitions(tree.RootNode(), "", 0)

	return &parser.FileResult{
		Components: e.components,
		Edges:      e.edges,
		FilePath:   filePath,
		Language:   parser.LangTypeScript,
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

func (e *extractor) walkDefinitions(node *sitter.Node, enclosingClass string, depth int) {
	if depth > maxWalkDepth {
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		target := child
		if child.Type() == "export_statement" {
			if decl := child.ChildByFieldName("declaration"); decl != nil {
				target = decl
			}
		}

		switch target.Type() {
		case "class_declaration", "abstract_class_declaration":
			e.extractClass(target, child, depth)
		case "interface_declaration":
			e.extractInterface(target, child)
		case "enum_declaration":
			e.extractNamed(target, child, model.KindEnum)
		case "type_alias_declaration":
			e.extractNamed(target, child, model.KindTypeAlias)
		case "function_declaration", "generator_function_declaration":
			e.extractFunction(target, child)
		case "lexical_declaration", "variable_declaration":
			e.extractVariables(target, depth)
		case "method_definition", "method_signature":
			e.extractMethod(target, enclosingClass, depth)
		case "import_statement":
			e.extractImport(target)
		default:
			e.walkDefinitions(target, enclosingClass, depth+1)
		}
	}
}

func (e *extractor) extractClass(node, span *sitter.Node, depth int) {
	name := e.fieldText(node, "name")
	if name == "" {
		return
	}
	comp := e.newComponent(e.modPath+"."+name, name, model.KindClass, span)

	for i := 0; i < int(node.ChildCount()); i++ {
		h := node.Child(i)
		if h == nil || h.Type() != "class_heritage" {
			continue
		}
		for j := 0; j < int(h.NamedChildCount()); j++ {
			clause := h.NamedChild(j)
			kind := model.EdgeExtends
			if clause.Type() == "implements_clause" {
				kind = model.EdgeImplements
			}
			for k := 0; k < int(clause.NamedChildCount()); k++ {
				base := baseName(e.nodeText(clause.NamedChild(k)))
				if base == "" {
					continue
				}
				comp.BaseTypes = append(comp.BaseTypes, base)
				e.edges = append(e.edges, &model.CallEdge{
					Caller: comp.ID,
					Callee: base,
					Line:   int(clause.StartPoint().Row) + 1,
					Kind:   kind,
				})
			}
		}
	}
	e.components = append(e.components, comp)

	if body := node.ChildByFieldName("body"); body != nil {
		e.walkDefinitions(body, name, depth+1)
	}
}

func (e *extractor) extractInterface(node, span *sitter.Node) {
	name := e.fieldText(node, "name")
	if name == "" {
		return
	}
	comp := e.newComponent(e.modPath+"."+name, name, model.KindInterface, span)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		clause := node.NamedChild(i)
		if clause.Type() != "extends_type_clause" && clause.Type() != "extends_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			if base := baseName(e.nodeText(clause.NamedChild(j))); base != "" {
				comp.BaseTypes = append(comp.BaseTypes, base)
				e.edges = append(e.edges, &model.CallEdge{
					Caller: comp.ID,
					Callee: base,
					Line:   int(clause.StartPoint().Row) + 1,
					Kind:   model.EdgeExtends,
				})
			}
		}
	}
	e.components = append(e.components, comp)
}

func (e *extractor) extractNamed(node, span *sitter.Node, kind model.Kind) {
	name := e.fieldText(node, "name")
	if name == "" {
		return
	}
	e.components = append(e.components, e.newComponent(e.modPath+"."+name, name, kind, span))
}

func (e *extractor) extractFunction(node, span *sitter.Node) {
	name := e.fieldText(node, "name")
	if name == "" {
		return
	}
	id := e.modPath + "." + name
	comp := e.newComponent(id, name, model.KindFunction, span)
	comp.Parameters = e.paramNames(node)
	e.components = append(e.components, comp)

	if body := node.ChildByFieldName("body"); body != nil {
		e.collectCalls(body, id, 0)
	}
}

func (e *extractor) extractMethod(node *sitter.Node, enclosingClass string, depth int) {
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
		e.collectCalls(body, id, depth+1)
	}
}

func (e *extractor) extractVariables(node *sitter.Node, depth int) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		decl := node.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		name := e.fieldText(decl, "name")
		if !isIdentifier(name) {
			continue
		}
		id := e.modPath + "." + name

		value := decl.ChildByFieldName("value")
		kind := model.KindVariable
		if value != nil && (value.Type() == "arrow_function" || value.Type() == "function_expression" || value.Type() == "function") {
			kind = model.KindFunction
		}
		comp := e.newComponent(id, name, kind, node)
		if kind == model.KindFunction {
			comp.Parameters = e.paramNames(value)
		}
		e.components = append(e.components, comp)

		if value != nil {
			e.collectCalls(value, id, depth+1)
		}
	}
}

func (e *extractor) extractImport(node *sitter.Node) {
	var names []string
	var walk func(n *sitter.Node, depth int)
	walk = func(n *sitter.Node, depth int) {
		if depth > maxWalkDepth {
			return
		}
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
			walk(n.NamedChild(i), depth+1)
		}
	}
	walk(node, 0)

	for _, name := range names {
		e.edges = append(e.edges, &model.CallEdge{
			Caller: e.modPath,
			Callee: name,
			Line:   int(node.StartPoint().Row) + 1,
			Kind:   model.EdgeImports,
		})
	}
}

func (e *extractor) collectCalls(node *sitter.Node, callerID string, depth int) {
	if depth > maxWalkDepth {
		return
	}
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
		e.collectCalls(node.NamedChild(i), callerID, depth+1)
	}
}

func (e *extractor) calleeText(fn *sitter.Node) string {
	if fn == nil {
		return ""
	}
	text := e.nodeText(fn)
	text = strings.TrimPrefix(text, "this.")
	if text == "" || strings.ContainsAny(text, "([{ \n)<") {
		return ""
	}
	return text
}

func (e *extractor) paramNames(node *sitter.Node) []string {
	if node == nil {
		return nil
	}
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		text := e.nodeText(params.NamedChild(i))
		if idx := strings.IndexAny(text, "=:?"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(strings.TrimLeft(text, "."))
		if isIdentifier(text) {
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

// baseName strips generic arguments from a heritage expression.
func baseName(s string) string {
	if i := strings.IndexByte(s, '<'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "([{ ") {
		return ""
	}
	return s
}

func isIdentifier(s string) bool {
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
		default:
			return false
		}
	}
	return true
}
