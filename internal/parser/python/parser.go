// Package python extracts components and call relationships from Python
// source files.
package python

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/parser"
)

// PythonParser extracts components from Python source files.
type PythonParser struct{}

// NewParser creates a new Python parser.
func NewParser() *PythonParser {
	return &PythonParser{}
}

func (p *PythonParser) Language() parser.Language {
	return parser.LangPython
}

func (p *PythonParser) Extensions() []string {
	return parser.FileExtensions[parser.LangPython]
}

func (p *PythonParser) ParseFile(filePath, relPath string, content []byte) (*parser.FileResult, error) {
	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(python.GetLanguage())

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
	e.extractDefinitions(tree.RootNode(), "", "")
	e.extractRelationships(tree.RootNode(), "", "")

	return &parser.FileResult{
		Components: e.components,
		Edges:      e.edges,
		FilePath:   filePath,
		Language:   parser.LangPython,
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

// extractDefinitions is the first pass: emit a Component for every class
// and function definition. enclosingClass carries the class name while
// walking a class body; enclosingID carries the innermost component id.
func (e *extractor) extractDefinitions(node *sitter.Node, enclosingClass, enclosingID string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		target := child
		if child.Type() == "decorated_definition" {
			if def := child.ChildByFieldName("definition"); def != nil {
				target = def
			}
		}

		switch target.Type() {
		case "class_definition":
			comp := e.classComponent(target, child)
			if comp == nil {
				continue
			}
			e.components = append(e.components, comp)
			if body := target.ChildByFieldName("body"); body != nil {
				e.extractDefinitions(body, comp.Name, comp.ID)
			}
		case "function_definition":
			comp := e.functionComponent(target, child, enclosingClass)
			if comp == nil {
				continue
			}
			e.components = append(e.components, comp)
			if body := target.ChildByFieldName("body"); body != nil {
				// Nested defs keep the outer function as caller scope but
				// are not emitted as components of their own.
				e.extractDefinitions(body, "", comp.ID)
			}
		}
	}
}

func (e *extractor) classComponent(node, span *sitter.Node) *model.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := e.nodeText(nameNode)

	comp := &model.Component{
		ID:           e.modPath + "." + name,
		Name:         name,
		Kind:         model.KindClass,
		FilePath:     e.filePath,
		RelativePath: e.relPath,
		StartLine:    int(span.StartPoint().Row) + 1,
		EndLine:      int(span.EndPoint().Row) + 1,
		SourceCode:   e.nodeText(span),
	}
	if doc := e.bodyDocstring(node); doc != "" {
		comp.Docstring = doc
		comp.HasDoc = true
	}
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			base := e.nodeText(supers.NamedChild(i))
			if base != "" && base != "object" {
				comp.BaseTypes = append(comp.BaseTypes, base)
			}
		}
	}
	return comp
}

func (e *extractor) functionComponent(node, span *sitter.Node, enclosingClass string) *model.Component {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := e.nodeText(nameNode)

	id := e.modPath + "." + name
	kind := model.KindFunction
	if enclosingClass != "" {
		id = e.modPath + "." + enclosingClass + "." + name
		kind = model.KindMethod
	}

	comp := &model.Component{
		ID:             id,
		Name:           name,
		Kind:           kind,
		FilePath:       e.filePath,
		RelativePath:   e.relPath,
		StartLine:      int(span.StartPoint().Row) + 1,
		EndLine:        int(span.EndPoint().Row) + 1,
		SourceCode:     e.nodeText(span),
		EnclosingClass: enclosingClass,
	}
	if doc := e.bodyDocstring(node); doc != "" {
		comp.Docstring = doc
		comp.HasDoc = true
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := paramName(e.nodeText(params.NamedChild(i)))
			if p != "" && p != "self" && p != "cls" {
				comp.Parameters = append(comp.Parameters, p)
			}
		}
	}
	return comp
}

// extractRelationships is the second pass: emit a CallEdge for every call
// site and inheritance clause, attributed to the innermost enclosing
// definition.
func (e *extractor) extractRelationships(node *sitter.Node, enclosingClass, callerID string) {
	switch node.Type() {
	case "class_definition":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		name := e.nodeText(nameNode)
		id := e.modPath + "." + name
		if supers := node.ChildByFieldName("superclasses"); supers != nil {
			for i := 0; i < int(supers.NamedChildCount()); i++ {
				base := e.nodeText(supers.NamedChild(i))
				if base != "" && base != "object" {
					e.edges = append(e.edges, &model.CallEdge{
						Caller: id,
						Callee: base,
						Line:   int(supers.StartPoint().Row) + 1,
						Kind:   model.EdgeExtends,
					})
				}
			}
		}
		if body := node.ChildByFieldName("body"); body != nil {
			e.extractRelationships(body, name, id)
		}
		return
	case "function_definition":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		name := e.nodeText(nameNode)
		id := e.modPath + "." + name
		if enclosingClass != "" {
			id = e.modPath + "." + enclosingClass + "." + name
		}
		if body := node.ChildByFieldName("body"); body != nil {
			e.extractRelationships(body, "", id)
		}
		return
	case "call":
		if callerID != "" {
			if callee := e.calleeText(node.ChildByFieldName("function")); callee != "" {
				e.edges = append(e.edges, &model.CallEdge{
					Caller: callerID,
					Callee: callee,
					Line:   int(node.StartPoint().Row) + 1,
					Kind:   model.EdgeCalls,
				})
			}
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		e.extractRelationships(node.NamedChild(i), enclosingClass, callerID)
	}
}

// calleeText renders a call target as dotted text, dropping self/cls
// qualifiers so method calls resolve against class members.
func (e *extractor) calleeText(fn *sitter.Node) string {
	if fn == nil {
		return ""
	}
	text := e.nodeText(fn)
	text = strings.TrimPrefix(text, "self.")
	text = strings.TrimPrefix(text, "cls.")
	if text == "" || strings.ContainsAny(text, "([{ \n") {
		return ""
	}
	return text
}

func (e *extractor) bodyDocstring(node *sitter.Node) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	expr := first.NamedChild(0)
	if expr.Type() != "string" {
		return ""
	}
	return cleanDocstring(e.nodeText(expr))
}

func (e *extractor) nodeText(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Content(e.content)
}

func cleanDocstring(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			s = s[len(q) : len(s)-len(q)]
			break
		}
	}
	return strings.TrimSpace(s)
}

// paramName strips default values and annotations from a parameter.
func paramName(p string) string {
	if i := strings.IndexAny(p, ":="); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimLeft(p, "*")
	return strings.TrimSpace(p)
}
