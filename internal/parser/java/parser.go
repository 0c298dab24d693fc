// Package java extracts components and call relationships from Java
// source files.
package java

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/parser"
)

// JavaParser extracts components from Java source files.
type JavaParser struct{}

// NewParser creates a new Java parser.
func NewParser() *JavaParser {
	return &JavaParser{}
}

func (p *JavaParser) Language() parser.Language {
	return parser.LangJava
}

func (p *JavaParser) Extensions() []string {
	return parser.FileExtensions[parser.LangJava]
}

func (p *JavaParser) ParseFile(filePath, relPath string, content []byte) (*parser.FileResult, error) {
	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(java.GetLanguage())

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
	e.walk(tree.RootNode(), "")

	return &parser.FileResult{
		Components: e.components,
		Edges:      e.edges,
		FilePath:   filePath,
		Language:   parser.LangJava,
	}, nil
}

var typeKinds = map[string]model.Kind{
	"class_declaration":           model.KindClass,
	"interface_declaration":       model.KindInterface,
	"enum_declaration":            model.KindEnum,
	"record_declaration":          model.KindRecord,
	"annotation_type_declaration": model.KindAnnotation,
}

type extractor struct {
	filePath   string
	relPath    string
	modPath    string
	content    []byte
	components []*model.Component
	edges      []*model.CallEdge
}

func (e *extractor) walk(node *sitter.Node, enclosingClass string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		if kind, ok := typeKinds[child.Type()]; ok {
			e.extractType(child, kind)
			continue
		}

		switch child.Type() {
		case "method_declaration", "constructor_declaration":
			e.extractMethod(child, enclosingClass)
		default:
			e.walk(child, enclosingClass)
		}
	}
}

func (e *extractor) extractType(node *sitter.Node, kind model.Kind) {
	name := e.fieldText(node, "name")
	if name == "" {
		return
	}
	comp := e.newComponent(e.modPath+"."+name, name, kind, node)
	comp.Docstring, comp.HasDoc = e.precedingJavadoc(node)

	if super := node.ChildByFieldName("superclass"); super != nil {
		base := typeName(strings.TrimSpace(strings.TrimPrefix(e.nodeText(super), "extends")))
		if base != "" {
			comp.BaseTypes = append(comp.BaseTypes, base)
			e.edges = append(e.edges, &model.CallEdge{
				Caller: comp.ID,
				Callee: base,
				Line:   int(super.StartPoint().Row) + 1,
				Kind:   model.EdgeExtends,
			})
		}
	}
	if ifaces := node.ChildByFieldName("interfaces"); ifaces != nil {
		e.heritageEdges(ifaces, comp, model.EdgeImplements)
	}
	// Interfaces extend other interfaces through an extends_interfaces
	// clause that has no field name.
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if c := node.NamedChild(i); c.Type() == "extends_interfaces" {
			e.heritageEdges(c, comp, model.EdgeExtends)
		}
	}
	e.components = append(e.components, comp)

	if body := node.ChildByFieldName("body"); body != nil {
		e.walk(body, name)
	}
}

func (e *extractor) heritageEdges(clause *sitter.Node, comp *model.Component, kind model.EdgeKind) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "type_identifier", "scoped_type_identifier", "generic_type":
			if base := typeName(e.nodeText(n)); base != "" {
				comp.BaseTypes = append(comp.BaseTypes, base)
				e.edges = append(e.edges, &model.CallEdge{
					Caller: comp.ID,
					Callee: base,
					Line:   int(n.StartPoint().Row) + 1,
					Kind:   kind,
				})
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(clause)
}

func (e *extractor) extractMethod(node *sitter.Node, enclosingClass string) {
	name := e.fieldText(node, "name")
	if name == "" || enclosingClass == "" {
		return
	}
	id := e.modPath + "." + enclosingClass + "." + name
	comp := e.newComponent(id, name, model.KindMethod, node)
	comp.EnclosingClass = enclosingClass
	comp.Docstring, comp.HasDoc = e.precedingJavadoc(node)

	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			if pname := e.fieldText(params.NamedChild(i), "name"); pname != "" {
				comp.Parameters = append(comp.Parameters, pname)
			}
		}
	}
	e.components = append(e.components, comp)

	if body := node.ChildByFieldName("body"); body != nil {
		e.collectCalls(body, id)
	}
}

func (e *extractor) collectCalls(node *sitter.Node, callerID string) {
	switch node.Type() {
	case "method_invocation":
		name := e.fieldText(node, "name")
		if obj := node.ChildByFieldName("object"); obj != nil {
			if objText := e.nodeText(obj); isDottedIdentifier(objText) && objText != "this" {
				name = strings.TrimPrefix(objText, "this.") + "." + name
			}
		}
		if name != "" {
			e.edges = append(e.edges, &model.CallEdge{
				Caller: callerID,
				Callee: name,
				Line:   int(node.StartPoint().Row) + 1,
				Kind:   model.EdgeCalls,
			})
		}
	case "object_creation_expression":
		if typ := typeName(e.fieldText(node, "type")); typ != "" {
			e.edges = append(e.edges, &model.CallEdge{
				Caller: callerID,
				Callee: typ,
				Line:   int(node.StartPoint().Row) + 1,
				Kind:   model.EdgeCalls,
			})
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		e.collectCalls(node.NamedChild(i), callerID)
	}
}

// precedingJavadoc returns the block comment immediately above a
// declaration, if it is a Javadoc comment.
func (e *extractor) precedingJavadoc(node *sitter.Node) (string, bool) {
	prev := node.PrevNamedSibling()
	if prev == nil || (prev.Type() != "block_comment" && prev.Type() != "comment") {
		return "", false
	}
	text := e.nodeText(prev)
	if !strings.HasPrefix(text, "/**") {
		return "", false
	}
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimSuffix(text, "*/")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
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

// typeName strips generic arguments from a type reference.
func typeName(s string) string {
	if i := strings.IndexByte(s, '<'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "([{ ") {
		return ""
	}
	return s
}

func isDottedIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
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
