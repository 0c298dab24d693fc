// Package csharp extracts components and call relationships from C#
// source files.
package csharp

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/parser"
)

// CSharpParser extracts components from C# source files.
type CSharpParser struct{}

// NewParser creates a new C# parser.
func NewParser() *CSharpParser {
	return &CSharpParser{}
}

func (p *CSharpParser) Language() parser.Language {
	return parser.LangCSharp
}

func (p *CSharpParser) Extensions() []string {
	return parser.FileExtensions[parser.LangCSharp]
}

func (p *CSharpParser) ParseFile(filePath, relPath string, content []byte) (*parser.FileResult, error) {
	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(csharp.GetLanguage())

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
		Language:   parser.LangCSharp,
	}, nil
}

var typeKinds = map[string]model.Kind{
	"class_declaration":     model.KindClass,
	"interface_declaration": model.KindInterface,
	"struct_declaration":    model.KindStruct,
	"enum_declaration":      model.KindEnum,
	"record_declaration":    model.KindRecord,
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
		case "method_declaration", "constructor_declaration", "local_function_statement":
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
	comp.Docstring, comp.HasDoc = e.precedingDocComment(node)

	for i := 0; i < int(node.NamedChildCount()); i++ {
		base := node.NamedChild(i)
		if base.Type() != "base_list" {
			continue
		}
		for j := 0; j < int(base.NamedChildCount()); j++ {
			bt := typeName(e.nodeText(base.NamedChild(j)))
			if bt == "" {
				continue
			}
			comp.BaseTypes = append(comp.BaseTypes, bt)
			// The grammar does not distinguish a base class from an
			// implemented interface; follow the I-prefix convention.
			edgeKind := model.EdgeExtends
			if looksLikeInterface(bt) {
				edgeKind = model.EdgeImplements
			}
			e.edges = append(e.edges, &model.CallEdge{
				Caller: comp.ID,
				Callee: bt,
				Line:   int(base.StartPoint().Row) + 1,
				Kind:   edgeKind,
			})
		}
	}
	e.components = append(e.components, comp)

	if body := node.ChildByFieldName("body"); body != nil {
		e.walk(body, name)
	}
}

func (e *extractor) extractMethod(node *sitter.Node, enclosingClass string) {
	name := e.fieldText(node, "name")
	if name == "" {
		return
	}
	id := e.modPath + "." + name
	kind := model.KindFunction
	if enclosingClass != "" {
		id = e.modPath + "." + enclosingClass + "." + name
		kind = model.KindMethod
	}
	comp := e.newComponent(id, name, kind, node)
	comp.EnclosingClass = enclosingClass
	comp.Docstring, comp.HasDoc = e.precedingDocComment(node)

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
	case "invocation_expression":
		if callee := e.calleeText(node.ChildByFieldName("function")); callee != "" {
			e.edges = append(e.edges, &model.CallEdge{
				Caller: callerID,
				Callee: callee,
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

// precedingDocComment collects the /// comment block above a declaration.
func (e *extractor) precedingDocComment(node *sitter.Node) (string, bool) {
	var lines []string
	prev := node.PrevNamedSibling()
	for prev != nil && prev.Type() == "comment" {
		text := e.nodeText(prev)
		if !strings.HasPrefix(text, "///") {
			break
		}
		line := strings.TrimSpace(strings.TrimPrefix(text, "///"))
		line = stripXMLDocTags(line)
		if line != "" {
			lines = append([]string{line}, lines...)
		}
		prev = prev.PrevNamedSibling()
	}
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

func stripXMLDocTags(s string) string {
	for {
		open := strings.IndexByte(s, '<')
		if open < 0 {
			break
		}
		close := strings.IndexByte(s[open:], '>')
		if close < 0 {
			break
		}
		s = s[:open] + s[open+close+1:]
	}
	return strings.TrimSpace(s)
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

func looksLikeInterface(name string) bool {
	short := name
	if i := strings.LastIndexByte(short, '.'); i >= 0 {
		short = short[i+1:]
	}
	return len(short) >= 2 && short[0] == 'I' && short[1] >= 'A' && short[1] <= 'Z'
}
