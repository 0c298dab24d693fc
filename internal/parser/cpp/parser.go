// Package cpp extracts components and call relationships from C and C++
// source files. Both languages share one extractor; the C++ grammar is a
// superset of the C one for the constructs handled here.
package cpp

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/parser"
)

// CParser extracts components from C source files.
type CParser struct{}

// NewCParser creates a new C parser.
func NewCParser() *CParser {
	return &CParser{}
}

func (p *CParser) Language() parser.Language {
	return parser.LangC
}

func (p *CParser) Extensions() []string {
	return parser.FileExtensions[parser.LangC]
}

func (p *CParser) ParseFile(filePath, relPath string, content []byte) (*parser.FileResult, error) {
	return parseWith(c.GetLanguage(), parser.LangC, filePath, relPath, content)
}

// CPPParser extracts components from C++ source files.
type CPPParser struct{}

// NewCPPParser creates a new C++ parser.
func NewCPPParser() *CPPParser {
	return &CPPParser{}
}

func (p *CPPParser) Language() parser.Language {
	return parser.LangCPP
}

func (p *CPPParser) Extensions() []string {
	return parser.FileExtensions[parser.LangCPP]
}

func (p *CPPParser) ParseFile(filePath, relPath string, content []byte) (*parser.FileResult, error) {
	return parseWith(cpp.GetLanguage(), parser.LangCPP, filePath, relPath, content)
}

func parseWith(lang *sitter.Language, tag parser.Language, filePath, relPath string, content []byte) (*parser.FileResult, error) {
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
	e.walk(tree.RootNode(), "")

	return &parser.FileResult{
		Components: e.components,
		Edges:      e.edges,
		FilePath:   filePath,
		Language:   tag,
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

func (e *extractor) walk(node *sitter.Node, enclosingClass string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		switch child.Type() {
		case "struct_specifier", "class_specifier":
			e.extractType(child)
		case "enum_specifier":
			e.extractEnum(child)
		case "function_definition":
			e.extractFunction(child, enclosingClass)
		default:
			e.walk(child, enclosingClass)
		}
	}
}

func (e *extractor) extractType(node *sitter.Node) {
	name := e.fieldText(node, "name")
	body := node.ChildByFieldName("body")
	// A bare "struct Foo x;" reference has no body; only definitions
	// become components.
	if name == "" || body == nil {
		return
	}
	kind := model.KindStruct
	if node.Type() == "class_specifier" {
		kind = model.KindClass
	}
	comp := e.newComponent(e.modPath+"."+name, name, kind, node)

	// Base classes appear in a base_class_clause (C++ only).
	for i := 0; i < int(node.NamedChildCount()); i++ {
		clause := node.NamedChild(i)
		if clause.Type() != "base_class_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			b := clause.NamedChild(j)
			if b.Type() != "type_identifier" && b.Type() != "qualified_identifier" {
				continue
			}
			base := e.nodeText(b)
			comp.BaseTypes = append(comp.BaseTypes, base)
			e.edges = append(e.edges, &model.CallEdge{
				Caller: comp.ID,
				Callee: strings.ReplaceAll(base, "::", "."),
				Line:   int(clause.StartPoint().Row) + 1,
				Kind:   model.EdgeExtends,
			})
		}
	}
	e.components = append(e.components, comp)
	e.walk(body, name)
}

func (e *extractor) extractEnum(node *sitter.Node) {
	name := e.fieldText(node, "name")
	if name == "" || node.ChildByFieldName("body") == nil {
		return
	}
	e.components = append(e.components, e.newComponent(e.modPath+"."+name, name, model.KindEnum, node))
}

// extractFunction handles free functions, inline member definitions, and
// out-of-line members ("void Foo::bar()"), attributing the latter to
// their class.
func (e *extractor) extractFunction(node *sitter.Node, enclosingClass string) {
	declarator := node.ChildByFieldName("declarator")
	name, class := e.declaratorName(declarator)
	if name == "" {
		return
	}
	if class == "" {
		class = enclosingClass
	}

	id := e.modPath + "." + name
	kind := model.KindFunction
	if class != "" {
		id = e.modPath + "." + class + "." + name
		kind = model.KindMethod
	}
	comp := e.newComponent(id, name, kind, node)
	comp.EnclosingClass = class
	comp.Parameters = e.paramNames(declarator)
	e.components = append(e.components, comp)

	if body := node.ChildByFieldName("body"); body != nil {
		e.collectCalls(body, id)
	}
}

// declaratorName digs through pointer/reference declarators to the
// function name, splitting a qualified "Class::name".
func (e *extractor) declaratorName(node *sitter.Node) (name, class string) {
	for node != nil {
		switch node.Type() {
		case "function_declarator":
			node = node.ChildByFieldName("declarator")
		case "pointer_declarator", "reference_declarator":
			node = node.ChildByFieldName("declarator")
			if node == nil {
				return "", ""
			}
		case "qualified_identifier":
			text := e.nodeText(node)
			parts := strings.Split(text, "::")
			if len(parts) < 2 {
				return text, ""
			}
			return parts[len(parts)-1], strings.Join(parts[:len(parts)-1], ".")
		case "identifier", "field_identifier", "destructor_name":
			return e.nodeText(node), ""
		default:
			return "", ""
		}
	}
	return "", ""
}

func (e *extractor) paramNames(declarator *sitter.Node) []string {
	for declarator != nil && declarator.Type() != "function_declarator" {
		declarator = declarator.ChildByFieldName("declarator")
	}
	if declarator == nil {
		return nil
	}
	params := declarator.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if p.Type() != "parameter_declaration" {
			continue
		}
		if d := p.ChildByFieldName("declarator"); d != nil {
			if n, _ := e.declaratorName(d); n != "" {
				names = append(names, n)
			}
		}
	}
	return names
}

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
		if typ := e.fieldText(node, "type"); typ != "" && !strings.ContainsAny(typ, "([{ ") {
			e.edges = append(e.edges, &model.CallEdge{
				Caller: callerID,
				Callee: strings.ReplaceAll(typ, "::", "."),
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
	text = strings.ReplaceAll(text, "::", ".")
	text = strings.TrimPrefix(text, "this->")
	// Field calls through pointers keep only the member name.
	if i := strings.LastIndex(text, "->"); i >= 0 {
		text = text[i+2:]
	}
	if text == "" || strings.ContainsAny(text, "([{ \n)<*&") {
		return ""
	}
	return text
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
