// Package php extracts components and call relationships from PHP source
// files. Short class names are expanded to fully-qualified names through
// a per-file namespace resolver before edges are emitted.
package php

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/parser"
)

// templateSuffixes and templateDirs identify PHP template files, which
// hold markup rather than components.
var templateSuffixes = []string{".blade.php", ".phtml", ".twig.php"}

var templateDirs = []string{"views/", "templates/", "resources/views/"}

// PHPParser extracts components from PHP source files.
type PHPParser struct{}

// NewParser creates a new PHP parser.
func NewParser() *PHPParser {
	return &PHPParser{}
}

func (p *PHPParser) Language() parser.Language {
	return parser.LangPHP
}

func (p *PHPParser) Extensions() []string {
	return parser.FileExtensions[parser.LangPHP]
}

func (p *PHPParser) ParseFile(filePath, relPath string, content []byte) (*parser.FileResult, error) {
	result := &parser.FileResult{FilePath: filePath, Language: parser.LangPHP}
	if IsTemplateFile(relPath) {
		return result, nil
	}

	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(php.GetLanguage())

	tree, err := sitterParser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}

	e := &extractor{
		filePath: filePath,
		relPath:  relPath,
		modPath:  parser.ModulePath(relPath),
		content:  content,
		resolver: newNamespaceResolver(),
	}
	e.collectUses(tree.RootNode())
	e.walk(tree.RootNode(), "")

	result.Components = e.components
	result.Edges = e.edges
	return result, nil
}

// IsTemplateFile reports whether the relative path names a PHP template.
func IsTemplateFile(relPath string) bool {
	rel := strings.ToLower(strings.ReplaceAll(relPath, "\\", "/"))
	for _, suffix := range templateSuffixes {
		if strings.HasSuffix(rel, suffix) {
			return true
		}
	}
	for _, dir := range templateDirs {
		if strings.Contains(rel, dir) {
			return true
		}
	}
	return false
}

// namespaceResolver tracks the current namespace and use-statement
// aliases for one file.
type namespaceResolver struct {
	namespace string
	aliases   map[string]string
}

func newNamespaceResolver() *namespaceResolver {
	return &namespaceResolver{aliases: make(map[string]string)}
}

func (r *namespaceResolver) setNamespace(ns string) {
	r.namespace = strings.Trim(ns, "\\")
}

func (r *namespaceResolver) addUse(fqn, alias string) {
	fqn = strings.Trim(fqn, "\\")
	if alias == "" {
		parts := strings.Split(fqn, "\\")
		alias = parts[len(parts)-1]
	}
	r.aliases[alias] = fqn
}

// resolve expands a possibly-short name to its fully-qualified form,
// with namespace separators mapped to dots.
func (r *namespaceResolver) resolve(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "\\") {
		return dotted(strings.Trim(name, "\\"))
	}
	head := name
	rest := ""
	if i := strings.Index(name, "\\"); i >= 0 {
		head, rest = name[:i], name[i:]
	}
	if fqn, ok := r.aliases[head]; ok {
		return dotted(fqn + rest)
	}
	if r.namespace != "" {
		return dotted(r.namespace + "\\" + name)
	}
	return dotted(name)
}

func dotted(fqn string) string {
	return strings.ReplaceAll(strings.Trim(fqn, "\\"), "\\", ".")
}

type extractor struct {
	filePath   string
	relPath    string
	modPath    string
	content    []byte
	resolver   *namespaceResolver
	components []*model.Component
	edges      []*model.CallEdge
}

// collectUses ingests namespace and use declarations, including grouped
// "use Foo\{Bar, Baz as Qux};" forms, before any edges are emitted.
func (e *extractor) collectUses(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "namespace_definition":
			if name := child.ChildByFieldName("name"); name != nil {
				e.resolver.setNamespace(e.nodeText(name))
			}
		case "namespace_use_declaration":
			e.collectUseClauses(child, "")
		}
	}
}

func (e *extractor) collectUseClauses(node *sitter.Node, prefix string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "namespace_use_clause":
			name, alias := "", ""
			for j := 0; j < int(child.NamedChildCount()); j++ {
				c := child.NamedChild(j)
				switch c.Type() {
				case "qualified_name", "name":
					if name == "" {
						name = e.nodeText(c)
					} else {
						alias = e.nodeText(c)
					}
				case "namespace_aliasing_clause":
					alias = strings.TrimSpace(strings.TrimPrefix(e.nodeText(c), "as"))
				}
			}
			if name != "" {
				e.resolver.addUse(prefix+name, alias)
			}
		case "namespace_use_group":
			e.collectUseClauses(child, prefix)
		case "namespace_name", "qualified_name":
			// Prefix of a grouped use declaration.
			prefix = e.nodeText(child) + "\\"
		}
	}
}

var typeKinds = map[string]model.Kind{
	"class_declaration":     model.KindClass,
	"interface_declaration": model.KindInterface,
	"trait_declaration":     model.KindTrait,
	"enum_declaration":      model.KindEnum,
}

func (e *extractor) walk(node *sitter.Node, enclosingClass string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		if kind, ok := typeKinds[child.Type()]; ok {
			e.extractType(child, kind)
			continue
		}

		switch child.Type() {
		case "function_definition":
			e.extractFunction(child, enclosingClass)
		case "method_declaration":
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

	for i := 0; i < int(node.NamedChildCount()); i++ {
		clause := node.NamedChild(i)
		var edgeKind model.EdgeKind
		switch clause.Type() {
		case "base_clause":
			edgeKind = model.EdgeExtends
		case "class_interface_clause":
			edgeKind = model.EdgeImplements
		default:
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			b := clause.NamedChild(j)
			if b.Type() != "name" && b.Type() != "qualified_name" {
				continue
			}
			base := e.nodeText(b)
			comp.BaseTypes = append(comp.BaseTypes, base)
			e.edges = append(e.edges, &model.CallEdge{
				Caller: comp.ID,
				Callee: e.resolver.resolve(base),
				Line:   int(clause.StartPoint().Row) + 1,
				Kind:   edgeKind,
			})
		}
	}
	e.components = append(e.components, comp)

	if body := node.ChildByFieldName("body"); body != nil {
		e.walk(body, name)
	}
}

func (e *extractor) extractFunction(node *sitter.Node, enclosingClass string) {
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
	comp.Parameters = e.paramNames(node)
	e.components = append(e.components, comp)

	if body := node.ChildByFieldName("body"); body != nil {
		e.collectCalls(body, id)
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

func (e *extractor) collectCalls(node *sitter.Node, callerID string) {
	switch node.Type() {
	case "function_call_expression":
		if callee := e.nodeText(node.ChildByFieldName("function")); isCallable(callee) {
			e.edges = append(e.edges, &model.CallEdge{
				Caller: callerID,
				Callee: e.resolver.resolve(callee),
				Line:   int(node.StartPoint().Row) + 1,
				Kind:   model.EdgeCalls,
			})
		}
	case "scoped_call_expression":
		scope := e.fieldText(node, "scope")
		name := e.fieldText(node, "name")
		if name != "" && scope != "" && scope != "self" && scope != "static" && scope != "parent" {
			e.edges = append(e.edges, &model.CallEdge{
				Caller: callerID,
				Callee: e.resolver.resolve(scope) + "." + name,
				Line:   int(node.StartPoint().Row) + 1,
				Kind:   model.EdgeCalls,
			})
		} else if name != "" {
			e.edges = append(e.edges, &model.CallEdge{
				Caller: callerID,
				Callee: name,
				Line:   int(node.StartPoint().Row) + 1,
				Kind:   model.EdgeCalls,
			})
		}
	case "member_call_expression":
		obj := e.fieldText(node, "object")
		if name := e.fieldText(node, "name"); name != "" && (obj == "$this" || isCallable(obj)) {
			e.edges = append(e.edges, &model.CallEdge{
				Caller: callerID,
				Callee: name,
				Line:   int(node.StartPoint().Row) + 1,
				Kind:   model.EdgeCalls,
			})
		}
	case "object_creation_expression":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			c := node.NamedChild(i)
			if c.Type() == "name" || c.Type() == "qualified_name" {
				e.edges = append(e.edges, &model.CallEdge{
					Caller: callerID,
					Callee: e.resolver.resolve(e.nodeText(c)),
					Line:   int(node.StartPoint().Row) + 1,
					Kind:   model.EdgeCalls,
				})
				break
			}
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		e.collectCalls(node.NamedChild(i), callerID)
	}
}

func (e *extractor) paramNames(node *sitter.Node) []string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if name := e.fieldText(p, "name"); name != "" {
			names = append(names, strings.TrimPrefix(name, "$"))
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

// isCallable filters out dynamic call targets like "$handler" or
// complex expressions.
func isCallable(s string) bool {
	if s == "" || strings.HasPrefix(s, "$") {
		return false
	}
	return !strings.ContainsAny(s, "([{ \n)")
}
