// Package vue extracts components from Vue single-file components. The
// SFC envelope is parsed with the HTML grammar; the script block is
// delegated to the TypeScript or JavaScript strategy with line numbers
// shifted back into the .vue file, and the template is walked for
// component usage, event handlers, and bindings.
package vue

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/parser"
	"github.com/imyousuf/codescribe/internal/parser/javascript"
	"github.com/imyousuf/codescribe/internal/parser/typescript"
)

// vueBuiltins are tag names that never produce uses_component edges.
var vueBuiltins = map[string]bool{
	"slot": true, "component": true, "transition": true,
	"transition-group": true, "keep-alive": true, "teleport": true,
	"suspense": true,
}

// vueReactivityFns mark variables created through Vue's reactivity API.
var vueReactivityFns = map[string]bool{
	"ref": true, "reactive": true, "computed": true, "readonly": true,
	"shallowRef": true, "shallowReactive": true, "toRef": true,
	"toRefs": true,
}

var plainIdentRe = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z0-9_$]*$`)

var interpolationRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_$][a-zA-Z0-9_$]*)\s*\}\}`)

// VueParser extracts components from Vue single-file components.
type VueParser struct{}

// NewParser creates a new Vue SFC parser.
func NewParser() *VueParser {
	return &VueParser{}
}

func (p *VueParser) Language() parser.Language {
	return parser.LangVue
}

func (p *VueParser) Extensions() []string {
	return parser.FileExtensions[parser.LangVue]
}

func (p *VueParser) ParseFile(filePath, relPath string, content []byte) (*parser.FileResult, error) {
	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(html.GetLanguage())

	tree, err := sitterParser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}

	componentID := parser.ModulePath(relPath)
	e := &extractor{
		filePath:    filePath,
		relPath:     relPath,
		componentID: componentID,
		content:     content,
	}

	root := tree.RootNode()
	script := e.findScriptBlock(root)
	template := e.findTemplate(root)

	if script != nil && strings.TrimSpace(script.content) != "" {
		e.analyzeScript(script)
	}
	if template != nil {
		e.analyzeTemplate(template)
	}

	// The whole file is one vue_component; it goes first so the file's
	// top-level element leads its registry entry.
	base := filepath.Base(filePath)
	comp := &model.Component{
		ID:           componentID,
		Name:         strings.TrimSuffix(base, filepath.Ext(base)),
		Kind:         model.KindVueComponent,
		FilePath:     filePath,
		RelativePath: relPath,
		StartLine:    1,
		EndLine:      strings.Count(string(content), "\n") + 1,
		SourceCode:   string(content),
	}
	e.components = append([]*model.Component{comp}, e.components...)
	e.enrichMetadata()

	return &parser.FileResult{
		Components: e.components,
		Edges:      e.edges,
		FilePath:   filePath,
		Language:   parser.LangVue,
	}, nil
}

type scriptBlock struct {
	content   string
	lang      string
	isSetup   bool
	startLine int
}

type extractor struct {
	filePath    string
	relPath     string
	componentID string
	content     []byte
	components  []*model.Component
	edges       []*model.CallEdge
}

// findScriptBlock locates the <script> element and captures its raw
// text, language attribute, setup flag, and the zero-based line where
// the script content begins.
func (e *extractor) findScriptBlock(root *sitter.Node) *scriptBlock {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "script_element" {
			continue
		}

		var startTag, rawText *sitter.Node
		for j := 0; j < int(child.NamedChildCount()); j++ {
			sub := child.NamedChild(j)
			switch sub.Type() {
			case "start_tag":
				startTag = sub
			case "raw_text":
				rawText = sub
			}
		}
		if rawText == nil {
			return nil
		}

		block := &scriptBlock{content: rawText.Content(e.content)}
		if startTag != nil {
			for j := 0; j < int(startTag.NamedChildCount()); j++ {
				attr := startTag.NamedChild(j)
				if attr.Type() != "attribute" {
					continue
				}
				name, value := e.attribute(attr)
				switch name {
				case "setup":
					block.isSetup = true
				case "lang":
					block.lang = value
				}
			}
		}

		if strings.HasPrefix(block.content, "\n") {
			block.content = block.content[1:]
			block.startLine = int(rawText.StartPoint().Row) + 1
		} else {
			block.startLine = int(rawText.StartPoint().Row)
		}
		return block
	}
	return nil
}

func (e *extractor) findTemplate(root *sitter.Node) *sitter.Node {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "element" && e.tagName(child) == "template" {
			return child
		}
	}
	return nil
}

// analyzeScript runs the TypeScript or JavaScript strategy over the
// script body and shifts all line numbers by the block's offset, once.
func (e *extractor) analyzeScript(block *scriptBlock) {
	var (
		res *parser.FileResult
		err error
	)
	if block.lang == "ts" || block.lang == "tsx" || block.isSetup {
		res, err = typescript.NewParser().ParseFile(e.filePath, e.relPath, []byte(block.content))
	} else {
		res, err = javascript.NewParser().ParseFile(e.filePath, e.relPath, []byte(block.content))
	}
	if err != nil || res == nil {
		return
	}

	for _, comp := range res.Components {
		comp.RelativePath = e.relPath
		comp.StartLine += block.startLine
		comp.EndLine += block.startLine
		e.components = append(e.components, comp)
	}
	for _, edge := range res.Edges {
		if edge.Line > 0 {
			edge.Line += block.startLine
		}
		// Imports collected at script scope belong to the component.
		if edge.Kind == model.EdgeImports {
			edge.Caller = e.componentID
		}
		e.edges = append(e.edges, edge)
	}
}

// analyzeTemplate walks the template subtree and emits edges for
// component tags, event handler directives, prop bindings, and
// interpolations.
func (e *extractor) analyzeTemplate(template *sitter.Node) {
	stack := []*sitter.Node{template}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node.Type() {
		case "element":
			e.extractElement(node)
		case "text":
			e.extractInterpolations(node)
		}

		for i := 0; i < int(node.NamedChildCount()); i++ {
			stack = append(stack, node.NamedChild(i))
		}
	}
}

func (e *extractor) extractElement(node *sitter.Node) {
	var tagNode *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "start_tag" || child.Type() == "self_closing_tag" {
			tagNode = child
			break
		}
	}
	if tagNode == nil {
		return
	}

	tag := e.tagNameOf(tagNode)
	if tag == "" {
		return
	}

	// Component reference: PascalCase tag that is not a Vue built-in.
	if tag[0] >= 'A' && tag[0] <= 'Z' && !vueBuiltins[strings.ToLower(tag)] {
		e.edges = append(e.edges, &model.CallEdge{
			Caller: e.componentID,
			Callee: tag,
			Line:   int(tagNode.StartPoint().Row) + 1,
			Kind:   model.EdgeUsesComponent,
		})
	}

	for i := 0; i < int(tagNode.NamedChildCount()); i++ {
		attr := tagNode.NamedChild(i)
		if attr.Type() == "attribute" {
			e.extractDirective(attr)
		}
	}
}

// extractDirective handles @event="handler" and :prop="binding"
// attributes whose value is a plain identifier.
func (e *extractor) extractDirective(attr *sitter.Node) {
	name, value := e.attribute(attr)
	if name == "" || value == "" || !plainIdentRe.MatchString(value) {
		return
	}

	var kind model.EdgeKind
	switch {
	case strings.HasPrefix(name, "@"):
		kind = model.EdgeCalls
	case strings.HasPrefix(name, ":"):
		kind = model.EdgeReferences
	default:
		return
	}
	e.edges = append(e.edges, &model.CallEdge{
		Caller: e.componentID,
		Callee: value,
		Line:   int(attr.StartPoint().Row) + 1,
		Kind:   kind,
	})
}

func (e *extractor) extractInterpolations(text *sitter.Node) {
	content := text.Content(e.content)
	for _, match := range interpolationRe.FindAllStringSubmatch(content, -1) {
		e.edges = append(e.edges, &model.CallEdge{
			Caller: e.componentID,
			Callee: match[1],
			Line:   int(text.StartPoint().Row) + 1,
			Kind:   model.EdgeReferences,
		})
	}
}

// enrichMetadata annotates script variables created through Vue macros
// and reactivity functions.
func (e *extractor) enrichMetadata() {
	callees := map[string]map[string]bool{}
	for _, edge := range e.edges {
		if callees[edge.Caller] == nil {
			callees[edge.Caller] = map[string]bool{}
		}
		callees[edge.Caller][edge.Callee] = true
	}

	for _, comp := range e.components {
		if comp.Kind != model.KindVariable {
			continue
		}
		for callee := range callees[comp.ID] {
			name := callee
			if i := strings.LastIndexByte(name, '.'); i >= 0 {
				name = name[i+1:]
			}
			switch {
			case name == "defineProps" || name == "withDefaults":
				comp.Kind = model.KindVueProps
			case name == "defineEmits":
				comp.Kind = model.KindVueEmits
			case vueReactivityFns[name]:
				if comp.Attrs == nil {
					comp.Attrs = map[string]string{}
				}
				comp.Attrs["reactivity"] = name
			}
		}
	}
}

func (e *extractor) tagName(element *sitter.Node) string {
	for i := 0; i < int(element.NamedChildCount()); i++ {
		child := element.NamedChild(i)
		if child.Type() == "start_tag" || child.Type() == "self_closing_tag" {
			return e.tagNameOf(child)
		}
	}
	return ""
}

func (e *extractor) tagNameOf(tag *sitter.Node) string {
	for i := 0; i < int(tag.NamedChildCount()); i++ {
		child := tag.NamedChild(i)
		if child.Type() == "tag_name" {
			return child.Content(e.content)
		}
	}
	return ""
}

// attribute returns an attribute's name and unquoted value.
func (e *extractor) attribute(attr *sitter.Node) (name, value string) {
	for i := 0; i < int(attr.NamedChildCount()); i++ {
		child := attr.NamedChild(i)
		switch child.Type() {
		case "attribute_name":
			name = child.Content(e.content)
		case "quoted_attribute_value":
			value = strings.Trim(child.Content(e.content), `"'`)
		case "attribute_value":
			value = child.Content(e.content)
		}
	}
	return name, value
}
