// Package golang extracts components and call relationships from Go
// source files using the standard library AST.
package golang

import (
	"go/ast"
	gparser "go/parser"
	"go/token"
	"strings"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/parser"
)

// goBuiltins are callee names that never form dependency edges.
var goBuiltins = map[string]bool{
	"append": true, "cap": true, "clear": true, "close": true,
	"complex": true, "copy": true, "delete": true, "imag": true,
	"len": true, "make": true, "max": true, "min": true, "new": true,
	"panic": true, "print": true, "println": true, "real": true,
	"recover": true,
}

// GoParser extracts components from Go source files.
type GoParser struct{}

// NewParser creates a new Go parser.
func NewParser() *GoParser {
	return &GoParser{}
}

func (p *GoParser) Language() parser.Language {
	return parser.LangGo
}

func (p *GoParser) Extensions() []string {
	return parser.FileExtensions[parser.LangGo]
}

func (p *GoParser) ParseFile(filePath, relPath string, content []byte) (*parser.FileResult, error) {
	fset := token.NewFileSet()
	file, err := gparser.ParseFile(fset, filePath, content, gparser.ParseComments)
	if file == nil {
		// Partial ASTs are still usable; only a nil file is fatal.
		return nil, err
	}

	e := &extractor{
		filePath: filePath,
		relPath:  relPath,
		modPath:  parser.ModulePath(relPath),
		content:  content,
		fset:     fset,
	}
	e.extractDeclarations(file)
	e.extractCalls(file)

	return &parser.FileResult{
		Components: e.components,
		Edges:      e.edges,
		FilePath:   filePath,
		Language:   parser.LangGo,
	}, nil
}

type extractor struct {
	filePath   string
	relPath    string
	modPath    string
	content    []byte
	fset       *token.FileSet
	components []*model.Component
	edges      []*model.CallEdge
}

func (e *extractor) extractDeclarations(file *ast.File) {
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			e.extractFunc(d)
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok {
					e.extractType(d, ts)
				}
			}
		}
	}
}

func (e *extractor) extractFunc(d *ast.FuncDecl) {
	name := d.Name.Name
	id := e.modPath + "." + name
	kind := model.KindFunction
	recv := ""

	if d.Recv != nil && len(d.Recv.List) > 0 {
		recv = receiverTypeName(d.Recv.List[0].Type)
		if recv != "" {
			id = e.modPath + "." + recv + "." + name
			kind = model.KindMethod
		}
	}

	comp := e.newComponent(id, name, kind, d)
	comp.EnclosingClass = recv
	if d.Doc != nil {
		comp.Docstring = strings.TrimSpace(d.Doc.Text())
		comp.HasDoc = comp.Docstring != ""
	}
	if d.Type.Params != nil {
		for _, field := range d.Type.Params.List {
			for _, pname := range field.Names {
				comp.Parameters = append(comp.Parameters, pname.Name)
			}
		}
	}
	e.components = append(e.components, comp)
}

func (e *extractor) extractType(d *ast.GenDecl, ts *ast.TypeSpec) {
	name := ts.Name.Name
	id := e.modPath + "." + name

	var kind model.Kind
	var embedded []string
	switch t := ts.Type.(type) {
	case *ast.StructType:
		kind = model.KindStruct
		if t.Fields != nil {
			for _, field := range t.Fields.List {
				if len(field.Names) == 0 {
					if emb := typeExprName(field.Type); emb != "" {
						embedded = append(embedded, emb)
					}
				}
			}
		}
	case *ast.InterfaceType:
		kind = model.KindInterface
		if t.Methods != nil {
			for _, field := range t.Methods.List {
				if len(field.Names) == 0 {
					if emb := typeExprName(field.Type); emb != "" {
						embedded = append(embedded, emb)
					}
				}
			}
		}
	default:
		kind = model.KindTypeAlias
	}

	comp := e.newComponent(id, name, kind, ts)
	if ts.Doc != nil {
		comp.Docstring = strings.TrimSpace(ts.Doc.Text())
	} else if d.Doc != nil && len(d.Specs) == 1 {
		comp.Docstring = strings.TrimSpace(d.Doc.Text())
	}
	comp.HasDoc = comp.Docstring != ""

	for _, emb := range embedded {
		comp.BaseTypes = append(comp.BaseTypes, emb)
		e.edges = append(e.edges, &model.CallEdge{
			Caller: id,
			Callee: emb,
			Line:   e.line(ts.Pos()),
			Kind:   model.EdgeExtends,
		})
	}
	e.components = append(e.components, comp)
}

// extractCalls walks every function body and records call sites
// attributed to the enclosing function or method.
func (e *extractor) extractCalls(file *ast.File) {
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}

		callerID := e.modPath + "." + fn.Name.Name
		recvIdent := ""
		recvType := ""
		if fn.Recv != nil && len(fn.Recv.List) > 0 {
			recvType = receiverTypeName(fn.Recv.List[0].Type)
			if recvType != "" {
				callerID = e.modPath + "." + recvType + "." + fn.Name.Name
			}
			if len(fn.Recv.List[0].Names) > 0 {
				recvIdent = fn.Recv.List[0].Names[0].Name
			}
		}

		ast.Inspect(fn.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			callee := e.calleeName(call.Fun, recvIdent, recvType)
			if callee == "" || goBuiltins[callee] {
				return true
			}
			e.edges = append(e.edges, &model.CallEdge{
				Caller: callerID,
				Callee: callee,
				Line:   e.line(call.Pos()),
				Kind:   model.EdgeCalls,
			})
			return true
		})
	}
}

// calleeName renders a call target. Calls through the method receiver
// are rewritten to Type.Method so they resolve against the component
// registry.
func (e *extractor) calleeName(fun ast.Expr, recvIdent, recvType string) string {
	switch f := fun.(type) {
	case *ast.Ident:
		return f.Name
	case *ast.SelectorExpr:
		if x, ok := f.X.(*ast.Ident); ok {
			if x.Name == recvIdent && recvType != "" {
				return recvType + "." + f.Sel.Name
			}
			return x.Name + "." + f.Sel.Name
		}
		return f.Sel.Name
	case *ast.IndexExpr:
		// Generic instantiation f[T](...).
		return e.calleeName(f.X, recvIdent, recvType)
	}
	return ""
}

func (e *extractor) newComponent(id, name string, kind model.Kind, node ast.Node) *model.Component {
	src := ""
	s := e.fset.Position(node.Pos()).Offset
	eo := e.fset.Position(node.End()).Offset
	if s >= 0 && eo <= len(e.content) && s <= eo {
		src = string(e.content[s:eo])
	}
	return &model.Component{
		ID:           id,
		Name:         name,
		Kind:         kind,
		FilePath:     e.filePath,
		RelativePath: e.relPath,
		StartLine:    e.line(node.Pos()),
		EndLine:      e.line(node.End()),
		SourceCode:   src,
	}
}

func (e *extractor) line(pos token.Pos) int {
	return e.fset.Position(pos).Line
}

// receiverTypeName normalizes a method receiver type: pointer stars and
// generic type parameters are stripped so S, *S, and S[T] all map to S.
func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	}
	return ""
}

// typeExprName renders an embedded field's type name.
func typeExprName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return typeExprName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			return x.Name + "." + t.Sel.Name
		}
		return t.Sel.Name
	case *ast.IndexExpr:
		return typeExprName(t.X)
	}
	return ""
}
