// Package model defines the data types shared by the analysis pipeline:
// extracted components, call edges, the dependency graph, and the
// hierarchical module tree produced by clustering.
package model

// Kind classifies an extracted code element.
type Kind string

const (
	KindClass        Kind = "class"
	KindInterface    Kind = "interface"
	KindStruct       Kind = "struct"
	KindEnum         Kind = "enum"
	KindRecord       Kind = "record"
	KindAnnotation   Kind = "annotation"
	KindTrait        Kind = "trait"
	KindFunction     Kind = "function"
	KindMethod       Kind = "method"
	KindVariable     Kind = "variable"
	KindTypeAlias    Kind = "type_alias"
	KindVueComponent Kind = "vue_component"
	KindVueProps     Kind = "vue_props"
	KindVueEmits     Kind = "vue_emits"
)

// Component is a single extracted code element. IDs are dotted module
// paths derived from the file's path relative to the repository root:
// "pkg.file.Name" for top-level elements, "pkg.file.Class.Method" for
// members. Kinds outside the known set are preserved verbatim.
type Component struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Kind           Kind              `json:"kind"`
	FilePath       string            `json:"file_path"`
	RelativePath   string            `json:"relative_path"`
	StartLine      int               `json:"start_line"`
	EndLine        int               `json:"end_line"`
	SourceCode     string            `json:"source_code,omitempty"`
	HasDoc         bool              `json:"has_doc"`
	Docstring      string            `json:"docstring,omitempty"`
	Parameters     []string          `json:"parameters,omitempty"`
	BaseTypes      []string          `json:"base_types,omitempty"`
	EnclosingClass string            `json:"enclosing_class,omitempty"`
	DependsOn      map[string]bool   `json:"-"`
	Metrics        map[string]int    `json:"metrics,omitempty"`
	Attrs          map[string]string `json:"attrs,omitempty"`
}

// AddDependency records that the component depends on the given id.
func (c *Component) AddDependency(id string) {
	if c.DependsOn == nil {
		c.DependsOn = make(map[string]bool)
	}
	c.DependsOn[id] = true
}

// DisplayName returns the human-facing label used in prompts.
func (c *Component) DisplayName() string {
	if c.EnclosingClass != "" && c.Kind == KindMethod {
		return c.EnclosingClass + "." + c.Name
	}
	return c.Name
}

// IsClassLike reports whether the component declares a type with members.
func (c *Component) IsClassLike() bool {
	switch c.Kind {
	case KindClass, KindInterface, KindStruct, KindEnum, KindRecord, KindTrait:
		return true
	}
	return false
}

// EdgeKind classifies a relationship between two components.
type EdgeKind string

const (
	EdgeCalls         EdgeKind = "calls"
	EdgeUsesComponent EdgeKind = "uses_component"
	EdgeReferences    EdgeKind = "references"
	EdgeExtends       EdgeKind = "extends"
	EdgeImplements    EdgeKind = "implements"
	EdgeImports       EdgeKind = "imports"
)

// CallEdge is a typed relationship between two components. Callee may
// name a component outside the registry; such edges carry Resolved=false
// after the graph build and never populate DependsOn.
type CallEdge struct {
	Caller   string   `json:"caller"`
	Callee   string   `json:"callee"`
	Line     int      `json:"line,omitempty"`
	Kind     EdgeKind `json:"kind"`
	Resolved bool     `json:"resolved"`
}

// Registry maps component id to component for one analysis run.
type Registry map[string]*Component

// DependencyGraph maps component id to the set of ids it depends on.
type DependencyGraph map[string]map[string]bool
