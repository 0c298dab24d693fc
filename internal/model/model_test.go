package model

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"
)

func TestComponentDependsOnRoundTrip(t *testing.T) {
	c := &Component{
		ID:           "pkg.util.Helper",
		Name:         "Helper",
		Kind:         KindClass,
		RelativePath: "pkg/util.py",
		StartLine:    3,
		EndLine:      40,
	}
	c.AddDependency("pkg.base.Base")
	c.AddDependency("pkg.io.Reader")

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Component
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got.DependsOn, c.DependsOn) {
		t.Errorf("depends_on mismatch: got %v want %v", got.DependsOn, c.DependsOn)
	}
	if got.ID != c.ID || got.Kind != c.Kind || got.StartLine != c.StartLine {
		t.Errorf("fields not preserved: %+v", got)
	}
}

func TestComponentUnknownKindPreserved(t *testing.T) {
	data := []byte(`{"id":"a.b","name":"b","kind":"widget","depends_on":[]}`)
	var c Component
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Kind != Kind("widget") {
		t.Errorf("kind = %q, want widget", c.Kind)
	}
}

func TestModuleNodePaths(t *testing.T) {
	root := NewModuleNode("root", "")
	core := NewModuleNode("Core Engine", "")
	root.AddChild(core)
	store := NewModuleNode("Storage", "")
	core.AddChild(store)

	if core.Path != "Core Engine" {
		t.Errorf("core path = %q", core.Path)
	}
	if store.Path != "Core Engine/Storage" {
		t.Errorf("store path = %q", store.Path)
	}

	got := store.ArtifactPath("/docs")
	want := filepath.Join("/docs", "Core_Engine", "Storage.md")
	if got != want {
		t.Errorf("artifact path = %q, want %q", got, want)
	}
	if root.ArtifactPath("/docs") != filepath.Join("/docs", "overview.md") {
		t.Errorf("root artifact path = %q", root.ArtifactPath("/docs"))
	}
}

func TestWalkPostOrder(t *testing.T) {
	root := NewModuleNode("root", "")
	a := NewModuleNode("a", "")
	b := NewModuleNode("b", "")
	root.AddChild(b)
	root.AddChild(a)
	a.AddChild(NewModuleNode("a1", ""))

	var order []string
	root.WalkPostOrder(func(n *ModuleNode) { order = append(order, n.Name) })

	want := []string{"a1", "a", "b", "root"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if root.Depth() != 2 {
		t.Errorf("depth = %d, want 2", root.Depth())
	}
}

func TestSanitizeModuleName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Core Engine", "Core_Engine"},
		{"api/v2", "apiv2"},
		{"data-layer", "data-layer"},
		{"///", "module"},
	}
	for _, tt := range tests {
		if got := SanitizeModuleName(tt.in); got != tt.want {
			t.Errorf("SanitizeModuleName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	m := &Component{Name: "Do", Kind: KindMethod, EnclosingClass: "Server"}
	if m.DisplayName() != "Server.Do" {
		t.Errorf("display = %q", m.DisplayName())
	}
	f := &Component{Name: "main", Kind: KindFunction}
	if f.DisplayName() != "main" {
		t.Errorf("display = %q", f.DisplayName())
	}
}
