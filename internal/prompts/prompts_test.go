package prompts

import (
	"fmt"
	"strings"
	"testing"

	"github.com/imyousuf/codescribe/internal/metrics"
	"github.com/imyousuf/codescribe/internal/model"
)

func TestFormatSystemPrompt(t *testing.T) {
	got := FormatSystemPrompt("auth", "Write in French.")
	if !strings.Contains(got, "`auth.md`") {
		t.Error("system prompt missing module file name")
	}
	if !strings.Contains(got, "generate_sub_module_documentation") {
		t.Error("system prompt missing sub-agent tool")
	}
	if !strings.Contains(got, "<CUSTOM_INSTRUCTIONS>\nWrite in French.\n</CUSTOM_INSTRUCTIONS>") {
		t.Error("custom instructions not appended")
	}

	plain := FormatSystemPrompt("auth", "")
	if strings.Contains(plain, "CUSTOM_INSTRUCTIONS") {
		t.Error("empty custom instructions should not emit the section")
	}
}

func TestFormatLeafSystemPrompt(t *testing.T) {
	got := FormatLeafSystemPrompt("auth", "")
	if strings.Contains(got, "generate_sub_module_documentation") {
		t.Error("leaf prompt must not offer the sub-agent tool")
	}
	if !strings.Contains(got, "read_code_components") {
		t.Error("leaf prompt missing reader tool")
	}
}

func TestRenderModuleTree(t *testing.T) {
	root := model.NewModuleNode("repo", "")
	auth := model.NewModuleNode("auth", "")
	auth.Components = []string{"auth.login.Login", "auth.session.Session"}
	root.AddChild(auth)
	auth.AddChild(model.NewModuleNode("tokens", ""))
	root.AddChild(model.NewModuleNode("storage", ""))

	got := RenderModuleTree(root, "auth")
	if !strings.Contains(got, "auth (current module)") {
		t.Errorf("current module not marked:\n%s", got)
	}
	if !strings.Contains(got, "Core components: auth.login.Login, auth.session.Session") {
		t.Errorf("components line missing:\n%s", got)
	}
	if !strings.Contains(got, "Children:") {
		t.Errorf("children header missing:\n%s", got)
	}
	if RenderModuleTree(nil, "x") != "" {
		t.Error("nil tree should render empty")
	}
}

func TestFormatUserPrompt(t *testing.T) {
	registry := model.Registry{
		"pkg.auth.Login": {
			ID:           "pkg.auth.Login",
			Name:         "Login",
			Kind:         model.KindClass,
			FilePath:     "/repo/pkg/auth.py",
			RelativePath: "pkg/auth.py",
			SourceCode:   "class Login:\n    pass",
		},
		"pkg.auth.Logout": {
			ID:           "pkg.auth.Logout",
			Name:         "Logout",
			Kind:         model.KindClass,
			FilePath:     "/repo/pkg/auth.py",
			RelativePath: "pkg/auth.py",
		},
	}
	tree := model.NewModuleNode("repo", "")
	tree.AddChild(model.NewModuleNode("auth", ""))

	readFile := func(path string) ([]byte, error) {
		if path != "/repo/pkg/auth.py" {
			return nil, fmt.Errorf("unexpected path %s", path)
		}
		return []byte("class Login:\n    pass\n\nclass Logout:\n    pass\n"), nil
	}

	got := FormatUserPrompt("auth", []string{"pkg.auth.Login", "pkg.auth.Logout"}, registry, tree, readFile)

	if !strings.Contains(got, "# File: pkg/auth.py") {
		t.Error("file header missing")
	}
	if !strings.Contains(got, "- pkg.auth.Login\n- pkg.auth.Logout") {
		t.Error("component list missing or unordered")
	}
	if !strings.Contains(got, "```python\nclass Login:") {
		t.Error("fenced file content missing")
	}
	if strings.Count(got, "# File: pkg/auth.py") != 1 {
		t.Error("file embedded more than once")
	}
}

func TestFormatUserPromptReadError(t *testing.T) {
	registry := model.Registry{
		"a.f": {ID: "a.f", Name: "f", FilePath: "/repo/a.py", RelativePath: "a.py"},
	}
	readFile := func(path string) ([]byte, error) {
		return nil, fmt.Errorf("permission denied")
	}
	got := FormatUserPrompt("m", []string{"a.f"}, registry, nil, readFile)
	if !strings.Contains(got, "# Error reading file: permission denied") {
		t.Errorf("read error not surfaced:\n%s", got)
	}
}

func TestFormatAnalysisMetrics(t *testing.T) {
	registry := model.Registry{
		"a.big": {
			ID: "a.big", Name: "big", RelativePath: "a.py",
			Metrics: map[string]int{metrics.LinesOfCode: 120, metrics.CyclomaticComplexity: 22},
		},
		"a.small": {
			ID: "a.small", Name: "small", RelativePath: "a.py",
			Metrics: map[string]int{metrics.LinesOfCode: 5, metrics.CyclomaticComplexity: 1},
		},
	}
	got := formatAnalysisMetrics([]string{"a.big", "a.small"}, registry)
	if !strings.Contains(got, "<ANALYSIS_METRICS>") {
		t.Fatalf("metrics section missing:\n%s", got)
	}
	if !strings.Contains(got, "High Complexity Components") || !strings.Contains(got, "**big**") {
		t.Errorf("complexity callout missing:\n%s", got)
	}

	if formatAnalysisMetrics([]string{"nope"}, registry) != "" {
		t.Error("unknown ids should produce no metrics section")
	}
}

func TestFenceLanguage(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a/b.py", "python"},
		{"x.ts", "typescript"},
		{"x.vue", "vue"},
		{"Makefile", "text"},
		{"x.GO", "go"},
	}
	for _, tt := range tests {
		if got := FenceLanguage(tt.path); got != tt.want {
			t.Errorf("FenceLanguage(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestClusterPrompts(t *testing.T) {
	repo := FormatClusterRepoPrompt("- a.f\n- b.g")
	if !strings.Contains(repo, "<GROUPED_COMPONENTS>") || !strings.Contains(repo, "- a.f") {
		t.Error("repo cluster prompt malformed")
	}

	tree := model.NewModuleNode("repo", "")
	tree.AddChild(model.NewModuleNode("auth", ""))
	mod := FormatClusterModulePrompt(tree, "auth", "- a.f")
	if !strings.Contains(mod, "module auth") || !strings.Contains(mod, "<MODULE_TREE>") {
		t.Error("module cluster prompt malformed")
	}
}

func TestOverviewPrompts(t *testing.T) {
	repo := FormatRepoOverviewPrompt("myrepo", "auth/\nstorage/")
	if !strings.Contains(repo, "`myrepo`") || !strings.Contains(repo, "<OVERVIEW>") {
		t.Error("repo overview prompt malformed")
	}
	mod := FormatModuleOverviewPrompt("auth", "auth/")
	if !strings.Contains(mod, "`auth`") || !strings.Contains(mod, "<OVERVIEW>") {
		t.Error("module overview prompt malformed")
	}
}
