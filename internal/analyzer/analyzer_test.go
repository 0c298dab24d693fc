package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/imyousuf/codescribe/internal/cache"
)

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestRunExtractsComponents(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.py":      "def f():\n    g()\n",
		"b.py":      "def g():\n    pass\n",
		"README.md": "# readme\n",
	})
	a, err := New(Config{RepoRoot: root})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, id := range []string{"a.f", "b.g"} {
		if _, ok := res.Registry[id]; !ok {
			t.Errorf("missing component %s", id)
		}
	}
	if res.Stats.FilesScanned != 2 || res.Stats.FilesAnalyzed != 2 {
		t.Errorf("stats = %+v", res.Stats)
	}

	foundCall := false
	for _, e := range res.Edges {
		if e.Caller == "a.f" && e.Callee == "g" {
			foundCall = true
		}
	}
	if !foundCall {
		t.Errorf("call edge a.f -> g missing from %d edges", len(res.Edges))
	}

	// Metrics are annotated during the run.
	if c := res.Registry["a.f"]; len(c.Metrics) == 0 {
		t.Error("components missing metrics")
	}
}

func TestRunHonorsPatterns(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"src/a.py":              "def f():\n    pass\n",
		"scripts/b.py":          "def g():\n    pass\n",
		"node_modules/pkg/x.js": "function h() {}\n",
	})
	a, err := New(Config{
		RepoRoot:        root,
		IncludePatterns: []string{"src/"},
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := res.Registry["src.a.f"]; !ok {
		t.Error("included file was not analyzed")
	}
	if _, ok := res.Registry["scripts.b.g"]; ok {
		t.Error("file outside the include set was analyzed")
	}
	for id := range res.Registry {
		if id == "node_modules.pkg.x.h" {
			t.Error("default ignore set did not exclude node_modules")
		}
	}
}

func TestRunExcludePatterns(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.py":        "def f():\n    pass\n",
		"legacy/b.py": "def g():\n    pass\n",
	})
	a, err := New(Config{RepoRoot: root, ExcludePatterns: []string{"legacy/"}})
	if err != nil {
		t.Fatal(err)
	}
	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Registry["legacy.b.g"]; ok {
		t.Error("excluded file was analyzed")
	}
	if _, ok := res.Registry["a.f"]; !ok {
		t.Error("non-excluded file missing")
	}
}

func TestRunSequential(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.py": "def f():\n    pass\n",
		"b.py": "def g():\n    pass\n",
	})
	a, err := New(Config{RepoRoot: root, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Registry) != 2 {
		t.Errorf("registry size = %d, want 2", len(res.Registry))
	}
}

func TestRunUsesCache(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.py": "def f():\n    pass\n",
		"b.py": "def g():\n    pass\n",
	})
	store, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	a, err := New(Config{RepoRoot: root, Cache: store})
	if err != nil {
		t.Fatal(err)
	}

	first, err := a.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.Stats.CacheHits != 0 {
		t.Errorf("first run cache hits = %d", first.Stats.CacheHits)
	}

	second, err := a.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second.Stats.CacheHits != 2 {
		t.Errorf("second run cache hits = %d, want 2", second.Stats.CacheHits)
	}
	if len(second.Registry) != len(first.Registry) {
		t.Errorf("cached registry size %d differs from fresh %d", len(second.Registry), len(first.Registry))
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("empty root accepted")
	}
	if _, err := New(Config{RepoRoot: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("nonexistent root accepted")
	}
	file := filepath.Join(t.TempDir(), "f.py")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(Config{RepoRoot: file}); err == nil {
		t.Error("file as root accepted")
	}
}

func TestRunIsolatesUnreadableFiles(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.py": "def f():\n    pass\n",
		"b.py": "def g():\n    pass\n",
	})
	if err := os.Chmod(filepath.Join(root, "b.py"), 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(filepath.Join(root, "b.py"), 0o644) })
	if os.Getuid() == 0 {
		t.Skip("running as root, permission bits are not enforced")
	}

	a, err := New(Config{RepoRoot: root})
	if err != nil {
		t.Fatal(err)
	}
	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("per-file failure aborted the run: %v", err)
	}
	if _, ok := res.Registry["a.f"]; !ok {
		t.Error("healthy file missing after sibling failure")
	}
	if len(res.Stats.Errors) != 1 {
		t.Errorf("errors = %v", res.Stats.Errors)
	}
}
