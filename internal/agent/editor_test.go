package agent

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestWorkspace(t *testing.T) (*Workspace, string, string) {
	t.Helper()
	repo := t.TempDir()
	docs := t.TempDir()
	ws, err := NewWorkspace(repo, docs)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	return ws, repo, docs
}

func execEditor(t *testing.T, tool Tool, args map[string]any) (string, bool) {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return tool.Execute(context.Background(), raw)
}

func TestWorkspaceResolve(t *testing.T) {
	ws, repo, docs := newTestWorkspace(t)

	abs, writable, err := ws.Resolve("notes.md")
	if err != nil {
		t.Fatalf("relative resolve: %v", err)
	}
	if !writable || abs != filepath.Join(docs, "notes.md") {
		t.Errorf("relative path resolve = (%s, %v)", abs, writable)
	}

	_, writable, err = ws.Resolve(filepath.Join(repo, "main.go"))
	if err != nil {
		t.Fatalf("repo resolve: %v", err)
	}
	if writable {
		t.Error("repository paths must not be writable")
	}

	if _, _, err := ws.Resolve("/etc/passwd"); !errors.Is(err, ErrScopeViolation) {
		t.Errorf("outside path err = %v, want ErrScopeViolation", err)
	}
	if _, _, err := ws.Resolve(filepath.Join(docs, "..", "escape.md")); !errors.Is(err, ErrScopeViolation) {
		t.Errorf("traversal err = %v, want ErrScopeViolation", err)
	}
}

func TestWorkspaceRefusesSymlinks(t *testing.T) {
	ws, _, docs := newTestWorkspace(t)
	outside := t.TempDir()
	link := filepath.Join(docs, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if _, _, err := ws.Resolve(filepath.Join(link, "x.md")); !errors.Is(err, ErrScopeViolation) {
		t.Errorf("symlinked escape err = %v, want ErrScopeViolation", err)
	}
	if _, _, err := ws.Resolve(link); !errors.Is(err, ErrScopeViolation) {
		t.Errorf("symlink err = %v, want ErrScopeViolation", err)
	}
}

func TestEditorScopeInvariant(t *testing.T) {
	ws, repo, _ := newTestWorkspace(t)
	repoFile := filepath.Join(repo, "main.go")
	if err := os.WriteFile(repoFile, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := NewEditorTool(ws, nil)

	if out, ok := execEditor(t, tool, map[string]any{"command": "view", "path": repoFile}); !ok {
		t.Errorf("view on repository file denied: %s", out)
	}

	denied := []map[string]any{
		{"command": "create", "path": repoFile, "file_text": "x"},
		{"command": "str_replace", "path": repoFile, "old_str": "package", "new_str": "pkg"},
		{"command": "insert", "path": repoFile, "insert_line": 0, "new_str": "x"},
		{"command": "undo_edit", "path": repoFile},
	}
	for _, args := range denied {
		out, ok := execEditor(t, tool, args)
		if ok {
			t.Errorf("%s on repository file permitted", args["command"])
		}
		if !strings.Contains(out, "only the view command") || !strings.Contains(out, ErrScopeViolation.Error()) {
			t.Errorf("%s denial message = %q", args["command"], out)
		}
	}
}

func TestEditorCreateAndView(t *testing.T) {
	ws, _, docs := newTestWorkspace(t)
	tool := NewEditorTool(ws, nil)

	out, ok := execEditor(t, tool, map[string]any{
		"command": "create", "path": "guide.md", "file_text": "# Guide\n\nHello.\n",
	})
	if !ok {
		t.Fatalf("create failed: %s", out)
	}

	if out, ok := execEditor(t, tool, map[string]any{
		"command": "create", "path": "guide.md", "file_text": "again",
	}); ok {
		t.Errorf("create over existing file succeeded: %s", out)
	}

	out, ok = execEditor(t, tool, map[string]any{"command": "view", "path": "guide.md"})
	if !ok || !strings.Contains(out, "     1\t# Guide") {
		t.Errorf("view output = %q", out)
	}

	out, ok = execEditor(t, tool, map[string]any{
		"command": "view", "path": "guide.md", "view_range": []int{3, -1},
	})
	if !ok || !strings.Contains(out, "     3\tHello.") || strings.Contains(out, "# Guide") {
		t.Errorf("ranged view output = %q", out)
	}

	if _, ok := execEditor(t, tool, map[string]any{
		"command": "view", "path": "guide.md", "view_range": []int{0, 99},
	}); ok {
		t.Error("invalid view_range accepted")
	}

	if out, ok := execEditor(t, tool, map[string]any{"command": "view", "path": docs}); !ok || !strings.Contains(out, "guide.md") {
		t.Errorf("directory view = %q", out)
	}
}

func TestEditorStrReplace(t *testing.T) {
	ws, _, docs := newTestWorkspace(t)
	tool := NewEditorTool(ws, nil)
	path := filepath.Join(docs, "doc.md")
	if err := os.WriteFile(path, []byte("alpha\nbeta\nalpha\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if out, ok := execEditor(t, tool, map[string]any{
		"command": "str_replace", "path": "doc.md", "old_str": "missing", "new_str": "x",
	}); ok || !strings.Contains(out, "did not appear") {
		t.Errorf("zero-occurrence result = %q (ok=%v)", out, ok)
	}

	out, ok := execEditor(t, tool, map[string]any{
		"command": "str_replace", "path": "doc.md", "old_str": "alpha", "new_str": "x",
	})
	if ok {
		t.Error("ambiguous replacement succeeded")
	}
	if !strings.Contains(out, "lines 1, 3") {
		t.Errorf("ambiguity diagnostic missing match lines: %q", out)
	}

	if out, ok := execEditor(t, tool, map[string]any{
		"command": "str_replace", "path": "doc.md", "old_str": "beta", "new_str": "gamma",
	}); !ok {
		t.Fatalf("unique replacement failed: %s", out)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "alpha\ngamma\nalpha\n" {
		t.Errorf("file content = %q", data)
	}
}

func TestEditorInsert(t *testing.T) {
	ws, _, docs := newTestWorkspace(t)
	tool := NewEditorTool(ws, nil)
	path := filepath.Join(docs, "doc.md")
	if err := os.WriteFile(path, []byte("one\ntwo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if out, ok := execEditor(t, tool, map[string]any{
		"command": "insert", "path": "doc.md", "insert_line": 1, "new_str": "between",
	}); !ok {
		t.Fatalf("insert failed: %s", out)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "one\nbetween\ntwo\n" {
		t.Errorf("file content = %q", data)
	}

	if _, ok := execEditor(t, tool, map[string]any{
		"command": "insert", "path": "doc.md", "insert_line": 99, "new_str": "x",
	}); ok {
		t.Error("out-of-range insert accepted")
	}
	if _, ok := execEditor(t, tool, map[string]any{
		"command": "insert", "path": "doc.md", "new_str": "x",
	}); ok {
		t.Error("insert without insert_line accepted")
	}
}

func TestEditorUndo(t *testing.T) {
	ws, _, docs := newTestWorkspace(t)
	tool := NewEditorTool(ws, nil)
	path := filepath.Join(docs, "doc.md")
	original := "line one\nline two\n"
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	if out, ok := execEditor(t, tool, map[string]any{
		"command": "str_replace", "path": "doc.md", "old_str": "line two", "new_str": "LINE TWO",
	}); !ok {
		t.Fatalf("edit failed: %s", out)
	}
	if out, ok := execEditor(t, tool, map[string]any{"command": "undo_edit", "path": "doc.md"}); !ok {
		t.Fatalf("undo failed: %s", out)
	}
	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Errorf("undo did not restore content byte for byte: %q", data)
	}

	if _, ok := execEditor(t, tool, map[string]any{"command": "undo_edit", "path": "doc.md"}); ok {
		t.Error("undo with empty history accepted")
	}

	// Undoing a create removes the file.
	if out, ok := execEditor(t, tool, map[string]any{
		"command": "create", "path": "fresh.md", "file_text": "content\n",
	}); !ok {
		t.Fatalf("create failed: %s", out)
	}
	if out, ok := execEditor(t, tool, map[string]any{"command": "undo_edit", "path": "fresh.md"}); !ok {
		t.Fatalf("undo create failed: %s", out)
	}
	if _, err := os.Stat(filepath.Join(docs, "fresh.md")); !os.IsNotExist(err) {
		t.Error("undo of create left the file behind")
	}
}

func TestEditorMermaidValidation(t *testing.T) {
	ws, _, docs := newTestWorkspace(t)
	tool := NewEditorTool(ws, nil)

	bad := "# Doc\n\n```mermaid\nnonsense A --> B\n```\n"
	out, ok := execEditor(t, tool, map[string]any{
		"command": "create", "path": "diag.md", "file_text": bad,
	})
	if ok {
		t.Fatal("invalid diagram accepted")
	}
	if !strings.Contains(out, "diagram 1") || !strings.Contains(out, "line 3") {
		t.Errorf("validation message = %q", out)
	}
	// The write itself is kept so the agent can repair in place.
	if _, err := os.Stat(filepath.Join(docs, "diag.md")); err != nil {
		t.Error("file was not written before validation failure")
	}

	good := "# Doc\n\n```mermaid\ngraph TD\n  A --> B\n```\n"
	if out, ok := execEditor(t, tool, map[string]any{
		"command": "create", "path": "ok.md", "file_text": good,
	}); !ok {
		t.Errorf("valid diagram rejected: %s", out)
	}
}

func TestEditorUnknownCommand(t *testing.T) {
	ws, _, _ := newTestWorkspace(t)
	tool := NewEditorTool(ws, nil)
	if out, ok := execEditor(t, tool, map[string]any{"command": "destroy", "path": "x.md"}); ok || !strings.Contains(out, "unknown command") {
		t.Errorf("unknown command result = %q (ok=%v)", out, ok)
	}
}

func TestMatchLines(t *testing.T) {
	got := matchLines("a\nxx\nb\nxx\n", "xx")
	if got != "2, 4" {
		t.Errorf("matchLines = %q, want %q", got, "2, 4")
	}
}
