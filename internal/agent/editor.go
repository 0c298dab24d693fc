package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// snippetContext is how many lines around an edit are echoed back so
// the model can verify its change.
const snippetContext = 4

// editorTool implements the str_replace_editor command set over a
// Workspace.
type editorTool struct {
	ws   *Workspace
	logf func(format string, args ...any)
}

// NewEditorTool creates the str_replace_editor tool.
func NewEditorTool(ws *Workspace, logf func(format string, args ...any)) Tool {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &editorTool{ws: ws, logf: logf}
}

func (t *editorTool) Name() string { return "str_replace_editor" }

func (t *editorTool) Description() string {
	return "File system operations for creating and editing documentation files. " +
		"Commands: view (file or directory, optional line range), create, " +
		"str_replace (replace a unique occurrence), insert (after a line number), undo_edit. " +
		"Only view is permitted on repository files; all commands work under the documentation directory."
}

func (t *editorTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"enum":        []string{"view", "create", "str_replace", "insert", "undo_edit"},
				"description": "The editor command to run.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Target file or directory. Relative paths resolve against the documentation directory.",
			},
			"file_text": map[string]any{
				"type":        "string",
				"description": "Full content for the create command.",
			},
			"old_str": map[string]any{
				"type":        "string",
				"description": "Exact text to replace; must occur exactly once in the file.",
			},
			"new_str": map[string]any{
				"type":        "string",
				"description": "Replacement text for str_replace, or the text to insert for insert.",
			},
			"insert_line": map[string]any{
				"type":        "integer",
				"description": "Line number after which to insert (0 inserts at the top).",
			},
			"view_range": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "integer"},
				"description": "Optional [start, end] line range for view; end -1 means end of file.",
			},
		},
		"required": []string{"command", "path"},
	}
}

// editorArgs is the decoded argument object.
type editorArgs struct {
	Command    string `json:"command"`
	Path       string `json:"path"`
	FileText   string `json:"file_text"`
	OldStr     string `json:"old_str"`
	NewStr     string `json:"new_str"`
	InsertLine *int   `json:"insert_line"`
	ViewRange  []int  `json:"view_range"`
}

func (t *editorTool) Execute(ctx context.Context, raw json.RawMessage) (string, bool) {
	var args editorArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fmt.Sprintf("Error: invalid arguments: %v", err), false
	}

	abs, writable, err := t.ws.Resolve(args.Path)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), false
	}
	if args.Command != "view" && !writable {
		err := fmt.Errorf("%w: only the view command is permitted on %s; writes are restricted to the documentation directory", ErrScopeViolation, abs)
		return fmt.Sprintf("Error: %v", err), false
	}

	switch args.Command {
	case "view":
		return t.view(abs, args.ViewRange)
	case "create":
		return t.create(abs, args.FileText)
	case "str_replace":
		return t.strReplace(abs, args.OldStr, args.NewStr)
	case "insert":
		return t.insert(abs, args.InsertLine, args.NewStr)
	case "undo_edit":
		return t.undoEdit(abs)
	default:
		return fmt.Sprintf("Error: unknown command %q", args.Command), false
	}
}

func (t *editorTool) view(abs string, viewRange []int) (string, bool) {
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), false
	}
	if info.IsDir() {
		return t.viewDir(abs)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), false
	}
	lines := splitLines(string(data))

	start, end := 1, len(lines)
	if len(viewRange) == 2 {
		start, end = viewRange[0], viewRange[1]
		if end == -1 {
			end = len(lines)
		}
		if start < 1 || start > len(lines) || end < start || end > len(lines) {
			return fmt.Sprintf("Error: invalid view_range [%d, %d] for a %d-line file", viewRange[0], viewRange[1], len(lines)), false
		}
	} else if len(viewRange) != 0 {
		return "Error: view_range must be [start, end]", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Contents of %s:\n", abs)
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "%6d\t%s\n", i, lines[i-1])
	}
	return b.String(), true
}

// viewDir lists files and directories up to two levels deep, skipping
// hidden entries.
func (t *editorTool) viewDir(abs string) (string, bool) {
	var entries []string
	err := filepath.Walk(abs, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if path == abs {
			return nil
		}
		rel, _ := filepath.Rel(abs, path)
		if strings.HasPrefix(filepath.Base(path), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.Count(rel, string(filepath.Separator)) >= 2 {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			rel += "/"
		}
		entries = append(entries, rel)
		return nil
	})
	if err != nil {
		return fmt.Sprintf("Error: %v", err), false
	}
	sort.Strings(entries)
	return fmt.Sprintf("Contents of %s (up to 2 levels):\n%s\n", abs, strings.Join(entries, "\n")), true
}

func (t *editorTool) create(abs, fileText string) (string, bool) {
	if fileText == "" {
		return "Error: file_text is required for the create command", false
	}
	lock := t.ws.lockFile(abs)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(abs); err == nil {
		return fmt.Sprintf("Error: file %s already exists; use str_replace or insert to modify it", abs), false
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Sprintf("Error: %v", err), false
	}
	if err := os.WriteFile(abs, []byte(fileText), 0o644); err != nil {
		return fmt.Sprintf("Error: %v", err), false
	}
	t.ws.pushHistory(abs, nil, false)
	t.logf("created %s (%d bytes)", abs, len(fileText))

	if msg, ok := t.validateMarkdown(abs, fileText); !ok {
		return msg, false
	}
	return fmt.Sprintf("File created successfully at %s", abs), true
}

func (t *editorTool) strReplace(abs, oldStr, newStr string) (string, bool) {
	if oldStr == "" {
		return "Error: old_str is required for the str_replace command", false
	}
	lock := t.ws.lockFile(abs)
	lock.Lock()
	defer lock.Unlock()

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), false
	}
	content := string(data)

	count := strings.Count(content, oldStr)
	switch {
	case count == 0:
		return fmt.Sprintf("Error: old_str did not appear verbatim in %s", abs), false
	case count > 1:
		return fmt.Sprintf("Error: old_str appears %d times in %s, at lines %s; it must be unique. Include more surrounding context", count, abs, matchLines(content, oldStr)), false
	}

	updated := strings.Replace(content, oldStr, newStr, 1)
	t.ws.pushHistory(abs, data, true)
	if err := os.WriteFile(abs, []byte(updated), 0o644); err != nil {
		return fmt.Sprintf("Error: %v", err), false
	}
	t.logf("replaced text in %s", abs)

	if msg, ok := t.validateMarkdown(abs, updated); !ok {
		return msg, false
	}
	line := strings.Count(content[:strings.Index(content, oldStr)], "\n") + 1
	return fmt.Sprintf("File %s edited.\n%s", abs, snippetAround(updated, line)), true
}

func (t *editorTool) insert(abs string, insertLine *int, newStr string) (string, bool) {
	if insertLine == nil {
		return "Error: insert_line is required for the insert command", false
	}
	if newStr == "" {
		return "Error: new_str is required for the insert command", false
	}
	lock := t.ws.lockFile(abs)
	lock.Lock()
	defer lock.Unlock()

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), false
	}
	lines := splitLines(string(data))
	n := *insertLine
	if n < 0 || n > len(lines) {
		return fmt.Sprintf("Error: insert_line %d out of range for a %d-line file", n, len(lines)), false
	}

	inserted := splitLines(newStr)
	updatedLines := make([]string, 0, len(lines)+len(inserted))
	updatedLines = append(updatedLines, lines[:n]...)
	updatedLines = append(updatedLines, inserted...)
	updatedLines = append(updatedLines, lines[n:]...)
	updated := strings.Join(updatedLines, "\n")
	if strings.HasSuffix(string(data), "\n") {
		updated += "\n"
	}

	t.ws.pushHistory(abs, data, true)
	if err := os.WriteFile(abs, []byte(updated), 0o644); err != nil {
		return fmt.Sprintf("Error: %v", err), false
	}
	t.logf("inserted %d lines into %s after line %d", len(inserted), abs, n)

	if msg, ok := t.validateMarkdown(abs, updated); !ok {
		return msg, false
	}
	return fmt.Sprintf("File %s edited.\n%s", abs, snippetAround(updated, n+1)), true
}

func (t *editorTool) undoEdit(abs string) (string, bool) {
	lock := t.ws.lockFile(abs)
	lock.Lock()
	defer lock.Unlock()

	state, ok := t.ws.popHistory(abs)
	if !ok {
		return fmt.Sprintf("Error: no edit history for %s", abs), false
	}
	if !state.existed {
		if err := os.Remove(abs); err != nil {
			return fmt.Sprintf("Error: %v", err), false
		}
		t.logf("undo removed %s", abs)
		return fmt.Sprintf("Undid creation of %s", abs), true
	}
	if err := os.WriteFile(abs, state.content, 0o644); err != nil {
		return fmt.Sprintf("Error: %v", err), false
	}
	t.logf("undo restored %s", abs)
	return fmt.Sprintf("Reverted last edit to %s", abs), true
}

// validateMarkdown runs Mermaid validation after any mutation of a
// Markdown file. Failures surface as tool errors so the model can
// repair the diagram; the write itself is kept.
func (t *editorTool) validateMarkdown(abs, content string) (string, bool) {
	if !strings.EqualFold(filepath.Ext(abs), ".md") {
		return "", true
	}
	issues := ValidateMermaid(content)
	if len(issues) == 0 {
		return "", true
	}
	var b strings.Builder
	b.WriteString("Error: the file was written but contains invalid Mermaid diagrams:\n")
	for _, issue := range issues {
		fmt.Fprintf(&b, "- diagram %d (starting at line %d): %s\n", issue.Index, issue.Line, issue.Message)
	}
	b.WriteString("Fix the diagrams with str_replace.")
	return b.String(), false
}

func matchLines(content, needle string) string {
	var lines []string
	offset := 0
	for {
		idx := strings.Index(content[offset:], needle)
		if idx < 0 {
			break
		}
		abs := offset + idx
		lines = append(lines, fmt.Sprintf("%d", strings.Count(content[:abs], "\n")+1))
		offset = abs + len(needle)
	}
	return strings.Join(lines, ", ")
}

func snippetAround(content string, line int) string {
	lines := splitLines(content)
	start := line - snippetContext
	if start < 1 {
		start = 1
	}
	end := line + snippetContext
	if end > len(lines) {
		end = len(lines)
	}
	var b strings.Builder
	b.WriteString("Snippet of the result:\n")
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "%6d\t%s\n", i, lines[i-1])
	}
	return b.String()
}

// splitLines splits on newlines without producing a trailing empty
// element for newline-terminated content.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
