package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrScopeViolation marks a path request that escapes the editor's two
// permitted roots.
var ErrScopeViolation = errors.New("scope violation")

// Workspace enforces the editor's scope contract over two roots: the
// repository root, where only viewing is permitted, and the
// documentation directory, where all commands are permitted. It also
// carries the per-file edit history and per-file mutexes.
type Workspace struct {
	repoRoot string
	docsDir  string

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	history map[string][]fileState
}

// fileState is one undo step: the file's full content before an edit,
// or its absence.
type fileState struct {
	content []byte
	existed bool
}

// NewWorkspace builds a workspace over the two roots. Both paths are
// made absolute; the documentation directory is created if missing.
func NewWorkspace(repoRoot, docsDir string) (*Workspace, error) {
	absRepo, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving repository root: %w", err)
	}
	absDocs, err := filepath.Abs(docsDir)
	if err != nil {
		return nil, fmt.Errorf("resolving documentation directory: %w", err)
	}
	if err := os.MkdirAll(absDocs, 0o755); err != nil {
		return nil, fmt.Errorf("creating documentation directory: %w", err)
	}
	return &Workspace{
		repoRoot: absRepo,
		docsDir:  absDocs,
		locks:    make(map[string]*sync.Mutex),
		history:  make(map[string][]fileState),
	}, nil
}

// DocsDir returns the absolute documentation directory.
func (w *Workspace) DocsDir() string { return w.docsDir }

// RepoRoot returns the absolute repository root.
func (w *Workspace) RepoRoot() string { return w.repoRoot }

// Resolve canonicalizes a path and classifies it against the two
// roots. writable is true only for paths under the documentation
// directory. Paths outside both roots, and symlinks anywhere along the
// requested path, are rejected.
func (w *Workspace) Resolve(path string) (abs string, writable bool, err error) {
	if path == "" {
		return "", false, fmt.Errorf("path is required")
	}
	if !filepath.IsAbs(path) {
		// Relative paths are interpreted against the documentation
		// directory, where the agent does its writing.
		path = filepath.Join(w.docsDir, path)
	}
	abs = filepath.Clean(path)

	if err := w.refuseSymlinks(abs); err != nil {
		return "", false, err
	}

	switch {
	case within(w.docsDir, abs):
		return abs, true, nil
	case within(w.repoRoot, abs):
		return abs, false, nil
	default:
		return "", false, fmt.Errorf("%w: path %s is outside the repository root and the documentation directory", ErrScopeViolation, abs)
	}
}

// refuseSymlinks rejects paths whose existing portion traverses a
// symlink, closing the escape where a link inside a permitted root
// points outside it.
func (w *Workspace) refuseSymlinks(abs string) error {
	p := abs
	for {
		info, err := os.Lstat(p)
		if err == nil && info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: path %s traverses a symbolic link", ErrScopeViolation, p)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return nil
		}
		p = parent
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// lockFile returns the mutex guarding one absolute path, creating it
// on first use.
func (w *Workspace) lockFile(abs string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.locks[abs]
	if !ok {
		l = &sync.Mutex{}
		w.locks[abs] = l
	}
	return l
}

// pushHistory records the state of a file before a mutation. Callers
// hold the file lock.
func (w *Workspace) pushHistory(abs string, content []byte, existed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.history[abs] = append(w.history[abs], fileState{content: content, existed: existed})
}

// popHistory removes and returns the most recent saved state. Callers
// hold the file lock.
func (w *Workspace) popHistory(abs string) (fileState, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	stack := w.history[abs]
	if len(stack) == 0 {
		return fileState{}, false
	}
	last := stack[len(stack)-1]
	w.history[abs] = stack[:len(stack)-1]
	return last, true
}
