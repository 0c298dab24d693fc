package parser

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultIgnorePatterns covers directories that never contain first-party
// source worth documenting: VCS metadata, build outputs, dependency
// trees, virtualenvs, IDE state, and test trees.
var defaultIgnorePatterns = []string{
	"**/.git/**",
	"**/.hg/**",
	"**/.svn/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/out/**",
	"**/bin/**",
	"**/obj/**",
	"**/.venv/**",
	"**/venv/**",
	"**/env/**",
	"**/__pycache__/**",
	"**/.pytest_cache/**",
	"**/.mypy_cache/**",
	"**/.tox/**",
	"**/.idea/**",
	"**/.vscode/**",
	"**/.vs/**",
	"**/coverage/**",
	"**/htmlcov/**",
	"**/test/**",
	"**/tests/**",
	"**/__tests__/**",
	"**/testdata/**",
	"**/*_test.go",
	"**/*.test.js",
	"**/*.test.ts",
	"**/*.spec.js",
	"**/*.spec.ts",
	"**/test_*.py",
	"**/*_test.py",
	"**/*.min.js",
}

// Filter decides which repository files reach the extractor. Two ordered
// gates apply over slash-relative paths: the built-in ignore set, then
// the user include/exclude globs.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter builds a filter from user glob pattern lists. Either list
// may be empty; an empty include list admits everything that survives
// the other gates.
func NewFilter(include, exclude []string) *Filter {
	return &Filter{include: include, exclude: exclude}
}

// Match reports whether the relative path should be analyzed.
func (f *Filter) Match(relPath string) bool {
	rel := filepath.ToSlash(relPath)

	for _, pattern := range defaultIgnorePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	for _, pattern := range f.exclude {
		if matchUserPattern(pattern, rel) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, pattern := range f.include {
		if matchUserPattern(pattern, rel) {
			return true
		}
	}
	return false
}

// matchUserPattern accepts bare directory prefixes ("src/") as well as
// doublestar globs, so config files can stay simple.
func matchUserPattern(pattern, rel string) bool {
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(rel, pattern) || rel+"/" == pattern
	}
	if !strings.ContainsAny(pattern, "*?[{") {
		return rel == pattern || strings.HasPrefix(rel, pattern+"/")
	}
	ok, err := doublestar.Match(pattern, rel)
	return err == nil && ok
}
