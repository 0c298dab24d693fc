// Package parser defines the language strategy contract for component
// extraction and the registry that dispatches files to strategies.
package parser

import (
	"path/filepath"
	"strings"

	"github.com/imyousuf/codescribe/internal/model"
)

// Language represents a supported programming language.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangCSharp     Language = "csharp"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangPHP        Language = "php"
	LangVue        Language = "vue"
)

// FileExtensions maps each language to its recognized file extensions.
var FileExtensions = map[Language][]string{
	LangGo:         {".go"},
	LangPython:     {".py"},
	LangJavaScript: {".js", ".jsx", ".mjs", ".cjs"},
	LangTypeScript: {".ts", ".tsx"},
	LangJava:       {".java"},
	LangCSharp:     {".cs"},
	LangC:          {".c", ".h"},
	LangCPP:        {".cpp", ".cxx", ".cc", ".hpp", ".hxx"},
	LangPHP:        {".php"},
	LangVue:        {".vue"},
}

// FileResult holds the components and unresolved edges extracted from
// one source file.
type FileResult struct {
	Components []*model.Component
	Edges      []*model.CallEdge
	FilePath   string
	Language   Language
}

// Parser is the per-language extraction strategy. Implementations never
// panic on malformed input: they log, skip the construct, and return
// whatever they managed to extract. A strategy whose underlying grammar
// failed to initialize returns an empty result and a nil error.
type Parser interface {
	// Language returns which language this parser handles.
	Language() Language

	// Extensions returns the file extensions this parser can handle.
	Extensions() []string

	// ParseFile parses file content. relPath is the slash-separated path
	// relative to the repository root and seeds component ids.
	ParseFile(filePath, relPath string, content []byte) (*FileResult, error)
}

// ModulePath converts a repository-relative file path into the dotted
// module path that prefixes component ids: "pkg/util/io.py" -> "pkg.util.io".
func ModulePath(relPath string) string {
	p := filepath.ToSlash(relPath)
	if ext := filepath.Ext(p); ext != "" {
		p = p[:len(p)-len(ext)]
	}
	return strings.ReplaceAll(p, "/", ".")
}
