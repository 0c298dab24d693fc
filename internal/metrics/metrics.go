// Package metrics attaches size and complexity measurements to
// extracted components. The numbers are sizing hints for clustering
// prompts, not precise static analysis.
package metrics

import (
	"regexp"
	"strings"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/parser"
)

// Metric keys stored on Component.Metrics.
const (
	LinesOfCode          = "lines_of_code"
	CyclomaticComplexity = "cyclomatic_complexity"
)

// branchPatterns lists the branch keywords counted per language. The
// baseline complexity is 1; every match adds 1.
var branchPatterns = map[parser.Language][]*regexp.Regexp{
	parser.LangGo: compile(`\bif\b`, `\bcase\b`, `\bfor\b`, `\bselect\b`, `&&`, `\|\|`),
	parser.LangPython: compile(`\bif\b`, `\belif\b`, `\bfor\b`, `\bwhile\b`,
		`\bexcept\b`, `\band\b`, `\bor\b`),
	parser.LangJava: compile(`\bif\b`, `\bcase\b`, `\bfor\b`, `\bwhile\b`, `\bcatch\b`, `&&`, `\|\|`),
}

// cFamilyPatterns serves every brace language without a dedicated entry.
var cFamilyPatterns = compile(`\bif\b`, `\bcase\b`, `\bfor\b`, `\bwhile\b`, `\bcatch\b`, `&&`, `\|\|`, `\?\?`)

func compile(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

// Annotate fills in Metrics for every component with source code.
func Annotate(registry model.Registry, langOf func(relPath string) parser.Language) {
	for _, comp := range registry {
		if comp.SourceCode == "" {
			continue
		}
		if comp.Metrics == nil {
			comp.Metrics = make(map[string]int, 2)
		}
		comp.Metrics[LinesOfCode] = countCodeLines(comp.SourceCode)
		comp.Metrics[CyclomaticComplexity] = complexity(comp.SourceCode, langOf(comp.RelativePath))
	}
}

func countCodeLines(src string) int {
	count := 0
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		count++
	}
	return count
}

func complexity(src string, lang parser.Language) int {
	patterns, ok := branchPatterns[lang]
	if !ok {
		patterns = cFamilyPatterns
	}
	score := 1
	for _, re := range patterns {
		score += len(re.FindAllStringIndex(src, -1))
	}
	return score
}
