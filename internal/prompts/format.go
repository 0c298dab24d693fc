package prompts

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/imyousuf/codescribe/internal/metrics"
	"github.com/imyousuf/codescribe/internal/model"
)

// complexityCallout marks components whose cyclomatic complexity
// warrants a dedicated note in the analysis metrics section.
const complexityCallout = 15

// extensionToLanguage maps file extensions to fence language tags.
var extensionToLanguage = map[string]string{
	".py":     "python",
	".md":     "markdown",
	".sh":     "bash",
	".json":   "json",
	".yaml":   "yaml",
	".java":   "java",
	".js":     "javascript",
	".ts":     "typescript",
	".cpp":    "cpp",
	".c":      "c",
	".h":      "c",
	".hpp":    "cpp",
	".tsx":    "typescript",
	".cc":     "cpp",
	".cxx":    "cpp",
	".jsx":    "javascript",
	".mjs":    "javascript",
	".cjs":    "javascript",
	".cs":     "csharp",
	".php":    "php",
	".phtml":  "php",
	".inc":    "php",
	".go":     "go",
	".vue":    "vue",
}

// FenceLanguage returns the code fence language tag for a path.
func FenceLanguage(path string) string {
	if lang, ok := extensionToLanguage[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "text"
}

// FormatSystemPrompt renders the complex-module system prompt.
func FormatSystemPrompt(moduleName, customInstructions string) string {
	return fmt.Sprintf(SystemPrompt, moduleName, customSection(customInstructions))
}

// FormatLeafSystemPrompt renders the leaf-module system prompt.
func FormatLeafSystemPrompt(moduleName, customInstructions string) string {
	return fmt.Sprintf(LeafSystemPrompt, moduleName, customSection(customInstructions))
}

func customSection(customInstructions string) string {
	if customInstructions == "" {
		return ""
	}
	return "\n\n<CUSTOM_INSTRUCTIONS>\n" + customInstructions + "\n</CUSTOM_INSTRUCTIONS>"
}

// FormatUserPrompt renders the documentation request for one module:
// the rendered module tree, the module's component sources grouped by
// file, and an optional analysis metrics section. readFile loads full
// file contents; a nil readFile or a read failure leaves an error
// marker in place of the source.
func FormatUserPrompt(moduleName string, componentIDs []string, registry model.Registry, tree *model.ModuleNode, readFile func(path string) ([]byte, error)) string {
	return fmt.Sprintf(userPrompt,
		moduleName,
		RenderModuleTree(tree, moduleName),
		formatComponentCodes(componentIDs, registry, readFile),
		formatAnalysisMetrics(componentIDs, registry),
	)
}

// FormatClusterRepoPrompt renders the first-level clustering request.
func FormatClusterRepoPrompt(componentList string) string {
	return fmt.Sprintf(clusterRepoPrompt, componentList)
}

// FormatClusterModulePrompt renders the recursive clustering request.
func FormatClusterModulePrompt(tree *model.ModuleNode, moduleName, componentList string) string {
	return fmt.Sprintf(clusterModulePrompt, RenderModuleTree(tree, moduleName), moduleName, componentList)
}

// FormatRepoOverviewPrompt renders the repository overview request.
func FormatRepoOverviewPrompt(repoName, repoStructure string) string {
	return fmt.Sprintf(RepoOverviewPrompt, repoName, repoStructure)
}

// FormatModuleOverviewPrompt renders a module overview request.
func FormatModuleOverviewPrompt(moduleName, repoStructure string) string {
	return fmt.Sprintf(ModuleOverviewPrompt, moduleName, repoStructure)
}

// RenderModuleTree formats the module tree as indented lines, marking
// the current module. A nil tree renders empty.
func RenderModuleTree(tree *model.ModuleNode, currentModule string) string {
	if tree == nil {
		return ""
	}
	var lines []string
	renderTreeLines(tree, currentModule, 0, &lines)
	return strings.Join(lines, "\n")
}

func renderTreeLines(node *model.ModuleNode, currentModule string, indent int, lines *[]string) {
	pad := strings.Repeat("  ", indent)
	label := node.Name
	if node.Name == currentModule {
		label += " (current module)"
	}
	*lines = append(*lines, pad+label)

	if len(node.Components) > 0 {
		*lines = append(*lines, fmt.Sprintf("%s Core components: %s", pad+"  ", strings.Join(node.Components, ", ")))
	}
	names := node.ChildNames()
	if len(names) > 0 {
		*lines = append(*lines, pad+"   Children:")
		for _, name := range names {
			renderTreeLines(node.Child(name), currentModule, indent+2, lines)
		}
	}
}

// formatComponentCodes groups component ids by file and embeds each
// file's full content in a fenced block.
func formatComponentCodes(componentIDs []string, registry model.Registry, readFile func(path string) ([]byte, error)) string {
	grouped := make(map[string][]string)
	var order []string
	for _, id := range componentIDs {
		comp, ok := registry[id]
		if !ok {
			continue
		}
		if _, seen := grouped[comp.RelativePath]; !seen {
			order = append(order, comp.RelativePath)
		}
		grouped[comp.RelativePath] = append(grouped[comp.RelativePath], id)
	}

	var b strings.Builder
	for _, path := range order {
		fmt.Fprintf(&b, "# File: %s\n\n", path)
		b.WriteString("## Core Components in this file:\n")
		for _, id := range grouped[path] {
			fmt.Fprintf(&b, "- %s\n", id)
		}
		fmt.Fprintf(&b, "\n## File Content:\n```%s\n", FenceLanguage(path))
		b.WriteString(fileContent(grouped[path][0], registry, readFile))
		b.WriteString("```\n\n")
	}
	return b.String()
}

func fileContent(id string, registry model.Registry, readFile func(path string) ([]byte, error)) string {
	comp := registry[id]
	if readFile != nil {
		if data, err := readFile(comp.FilePath); err == nil {
			return ensureTrailingNewline(string(data))
		} else {
			return fmt.Sprintf("# Error reading file: %v\n", err)
		}
	}
	return ensureTrailingNewline(comp.SourceCode)
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// formatAnalysisMetrics summarizes the extracted metrics for the
// module's components. Empty when no component carries metrics.
func formatAnalysisMetrics(componentIDs []string, registry model.Registry) string {
	type scored struct {
		name       string
		complexity int
		loc        int
	}
	var all []scored
	for _, id := range componentIDs {
		comp, ok := registry[id]
		if !ok || len(comp.Metrics) == 0 {
			continue
		}
		all = append(all, scored{
			name:       comp.DisplayName(),
			complexity: comp.Metrics[metrics.CyclomaticComplexity],
			loc:        comp.Metrics[metrics.LinesOfCode],
		})
	}
	if len(all) == 0 {
		return ""
	}

	var sections []string

	var complexOnes []scored
	for _, s := range all {
		if s.complexity >= complexityCallout {
			complexOnes = append(complexOnes, s)
		}
	}
	if len(complexOnes) > 0 {
		sort.Slice(complexOnes, func(i, j int) bool { return complexOnes[i].complexity > complexOnes[j].complexity })
		lines := []string{"## High Complexity Components"}
		for _, s := range complexOnes {
			lines = append(lines, fmt.Sprintf("- **%s** (cyclomatic complexity: %d, lines: %d), document logic flow carefully", s.name, s.complexity, s.loc))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	sort.Slice(all, func(i, j int) bool { return all[i].loc > all[j].loc })
	largest := all
	if len(largest) > 5 {
		largest = largest[:5]
	}
	lines := []string{"## Largest Components"}
	for _, s := range largest {
		lines = append(lines, fmt.Sprintf("- **%s** (%d lines, cyclomatic complexity %d)", s.name, s.loc, s.complexity))
	}
	sections = append(sections, strings.Join(lines, "\n"))

	return fmt.Sprintf("\n<ANALYSIS_METRICS>\n%s\n</ANALYSIS_METRICS>\n* NOTE: Use these metrics to understand architectural significance. High complexity components need careful documentation of their logic flow.\n", strings.Join(sections, "\n\n"))
}
