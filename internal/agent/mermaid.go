package agent

import (
	"fmt"
	"strings"
)

// MermaidIssue describes one invalid diagram in a Markdown document.
type MermaidIssue struct {
	// Index is the 1-based position of the diagram among mermaid
	// fences in the document.
	Index int
	// Line is the 1-based document line of the fence opener.
	Line int
	// Message describes the failure.
	Message string
}

// ValidateMermaid extracts every ```mermaid fenced block and validates
// it. A strict check runs first; when it rejects, a lenient check gets
// a second opinion, and only a double rejection reports an issue.
func ValidateMermaid(markdown string) []MermaidIssue {
	var issues []MermaidIssue
	for i, block := range extractMermaidBlocks(markdown) {
		if err := validateStrict(block.source); err != nil {
			if lenientErr := validateLenient(block.source); lenientErr != nil {
				issues = append(issues, MermaidIssue{
					Index:   i + 1,
					Line:    block.line,
					Message: err.Error(),
				})
			}
		}
	}
	return issues
}

type mermaidBlock struct {
	source string
	line   int
}

func extractMermaidBlocks(markdown string) []mermaidBlock {
	var blocks []mermaidBlock
	lines := strings.Split(markdown, "\n")
	inBlock := false
	startLine := 0
	var body []string
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !inBlock {
			if strings.HasPrefix(trimmed, "```mermaid") {
				inBlock = true
				startLine = i + 1
				body = body[:0]
			}
			continue
		}
		if strings.HasPrefix(trimmed, "```") {
			blocks = append(blocks, mermaidBlock{
				source: strings.Join(body, "\n"),
				line:   startLine,
			})
			inBlock = false
			continue
		}
		body = append(body, line)
	}
	// An unterminated fence still counts as a diagram so the agent is
	// told to close it.
	if inBlock {
		blocks = append(blocks, mermaidBlock{
			source: strings.Join(body, "\n") + "\n```", // force a strict failure
			line:   startLine,
		})
	}
	return blocks
}

// diagramTypes are the headers the strict validator accepts.
var diagramTypes = []string{
	"graph", "flowchart", "sequenceDiagram", "classDiagram",
	"stateDiagram-v2", "stateDiagram", "erDiagram", "journey",
	"gantt", "pie", "mindmap", "timeline", "quadrantChart", "gitGraph",
}

// validateStrict checks the header, body presence, bracket balance,
// and subgraph/end pairing.
func validateStrict(source string) error {
	lines := nonEmptyLines(source)
	if len(lines) == 0 {
		return fmt.Errorf("diagram is empty")
	}
	header := strings.TrimSpace(lines[0])
	if !hasDiagramHeader(header) {
		return fmt.Errorf("unknown diagram type %q", firstWord(header))
	}
	if len(lines) < 2 {
		return fmt.Errorf("diagram has a header but no body")
	}
	if strings.Contains(source, "```") {
		return fmt.Errorf("diagram contains an unterminated fence")
	}
	if err := checkBrackets(source); err != nil {
		return err
	}
	return checkSubgraphs(lines)
}

// validateLenient checks structure (header, body, fence closure,
// subgraph pairing) but forgives bracket imbalance, which the strict
// check can misreport for labels containing bare brackets.
func validateLenient(source string) error {
	lines := nonEmptyLines(source)
	if len(lines) < 2 {
		return fmt.Errorf("diagram needs a header and a body")
	}
	if !hasDiagramHeader(strings.TrimSpace(lines[0])) {
		return fmt.Errorf("unknown diagram type")
	}
	if strings.Contains(source, "```") {
		return fmt.Errorf("unterminated fence")
	}
	return checkSubgraphs(lines)
}

func hasDiagramHeader(header string) bool {
	word := firstWord(header)
	for _, t := range diagramTypes {
		if word == t {
			return true
		}
	}
	return false
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func nonEmptyLines(source string) []string {
	var out []string
	for _, line := range strings.Split(source, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// checkBrackets verifies (), [], and {} balance outside quoted
// strings.
func checkBrackets(source string) error {
	var stack []rune
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	inQuote := false
	for lineNo, line := range strings.Split(source, "\n") {
		for _, r := range line {
			if r == '"' {
				inQuote = !inQuote
				continue
			}
			if inQuote {
				continue
			}
			switch r {
			case '(', '[', '{':
				stack = append(stack, r)
			case ')', ']', '}':
				if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
					return fmt.Errorf("unbalanced %q on diagram line %d", r, lineNo+1)
				}
				stack = stack[:len(stack)-1]
			}
		}
		// Quotes do not span lines in mermaid labels.
		inQuote = false
	}
	if len(stack) > 0 {
		return fmt.Errorf("unclosed %q", stack[len(stack)-1])
	}
	return nil
}

// checkSubgraphs verifies every subgraph has a matching end.
func checkSubgraphs(lines []string) error {
	depth := 0
	for i, line := range lines {
		word := firstWord(strings.TrimSpace(line))
		switch word {
		case "subgraph":
			depth++
		case "end":
			depth--
			if depth < 0 {
				return fmt.Errorf("end without subgraph on diagram line %d", i+1)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%d subgraph(s) missing end", depth)
	}
	return nil
}
