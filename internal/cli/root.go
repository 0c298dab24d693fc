// Package cli implements the command-line interface for codescribe.
package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// Styles shared by the command summaries.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(18)
	valueStyle = lipgloss.NewStyle()
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "codescribe",
	Short: "codescribe - AI-generated documentation for codebases",
	Long: `codescribe analyzes a repository, builds a typed dependency graph of
its components, clusters them into a module hierarchy, and drives
documentation agents that write one markdown artifact per module plus a
repository overview.

Commands:
  init       Create a .codescribe.toml config file
  analyze    Extract components and write the dependency graph
  generate   Run the full documentation pipeline
  version    Print version information`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .codescribe.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
}

// newLogger builds the process logger. Verbose mode lowers the level
// and reports callers.
func newLogger() *log.Logger {
	opts := log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	}
	if verbose {
		opts.Level = log.DebugLevel
		opts.ReportCaller = true
	}
	return log.NewWithOptions(os.Stderr, opts)
}
