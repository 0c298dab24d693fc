package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imyousuf/codescribe/internal/config"
	"github.com/imyousuf/codescribe/internal/graph"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		outputDir string
		format    string
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [repo-path]",
		Short: "Extract components and write the dependency graph",
		Long: `Parse the repository's source files, extract components with their
call edges and metrics, and write the dependency graph artifact to the
output directory. No model is contacted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Repository.Root = args[0]
			}
			if cmd.Flags().Changed("output") {
				cfg.Output.Dir = outputDir
			}
			if noCache {
				cfg.Analysis.Cache = false
			}
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}
			if err := cfg.Validate(false); err != nil {
				return err
			}
			return runAnalyze(cmd, cfg, format)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "docs", "output directory")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "graph artifact format (json or yaml)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the analysis cache")

	return cmd
}

func runAnalyze(cmd *cobra.Command, cfg *config.Config, format string) error {
	logger := newLogger()

	root, err := filepath.Abs(cfg.Repository.Root)
	if err != nil {
		return fmt.Errorf("resolving repository root: %w", err)
	}

	res, build, err := runAnalysis(cmd.Context(), cfg, root, logger)
	if err != nil {
		return err
	}

	artifact := filepath.Join(cfg.Output.Dir, "dependency_graph."+format)
	if format == "yaml" {
		err = graph.SaveYAML(artifact, res.Registry)
	} else {
		err = graph.SaveJSON(artifact, res.Registry)
	}
	if err != nil {
		return fmt.Errorf("writing dependency graph: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("Analysis complete"))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Repository"), valueStyle.Render(root))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Files scanned"), valueStyle.Render(fmt.Sprint(res.Stats.FilesScanned)))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Files analyzed"), valueStyle.Render(fmt.Sprint(res.Stats.FilesAnalyzed)))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Components"), valueStyle.Render(fmt.Sprint(res.Stats.Components)))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Call edges"), valueStyle.Render(fmt.Sprint(res.Stats.Edges)))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Leaves"), valueStyle.Render(fmt.Sprint(len(build.Leaves))))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Cycles resolved"), valueStyle.Render(fmt.Sprint(len(build.Cycles))))
	if len(res.Stats.Errors) > 0 {
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("File errors"), valueStyle.Render(fmt.Sprint(len(res.Stats.Errors))))
	}
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Artifact"), valueStyle.Render(artifact))
	return nil
}
