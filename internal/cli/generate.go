package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imyousuf/codescribe/internal/agent"
	"github.com/imyousuf/codescribe/internal/cluster"
	"github.com/imyousuf/codescribe/internal/config"
	"github.com/imyousuf/codescribe/internal/gitutil"
	"github.com/imyousuf/codescribe/internal/graph"
	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/orch"
	"github.com/imyousuf/codescribe/internal/token"
	"github.com/imyousuf/codescribe/pkg/llm"
)

func newGenerateCmd() *cobra.Command {
	var (
		outputDir   string
		docType     string
		focus       []string
		concurrency int
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "generate [repo-path]",
		Short: "Run the full documentation pipeline",
		Long: `Analyze the repository, cluster its components into a module tree,
and drive the documentation agents. Artifacts land in the output
directory: one markdown file per module, overview.md, the dependency
graph, the module tree, and run metadata.

Already-documented modules are skipped, so an interrupted run resumes
where it stopped.`,
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
			if cmd.Flags().Changed("type") {
				cfg.Docs.Type = docType
			}
			if cmd.Flags().Changed("focus") {
				cfg.Docs.FocusModules = focus
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Docs.Concurrency = concurrency
			}
			if noCache {
				cfg.Analysis.Cache = false
			}
			if err := cfg.Validate(true); err != nil {
				return err
			}
			return runGenerate(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "docs", "output directory")
	cmd.Flags().StringVarP(&docType, "type", "t", "", "documentation emphasis (api, architecture, user-guide, developer)")
	cmd.Flags().StringSliceVar(&focus, "focus", nil, "module names to document in extra depth")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel sibling modules (0 or 1 is sequential)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the analysis cache")

	return cmd
}

func runGenerate(cmd *cobra.Command, cfg *config.Config) error {
	logger := newLogger()
	ctx := cmd.Context()

	root, err := filepath.Abs(cfg.Repository.Root)
	if err != nil {
		return fmt.Errorf("resolving repository root: %w", err)
	}

	res, build, err := runAnalysis(ctx, cfg, root, logger)
	if err != nil {
		return err
	}
	if err := graph.SaveJSON(filepath.Join(cfg.Output.Dir, graphArtifact), res.Registry); err != nil {
		return fmt.Errorf("writing dependency graph: %w", err)
	}

	counter := token.NewCounter()
	if counter.Estimating() {
		logger.Warn("token encoding unavailable, falling back to byte estimates")
	}

	chain, clients, err := buildChain(cfg, logger)
	if err != nil {
		return err
	}
	defer closeClients(clients)

	clusterClient := llm.Client(chain)
	if m := cfg.LLM.ClusterModel; m != "" && m != cfg.LLM.MainModel {
		c, err := llm.NewClient(llm.Config{
			Provider:              cfg.LLM.Provider,
			Model:                 m,
			APIKey:                cfg.LLM.APIKey(),
			BaseURL:               cfg.LLM.BaseURL,
			RequestTimeoutSeconds: cfg.LLM.TimeoutSeconds,
		})
		if err != nil {
			return fmt.Errorf("creating clustering client: %w", err)
		}
		defer c.Close()
		clusterClient = c
	}

	logger.Info("clustering components", "leaves", len(build.Leaves), "model", clusterClient.Model())
	tree := cluster.New(res.Registry, clusterClient, counter, cfg.Budgets, logger.Debugf).
		Cluster(ctx, cfg.RepoName(), build.Leaves)

	ws, err := agent.NewWorkspace(root, cfg.Output.Dir)
	if err != nil {
		return err
	}
	deps := &agent.Deps{
		Registry:           res.Registry,
		Client:             chain,
		Counter:            counter,
		Budgets:            cfg.Budgets,
		Tree:               tree,
		Workspace:          ws,
		CustomInstructions: cfg.Docs.CustomInstructions,
		DocType:            cfg.Docs.Type,
		FocusModules:       cfg.Docs.FocusModules,
		Logf:               logger.Debugf,
	}

	logger.Info("generating documentation", "repo", cfg.RepoName(), "model", chain.Model())
	o := orch.New(deps, orch.Options{
		RepoName:      cfg.RepoName(),
		RepoPath:      root,
		CommitID:      gitutil.CommitID(root),
		Concurrency:   cfg.Docs.Concurrency,
		FilesAnalyzed: res.Stats.FilesAnalyzed,
	})
	if err := o.Run(ctx); err != nil {
		return err
	}

	printGenerateSummary(cmd, cfg, res.Stats.FilesAnalyzed, tree)
	return nil
}

func printGenerateSummary(cmd *cobra.Command, cfg *config.Config, files int, tree *model.ModuleNode) {
	modules := 0
	tree.WalkPostOrder(func(n *model.ModuleNode) {
		modules++
	})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("Documentation generated"))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Repository"), valueStyle.Render(cfg.RepoName()))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Output"), valueStyle.Render(cfg.Output.Dir))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Files analyzed"), valueStyle.Render(fmt.Sprint(files)))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Modules"), valueStyle.Render(fmt.Sprint(modules)))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Overview"), valueStyle.Render(filepath.Join(cfg.Output.Dir, "overview.md")))
}
