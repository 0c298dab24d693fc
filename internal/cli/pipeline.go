package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/imyousuf/codescribe/internal/analyzer"
	"github.com/imyousuf/codescribe/internal/cache"
	"github.com/imyousuf/codescribe/internal/config"
	"github.com/imyousuf/codescribe/internal/graph"
	intllm "github.com/imyousuf/codescribe/internal/llm"
	"github.com/imyousuf/codescribe/pkg/llm"
)

// graphArtifact is the dependency graph file written under the output
// directory.
const graphArtifact = "dependency_graph.json"

// cacheDirName is the extraction cache location under the output
// directory.
const cacheDirName = ".cache"

// runAnalysis extracts components from the repository and builds the
// dependency graph. The cache store, when enabled, lives under the
// output directory and is closed before returning.
func runAnalysis(ctx context.Context, cfg *config.Config, root string, logger *log.Logger) (*analyzer.Result, *graph.Result, error) {
	var store *cache.Store
	if cfg.Analysis.Cache {
		dir := filepath.Join(cfg.Output.Dir, cacheDirName)
		s, err := cache.Open(dir)
		if err != nil {
			logger.Warn("analysis cache unavailable, continuing without it", "dir", dir, "err", err)
		} else {
			store = s
			defer store.Close()
		}
	}

	a, err := analyzer.New(analyzer.Config{
		RepoRoot:        root,
		IncludePatterns: cfg.Analysis.IncludePatterns,
		ExcludePatterns: cfg.Analysis.ExcludePatterns,
		Workers:         cfg.Analysis.Workers,
		Cache:           store,
		Logf:            logger.Debugf,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info("analyzing repository", "root", root)
	res, err := a.Run(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("analysis complete",
		"files", res.Stats.FilesAnalyzed,
		"components", res.Stats.Components,
		"edges", res.Stats.Edges,
		"cache_hits", res.Stats.CacheHits,
		"errors", len(res.Stats.Errors))
	for _, e := range res.Stats.Errors {
		logger.Debug("file skipped", "err", e)
	}
	if len(res.Registry) == 0 {
		return nil, nil, fmt.Errorf("no supported source files found under %s", root)
	}

	build := graph.NewBuilder(res.Registry, logger.Debugf).Build(res.Edges)
	logger.Info("dependency graph built",
		"leaves", len(build.Leaves),
		"cycles", len(build.Cycles),
		"unresolved", build.Unresolved)
	return res, build, nil
}

// buildChain constructs the model fallback chain from the configured
// main and fallback models. The caller closes every returned client.
func buildChain(cfg *config.Config, logger *log.Logger) (llm.Client, []llm.Client, error) {
	apiKey := cfg.LLM.APIKey()
	if apiKey == "" {
		logger.Warn("no API key found, requests may be rejected", "env", cfg.LLM.APIKeyEnv)
	}

	models := append([]string{cfg.LLM.MainModel}, cfg.LLM.FallbackModels...)
	clients := make([]llm.Client, 0, len(models))
	for _, m := range models {
		c, err := llm.NewClient(llm.Config{
			Provider:              cfg.LLM.Provider,
			Model:                 m,
			APIKey:                apiKey,
			BaseURL:               cfg.LLM.BaseURL,
			RequestTimeoutSeconds: cfg.LLM.TimeoutSeconds,
		})
		if err != nil {
			closeClients(clients)
			return nil, nil, fmt.Errorf("creating client for %s: %w", m, err)
		}
		clients = append(clients, c)
	}

	chain, err := intllm.NewFallbackChain(clients, logger.Debugf)
	if err != nil {
		closeClients(clients)
		return nil, nil, err
	}
	return chain, clients, nil
}

func closeClients(clients []llm.Client) {
	for _, c := range clients {
		_ = c.Close()
	}
}
