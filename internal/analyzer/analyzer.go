// Package analyzer walks a repository, dispatches source files to the
// per-language extraction strategies across a worker pool, and
// aggregates the results into the component registry.
package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/imyousuf/codescribe/internal/cache"
	"github.com/imyousuf/codescribe/internal/metrics"
	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/parser"
	"github.com/imyousuf/codescribe/internal/parser/cpp"
	"github.com/imyousuf/codescribe/internal/parser/csharp"
	"github.com/imyousuf/codescribe/internal/parser/golang"
	"github.com/imyousuf/codescribe/internal/parser/java"
	"github.com/imyousuf/codescribe/internal/parser/javascript"
	"github.com/imyousuf/codescribe/internal/parser/php"
	"github.com/imyousuf/codescribe/internal/parser/python"
	"github.com/imyousuf/codescribe/internal/parser/typescript"
	"github.com/imyousuf/codescribe/internal/parser/vue"
)

// fallbackWorkers is used when the CPU count cannot size the pool.
const fallbackWorkers = 4

// Config holds analyzer inputs for one run.
type Config struct {
	// RepoRoot is the repository directory to analyze.
	RepoRoot string
	// IncludePatterns and ExcludePatterns are user globs applied after
	// the built-in ignore set.
	IncludePatterns []string
	ExcludePatterns []string
	// Workers bounds the parse pool. Zero means runtime.NumCPU with a
	// fallback of four; one degrades to sequential processing.
	Workers int
	// Cache memoizes per-file extraction results. Optional.
	Cache *cache.Store
	// Logf receives progress and per-file diagnostics. Optional.
	Logf func(format string, args ...any)
}

// Stats summarizes one analysis run. Per-file failures are isolated:
// they land in Errors and never abort the run.
type Stats struct {
	FilesScanned  int      `json:"files_scanned"`
	FilesAnalyzed int      `json:"files_analyzed"`
	CacheHits     int      `json:"cache_hits"`
	Components    int      `json:"components"`
	Edges         int      `json:"edges"`
	Errors        []string `json:"errors,omitempty"`
}

// Result is the aggregated output of an analysis run.
type Result struct {
	Registry model.Registry
	Edges    []*model.CallEdge
	Stats    Stats
}

// Analyzer extracts components from every supported file under a
// repository root.
type Analyzer struct {
	cfg      Config
	registry *parser.Registry
	filter   *parser.Filter
	logf     func(format string, args ...any)
}

// New builds an Analyzer with every language strategy registered.
func New(cfg Config) (*Analyzer, error) {
	if cfg.RepoRoot == "" {
		return nil, fmt.Errorf("analyzer: repository root is required")
	}
	root, err := filepath.Abs(cfg.RepoRoot)
	if err != nil {
		return nil, fmt.Errorf("analyzer: resolving repository root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("analyzer: repository root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("analyzer: repository root %s is not a directory", root)
	}
	cfg.RepoRoot = root

	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	registry := parser.NewRegistry()
	registry.Register(golang.NewParser())
	registry.Register(python.NewParser())
	registry.Register(javascript.NewParser())
	registry.Register(typescript.NewParser())
	registry.Register(java.NewParser())
	registry.Register(csharp.NewParser())
	registry.Register(cpp.NewCParser())
	registry.Register(cpp.NewCPPParser())
	registry.Register(php.NewParser())
	registry.Register(vue.NewParser())

	return &Analyzer{
		cfg:      cfg,
		registry: registry,
		filter:   parser.NewFilter(cfg.IncludePatterns, cfg.ExcludePatterns),
		logf:     logf,
	}, nil
}

// Run walks the repository and extracts components from every matching
// file. Only a walk-level failure is an error; per-file problems are
// recorded in Stats.Errors.
func (a *Analyzer) Run(ctx context.Context) (*Result, error) {
	files, err := a.collectFiles(ctx)
	if err != nil {
		return nil, err
	}
	a.logf("analyzing %d files under %s", len(files), a.cfg.RepoRoot)

	results, stats := a.parseFiles(ctx, files)
	stats.FilesScanned = len(files)

	res := a.aggregate(results, stats)
	metrics.Annotate(res.Registry, a.languageOf)
	return res, nil
}

// collectFiles walks the tree gathering repository-relative paths that
// have a registered strategy and survive the filter. Symlinks are never
// followed.
func (a *Analyzer) collectFiles(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.Walk(a.cfg.RepoRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		rel, relErr := filepath.Rel(a.cfg.RepoRoot, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			// Dot directories are pruned outright; everything else is
			// filtered per file so user globs stay simple.
			if strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := a.registry.GetByExtension(filepath.Ext(path)); !ok {
			return nil
		}
		if !a.filter.Match(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer: walking %s: %w", a.cfg.RepoRoot, err)
	}
	sort.Strings(files)
	return files, nil
}

type fileOutcome struct {
	rel    string
	result *parser.FileResult
	hit    bool
	err    error
}

// parseFiles fans the file list across the worker pool. Order of the
// returned outcomes follows the input list so aggregation stays
// deterministic.
func (a *Analyzer) parseFiles(ctx context.Context, files []string) ([]fileOutcome, Stats) {
	outcomes := make([]fileOutcome, len(files))
	workers := a.workerCount()

	if workers <= 1 || len(files) <= 1 {
		for i, rel := range files {
			outcomes[i] = a.parseOne(ctx, rel)
		}
	} else {
		var wg sync.WaitGroup
		jobs := make(chan int)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					outcomes[i] = a.parseOne(ctx, files[i])
				}
			}()
		}
		for i := range files {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	var stats Stats
	for _, out := range outcomes {
		switch {
		case out.err != nil:
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", out.rel, out.err))
		case out.hit:
			stats.CacheHits++
			stats.FilesAnalyzed++
		default:
			stats.FilesAnalyzed++
		}
	}
	return outcomes, stats
}

// parseOne reads, caches, and parses one file. A panic inside a
// strategy is converted into a per-file error so it cannot take down a
// worker.
func (a *Analyzer) parseOne(ctx context.Context, rel string) (out fileOutcome) {
	out.rel = rel
	defer func() {
		if r := recover(); r != nil {
			out.result = nil
			out.err = fmt.Errorf("parser panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		out.err = err
		return out
	}

	abs := filepath.Join(a.cfg.RepoRoot, filepath.FromSlash(rel))
	content, err := os.ReadFile(abs)
	if err != nil {
		out.err = fmt.Errorf("read: %w", err)
		return out
	}

	if a.cfg.Cache != nil {
		if entry, ok := a.cfg.Cache.Get(rel, content); ok {
			out.result = &parser.FileResult{
				Components: entry.Components,
				Edges:      entry.Edges,
				FilePath:   abs,
			}
			out.hit = true
			return out
		}
	}

	p, ok := a.registry.GetByExtension(filepath.Ext(rel))
	if !ok {
		out.err = fmt.Errorf("no parser for extension %s", filepath.Ext(rel))
		return out
	}

	result, err := p.ParseFile(abs, rel, content)
	if err != nil {
		out.err = fmt.Errorf("parse: %w", err)
		return out
	}
	out.result = result

	if a.cfg.Cache != nil {
		entry := &cache.Entry{Components: result.Components, Edges: result.Edges}
		if err := a.cfg.Cache.Put(rel, content, entry); err != nil {
			a.logf("caching %s failed: %v", rel, err)
		}
	}
	return out
}

// aggregate merges per-file results into one registry and edge slice.
// The first file to register an id wins; later duplicates are logged
// and dropped.
func (a *Analyzer) aggregate(outcomes []fileOutcome, stats Stats) *Result {
	registry := make(model.Registry)
	var edges []*model.CallEdge

	for _, out := range outcomes {
		if out.result == nil {
			continue
		}
		for _, comp := range out.result.Components {
			if existing, ok := registry[comp.ID]; ok {
				a.logf("duplicate component id %s in %s (already registered from %s)",
					comp.ID, out.rel, existing.RelativePath)
				continue
			}
			registry[comp.ID] = comp
		}
		edges = append(edges, out.result.Edges...)
	}

	stats.Components = len(registry)
	stats.Edges = len(edges)
	return &Result{Registry: registry, Edges: edges, Stats: stats}
}

func (a *Analyzer) workerCount() int {
	if a.cfg.Workers > 0 {
		return a.cfg.Workers
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return fallbackWorkers
}

func (a *Analyzer) languageOf(relPath string) parser.Language {
	if p, ok := a.registry.GetByExtension(filepath.Ext(relPath)); ok {
		return p.Language()
	}
	return ""
}
