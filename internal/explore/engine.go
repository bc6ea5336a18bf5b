package explore

import (
	"context"
	"io"
	"os"

	"ghexplorer/internal/config"
	"ghexplorer/internal/data"
	"ghexplorer/internal/export"
	"ghexplorer/internal/fetcher"
	_ "ghexplorer/internal/fetcher/providers"
	gh "ghexplorer/internal/github"

	"github.com/google/go-github/v81/github"
	"go.uber.org/zap"
)

// Exit codes of a search run.
const (
	ExitOK      = 0
	ExitPartial = 2
	ExitFatal   = 3
)

func exitCodeForRun(fatal, partial bool) int {
	if fatal {
		return ExitFatal
	}
	if partial {
		return ExitPartial
	}
	return ExitOK
}

type Engine struct {
	Client *gh.Client
	Logger *zap.Logger

	// Stdout receives console and emit sinks; nil means os.Stdout.
	Stdout io.Writer

	// schedulerExecute is a test seam for detail fetching.
	// If nil, Engine uses the real fetcher + scheduler.
	schedulerExecute func(ctx context.Context, cfg *config.Config, plan *FetchPlan) (<-chan RepoResult, <-chan error)
}

func NewEngine(client *gh.Client, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Client: client, Logger: logger}
}

func (e *Engine) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

// progress logs run progress at info, or at debug when the console is off.
func (e *Engine) progress(cfg *config.Config, msg string, fields ...zap.Field) {
	if cfg.Output.NoConsole {
		e.logger().Debug(msg, fields...)
		return
	}
	e.logger().Info(msg, fields...)
}

func (e *Engine) setupOutputManager(cfg *config.Config) (*export.Manager, error) {
	outMgr := export.NewManager()

	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(export.NewConsoleSink(e.stdout(), cfg.Output.ConsoleFormat)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	for _, emit := range cfg.Output.Emit {
		es, err := export.NewEmitSink(e.stdout(), emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	if cfg.Output.Out != "" {
		format, err := config.ResolveOutFormat(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		fs, err := export.NewFileSink(cfg.Output.Out, format, export.Options{CloneBatch: cfg.Output.CloneBatch})
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

func (e *Engine) executePlanStream(ctx context.Context, cfg *config.Config, budget *fetcher.RequestBudget, plan *FetchPlan) (<-chan RepoResult, <-chan error) {
	if e.schedulerExecute != nil {
		return e.schedulerExecute(ctx, cfg, plan)
	}

	f := fetcher.NewFetcher(e.Client, budget)
	scheduler, err := NewScheduler(f, cfg.Runtime.Concurrency)
	if err != nil {
		resCh := make(chan RepoResult)
		errCh := make(chan error, 1)
		close(resCh)
		errCh <- err
		close(errCh)
		return resCh, errCh
	}
	return scheduler.Execute(ctx, plan)
}

// emitInPlanOrder writes enriched records as soon as every earlier repository
// has been written, so sinks see the sorted order regardless of completion
// order. It reports whether any record carries a hard dependency failure.
func emitInPlanOrder(resCh <-chan RepoResult, outMgr *export.Manager, verbose bool) (partial bool) {
	pending := make(map[int]export.Record)
	next := 0
	for res := range resCh {
		rec, failed := EnrichRecord(res, verbose)
		partial = partial || failed
		pending[res.Index] = rec
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			_ = outMgr.Write(r)
			delete(pending, next)
			next++
		}
	}
	// Gaps only remain after cancellation; flush what arrived.
	for i := next; len(pending) > 0; i++ {
		if r, ok := pending[i]; ok {
			_ = outMgr.Write(r)
			delete(pending, i)
		}
	}
	return partial
}

// Run discovers, filters, sorts and pages repositories, optionally fetches
// per-repository details, and writes everything to the configured sinks.
// It returns ExitOK, ExitPartial or ExitFatal.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	log := e.logger()
	budget := fetcher.NewRequestBudget(fetcher.WithQPS(cfg.Runtime.GitHubQPS))

	e.progress(cfg, "Discovering repositories...", zap.String("user", cfg.Targeting.User), zap.String("query", cfg.Targeting.Query))
	listing, err := Explore(ctx, e.Client, budget, cfg)
	if err != nil {
		log.Error("Error discovering repositories", zap.Error(err))
		return exitCodeForRun(true, false)
	}
	visible := listing.Visible()
	e.progress(cfg, "Found repositories.",
		zap.Int("discovered", len(listing.Discovery.Repos)),
		zap.Int("matched", len(listing.Matched)),
		zap.Int("shown", len(visible)),
		zap.Bool("has_more", listing.Discovery.HasMore))
	if listing.Discovery.Truncated {
		e.progress(cfg, "Stopped at --max-repos; use --all-pages to fetch everything.", zap.Int("max_repos", cfg.Targeting.MaxRepos))
	}

	outMgr, err := e.setupOutputManager(cfg)
	if err != nil {
		log.Error("Error creating output sinks", zap.Error(err))
		return exitCodeForRun(true, false)
	}

	_ = outMgr.Write(export.Event{Type: export.EventRunStarted, Source: listing.Discovery.Source, Repos: len(visible)})
	_ = outMgr.Write(listing.Summary())

	var fatal, partial bool
	if cfg.View.Details && len(visible) > 0 {
		fatal, partial = e.writeDetails(ctx, cfg, budget, visible, outMgr)
	} else {
		for _, r := range visible {
			_ = outMgr.Write(export.NewRecord(r))
		}
	}

	code := exitCodeForRun(fatal, partial)
	_ = outMgr.Write(export.Event{Type: export.EventRunFinished, Repos: len(visible), ExitCode: code})
	if err := outMgr.Close(); err != nil {
		log.Error("Error writing output", zap.Error(err))
		if code == ExitOK {
			code = ExitPartial
		}
	}
	return code
}

func (e *Engine) writeDetails(ctx context.Context, cfg *config.Config, budget *fetcher.RequestBudget, repos []*github.Repository, outMgr *export.Manager) (fatal, partial bool) {
	e.progress(cfg, "Fetching repository details...", zap.Int("repos", len(repos)), zap.Int("concurrency", cfg.Runtime.Concurrency))

	plan, err := PlanFor(repos, data.DetailKeys())
	if err != nil {
		e.logger().Error("Error planning detail fetch", zap.Error(err))
		return true, false
	}

	resCh, errCh := e.executePlanStream(ctx, cfg, budget, plan)
	partial = emitInPlanOrder(resCh, outMgr, cfg.Runtime.Verbose)

	var schedErr error
	for err := range errCh {
		if err != nil {
			schedErr = err
		}
	}
	if schedErr != nil {
		e.logger().Error("Detail fetch aborted", zap.Error(schedErr))
		return true, partial
	}
	if partial {
		e.logger().Warn("Some repository details could not be fetched.")
	}
	return false, partial
}
