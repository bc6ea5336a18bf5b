package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-github/v81/github"
	"go.uber.org/zap"

	"ghexplorer/internal/analytics"
	"ghexplorer/internal/config"
	"ghexplorer/internal/data"
	"ghexplorer/internal/explore"
	"ghexplorer/internal/export"
	"ghexplorer/internal/fetcher"
	_ "ghexplorer/internal/fetcher/providers"
)

type reposResponse struct {
	Summary      export.Summary  `json:"summary"`
	Repositories []export.Record `json:"repositories"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.listingConfig(r, 1)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	listing, err := explore.Explore(r.Context(), s.deps.Client, s.deps.Budget, cfg)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reposResponse{
		Summary:      listing.Summary(),
		Repositories: export.Records(listing.Visible()),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := config.ResolveOutFormat("", r.URL.Query().Get("format"))
	if err != nil || format == "" {
		if err == nil {
			err = errors.New("format is required")
		}
		s.fail(w, r, badRequest(err))
		return
	}
	cfg, err := s.listingConfig(r, 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	listing, err := explore.Explore(r.Context(), s.deps.Client, s.deps.Budget, cfg)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(format)))
	if err := export.Write(w, format, export.Records(listing.Visible()), export.Options{CloneBatch: cfg.Output.CloneBatch}); err != nil {
		// Headers are gone; all that is left is to log.
		s.log.Error("export failed", zap.String("format", format), zap.Error(err))
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	repo, err := repoFromPath(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f := fetcher.NewFetcher(s.deps.Client, s.deps.Budget)
	dc, errs := f.FetchAll(r.Context(), repo, data.StatsKeys())
	if err := errs[data.DepRepoMetadata]; err != nil {
		s.fail(w, r, err)
		return
	}
	for key, err := range errs {
		s.log.Warn("statistics dependency failed",
			zap.String("repo", repo.GetFullName()),
			zap.String("dependency", string(key)),
			zap.Error(err))
	}
	writeJSON(w, http.StatusOK, analytics.BuildReport(repo, dc, s.deps.Now()))
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	repo, err := repoFromPath(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f := fetcher.NewFetcher(s.deps.Client, s.deps.Budget)
	val, err := f.Fetch(r.Context(), repo, data.DepRepoMetadata, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	meta, ok := val.(*github.Repository)
	if !ok || meta == nil {
		s.fail(w, r, fmt.Errorf("unexpected metadata for %s", repo.GetFullName()))
		return
	}
	in, err := s.deps.Insights.Generate(r.Context(), meta)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Client went away; nothing useful can be written.
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleRateLimit(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Client.RateLimit(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status.Summarize(s.deps.Now()))
}

// listingConfig applies the query parameters of r on top of the server
// defaults. defaultPage is used when the request names no page; 0 selects
// every match.
func (s *Server) listingConfig(r *http.Request, defaultPage int) (*config.Config, error) {
	q := r.URL.Query()
	cfg := *s.deps.Defaults
	cfg.Targeting.User = q.Get("user")
	cfg.Targeting.Query = q.Get("q")
	if v := q.Get("sort"); v != "" {
		cfg.View.Sort = v
	}
	cfg.View.Filter = q.Get("filter")
	if v := q["language"]; len(v) > 0 {
		cfg.Targeting.Language = append([]string(nil), v...)
	}
	if v := q["topic"]; len(v) > 0 {
		cfg.Targeting.Topic = append([]string(nil), v...)
	}

	var err error
	if cfg.View.Page, err = intParam(q.Get("page"), defaultPage, "page"); err != nil {
		return nil, err
	}
	if cfg.View.PageSize, err = intParam(q.Get("page_size"), cfg.View.PageSize, "page_size"); err != nil {
		return nil, err
	}
	if cfg.Targeting.MinStars, err = intParam(q.Get("min_stars"), cfg.Targeting.MinStars, "min_stars"); err != nil {
		return nil, err
	}
	if cfg.Output.CloneBatch, err = intParam(q.Get("clone_batch"), cfg.Output.CloneBatch, "clone_batch"); err != nil {
		return nil, err
	}

	// File and stream outputs belong to the CLI.
	cfg.Output.Out = ""
	cfg.Output.OutFormat = ""
	cfg.Output.Emit = nil

	if err := cfg.ValidateSearch(); err != nil {
		return nil, badRequest(flagsToParams(err))
	}
	return &cfg, nil
}

func intParam(raw string, fallback int, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(fmt.Errorf("invalid %s %q", name, raw))
	}
	return v, nil
}

// flagsToParams rewrites CLI flag names in validation errors to the matching
// query parameter names.
func flagsToParams(err error) error {
	r := strings.NewReplacer(
		"--user", "user",
		"--query", "q",
		"--page-size", "page_size",
		"--page", "page",
		"--min-stars", "min_stars",
		"--clone-batch", "clone_batch",
		"--sort", "sort",
	)
	return errors.New(r.Replace(err.Error()))
}

func repoFromPath(r *http.Request) (*github.Repository, error) {
	owner, name, err := config.ParseRepoSelector(chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo"))
	if err != nil {
		return nil, badRequest(err)
	}
	return &github.Repository{
		Owner:    &github.User{Login: github.Ptr(owner)},
		Name:     github.Ptr(name),
		FullName: github.Ptr(owner + "/" + name),
	}, nil
}
