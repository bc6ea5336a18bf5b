package explore

import (
	"context"
	"errors"

	"ghexplorer/internal/analytics"
	"ghexplorer/internal/config"
	"ghexplorer/internal/export"
	"ghexplorer/internal/fetcher"
	gh "ghexplorer/internal/github"

	"github.com/google/go-github/v81/github"
)

// Listing is a discovered result set after filtering, sorting and paging.
type Listing struct {
	Discovery *Discovery

	// Matched holds every repository that passed the filters, sorted.
	Matched []*github.Repository

	// Page is set when a page was requested (cfg.View.Page > 0).
	Page *Page[*github.Repository]

	// Languages is the language cloud over Matched.
	Languages []analytics.LanguageCount
}

// Explore discovers repositories for cfg.Targeting and applies the view
// settings of cfg.View.
func Explore(ctx context.Context, client *gh.Client, budget *fetcher.RequestBudget, cfg *config.Config) (*Listing, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	d, err := Discover(ctx, client, budget, cfg.Targeting)
	if err != nil {
		return nil, err
	}
	return Arrange(d, cfg), nil
}

// Arrange filters, sorts and pages an existing discovery.
func Arrange(d *Discovery, cfg *config.Config) *Listing {
	matched := Sort(FilterRepos(d.Repos, cfg, d.Mode), cfg.View.Sort)
	l := &Listing{
		Discovery: d,
		Matched:   matched,
		Languages: analytics.LanguageCloud(matched),
	}
	if cfg.View.Page > 0 {
		p := Paginate(matched, cfg.View.Page, cfg.View.PageSize)
		l.Page = &p
	}
	return l
}

// Visible returns the repositories to present: the selected page, or every
// match when no page was requested.
func (l *Listing) Visible() []*github.Repository {
	if l.Page != nil {
		return l.Page.Items
	}
	return l.Matched
}

func (l *Listing) Summary() export.Summary {
	s := export.Summary{
		Mode:       string(l.Discovery.Mode),
		Source:     l.Discovery.Source,
		Discovered: len(l.Discovery.Repos),
		TotalCount: l.Discovery.TotalCount,
		Matched:    len(l.Matched),
		HasMore:    l.Discovery.HasMore,
		Truncated:  l.Discovery.Truncated,
		Languages:  l.Languages,
	}
	if l.Page != nil {
		s.Page = l.Page.Number
		s.PageSize = l.Page.Size
		s.TotalPages = l.Page.TotalPages
	}
	return s
}
