package explore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ghexplorer/internal/config"
	"ghexplorer/internal/fetcher"
	gh "ghexplorer/internal/github"

	"github.com/google/go-github/v81/github"
)

const (
	perPage = 100

	// searchResultCap is the number of results GitHub search will page through.
	searchResultCap = 1000
)

type Mode string

const (
	ModeUser   Mode = "user"
	ModeSearch Mode = "search"
)

// Discovery is the raw result set fetched from GitHub, before any filtering.
type Discovery struct {
	Mode   Mode
	Source string
	Repos  []*github.Repository

	// TotalCount is GitHub's total for searches; 0 for account listings.
	TotalCount int
	Pages      int

	// HasMore reports that the last page fetched was full, so GitHub may hold
	// further results.
	HasMore bool

	// Truncated reports that --max-repos stopped discovery early.
	Truncated bool
}

// pageFunc fetches one 1-based page of 100 repositories.
type pageFunc func(ctx context.Context, page int) ([]*github.Repository, *github.Response, error)

// Discover lists the repositories of t.User (most recently updated first) or
// the results of the t.Query search (most stars first). Pages of 100 are
// fetched until a short page, or until t.MaxRepos repositories were collected
// unless t.AllPages is set. Repositories are deduplicated by ID.
func Discover(ctx context.Context, client *gh.Client, budget *fetcher.RequestBudget, t config.Targeting) (*Discovery, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if client == nil || client.Client == nil {
		return nil, errors.New("GitHub client is nil")
	}

	limit := t.MaxRepos
	if limit <= 0 {
		limit = config.DefaultMaxRepos
	}
	if t.AllPages {
		limit = 0
	}

	switch {
	case t.Query != "" && t.User != "":
		return nil, errors.New("--user and --query are mutually exclusive")
	case t.Query != "":
		d := &Discovery{Mode: ModeSearch, Source: t.Query}
		err := collect(ctx, d, budget, limit, searchPages(client, t.Query, d))
		return d, err
	case t.User != "":
		d := &Discovery{Mode: ModeUser, Source: t.User}
		err := collect(ctx, d, budget, limit, userPages(ctx, client, t.User))
		return d, err
	default:
		return nil, errors.New("one of --user or --query must be provided")
	}
}

func collect(ctx context.Context, d *Discovery, budget *fetcher.RequestBudget, limit int, fetch pageFunc) error {
	seen := make(map[string]struct{})
	for page := 1; ; page++ {
		if budget != nil {
			if err := budget.Acquire(ctx, 1); err != nil {
				return err
			}
		}
		repos, resp, err := fetch(ctx, page)
		if resp != nil && budget != nil {
			budget.UpdateFromResponse(resp.Response)
		}
		if err != nil {
			return fmt.Errorf("failed to list %s repositories (page %d): %w", d.Mode, page, err)
		}
		d.Pages++
		d.HasMore = len(repos) == perPage

		for _, repo := range repos {
			if limit > 0 && len(d.Repos) >= limit {
				d.Truncated = true
				return nil
			}
			key := repoKey(repo)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			d.Repos = append(d.Repos, repo)
		}

		if !d.HasMore {
			return nil
		}
		if limit > 0 && len(d.Repos) >= limit {
			d.Truncated = true
			return nil
		}
		if d.Mode == ModeSearch && page*perPage >= searchResultCap {
			d.HasMore = false
			return nil
		}
	}
}

func repoKey(r *github.Repository) string {
	if r.GetID() != 0 {
		return "id:" + strconv.FormatInt(r.GetID(), 10)
	}
	return "full:" + r.GetFullName()
}

func searchPages(client *gh.Client, query string, d *Discovery) pageFunc {
	return func(ctx context.Context, page int) ([]*github.Repository, *github.Response, error) {
		opts := &github.SearchOptions{
			Sort:        "stars",
			Order:       "desc",
			ListOptions: github.ListOptions{PerPage: perPage, Page: page},
		}
		res, resp, err := client.Client.Search.Repositories(ctx, query, opts)
		if err != nil {
			return nil, resp, err
		}
		d.TotalCount = res.GetTotal()
		return res.Repositories, resp, nil
	}
}

// userPages lists user's repositories. When user is the token owner the
// authenticated endpoint is used so private repositories are included.
func userPages(ctx context.Context, client *gh.Client, user string) pageFunc {
	authed := false
	if me, _, err := client.Client.Users.Get(ctx, ""); err == nil {
		authed = strings.EqualFold(me.GetLogin(), user)
	}

	if authed {
		return func(ctx context.Context, page int) ([]*github.Repository, *github.Response, error) {
			opts := &github.RepositoryListByAuthenticatedUserOptions{
				ListOptions: github.ListOptions{PerPage: perPage, Page: page},
				Visibility:  "all",
				Affiliation: "owner",
				Sort:        "updated",
			}
			return client.Client.Repositories.ListByAuthenticatedUser(ctx, opts)
		}
	}
	return func(ctx context.Context, page int) ([]*github.Repository, *github.Response, error) {
		opts := &github.RepositoryListByUserOptions{
			ListOptions: github.ListOptions{PerPage: perPage, Page: page},
			Type:        "owner",
			Sort:        "updated",
		}
		return client.Client.Repositories.ListByUser(ctx, user, opts)
	}
}
