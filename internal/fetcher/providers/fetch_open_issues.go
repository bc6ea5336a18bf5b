package providers

import (
	"context"

	"ghexplorer/internal/data"
	"ghexplorer/internal/fetcher"

	"github.com/google/go-github/v81/github"
)

const (
	openIssuesLimit = 5
	// The issues endpoint also returns pull requests; over-fetch so that a few
	// open PRs do not starve the listing.
	openIssuesPageSize = 20
)

type openIssuesFetcher struct{}

func (o *openIssuesFetcher) Key() data.DependencyKey { return data.DepRepoOpenIssues }

func (o *openIssuesFetcher) Scope() data.FetchScope { return data.ScopeRepo }

func (o *openIssuesFetcher) Fetch(ctx context.Context, repo *github.Repository, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: openIssuesPageSize},
	}
	issues, _, err := call(ctx, f, func() ([]*github.Issue, *github.Response, error) {
		return f.Client().Client.Issues.ListByRepo(ctx, repo.GetOwner().GetLogin(), repo.GetName(), opts)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*github.Issue, 0, openIssuesLimit)
	for _, is := range issues {
		if is == nil || is.IsPullRequest() {
			continue
		}
		out = append(out, is)
		if len(out) == openIssuesLimit {
			break
		}
	}
	return out, nil
}

func init() {
	fetcher.RegisterDataFetcher(&openIssuesFetcher{})
}
