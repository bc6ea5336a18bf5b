package providers

import (
	"context"

	"ghexplorer/internal/data"
	"ghexplorer/internal/data/models"
	"ghexplorer/internal/fetcher"

	"github.com/google/go-github/v81/github"
)

// maxContributors bounds the listing to one page.
const maxContributors = 100

type contributorsFetcher struct{}

func (c *contributorsFetcher) Key() data.DependencyKey { return data.DepRepoContributors }

func (c *contributorsFetcher) Scope() data.FetchScope { return data.ScopeRepo }

func (c *contributorsFetcher) Fetch(ctx context.Context, repo *github.Repository, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: maxContributors}}
	list, resp, err := call(ctx, f, func() ([]*github.Contributor, *github.Response, error) {
		return f.Client().Client.Repositories.ListContributors(ctx, repo.GetOwner().GetLogin(), repo.GetName(), opts)
	})
	if statsPending(resp, err) {
		return []models.Contributor{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]models.Contributor, 0, len(list))
	for _, c := range list {
		if c == nil {
			continue
		}
		out = append(out, models.Contributor{
			Login:         c.GetLogin(),
			Contributions: c.GetContributions(),
			HTMLURL:       c.GetHTMLURL(),
		})
	}
	return out, nil
}

func init() {
	fetcher.RegisterDataFetcher(&contributorsFetcher{})
}
