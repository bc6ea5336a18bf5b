package providers

import (
	"context"

	"ghexplorer/internal/data"
	"ghexplorer/internal/data/models"
	"ghexplorer/internal/fetcher"

	"github.com/google/go-github/v81/github"
)

type contributingFetcher struct{}

func (c *contributingFetcher) Key() data.DependencyKey { return data.DepRepoContributing }

func (c *contributingFetcher) Scope() data.FetchScope { return data.ScopeRepo }

func (c *contributingFetcher) Fetch(ctx context.Context, repo *github.Repository, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	out := &models.Contributing{}
	metrics, resp, err := call(ctx, f, func() (*github.CommunityHealthMetrics, *github.Response, error) {
		return f.Client().Client.Repositories.GetCommunityHealthMetrics(ctx, repo.GetOwner().GetLogin(), repo.GetName())
	})
	if err != nil {
		// Forks and some private repositories have no community profile.
		if isNotFound(resp) {
			return out, nil
		}
		return nil, err
	}
	if metrics != nil && metrics.Files != nil && metrics.Files.Contributing != nil {
		out.Found = true
		out.URL = metrics.Files.Contributing.GetHTMLURL()
	}
	return out, nil
}

func init() {
	fetcher.RegisterDataFetcher(&contributingFetcher{})
}
