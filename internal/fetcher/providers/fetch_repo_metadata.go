package providers

import (
	"context"

	"ghexplorer/internal/data"
	"ghexplorer/internal/fetcher"

	"github.com/google/go-github/v81/github"
)

type repoMetadataFetcher struct{}

func (r *repoMetadataFetcher) Key() data.DependencyKey { return data.DepRepoMetadata }

func (r *repoMetadataFetcher) Scope() data.FetchScope { return data.ScopeRepo }

func (r *repoMetadataFetcher) Fetch(ctx context.Context, repo *github.Repository, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	result, _, err := call(ctx, f, func() (*github.Repository, *github.Response, error) {
		return f.Client().Client.Repositories.Get(ctx, repo.GetOwner().GetLogin(), repo.GetName())
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func init() {
	fetcher.RegisterDataFetcher(&repoMetadataFetcher{})
}
