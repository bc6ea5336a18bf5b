package providers

import (
	"context"

	"ghexplorer/internal/data"
	"ghexplorer/internal/fetcher"

	"github.com/google/go-github/v81/github"
)

type languagesFetcher struct{}

func (l *languagesFetcher) Key() data.DependencyKey { return data.DepRepoLanguages }

func (l *languagesFetcher) Scope() data.FetchScope { return data.ScopeRepo }

func (l *languagesFetcher) Fetch(ctx context.Context, repo *github.Repository, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	langs, _, err := call(ctx, f, func() (map[string]int, *github.Response, error) {
		return f.Client().Client.Repositories.ListLanguages(ctx, repo.GetOwner().GetLogin(), repo.GetName())
	})
	if err != nil {
		return nil, err
	}
	if langs == nil {
		langs = map[string]int{}
	}
	return langs, nil
}

func init() {
	fetcher.RegisterDataFetcher(&languagesFetcher{})
}
