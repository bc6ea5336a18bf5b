package providers

import (
	"context"

	"ghexplorer/internal/data"
	"ghexplorer/internal/data/models"
	"ghexplorer/internal/fetcher"

	"github.com/google/go-github/v81/github"
)

type readmeFetcher struct{}

func (d *readmeFetcher) Key() data.DependencyKey {
	return data.DepRepoReadme
}

func (d *readmeFetcher) Scope() data.FetchScope {
	return data.ScopeRepo
}

// Fetch asks GitHub for the preferred README of the default branch. A 404 means
// the repository has none.
func (d *readmeFetcher) Fetch(ctx context.Context, repo *github.Repository, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	owner := repo.GetOwner().GetLogin()
	name := repo.GetName()

	readme := &models.Readme{}
	content, resp, err := call(ctx, f, func() (*github.RepositoryContent, *github.Response, error) {
		return f.Client().Client.Repositories.GetReadme(ctx, owner, name, nil)
	})
	if err != nil {
		if isNotFound(resp) {
			return readme, nil
		}
		return nil, err
	}

	readme.Found = true
	if content != nil {
		readme.Path = content.GetPath()
		readme.Size = content.GetSize()
	}
	return readme, nil
}

func init() {
	fetcher.RegisterDataFetcher(&readmeFetcher{})
}
