package providers

import (
	"context"

	"ghexplorer/internal/data"
	"ghexplorer/internal/data/models"
	"ghexplorer/internal/fetcher"

	"github.com/google/go-github/v81/github"
)

type participationFetcher struct{}

func (p *participationFetcher) Key() data.DependencyKey { return data.DepRepoParticipation }

func (p *participationFetcher) Scope() data.FetchScope { return data.ScopeRepo }

func (p *participationFetcher) Fetch(ctx context.Context, repo *github.Repository, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	stats, resp, err := call(ctx, f, func() (*github.RepositoryParticipation, *github.Response, error) {
		return f.Client().Client.Repositories.ListParticipation(ctx, repo.GetOwner().GetLogin(), repo.GetName())
	})
	if statsPending(resp, err) {
		return models.Participation{}, nil
	}
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return models.Participation{}, nil
	}
	return models.Participation{All: stats.All, Owner: stats.Owner}, nil
}

type codeFrequencyFetcher struct{}

func (c *codeFrequencyFetcher) Key() data.DependencyKey { return data.DepRepoCodeFrequency }

func (c *codeFrequencyFetcher) Scope() data.FetchScope { return data.ScopeRepo }

func (c *codeFrequencyFetcher) Fetch(ctx context.Context, repo *github.Repository, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	weeks, resp, err := call(ctx, f, func() ([]*github.WeeklyStats, *github.Response, error) {
		return f.Client().Client.Repositories.ListCodeFrequency(ctx, repo.GetOwner().GetLogin(), repo.GetName())
	})
	if statsPending(resp, err) {
		return []models.WeeklyChange{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]models.WeeklyChange, 0, len(weeks))
	for _, w := range weeks {
		if w == nil {
			continue
		}
		// Deletions are reported as negative numbers.
		del := w.GetDeletions()
		if del < 0 {
			del = -del
		}
		out = append(out, models.WeeklyChange{
			Week:      w.GetWeek().Time,
			Additions: w.GetAdditions(),
			Deletions: del,
		})
	}
	return out, nil
}

func init() {
	fetcher.RegisterDataFetcher(&participationFetcher{})
	fetcher.RegisterDataFetcher(&codeFrequencyFetcher{})
}
