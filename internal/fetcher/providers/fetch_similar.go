package providers

import (
	"context"
	"fmt"
	"strconv"

	"ghexplorer/internal/data"
	"ghexplorer/internal/fetcher"

	"github.com/google/go-github/v81/github"
)

const similarLimit = 3

type similarFetcher struct{}

func (s *similarFetcher) Key() data.DependencyKey { return data.DepRepoSimilar }

func (s *similarFetcher) Scope() data.FetchScope { return data.ScopeRepo }

// Fetch searches for the most starred repositories written in the same primary
// language with at least as many stars, excluding repo itself. Repositories
// without a detected language have no peers.
func (s *similarFetcher) Fetch(ctx context.Context, repo *github.Repository, params map[string]string, f *fetcher.Fetcher) (any, error) {
	full, err := resolveMetadata(ctx, repo, f, func(r *github.Repository) bool {
		return r.Language != nil && r.StargazersCount != nil && r.GetFullName() != ""
	})
	if err != nil {
		return nil, err
	}
	if full.GetLanguage() == "" {
		return []*github.Repository{}, nil
	}

	minStars := full.GetStargazersCount()
	if raw, ok := params["min_stars"]; ok {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid min_stars param %q", raw)
		}
		minStars = v
	}

	query := SimilarQuery(full.GetLanguage(), minStars, full.GetFullName())
	opts := &github.SearchOptions{Sort: "stars", Order: "desc", ListOptions: github.ListOptions{PerPage: similarLimit}}
	result, _, err := call(ctx, f, func() (*github.RepositoriesSearchResult, *github.Response, error) {
		return f.Client().Client.Search.Repositories(ctx, query, opts)
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return []*github.Repository{}, nil
	}
	return result.Repositories, nil
}

// SimilarQuery builds the search query used to find peers of fullName.
func SimilarQuery(language string, minStars int, fullName string) string {
	lang := language
	if needsQuoting(lang) {
		lang = strconv.Quote(lang)
	}
	return fmt.Sprintf("language:%s stars:>=%d NOT repo:%s", lang, minStars, fullName)
}

func needsQuoting(s string) bool {
	for _, r := range s {
		if r == ' ' {
			return true
		}
	}
	return false
}

func init() {
	fetcher.RegisterDataFetcher(&similarFetcher{})
}
