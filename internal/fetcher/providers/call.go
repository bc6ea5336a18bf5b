package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ghexplorer/internal/data"
	"ghexplorer/internal/fetcher"

	"github.com/google/go-github/v81/github"
)

// call spends one request from the budget on fn and feeds the response headers
// back into it.
func call[T any](ctx context.Context, f *fetcher.Fetcher, fn func() (T, *github.Response, error)) (T, *github.Response, error) {
	var zero T
	if err := f.Budget().Acquire(ctx, 1); err != nil {
		return zero, nil, err
	}
	val, resp, err := fn()
	if resp != nil {
		f.Budget().UpdateFromResponse(resp.Response)
	}
	return val, resp, err
}

func isNotFound(resp *github.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

// statsPending reports whether GitHub answered a statistics endpoint with 202
// (still computing) or 204 (empty repository). Both mean "no data yet".
func statsPending(resp *github.Response, err error) bool {
	var accepted *github.AcceptedError
	if errors.As(err, &accepted) {
		return true
	}
	return err == nil && resp != nil && resp.StatusCode == http.StatusNoContent
}

// resolveMetadata returns the full repository object, fetching it when repo is a
// bare owner/name reference lacking the fields a provider needs.
func resolveMetadata(ctx context.Context, repo *github.Repository, f *fetcher.Fetcher, complete func(*github.Repository) bool) (*github.Repository, error) {
	if complete(repo) {
		return repo, nil
	}
	val, err := f.Fetch(ctx, repo, data.DepRepoMetadata, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository metadata: %w", err)
	}
	r, ok := val.(*github.Repository)
	if !ok {
		return nil, fmt.Errorf("failed to resolve repository metadata: unexpected type %T for %s", val, data.DepRepoMetadata)
	}
	return r, nil
}
