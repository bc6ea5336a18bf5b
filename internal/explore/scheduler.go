package explore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ghexplorer/internal/data"
	"ghexplorer/internal/fetcher"

	"github.com/google/go-github/v81/github"
)

// RepoResult is the outcome of fetching every planned dependency of one
// repository.
type RepoResult struct {
	Index   int
	Repo    *github.Repository
	Data    data.DataContext
	DepErrs map[data.DependencyKey]error
}

type Scheduler struct {
	fetcher     *fetcher.Fetcher
	concurrency int
}

func NewScheduler(f *fetcher.Fetcher, concurrency int) (*Scheduler, error) {
	if f == nil {
		return nil, errors.New("fetcher is nil")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	return &Scheduler{fetcher: f, concurrency: concurrency}, nil
}

// Execute streams per-repo fetch results, at most concurrency repositories at
// a time.
//
// Channel semantics:
//   - Without cancellation exactly one RepoResult is sent per planned repo, in
//     completion order (use RepoResult.Index to restore plan order).
//   - On context cancellation the scheduler stops promptly and may send fewer.
//   - Both channels are always closed.
//   - The error channel carries fatal errors and cancellation; per-dependency
//     failures are recorded on RepoResult.DepErrs.
func (s *Scheduler) Execute(ctx context.Context, plan *FetchPlan) (<-chan RepoResult, <-chan error) {
	resultsCh := make(chan RepoResult)
	errCh := make(chan error, 1)

	go func() {
		defer close(resultsCh)
		defer close(errCh)

		trySendErr := func(err error) {
			if err == nil {
				return
			}
			select {
			case errCh <- err:
			default:
			}
		}

		if ctx == nil {
			trySendErr(errors.New("context is nil"))
			return
		}
		if plan == nil {
			trySendErr(errors.New("fetch plan is nil"))
			return
		}
		if s == nil || s.fetcher == nil {
			trySendErr(errors.New("scheduler is not initialized; use NewScheduler"))
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		sem := make(chan struct{}, s.concurrency)
		var wg sync.WaitGroup
		var fatalErr error

	scheduleLoop:
		for _, rp := range plan.RepoPlans {
			if runCtx.Err() != nil {
				break
			}
			if rp == nil || rp.Repo == nil {
				fatalErr = errors.New("nil repo plan")
				cancel()
				break
			}

			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				break scheduleLoop
			}

			wg.Add(1)
			go func(rp *RepoPlan) {
				defer wg.Done()
				defer func() { <-sem }()

				dataMap := make(map[data.DependencyKey]any)
				depErrs := make(map[data.DependencyKey]error)
				for _, key := range rp.SortedDependencies() {
					if runCtx.Err() != nil {
						return
					}
					req := rp.Dependencies[key]
					val, err := s.fetcher.Fetch(runCtx, rp.Repo, req.Key, req.Params)
					if err != nil {
						depErrs[req.Key] = err
						continue
					}
					dataMap[req.Key] = val
				}
				if runCtx.Err() != nil {
					return
				}

				res := RepoResult{
					Index:   rp.Index,
					Repo:    rp.Repo,
					Data:    data.NewMapDataContext(dataMap),
					DepErrs: depErrs,
				}
				select {
				case resultsCh <- res:
				case <-runCtx.Done():
				}
			}(rp)
		}

		wg.Wait()
		if fatalErr != nil {
			trySendErr(fatalErr)
			return
		}
		trySendErr(ctx.Err())
	}()

	return resultsCh, errCh
}
