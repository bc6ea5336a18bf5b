package fetcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"ghexplorer/internal/data"
	gh "ghexplorer/internal/github"

	"github.com/google/go-github/v81/github"
	"golang.org/x/sync/errgroup"
)

type Fetcher struct {
	client *gh.Client
	budget *RequestBudget
	group  Group
	cache  *Cache
}

type fetchChainKey struct{}

func NewFetcher(client *gh.Client, budget *RequestBudget) *Fetcher {
	return &Fetcher{
		client: client,
		budget: budget,
		cache:  NewCache(),
	}
}

func (f *Fetcher) Budget() *RequestBudget {
	return f.budget
}

func (f *Fetcher) Client() *gh.Client {
	return f.client
}

// Fetch returns the value for key, serving repeated and concurrent requests for
// the same repository, key and params from one GitHub round trip.
func (f *Fetcher) Fetch(ctx context.Context, repo *github.Repository, key data.DependencyKey, params map[string]string) (any, error) {
	if ctx == nil {
		return nil, fmt.Errorf("Fetch: nil context")
	}
	if f == nil {
		return nil, fmt.Errorf("Fetch: nil Fetcher")
	}
	if f.client == nil || f.client.Client == nil {
		return nil, fmt.Errorf("Fetch: nil GitHub client (use NewFetcher)")
	}
	if f.budget == nil {
		return nil, fmt.Errorf("Fetch: nil request budget (use NewFetcher)")
	}
	if f.cache == nil {
		return nil, fmt.Errorf("Fetch: nil cache (use NewFetcher)")
	}
	if repo == nil {
		return nil, fmt.Errorf("Fetch: nil repo")
	}
	if key == "" {
		return nil, fmt.Errorf("Fetch: empty dependency key")
	}
	if repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("Fetch: repo owner/name is required")
	}

	fetchImpl, ok := ResolveDataFetcher(key)
	if !ok {
		return nil, fmt.Errorf("unsupported dependency key: %s", key)
	}

	flightKey, err := makeFlightKey(repo, fetchImpl.Scope(), key, params)
	if err != nil {
		return nil, err
	}

	ctx, err = withFetchChain(ctx, flightKey)
	if err != nil {
		return nil, err
	}

	if val, ok := f.cache.Get(flightKey); ok {
		return val, nil
	}

	val, err, _ := f.group.Do(flightKey, func() (any, error) {
		return fetchImpl.Fetch(ctx, repo, params, f)
	})
	if err == nil {
		f.cache.Set(flightKey, val)
	}
	return val, err
}

// FetchAll fetches keys for repo concurrently, lowest data.Priority first when
// the budget is contended. A failing key does not cancel the others; its error
// is reported in the returned map and the key is absent from the context.
func (f *Fetcher) FetchAll(ctx context.Context, repo *github.Repository, keys []data.DependencyKey) (*data.MapDataContext, map[data.DependencyKey]error) {
	ordered := append([]data.DependencyKey(nil), keys...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return data.Priority(ordered[i]) < data.Priority(ordered[j])
	})

	var (
		mu     sync.Mutex
		values = make(map[data.DependencyKey]any, len(ordered))
		errs   map[data.DependencyKey]error
	)
	var g errgroup.Group
	for _, key := range ordered {
		g.Go(func() error {
			val, err := f.Fetch(ctx, repo, key, nil)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errs == nil {
					errs = make(map[data.DependencyKey]error)
				}
				errs[key] = err
				return nil
			}
			values[key] = val
			return nil
		})
	}
	_ = g.Wait()
	return data.NewMapDataContext(values), errs
}

func withFetchChain(ctx context.Context, flightKey string) (context.Context, error) {
	chain := getFetchChain(ctx)
	for _, existing := range chain {
		if existing == flightKey {
			return nil, fmt.Errorf("Fetch: dependency cycle detected: %s -> %s", strings.Join(chain, " -> "), flightKey)
		}
	}

	updated := make([]string, 0, len(chain)+1)
	updated = append(updated, chain...)
	updated = append(updated, flightKey)
	return context.WithValue(ctx, fetchChainKey{}, updated), nil
}

func getFetchChain(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	chain, _ := ctx.Value(fetchChainKey{}).([]string)
	return chain
}

func makeFlightKey(repo *github.Repository, scope data.FetchScope, key data.DependencyKey, params map[string]string) (string, error) {
	if scope != data.ScopeRepo {
		return "", fmt.Errorf("Fetch: unknown fetch scope %q for dependency: %s", scope, key)
	}
	repoID := repo.GetFullName()
	if repoID == "" {
		owner := repo.GetOwner().GetLogin()
		name := repo.GetName()
		if owner == "" || name == "" {
			return "", fmt.Errorf("Fetch: repo owner/name is required for repo-scoped dependency: %s", key)
		}
		repoID = owner + "/" + name
	}
	return strings.ToLower(repoID) + ":" + string(key) + ":" + stableParamsKey(params), nil
}

func stableParamsKey(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, "&")
}
