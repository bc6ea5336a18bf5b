package fetcher_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"ghexplorer/internal/data"
	"ghexplorer/internal/data/models"
	"ghexplorer/internal/fetcher"
	_ "ghexplorer/internal/fetcher/providers"
	gh "ghexplorer/internal/github"

	"github.com/google/go-github/v81/github"
)

type testCycleFetcher struct {
	key    data.DependencyKey
	target data.DependencyKey
}

func (t *testCycleFetcher) Key() data.DependencyKey { return t.key }

func (t *testCycleFetcher) Scope() data.FetchScope { return data.ScopeRepo }

func (t *testCycleFetcher) Fetch(ctx context.Context, repo *github.Repository, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	return f.Fetch(ctx, repo, t.target, nil)
}

type testValueFetcher struct {
	key   data.DependencyKey
	scope data.FetchScope
	calls *int32
}

func (t *testValueFetcher) Key() data.DependencyKey { return t.key }

func (t *testValueFetcher) Scope() data.FetchScope { return t.scope }

func (t *testValueFetcher) Fetch(_ context.Context, _ *github.Repository, _ map[string]string, _ *fetcher.Fetcher) (any, error) {
	atomic.AddInt32(t.calls, 1)
	return "ok", nil
}

const (
	testRepoScopeKey data.DependencyKey = "test.scope.repo"
	testBadScopeKey  data.DependencyKey = "test.scope.bad"
)

var (
	testRepoScopeCalls int32
	testBadScopeCalls  int32
	testScopeOnce      sync.Once
)

func ensureTestScopeFetchersRegistered() {
	testScopeOnce.Do(func() {
		fetcher.RegisterDataFetcher(&testValueFetcher{key: testRepoScopeKey, scope: data.ScopeRepo, calls: &testRepoScopeCalls})
		fetcher.RegisterDataFetcher(&testValueFetcher{key: testBadScopeKey, scope: "galaxy", calls: &testBadScopeCalls})
	})
}

func newTestClient(t *testing.T, serverURL string) *gh.Client {
	t.Helper()

	client, err := gh.NewClient(context.Background(), "dummy-token", gh.WithBaseURL(serverURL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func budgetRemaining(b *fetcher.RequestBudget) int {
	return b.Remaining()
}

func TestDataFetcherRegistry_ResolvesKnownKeys(t *testing.T) {
	tests := []struct {
		name string
		key  data.DependencyKey
	}{
		{name: "metadata", key: data.DepRepoMetadata},
		{name: "readme", key: data.DepRepoReadme},
		{name: "contributing", key: data.DepRepoContributing},
		{name: "languages", key: data.DepRepoLanguages},
		{name: "contributors", key: data.DepRepoContributors},
		{name: "participation", key: data.DepRepoParticipation},
		{name: "code frequency", key: data.DepRepoCodeFrequency},
		{name: "open issues", key: data.DepRepoOpenIssues},
		{name: "similar", key: data.DepRepoSimilar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := fetcher.ResolveDataFetcher(tt.key); !ok {
				t.Fatalf("expected data fetcher registered for key %q", tt.key)
			}
		})
	}
}

func TestFetcher_Fetch(t *testing.T) {
	// Mock Server
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	// Setup
	client := newTestClient(t, server.URL)

	budget := fetcher.NewRequestBudget()
	f := fetcher.NewFetcher(client, budget)

	repo := &github.Repository{
		Owner: &github.User{Login: github.Ptr("acme")},
		Name:  github.Ptr("repo"),
	}

	// Mock Metadata response
	mux.HandleFunc("/repos/acme/repo", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":1, "name":"repo"}`)
	})

	// Test Fetch with valid key
	val, err := f.Fetch(context.Background(), repo, data.DepRepoMetadata, nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if r, ok := val.(*github.Repository); !ok || r.GetName() != "repo" {
		t.Errorf("Expected repo object, got %v", val)
	}

	// Verify budget was acquired (remaining should be 4999)
	if rem := budgetRemaining(budget); rem != 4999 {
		t.Errorf("Expected 4999 remaining, got %d", rem)
	}
}

func TestFetcher_CacheKey_DeterministicParamsOrder(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	callCount := 0
	mux.HandleFunc("/repos/acme/repo", func(w http.ResponseWriter, r *http.Request) {
		callCount++
		fmt.Fprint(w, `{"id":1, "name":"repo"}`)
	})

	client := newTestClient(t, server.URL)
	budget := fetcher.NewRequestBudget()
	f := fetcher.NewFetcher(client, budget)

	repo := &github.Repository{Owner: &github.User{Login: github.Ptr("acme")}, Name: github.Ptr("repo"), FullName: github.Ptr("acme/repo")}

	paramsA := map[string]string{"b": "2", "a": "1"}
	paramsB := map[string]string{"a": "1", "b": "2"}

	if _, err := f.Fetch(context.Background(), repo, data.DepRepoMetadata, paramsA); err != nil {
		t.Fatalf("Fetch paramsA failed: %v", err)
	}
	if _, err := f.Fetch(context.Background(), repo, data.DepRepoMetadata, paramsB); err != nil {
		t.Fatalf("Fetch paramsB failed: %v", err)
	}

	if callCount != 1 {
		t.Fatalf("expected 1 API call due to deterministic cache key, got %d", callCount)
	}
}

func TestFetcher_Similar_FallsBackToMetadataForBareReference(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	metaCalls := 0
	var gotQuery string
	mux.HandleFunc("/repos/acme/repo", func(w http.ResponseWriter, r *http.Request) {
		metaCalls++
		fmt.Fprint(w, `{"id":1, "name":"repo", "full_name":"acme/repo", "language":"Go", "stargazers_count":42}`)
	})
	mux.HandleFunc("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `{"total_count":1, "items":[{"id":2, "name":"peer", "full_name":"other/peer"}]}`)
	})

	f := fetcher.NewFetcher(newTestClient(t, server.URL), fetcher.NewRequestBudget())
	repo := &github.Repository{Owner: &github.User{Login: github.Ptr("acme")}, Name: github.Ptr("repo")}

	// Prime metadata; the similar fetch must reuse it.
	if _, err := f.Fetch(context.Background(), repo, data.DepRepoMetadata, nil); err != nil {
		t.Fatalf("Fetch metadata failed: %v", err)
	}
	val, err := f.Fetch(context.Background(), repo, data.DepRepoSimilar, nil)
	if err != nil {
		t.Fatalf("Fetch similar failed: %v", err)
	}
	peers, ok := val.([]*github.Repository)
	if !ok || len(peers) != 1 || peers[0].GetFullName() != "other/peer" {
		t.Fatalf("unexpected peers: %T %v", val, val)
	}
	if metaCalls != 1 {
		t.Fatalf("expected 1 metadata call, got %d", metaCalls)
	}
	if want := "language:Go stars:>=42 NOT repo:acme/repo"; gotQuery != want {
		t.Fatalf("query = %q, want %q", gotQuery, want)
	}
}

func TestFetcher_FetchAll_CollectsValuesAndErrors(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/repos/acme/repo/languages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Go": 1200, "Shell": 300}`)
	})
	mux.HandleFunc("/repos/acme/repo/contributors", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	})
	mux.HandleFunc("/repos/acme/repo/stats/participation", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{}`)
	})

	f := fetcher.NewFetcher(newTestClient(t, server.URL), fetcher.NewRequestBudget())
	repo := &github.Repository{Owner: &github.User{Login: github.Ptr("acme")}, Name: github.Ptr("repo"), FullName: github.Ptr("acme/repo")}

	dc, errs := f.FetchAll(context.Background(), repo, data.DetailKeys())

	langs, ok := data.Lookup[map[string]int](dc, data.DepRepoLanguages)
	if !ok || langs["Go"] != 1200 {
		t.Fatalf("languages = %v, %v", langs, ok)
	}
	part, ok := data.Lookup[models.Participation](dc, data.DepRepoParticipation)
	if !ok || !part.Empty() {
		t.Fatalf("expected empty participation while stats are computed, got %v, %v", part, ok)
	}
	if _, ok := dc.Get(data.DepRepoContributors); ok {
		t.Fatalf("failed key must be absent from the context")
	}
	if len(errs) != 1 || errs[data.DepRepoContributors] == nil {
		t.Fatalf("expected one contributors error, got %v", errs)
	}
}

func TestFetcher_DependencyCycleDetection_SelfCycle(t *testing.T) {
	const selfKey data.DependencyKey = "test.cycle.self"
	fetcher.RegisterDataFetcher(&testCycleFetcher{key: selfKey, target: selfKey})

	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()
	client := newTestClient(t, server.URL)
	f := fetcher.NewFetcher(client, fetcher.NewRequestBudget())

	repo := &github.Repository{Owner: &github.User{Login: github.Ptr("acme")}, Name: github.Ptr("repo"), FullName: github.Ptr("acme/repo")}
	_, err := f.Fetch(context.Background(), repo, selfKey, nil)
	if err == nil {
		t.Fatalf("expected cycle detection error")
	}
}

func TestFetcher_DependencyCycleDetection_MutualCycle(t *testing.T) {
	const aKey data.DependencyKey = "test.cycle.a"
	const bKey data.DependencyKey = "test.cycle.b"
	fetcher.RegisterDataFetcher(&testCycleFetcher{key: aKey, target: bKey})
	fetcher.RegisterDataFetcher(&testCycleFetcher{key: bKey, target: aKey})

	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()
	client := newTestClient(t, server.URL)
	f := fetcher.NewFetcher(client, fetcher.NewRequestBudget())

	repo := &github.Repository{Owner: &github.User{Login: github.Ptr("acme")}, Name: github.Ptr("repo"), FullName: github.Ptr("acme/repo")}
	_, err := f.Fetch(context.Background(), repo, aKey, nil)
	if err == nil {
		t.Fatalf("expected cycle detection error")
	}
}

func TestFetcher_FetchScope_Repo_DedupesConcurrentCalls(t *testing.T) {
	ensureTestScopeFetchersRegistered()
	atomic.StoreInt32(&testRepoScopeCalls, 0)

	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()
	client := newTestClient(t, server.URL)
	f := fetcher.NewFetcher(client, fetcher.NewRequestBudget())

	repo := &github.Repository{Owner: &github.User{Login: github.Ptr("acme")}, Name: github.Ptr("repo-a"), FullName: github.Ptr("acme/repo-a")}

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			val, err := f.Fetch(context.Background(), repo, testRepoScopeKey, nil)
			if err != nil {
				t.Errorf("Fetch failed: %v", err)
				return
			}
			if val != "ok" {
				t.Errorf("got %v, want %v", val, "ok")
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&testRepoScopeCalls); got != 1 {
		t.Fatalf("expected 1 fetch call for concurrent identical requests, got %d", got)
	}
}

func TestFetcher_FetchScope_UnknownScopeIsAnError(t *testing.T) {
	ensureTestScopeFetchersRegistered()

	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()
	f := fetcher.NewFetcher(newTestClient(t, server.URL), fetcher.NewRequestBudget())

	repo := &github.Repository{Owner: &github.User{Login: github.Ptr("acme")}, Name: github.Ptr("repo"), FullName: github.Ptr("acme/repo")}
	if _, err := f.Fetch(context.Background(), repo, testBadScopeKey, nil); err == nil {
		t.Fatalf("expected error for unknown scope")
	}
	if got := atomic.LoadInt32(&testBadScopeCalls); got != 0 {
		t.Fatalf("expected no fetch call, got %d", got)
	}
}

func TestFetcher_FetchScope_Repo_DoesNotDedupeAcrossRepos(t *testing.T) {
	ensureTestScopeFetchersRegistered()
	atomic.StoreInt32(&testRepoScopeCalls, 0)

	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()
	client := newTestClient(t, server.URL)
	f := fetcher.NewFetcher(client, fetcher.NewRequestBudget())

	repoA := &github.Repository{Owner: &github.User{Login: github.Ptr("acme")}, Name: github.Ptr("repo-a"), FullName: github.Ptr("acme/repo-a")}
	repoB := &github.Repository{Owner: &github.User{Login: github.Ptr("acme")}, Name: github.Ptr("repo-b"), FullName: github.Ptr("acme/repo-b")}

	if _, err := f.Fetch(context.Background(), repoA, testRepoScopeKey, nil); err != nil {
		t.Fatalf("Fetch repoA failed: %v", err)
	}
	if _, err := f.Fetch(context.Background(), repoB, testRepoScopeKey, nil); err != nil {
		t.Fatalf("Fetch repoB failed: %v", err)
	}

	if got := atomic.LoadInt32(&testRepoScopeCalls); got != 2 {
		t.Fatalf("expected 2 fetch calls for repo-scoped dep across repos, got %d", got)
	}
}
