package explore

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	gh "ghexplorer/internal/github"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *gh.Client {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := gh.NewClient(context.Background(), "", gh.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

// repoJSON renders repositories first..last (inclusive) owned by owner.
func repoJSON(owner string, first, last int) string {
	parts := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		parts = append(parts, fmt.Sprintf(
			`{"id":%d,"name":"r%03d","full_name":"%s/r%03d","owner":{"login":%q},"stargazers_count":%d,"language":"Go","html_url":"https://github.com/%s/r%03d"}`,
			i, i, owner, i, owner, i, owner, i))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// pagedRepos serves total repositories in pages of per_page.
func pagedRepos(owner string, total int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		size, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		if size < 1 {
			size = 30
		}
		first := (page-1)*size + 1
		last := min(page*size, total)
		if first > total {
			fmt.Fprint(w, "[]")
			return
		}
		fmt.Fprint(w, repoJSON(owner, first, last))
	}
}
