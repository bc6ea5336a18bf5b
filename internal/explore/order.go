package explore

import (
	"sort"
	"strings"

	"github.com/google/go-github/v81/github"
)

const (
	SortNameAsc     = "name-asc"
	SortNameDesc    = "name-desc"
	SortStarsDesc   = "stars-desc"
	SortStarsAsc    = "stars-asc"
	SortUpdatedDesc = "updated-desc"
)

// Sort returns a sorted copy of repos. Names compare case-insensitively.
// Unknown orders fall back to name-asc. Equal keys keep their input order.
func Sort(repos []*github.Repository, order string) []*github.Repository {
	out := append([]*github.Repository(nil), repos...)

	var less func(a, b *github.Repository) bool
	switch order {
	case SortNameDesc:
		less = func(a, b *github.Repository) bool { return compareNames(a, b) > 0 }
	case SortStarsDesc:
		less = func(a, b *github.Repository) bool { return a.GetStargazersCount() > b.GetStargazersCount() }
	case SortStarsAsc:
		less = func(a, b *github.Repository) bool { return a.GetStargazersCount() < b.GetStargazersCount() }
	case SortUpdatedDesc:
		less = func(a, b *github.Repository) bool {
			return a.GetUpdatedAt().Time.After(b.GetUpdatedAt().Time)
		}
	default:
		less = func(a, b *github.Repository) bool { return compareNames(a, b) < 0 }
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func compareNames(a, b *github.Repository) int {
	return strings.Compare(strings.ToLower(a.GetName()), strings.ToLower(b.GetName()))
}
