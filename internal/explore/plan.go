package explore

import (
	"fmt"
	"sort"

	"ghexplorer/internal/data"

	"github.com/google/go-github/v81/github"
)

// FetchPlan lists, per repository, the dependencies to fetch. Repositories keep
// the position they had in the result set.
type FetchPlan struct {
	RepoPlans []*RepoPlan
}

type RepoPlan struct {
	Index        int
	Repo         *github.Repository
	Dependencies map[data.DependencyKey]data.DependencyRequest
}

func NewFetchPlan() *FetchPlan {
	return &FetchPlan{}
}

// AddRepo appends repo with the given dependency keys. Duplicate keys collapse.
func (p *FetchPlan) AddRepo(repo *github.Repository, keys []data.DependencyKey) error {
	if p == nil {
		return fmt.Errorf("fetch plan is nil")
	}
	if repo == nil {
		return fmt.Errorf("repo object is nil (index %d)", len(p.RepoPlans))
	}

	rp := &RepoPlan{
		Index:        len(p.RepoPlans),
		Repo:         repo,
		Dependencies: make(map[data.DependencyKey]data.DependencyRequest, len(keys)),
	}
	for _, k := range keys {
		if _, exists := rp.Dependencies[k]; !exists {
			rp.Dependencies[k] = data.DependencyRequest{Key: k}
		}
	}
	p.RepoPlans = append(p.RepoPlans, rp)
	return nil
}

// PlanFor builds a plan fetching keys for every repository in repos.
func PlanFor(repos []*github.Repository, keys []data.DependencyKey) (*FetchPlan, error) {
	plan := NewFetchPlan()
	for _, r := range repos {
		if err := plan.AddRepo(r, keys); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// SortedDependencies returns the dependency keys sorted by priority (P0 first).
func (rp *RepoPlan) SortedDependencies() []data.DependencyKey {
	keys := make([]data.DependencyKey, 0, len(rp.Dependencies))
	for k := range rp.Dependencies {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		p1 := data.Priority(keys[i])
		p2 := data.Priority(keys[j])
		if p1 != p2 {
			return p1 < p2
		}
		return keys[i] < keys[j]
	})
	return keys
}
