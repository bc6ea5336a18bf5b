package explore

import (
	"path"
	"strings"

	"ghexplorer/internal/config"

	"github.com/google/go-github/v81/github"
)

// FilterRepos keeps the repositories matching the targeting and view filters of
// cfg, preserving order. In search mode the free-text filter also matches the
// owner login.
func FilterRepos(repos []*github.Repository, cfg *config.Config, mode Mode) []*github.Repository {
	if cfg == nil {
		panic("explore.FilterRepos: cfg must not be nil")
	}

	archivedPolicy := strings.TrimSpace(cfg.Targeting.Archived)
	if archivedPolicy == "" {
		archivedPolicy = "include"
	}
	forksPolicy := strings.TrimSpace(cfg.Targeting.Forks)
	if forksPolicy == "" {
		forksPolicy = "include"
	}
	text := strings.ToLower(strings.TrimSpace(cfg.View.Filter))

	filtered := make([]*github.Repository, 0, len(repos))
	for _, r := range repos {
		if r == nil {
			continue
		}

		if archivedPolicy == "exclude" && r.GetArchived() {
			continue
		}
		if archivedPolicy == "only" && !r.GetArchived() {
			continue
		}

		if forksPolicy == "exclude" && r.GetFork() {
			continue
		}
		if forksPolicy == "only" && !r.GetFork() {
			continue
		}

		if r.GetStargazersCount() < cfg.Targeting.MinStars {
			continue
		}

		if len(cfg.Targeting.Language) > 0 && !matchesAnyLanguage(cfg.Targeting.Language, r.GetLanguage()) {
			continue
		}

		if len(cfg.Targeting.Topic) > 0 && !matchesAnyTopic(cfg.Targeting.Topic, r.Topics) {
			continue
		}

		fullName := r.GetFullName()
		repoName := r.GetName()
		if len(cfg.Targeting.Include) > 0 && !matchesAnyPattern(cfg.Targeting.Include, fullName, repoName) {
			continue
		}
		if len(cfg.Targeting.Exclude) > 0 && matchesAnyPattern(cfg.Targeting.Exclude, fullName, repoName) {
			continue
		}

		if text != "" && !matchesText(text, r, mode) {
			continue
		}

		filtered = append(filtered, r)
	}
	return filtered
}

// matchesText expects needle already lower-cased.
func matchesText(needle string, r *github.Repository, mode Mode) bool {
	if strings.Contains(strings.ToLower(r.GetName()), needle) {
		return true
	}
	return mode == ModeSearch && strings.Contains(strings.ToLower(r.GetOwner().GetLogin()), needle)
}

func matchesAnyLanguage(wanted []string, language string) bool {
	for _, w := range wanted {
		if strings.EqualFold(strings.TrimSpace(w), language) {
			return true
		}
	}
	return false
}

func matchesAnyTopic(requiredTopics, repoTopics []string) bool {
	for _, required := range requiredTopics {
		required = strings.TrimSpace(required)
		if required == "" {
			continue
		}
		for _, rt := range repoTopics {
			if required == rt {
				return true
			}
		}
	}
	return false
}

func matchesAnyPattern(patterns []string, fullName, repoName string) bool {
	for _, p := range patterns {
		if matchPattern(p, fullName, repoName) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, fullName, repoName string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	// Patterns with an owner component match OWNER/REPO, others the repo name.
	if strings.Contains(pattern, "/") {
		matched, _ := path.Match(pattern, fullName)
		return matched
	}
	matched, _ := path.Match(pattern, repoName)
	return matched
}
