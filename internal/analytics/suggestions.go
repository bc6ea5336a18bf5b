package analytics

import (
	"strings"

	"github.com/google/go-github/v81/github"
)

// DocSuggestions lists missing metadata that would help visitors.
// CONTRIBUTING guidelines are only suggested while issues are open.
func DocSuggestions(repo *github.Repository, hasContributing bool) []string {
	var out []string
	if repo.GetDescription() == "" {
		out = append(out, "Add a repository description")
	}
	if repo.GetHomepage() == "" {
		out = append(out, "Add a homepage/demo link")
	}
	if len(repo.Topics) == 0 {
		out = append(out, "Add relevant topics/tags")
	}
	if repo.GetOpenIssuesCount() > 0 && !hasContributing {
		out = append(out, "Add CONTRIBUTING.md guidelines")
	}
	return out
}

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

type PrioritizedIssue struct {
	Number   int      `json:"number" yaml:"number"`
	Title    string   `json:"title" yaml:"title"`
	URL      string   `json:"url" yaml:"url"`
	Labels   []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Comments int      `json:"comments" yaml:"comments"`
	Priority Priority `json:"priority" yaml:"priority"`
}

// PrioritizeIssues ranks each issue without reordering: bug labels are High,
// busy threads (more than two comments) Medium, everything else Low.
func PrioritizeIssues(issues []*github.Issue) []PrioritizedIssue {
	out := make([]PrioritizedIssue, 0, len(issues))
	for _, is := range issues {
		if is == nil {
			continue
		}
		pi := PrioritizedIssue{
			Number:   is.GetNumber(),
			Title:    is.GetTitle(),
			URL:      is.GetHTMLURL(),
			Comments: is.GetComments(),
			Priority: PriorityLow,
		}
		bug := false
		for _, l := range is.Labels {
			name := l.GetName()
			pi.Labels = append(pi.Labels, name)
			if strings.Contains(strings.ToLower(name), "bug") {
				bug = true
			}
		}
		switch {
		case bug:
			pi.Priority = PriorityHigh
		case pi.Comments > 2:
			pi.Priority = PriorityMedium
		}
		out = append(out, pi)
	}
	return out
}
