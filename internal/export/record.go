package export

import (
	"strings"
	"time"

	"ghexplorer/internal/analytics"

	"github.com/google/go-github/v81/github"
)

// Record is the exported view of one repository. Detail fields are only set
// when the run fetched per-repository details.
type Record struct {
	Name        string    `json:"name" yaml:"name"`
	FullName    string    `json:"full_name" yaml:"full_name"`
	Owner       string    `json:"owner" yaml:"owner"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Language    string    `json:"language,omitempty" yaml:"language,omitempty"`
	URL         string    `json:"url" yaml:"url"`
	CloneURL    string    `json:"clone_url" yaml:"clone_url"`
	Homepage    string    `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Stars       int       `json:"stars" yaml:"stars"`
	Forks       int       `json:"forks" yaml:"forks"`
	Watchers    int       `json:"watchers" yaml:"watchers"`
	OpenIssues  int       `json:"open_issues" yaml:"open_issues"`
	Topics      []string  `json:"topics,omitempty" yaml:"topics,omitempty"`
	Archived    bool      `json:"archived" yaml:"archived"`
	Fork        bool      `json:"fork" yaml:"fork"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
	PushedAt    time.Time `json:"pushed_at" yaml:"pushed_at"`

	Languages    []analytics.LanguageShare `json:"languages,omitempty" yaml:"languages,omitempty"`
	Contributors *int                      `json:"contributors,omitempty" yaml:"contributors,omitempty"`
	Impact       *analytics.Impact         `json:"impact,omitempty" yaml:"impact,omitempty"`

	// Errors lists detail dependencies that could not be fetched.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// NewRecord copies the listing fields of repo. A nil repo yields a zero Record.
func NewRecord(repo *github.Repository) Record {
	if repo == nil {
		return Record{}
	}
	rec := Record{
		Name:        repo.GetName(),
		FullName:    repo.GetFullName(),
		Owner:       repo.GetOwner().GetLogin(),
		Description: repo.GetDescription(),
		Language:    repo.GetLanguage(),
		URL:         repo.GetHTMLURL(),
		CloneURL:    repo.GetCloneURL(),
		Homepage:    repo.GetHomepage(),
		Stars:       repo.GetStargazersCount(),
		Forks:       repo.GetForksCount(),
		Watchers:    repo.GetWatchersCount(),
		OpenIssues:  repo.GetOpenIssuesCount(),
		Topics:      repo.Topics,
		Archived:    repo.GetArchived(),
		Fork:        repo.GetFork(),
		UpdatedAt:   repo.GetUpdatedAt().Time,
		PushedAt:    repo.GetPushedAt().Time,
	}
	if rec.CloneURL == "" && rec.URL != "" {
		rec.CloneURL = strings.TrimSuffix(rec.URL, "/") + ".git"
	}
	if rec.Owner == "" {
		if owner, _, ok := strings.Cut(rec.FullName, "/"); ok {
			rec.Owner = owner
		}
	}
	return rec
}

// Records converts a repository list, preserving order.
func Records(repos []*github.Repository) []Record {
	out := make([]Record, 0, len(repos))
	for _, r := range repos {
		out = append(out, NewRecord(r))
	}
	return out
}

// Summary describes the result set a run produced.
type Summary struct {
	// Mode is "user" or "search".
	Mode   string `json:"mode" yaml:"mode"`
	Source string `json:"source" yaml:"source"`

	// Discovered counts repositories returned by GitHub; TotalCount is GitHub's
	// own total for searches.
	Discovered int `json:"discovered" yaml:"discovered"`
	TotalCount int `json:"total_count,omitempty" yaml:"total_count,omitempty"`
	Matched    int `json:"matched" yaml:"matched"`

	Page       int  `json:"page,omitempty" yaml:"page,omitempty"`
	PageSize   int  `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	TotalPages int  `json:"total_pages,omitempty" yaml:"total_pages,omitempty"`
	HasMore    bool `json:"has_more" yaml:"has_more"`
	Truncated  bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`

	Languages []analytics.LanguageCount `json:"languages,omitempty" yaml:"languages,omitempty"`
}
