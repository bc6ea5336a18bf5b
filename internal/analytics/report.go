package analytics

import (
	"time"

	"ghexplorer/internal/data"
	"ghexplorer/internal/data/models"

	"github.com/google/go-github/v81/github"
)

// topContributors is how many contributors a report lists by name.
const topContributors = 5

type SimilarRepo struct {
	FullName    string `json:"full_name" yaml:"full_name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Language    string `json:"language,omitempty" yaml:"language,omitempty"`
	Stars       int    `json:"stars" yaml:"stars"`
	URL         string `json:"url" yaml:"url"`
}

// Report is the full statistics view of one repository.
type Report struct {
	Repo            string               `json:"repo" yaml:"repo"`
	Description     string               `json:"description,omitempty" yaml:"description,omitempty"`
	URL             string               `json:"url" yaml:"url"`
	Quality         QualityScore         `json:"quality" yaml:"quality"`
	Impact          Impact               `json:"impact" yaml:"impact"`
	Activity        Activity             `json:"activity" yaml:"activity"`
	Performance     Performance          `json:"performance" yaml:"performance"`
	Languages       []LanguageShare      `json:"languages" yaml:"languages"`
	Contributors    int                  `json:"contributors" yaml:"contributors"`
	TopContributors []models.Contributor `json:"top_contributors" yaml:"top_contributors"`
	Issues          []PrioritizedIssue   `json:"issues" yaml:"issues"`
	Suggestions     []string             `json:"suggestions" yaml:"suggestions"`
	Similar         []SimilarRepo        `json:"similar" yaml:"similar"`

	// Missing lists dependencies that could not be fetched; the matching
	// sections hold zero values.
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// BuildReport assembles a Report from whatever dc holds. When dc carries
// repository metadata it takes precedence over repo.
func BuildReport(repo *github.Repository, dc data.DataContext, now time.Time) Report {
	if dc == nil {
		dc = data.NewMapDataContext(nil)
	}
	if meta, ok := data.Lookup[*github.Repository](dc, data.DepRepoMetadata); ok {
		repo = meta
	}

	var missing []string
	need := func(key data.DependencyKey) {
		if _, ok := dc.Get(key); !ok {
			missing = append(missing, string(key))
		}
	}
	for _, key := range data.StatsKeys() {
		need(key)
	}

	readme, _ := data.Lookup[*models.Readme](dc, data.DepRepoReadme)
	contributing, _ := data.Lookup[*models.Contributing](dc, data.DepRepoContributing)
	langs, _ := data.Lookup[map[string]int](dc, data.DepRepoLanguages)
	contributors, _ := data.Lookup[[]models.Contributor](dc, data.DepRepoContributors)
	participation, _ := data.Lookup[models.Participation](dc, data.DepRepoParticipation)
	changes, _ := data.Lookup[[]models.WeeklyChange](dc, data.DepRepoCodeFrequency)
	issues, _ := data.Lookup[[]*github.Issue](dc, data.DepRepoOpenIssues)
	similar, _ := data.Lookup[[]*github.Repository](dc, data.DepRepoSimilar)

	r := Report{
		Repo:            repo.GetFullName(),
		Description:     repo.GetDescription(),
		URL:             repo.GetHTMLURL(),
		Quality:         Quality(repo, readme != nil && readme.Found, now),
		Impact:          ImpactScore(repo, participation),
		Activity:        Summarize(participation),
		Performance:     AnalyzePerformance(participation, changes),
		Languages:       Languages(langs),
		Contributors:    len(contributors),
		TopContributors: head(contributors, topContributors),
		Issues:          PrioritizeIssues(issues),
		Suggestions:     DocSuggestions(repo, contributing != nil && contributing.Found),
		Similar:         make([]SimilarRepo, 0, len(similar)),
		Missing:         missing,
	}
	for _, s := range similar {
		r.Similar = append(r.Similar, SimilarRepo{
			FullName:    s.GetFullName(),
			Description: s.GetDescription(),
			Language:    s.GetLanguage(),
			Stars:       s.GetStargazersCount(),
			URL:         s.GetHTMLURL(),
		})
	}
	return r
}

func head[T any](s []T, n int) []T {
	out := make([]T, 0, min(len(s), n))
	if len(s) > n {
		s = s[:n]
	}
	return append(out, s...)
}
