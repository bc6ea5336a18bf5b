package analytics

import (
	"math"

	"ghexplorer/internal/data/models"
)

// recentWeeks is the tail used for "recent" activity figures.
const recentWeeks = 4

type Activity struct {
	Weeks            int `json:"weeks" yaml:"weeks"`
	TotalCommits     int `json:"total_commits" yaml:"total_commits"`
	ActiveWeeks      int `json:"active_weeks" yaml:"active_weeks"`
	AvgPerActiveWeek int `json:"avg_per_active_week" yaml:"avg_per_active_week"`
	RecentCommits    int `json:"recent_commits" yaml:"recent_commits"`
	OwnerCommits     int `json:"owner_commits" yaml:"owner_commits"`
	CommunityCommits int `json:"community_commits" yaml:"community_commits"`
}

// Summarize condenses weekly participation. The average is taken over weeks
// with at least one commit and is zero when there are none.
func Summarize(p models.Participation) Activity {
	a := Activity{Weeks: len(p.All)}
	for _, c := range p.All {
		a.TotalCommits += c
		if c > 0 {
			a.ActiveWeeks++
		}
	}
	if a.ActiveWeeks > 0 {
		a.AvgPerActiveWeek = int(math.Round(float64(a.TotalCommits) / float64(a.ActiveWeeks)))
	}
	a.RecentCommits = sum(tail(p.All, recentWeeks))
	a.OwnerCommits = sum(p.Owner)
	if a.OwnerCommits > a.TotalCommits {
		a.OwnerCommits = a.TotalCommits
	}
	a.CommunityCommits = a.TotalCommits - a.OwnerCommits
	return a
}

// Performance is the recent commit cadence plus generic engineering hints.
type Performance struct {
	CommitFrequency []int                 `json:"commit_frequency" yaml:"commit_frequency"`
	CodeChanges     []models.WeeklyChange `json:"code_changes" yaml:"code_changes"`
	Suggestions     []string              `json:"suggestions" yaml:"suggestions"`
}

var performanceSuggestions = []string{
	"Consider adding performance benchmarks",
	"Set up automated testing",
	"Implement continuous integration",
}

func AnalyzePerformance(p models.Participation, changes []models.WeeklyChange) Performance {
	return Performance{
		CommitFrequency: append([]int{}, tail(p.All, recentWeeks)...),
		CodeChanges:     append([]models.WeeklyChange{}, tail(changes, recentWeeks)...),
		Suggestions:     append([]string(nil), performanceSuggestions...),
	}
}

func tail[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
