package analytics

import (
	"math"

	"ghexplorer/internal/data/models"

	"github.com/google/go-github/v81/github"
)

const (
	impactStarsCeiling    = 1000
	impactForksCeiling    = 500
	impactWatchersCeiling = 200

	impactStarsWeight      = 0.4
	impactForksWeight      = 0.3
	impactWatchersWeight   = 0.2
	impactEngagementWeight = 0.1
)

type ImpactMetrics struct {
	Stars      int   `json:"stars" yaml:"stars"`
	Forks      int   `json:"forks" yaml:"forks"`
	Watchers   int   `json:"watchers" yaml:"watchers"`
	Issues     int   `json:"issues" yaml:"issues"`
	Engagement []int `json:"engagement,omitempty" yaml:"engagement,omitempty"`
}

type Impact struct {
	Score   int           `json:"score" yaml:"score"`
	Metrics ImpactMetrics `json:"metrics" yaml:"metrics"`
}

// ImpactScore weighs stars, forks and watchers, each capped at a ceiling, with
// the average weekly commit volume over the participation window.
func ImpactScore(repo *github.Repository, participation models.Participation) Impact {
	stars := repo.GetStargazersCount()
	forks := repo.GetForksCount()
	watchers := repo.GetWatchersCount()

	engagement := 0.0
	if n := len(participation.All); n > 0 {
		engagement = float64(sum(participation.All)) / float64(n*100)
	}

	score := (capRatio(stars, impactStarsCeiling)*impactStarsWeight +
		capRatio(forks, impactForksCeiling)*impactForksWeight +
		capRatio(watchers, impactWatchersCeiling)*impactWatchersWeight +
		engagement*impactEngagementWeight) * 100

	return Impact{
		Score: int(math.Round(score)),
		Metrics: ImpactMetrics{
			Stars:      stars,
			Forks:      forks,
			Watchers:   watchers,
			Issues:     repo.GetOpenIssuesCount(),
			Engagement: participation.All,
		},
	}
}

func capRatio(v, ceiling int) float64 {
	return math.Min(float64(v)/float64(ceiling), 1)
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
