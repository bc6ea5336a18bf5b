// Package analytics derives heuristic scores and suggestions from repository
// metadata and statistics. Everything here is pure: callers fetch the inputs
// and pass the current time.
package analytics

import (
	"time"

	"github.com/google/go-github/v81/github"
)

type Rating string

const (
	RatingExcellent        Rating = "Excellent"
	RatingGood             Rating = "Good"
	RatingFair             Rating = "Fair"
	RatingNeedsImprovement Rating = "Needs Improvement"
)

// Factor is one contribution to the quality score.
type Factor struct {
	Name   string `json:"name" yaml:"name"`
	Points int    `json:"points" yaml:"points"`
}

type QualityScore struct {
	Score   int      `json:"score" yaml:"score"`
	Rating  Rating   `json:"rating" yaml:"rating"`
	Factors []Factor `json:"factors" yaml:"factors"`
}

// month is the 30-day month used for recency buckets.
const month = 30 * 24 * time.Hour

// Quality scores documentation, recency and community engagement out of 100.
//
//	description      +20
//	README           +20
//	updated < 1 mo   +20 (else < 3 mo +10)
//	stars > 100      +20
//	forks > 10       +20
func Quality(repo *github.Repository, hasReadme bool, now time.Time) QualityScore {
	var q QualityScore
	add := func(name string, points int) {
		q.Score += points
		q.Factors = append(q.Factors, Factor{Name: name, Points: points})
	}

	if repo.GetDescription() != "" {
		add("description", 20)
	}
	if hasReadme {
		add("readme", 20)
	}
	if updated := repo.GetUpdatedAt().Time; !updated.IsZero() {
		switch age := now.Sub(updated); {
		case age < month:
			add("recently updated", 20)
		case age < 3*month:
			add("updated this quarter", 10)
		}
	}
	if repo.GetStargazersCount() > 100 {
		add("stars", 20)
	}
	if repo.GetForksCount() > 10 {
		add("forks", 20)
	}

	q.Rating = RatingFor(q.Score)
	return q
}

// RatingFor maps a quality score onto its rating band.
func RatingFor(score int) Rating {
	switch {
	case score >= 80:
		return RatingExcellent
	case score >= 60:
		return RatingGood
	case score >= 40:
		return RatingFair
	default:
		return RatingNeedsImprovement
	}
}
