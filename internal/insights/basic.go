package insights

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"
)

// Basic summarises repo from its listing fields alone. It is the answer when
// no provider is configured or the provider keeps failing.
func Basic(repo *github.Repository, now time.Time) string {
	days := 0
	if t := repo.GetUpdatedAt(); !t.IsZero() {
		days = int(now.Sub(t.Time).Hours() / 24)
	}
	stars := repo.GetStargazersCount()
	forks := repo.GetForksCount()
	language := orDefault(repo.GetLanguage(), "Not specified")

	projectType := "No topics specified"
	if len(repo.Topics) > 0 {
		projectType = "Related to " + strings.Join(repo.Topics, ", ")
	}
	status := "Less active"
	if days < 30 {
		status = "Active"
	}
	interest := "Growing"
	switch {
	case stars > 100:
		interest = "High"
	case stars > 10:
		interest = "Moderate"
	}
	collaboration := "growing"
	if forks > 10 {
		collaboration = "active"
	}

	var b strings.Builder
	b.WriteString("Basic Repository Analysis:\n\n")
	b.WriteString("Project Overview:\n")
	fmt.Fprintf(&b, "- Name: %s\n", repo.GetName())
	fmt.Fprintf(&b, "- Primary Language: %s\n", language)
	fmt.Fprintf(&b, "- Description: %s\n\n", orDefault(repo.GetDescription(), "No description provided"))
	b.WriteString("Activity Metrics:\n")
	fmt.Fprintf(&b, "- Stars: %d\n", stars)
	fmt.Fprintf(&b, "- Forks: %d\n", forks)
	fmt.Fprintf(&b, "- Open Issues: %d\n", repo.GetOpenIssuesCount())
	fmt.Fprintf(&b, "- Last Updated: %d days ago\n\n", days)
	b.WriteString("Key Points:\n")
	fmt.Fprintf(&b, "1. Project Type: %s\n", projectType)
	fmt.Fprintf(&b, "2. Development Status: %s (last updated %d days ago)\n", status, days)
	fmt.Fprintf(&b, "3. Community Interest: %s (%d stars)\n", interest, stars)
	fmt.Fprintf(&b, "4. Technical Stack: %s based project\n", language)
	fmt.Fprintf(&b, "5. Collaboration Level: %d forks indicate %s community involvement", forks, collaboration)
	return b.String()
}
