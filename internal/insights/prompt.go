package insights

import (
	"fmt"
	"strings"

	"github.com/google/go-github/v81/github"
)

// BuildPrompt renders the analysis request for repo.
func BuildPrompt(repo *github.Repository) string {
	topics := "None"
	if len(repo.Topics) > 0 {
		topics = strings.Join(repo.Topics, ", ")
	}
	updated := "unknown"
	if t := repo.GetUpdatedAt(); !t.IsZero() {
		updated = t.Format("2006-01-02")
	}

	var b strings.Builder
	b.WriteString("Act as an expert GitHub repository analyzer. Analyze this repository data and provide detailed insights:\n\n")
	b.WriteString("Repository Information:\n-------------------\n")
	fmt.Fprintf(&b, "Name: %s\n", repo.GetFullName())
	fmt.Fprintf(&b, "Description: %s\n", orDefault(repo.GetDescription(), "No description"))
	fmt.Fprintf(&b, "Language: %s\n", orDefault(repo.GetLanguage(), "Not specified"))
	fmt.Fprintf(&b, "Topics: %s\n", topics)
	fmt.Fprintf(&b, "Stars: %d\n", repo.GetStargazersCount())
	fmt.Fprintf(&b, "Forks: %d\n", repo.GetForksCount())
	fmt.Fprintf(&b, "Open Issues: %d\n", repo.GetOpenIssuesCount())
	fmt.Fprintf(&b, "Last Updated: %s\n\n", updated)
	b.WriteString("Please provide an analysis covering:\n")
	b.WriteString("1. Project significance and purpose\n")
	b.WriteString("2. Development momentum and health\n")
	b.WriteString("3. Community adoption metrics\n")
	b.WriteString("4. Technical architecture insights\n")
	b.WriteString("5. Growth potential and recommendations\n\n")
	b.WriteString("Format the response in clean markdown with emoji indicators for each section.")
	return b.String()
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
