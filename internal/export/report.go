package export

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"ghexplorer/internal/analytics"
)

// RenderReport draws the statistics of one repository as titled sections.
func RenderReport(r analytics.Report) string {
	var b strings.Builder
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	section := func(title string) {
		fmt.Fprintf(&b, "\n%s\n", bold(title))
	}

	fmt.Fprintf(&b, "%s\n", bold(r.Repo))
	if r.Description != "" {
		fmt.Fprintf(&b, "%s\n", r.Description)
	}
	if r.URL != "" {
		fmt.Fprintf(&b, "%s\n", faint(r.URL))
	}

	section("Scores")
	t := newReportTable()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Quality", fmt.Sprintf("%d/100 (%s)", r.Quality.Score, r.Quality.Rating)})
	t.AppendRow(table.Row{"Impact", fmt.Sprintf("%d/100", r.Impact.Score)})
	t.AppendRow(table.Row{"Stars", r.Impact.Metrics.Stars})
	t.AppendRow(table.Row{"Forks", r.Impact.Metrics.Forks})
	t.AppendRow(table.Row{"Watchers", r.Impact.Metrics.Watchers})
	t.AppendRow(table.Row{"Open issues", r.Impact.Metrics.Issues})
	t.AppendRow(table.Row{"Contributors", r.Contributors})
	b.WriteString(t.Render())
	b.WriteString("\n")

	section("Activity (last 52 weeks)")
	a := r.Activity
	if a.Weeks == 0 {
		b.WriteString("No commit activity available.\n")
	} else {
		fmt.Fprintf(&b, "Commits: %d in %d active weeks (avg %d per active week)\n", a.TotalCommits, a.ActiveWeeks, a.AvgPerActiveWeek)
		fmt.Fprintf(&b, "Last 4 weeks: %d\n", a.RecentCommits)
		fmt.Fprintf(&b, "Owner / community: %d / %d\n", a.OwnerCommits, a.CommunityCommits)
	}

	if len(r.Languages) > 0 {
		section("Languages")
		t := newReportTable()
		t.AppendHeader(table.Row{"Language", "Share"})
		for _, l := range r.Languages {
			t.AppendRow(table.Row{l.Name, fmt.Sprintf("%.1f%%", l.Percent)})
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	if len(r.TopContributors) > 0 {
		section("Top contributors")
		t := newReportTable()
		t.AppendHeader(table.Row{"Login", "Contributions"})
		for _, c := range r.TopContributors {
			t.AppendRow(table.Row{c.Login, c.Contributions})
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	if len(r.Issues) > 0 {
		section("Open issues")
		t := newReportTable()
		t.AppendHeader(table.Row{"#", "Priority", "Comments", "Title"})
		for _, is := range r.Issues {
			t.AppendRow(table.Row{is.Number, is.Priority, is.Comments, truncate(is.Title, descriptionWidth)})
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	if len(r.Similar) > 0 {
		section("Similar repositories")
		t := newReportTable()
		t.AppendHeader(table.Row{"Repository", "Stars", "Language"})
		for _, s := range r.Similar {
			t.AppendRow(table.Row{s.FullName, s.Stars, orDash(s.Language)})
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	hints := append(append([]string{}, r.Suggestions...), r.Performance.Suggestions...)
	if len(hints) > 0 {
		section("Suggestions")
		for _, s := range hints {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	if len(r.Missing) > 0 {
		fmt.Fprintf(&b, "\n%s\n", faint("Unavailable: "+strings.Join(r.Missing, ", ")))
	}
	return b.String()
}

func newReportTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}
