package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

const descriptionWidth = 48

// ConsoleSink renders the result set for people (text) or pipes (json, ndjson).
type ConsoleSink struct {
	writer  io.Writer
	format  string // "text", "json", "ndjson"
	mu      sync.Mutex
	records []Record
	summary *Summary
}

func NewConsoleSink(w io.Writer, format string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	return &ConsoleSink{writer: w, format: format}
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json", "text":
		switch t := v.(type) {
		case Record:
			s.records = append(s.records, t)
		case Summary:
			s.summary = &t
		}
		return nil
	case "ndjson":
		e, ok := asEvent(v)
		if !ok {
			return nil
		}
		if err := json.NewEncoder(s.writer).Encode(e); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		if err := Write(s.writer, FormatJSON, s.records, Options{}); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case "text":
		if _, err := io.WriteString(s.writer, RenderText(s.records, s.summary)); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case "ndjson":
		return nil
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

// RenderText draws records as a table, preceded by the summary when present.
func RenderText(records []Record, summary *Summary) string {
	var b strings.Builder
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	offset := 0
	if summary != nil {
		fmt.Fprintf(&b, "%s\n", bold(summaryHeadline(summary)))
		if len(summary.Languages) > 0 {
			parts := make([]string, 0, len(summary.Languages))
			for _, l := range summary.Languages {
				parts = append(parts, fmt.Sprintf("%s %d%%", l.Language, l.Percent))
			}
			fmt.Fprintf(&b, "Languages: %s\n", strings.Join(parts, ", "))
		}
		if summary.Page > 0 {
			offset = (summary.Page - 1) * summary.PageSize
		}
	}

	if len(records) == 0 {
		b.WriteString("No repositories found.\n")
		return b.String()
	}

	details := false
	for _, r := range records {
		if r.Contributors != nil || r.Impact != nil || len(r.Languages) > 0 {
			details = true
			break
		}
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	header := table.Row{"#", "Repository", "Stars", "Forks", "Language", "Updated", "Description"}
	if details {
		header = append(header, "Contributors", "Impact")
	}
	t.AppendHeader(header)

	for i, r := range records {
		name := r.FullName
		if name == "" {
			name = r.Name
		}
		if r.Archived {
			name = faint(name + " (archived)")
		}
		updated := "-"
		if !r.UpdatedAt.IsZero() {
			updated = r.UpdatedAt.Format("2006-01-02")
		}
		row := table.Row{
			offset + i + 1,
			name,
			r.Stars,
			r.Forks,
			orDash(r.Language),
			updated,
			truncate(r.Description, descriptionWidth),
		}
		if details {
			contributors, impact := "-", "-"
			if r.Contributors != nil {
				contributors = strconv.Itoa(*r.Contributors)
			}
			if r.Impact != nil {
				impact = strconv.Itoa(r.Impact.Score)
			}
			if len(r.Errors) > 0 {
				contributors += "*"
			}
			row = append(row, contributors, impact)
		}
		t.AppendRow(row)
	}

	b.WriteString(t.Render())
	b.WriteString("\n")
	if summary != nil && summary.TotalPages > 1 {
		fmt.Fprintf(&b, "Page %d of %d\n", summary.Page, summary.TotalPages)
	}
	return b.String()
}

func summaryHeadline(s *Summary) string {
	var b strings.Builder
	switch s.Mode {
	case "search":
		fmt.Fprintf(&b, "Search %q", s.Source)
	default:
		fmt.Fprintf(&b, "Repositories of %s", s.Source)
	}
	fmt.Fprintf(&b, ": %d matched of %d fetched", s.Matched, s.Discovered)
	if s.TotalCount > s.Discovered {
		fmt.Fprintf(&b, " (%d on GitHub)", s.TotalCount)
	}
	if s.HasMore {
		b.WriteString(", more available")
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}
