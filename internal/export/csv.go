package export

import (
	"encoding/csv"
	"io"
	"strconv"
)

var csvHeader = []string{"Name", "Description", "Stars", "Forks", "Language", "Contributors", "URL"}

// WriteCSV writes one row per record. Missing text and an unknown contributor
// count are written as N/A.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		contributors := "N/A"
		if r.Contributors != nil {
			contributors = strconv.Itoa(*r.Contributors)
		}
		row := []string{
			orNA(r.Name),
			orNA(r.Description),
			strconv.Itoa(r.Stars),
			strconv.Itoa(r.Forks),
			orNA(r.Language),
			contributors,
			orNA(r.URL),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
