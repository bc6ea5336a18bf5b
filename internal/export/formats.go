package export

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format names accepted by Write and the file sink.
const (
	FormatJSON   = "json"
	FormatNDJSON = "ndjson"
	FormatYAML   = "yaml"
	FormatCSV    = "csv"
	FormatPDF    = "pdf"
	FormatSh     = "sh"
	FormatBat    = "bat"
)

// Options tunes the document formats.
type Options struct {
	// CloneBatch is the number of clones between pauses in sh/bat scripts.
	CloneBatch int
}

// ContentType returns the HTTP media type for format.
func ContentType(format string) string {
	switch format {
	case FormatJSON:
		return "application/json"
	case FormatNDJSON:
		return "application/x-ndjson"
	case FormatYAML:
		return "application/yaml"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatSh:
		return "text/x-shellscript; charset=utf-8"
	case FormatBat:
		return "application/x-bat"
	default:
		return "application/octet-stream"
	}
}

// FileName is the download name used for an export of format.
func FileName(format string) string {
	switch format {
	case FormatSh:
		return "clone-repos.sh"
	case FormatBat:
		return "clone-repos.bat"
	default:
		return "repositories." + format
	}
}

// Write renders records as one complete document in format.
func Write(w io.Writer, format string, records []Record, opts Options) error {
	if w == nil {
		return fmt.Errorf("export writer must not be nil")
	}
	if records == nil {
		records = []Record{}
	}
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	case FormatNDJSON:
		encoder := json.NewEncoder(w)
		for i := range records {
			if err := encoder.Encode(Event{Type: EventRecord, Repo: records[i].FullName, Record: &records[i]}); err != nil {
				return err
			}
		}
		return nil
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(records); err != nil {
			return err
		}
		return encoder.Close()
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatPDF:
		return WritePDF(w, records)
	case FormatSh, FormatBat:
		return WriteCloneScript(w, format, records, opts.CloneBatch)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}
