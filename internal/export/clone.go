package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"
)

// MaxCloneRepos caps how many repositories a clone script covers.
const MaxCloneRepos = 100

type cloneRepo struct {
	Name string
	URL  string
}

type cloneBatch struct {
	Number int
	Last   bool
	Repos  []cloneRepo
}

type cloneScript struct {
	Total      int
	Limit      int
	Omitted    int
	BatchCount int
	Batches    []cloneBatch
}

var scriptFuncs = template.FuncMap{
	"shq": func(s string) string {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	},
}

var shTemplate = template.Must(template.New("sh").Funcs(scriptFuncs).Parse(`#!/bin/bash
set -e
{{- if .Omitted}}
# Limited to the first {{.Limit}} repositories; {{.Omitted}} more were left out.
{{- end}}

if ! command -v git >/dev/null 2>&1; then
  echo "Error: git is not installed"
  exit 1
fi

echo "GitHub Bulk Repository Cloner"
echo "============================"
echo "Total repositories to clone: {{.Total}}"
echo ""

count=0
{{- range .Batches}}

echo "Batch {{.Number}} of {{$.BatchCount}}"
{{- range .Repos}}
count=$((count + 1))
echo "[$count/{{$.Total}}] Cloning {{.Name}}"
if [ -d {{shq .Name}} ]; then
  echo "Skipping {{.Name}}: directory exists"
else
  git clone {{shq .URL}} || { echo "Failed to clone {{.Name}}"; exit 1; }
fi
{{- end}}
{{- if not .Last}}
sleep 2
{{- end}}
{{- end}}

echo ""
echo "Cloning complete!"
`))

var batTemplate = template.Must(template.New("bat").Parse(`@echo off
setlocal EnableDelayedExpansion
{{- if .Omitted}}
rem Limited to the first {{.Limit}} repositories; {{.Omitted}} more were left out.
{{- end}}

where git >nul 2>nul
if errorlevel 1 (
  echo Error: git is not installed
  exit /b 1
)

echo GitHub Bulk Repository Cloner
echo ============================
echo Total repositories to clone: {{.Total}}
echo.

set count=0
{{- range .Batches}}

echo Batch {{.Number}} of {{$.BatchCount}}
{{- range .Repos}}
set /a count+=1
echo [!count!/{{$.Total}}] Cloning {{.Name}}
if exist "{{.Name}}" (
  echo Skipping {{.Name}}: directory exists
) else (
  git clone "{{.URL}}"
  if errorlevel 1 (
    echo Failed to clone {{.Name}}
    exit /b 1
  )
)
{{- end}}
{{- if not .Last}}
timeout /t 2 /nobreak > nul
{{- end}}
{{- end}}

echo.
echo Cloning complete!
`))

// WriteCloneScript writes a bash ("sh") or Windows batch ("bat") script that
// clones the records in batches of batchSize, pausing two seconds between
// batches. Existing directories are skipped; a failed clone stops the script.
// At most MaxCloneRepos records are included.
func WriteCloneScript(w io.Writer, format string, records []Record, batchSize int) error {
	if batchSize <= 0 {
		return fmt.Errorf("clone batch size must be >= 1, got %d", batchSize)
	}
	var tmpl *template.Template
	switch format {
	case FormatSh:
		tmpl = shTemplate
	case FormatBat:
		tmpl = batTemplate
	default:
		return fmt.Errorf("unsupported clone script format: %s", format)
	}

	script := planClone(records, batchSize)
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, script); err != nil {
		return fmt.Errorf("render %s script: %w", format, err)
	}
	out := buf.String()
	if format == FormatBat {
		out = strings.ReplaceAll(out, "\n", "\r\n")
	}
	_, err := io.WriteString(w, out)
	return err
}

func planClone(records []Record, batchSize int) cloneScript {
	script := cloneScript{Limit: MaxCloneRepos}
	if len(records) > MaxCloneRepos {
		script.Omitted = len(records) - MaxCloneRepos
		records = records[:MaxCloneRepos]
	}
	script.Total = len(records)

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		batch := cloneBatch{Number: len(script.Batches) + 1, Last: end == len(records)}
		for _, r := range records[start:end] {
			batch.Repos = append(batch.Repos, cloneRepo{Name: r.Name, URL: r.CloneURL})
		}
		script.Batches = append(script.Batches, batch)
	}
	script.BatchCount = len(script.Batches)
	return script
}
