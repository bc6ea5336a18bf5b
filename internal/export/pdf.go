package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pdfTitle      = "Filtered GitHub Repositories"
	pdfLeft       = 10.0
	pdfFirstRow   = 20.0
	pdfRowHeight  = 10.0
	pdfPageBottom = 280.0
)

// WritePDF renders a one-line-per-repository listing on A4 pages.
func WritePDF(w io.Writer, records []Record) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreator("ghexplorer", false)
	pdf.SetTitle(pdfTitle, false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(pdfLeft, 10, pdfTitle)

	pdf.SetFont("Helvetica", "", 9)
	y := pdfFirstRow
	pdf.Text(pdfLeft, y, "# | Name | Stars | Forks | Language | URL")
	for i, r := range records {
		y += pdfRowHeight
		if y > pdfPageBottom {
			pdf.AddPage()
			y = pdfFirstRow
		}
		line := fmt.Sprintf("%d | %s | %d | %d | %s | %s", i+1, r.Name, r.Stars, r.Forks, orNA(r.Language), r.URL)
		pdf.Text(pdfLeft, y, tr(line))
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}
