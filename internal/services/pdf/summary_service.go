package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/interfaces"
)

// SummaryService renders session paper summaries into a downloadable
// PDF using fpdf.
type SummaryService struct {
	logger arbor.ILogger
}

var _ interfaces.SummaryPDFService = (*SummaryService)(nil)

// NewSummaryService creates a summary PDF renderer
func NewSummaryService(logger arbor.ILogger) *SummaryService {
	return &SummaryService{logger: logger}
}

// RenderSummaries builds a summaries PDF with one section per paper
func (s *SummaryService) RenderSummaries(title string, sections []interfaces.SummarySection) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 15, 15)
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()

	doc.SetFont("Arial", "B", 16)
	doc.MultiCell(0, 8, title, "", "C", false)
	doc.Ln(4)

	for i, section := range sections {
		doc.SetFont("Arial", "B", 12)
		doc.MultiCell(0, 6, fmt.Sprintf("%d. %s", i+1, section.Title), "", "L", false)

		doc.SetFont("Arial", "I", 9)
		meta := fmt.Sprintf("%s (%d)", section.Authors, section.Year)
		if section.Citations > 0 {
			meta += fmt.Sprintf(", %d citations", section.Citations)
		}
		doc.MultiCell(0, 5, meta, "", "L", false)
		doc.Ln(1)

		doc.SetFont("Arial", "", 9)
		body := section.Summary
		if body == "" {
			body = section.Abstract
		}
		doc.MultiCell(0, 5, body, "", "L", false)
		doc.Ln(5)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate summaries PDF: %w", err)
	}

	s.logger.Debug().
		Int("sections", len(sections)).
		Int("pdf_size", buf.Len()).
		Msg("Summaries PDF generated")

	return buf.Bytes(), nil
}
