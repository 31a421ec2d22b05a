package interfaces

import "context"

// PDFExtractor extracts text content from PDF documents
type PDFExtractor interface {
	// ExtractTextFromBytes extracts text directly from PDF bytes,
	// limited to the first maxPages pages (0 means no limit).
	ExtractTextFromBytes(ctx context.Context, pdfContent []byte, maxPages int) (string, error)

	// ExtractText extracts text from a PDF blob stored at the given
	// storage key.
	ExtractText(ctx context.Context, storageKey string, maxPages int) (string, error)
}

// SummaryPDFService renders session paper summaries into a PDF
type SummaryPDFService interface {
	// RenderSummaries builds a summaries PDF from the session's documents
	RenderSummaries(title string, sections []SummarySection) ([]byte, error)
}

// SummarySection is one paper's entry in the summaries PDF
type SummarySection struct {
	Title     string
	Authors   string
	Year      int
	Citations int
	Summary   string
	Abstract  string
}
