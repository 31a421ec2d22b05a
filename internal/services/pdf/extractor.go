// -----------------------------------------------------------------------
// PDF Extractor Service - Extract text content from PDF documents
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/interfaces"
)

// Extractor implements the PDFExtractor interface using pdfcpu
type Extractor struct {
	kvStorage interfaces.KeyValueStorage
	logger    arbor.ILogger
	tempDir   string
}

// Compile-time interface assertion
var _ interfaces.PDFExtractor = (*Extractor)(nil)

// NewExtractor creates a new PDF extractor service
func NewExtractor(kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *Extractor {
	tempDir := filepath.Join(os.TempDir(), "essentia-pdf")
	os.MkdirAll(tempDir, 0755)

	return &Extractor{
		kvStorage: kvStorage,
		logger:    logger,
		tempDir:   tempDir,
	}
}

// ExtractText extracts text from a PDF blob stored at the given storage
// key, limited to the first maxPages pages.
func (e *Extractor) ExtractText(ctx context.Context, storageKey string, maxPages int) (string, error) {
	pdfContent, err := e.kvStorage.GetBlob(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("failed to get PDF from storage: %w", err)
	}
	return e.ExtractTextFromBytes(ctx, pdfContent, maxPages)
}

// ExtractTextFromBytes extracts text directly from PDF bytes. The first
// 20 or so pages of a paper carry its substance; maxPages keeps the
// extraction bounded (0 means no limit).
func (e *Extractor) ExtractTextFromBytes(ctx context.Context, pdfContent []byte, maxPages int) (string, error) {
	// pdfcpu works on files, so stage the blob in the temp directory
	workID := uuid.New().String()
	tempFile := filepath.Join(e.tempDir, fmt.Sprintf("extract_%s.pdf", workID))
	if err := os.WriteFile(tempFile, pdfContent, 0644); err != nil {
		return "", fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF context: %w", err)
	}

	pageCount := pdfCtx.PageCount
	if maxPages > 0 && pageCount > maxPages {
		pageCount = maxPages
	}

	pages := make([]string, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pages = append(pages, fmt.Sprintf("%d", pageNum))
	}

	outDir := filepath.Join(e.tempDir, fmt.Sprintf("pages_%s", workID))
	os.MkdirAll(outDir, 0755)
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempFile, outDir, pages, conf); err != nil {
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}

	var text strings.Builder
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		cleaned := textFromContentStream(string(content))
		if len(cleaned) > 100 {
			text.WriteString(cleaned)
			text.WriteString(" ")
		}
	}

	result := strings.TrimSpace(text.String())
	e.logger.Debug().
		Int("pages", pageCount).
		Int("text_length", len(result)).
		Msg("PDF text extracted")

	return result, nil
}

var (
	// Literal strings shown by Tj/TJ text operators
	textShowRe   = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*(?:Tj|TJ)`)
	arrayStrRe   = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
	textArrayRe  = regexp.MustCompile(`\[((?:[^\[\]\\]|\\.)*)\]\s*TJ`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// textFromContentStream pulls the literal strings out of a PDF content
// stream. Layout operators are dropped; the result is a rough but
// serviceable reading-order text.
func textFromContentStream(stream string) string {
	var b strings.Builder

	for _, match := range textShowRe.FindAllStringSubmatch(stream, -1) {
		b.WriteString(unescapePDFString(match[1]))
		b.WriteString(" ")
	}
	for _, array := range textArrayRe.FindAllStringSubmatch(stream, -1) {
		for _, match := range arrayStrRe.FindAllStringSubmatch(array[1], -1) {
			b.WriteString(unescapePDFString(match[1]))
		}
		b.WriteString(" ")
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(b.String(), " "))
}

func unescapePDFString(s string) string {
	replacer := strings.NewReplacer(
		`\(`, "(",
		`\)`, ")",
		`\\`, `\`,
		`\n`, "\n",
		`\r`, "",
		`\t`, " ",
	)
	return replacer.Replace(s)
}
