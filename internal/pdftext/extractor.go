// Package pdftext implements the text-extraction half of the pipeline's
// black-box PDF contracts (internal/pipeline/stages.TextExtractor and the
// PageCount half of PageRenderer) using github.com/ledongthuc/pdf. Page
// rasterization (PageRenderer.RenderPages) and page-range splitting
// (stages.Splitter) need an actual PDF renderer/writer, which ledongthuc/pdf
// does not provide — those remain caller-supplied black-box collaborators,
// per spec.md's framing of the splitting/rendering primitives as an
// out-of-scope external service.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor extracts plain text from a PDF's pages, concatenated in page
// order with a page-boundary marker, matching the native PDF parser idiom
// used across the corpus.
type Extractor struct{}

// New returns a ready-to-use Extractor. It holds no state.
func New() *Extractor {
	return &Extractor{}
}

func (Extractor) ExtractText(ctx context.Context, pdfBytes []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return "", fmt.Errorf("pdftext: open: %w", err)
	}

	var parts []string
	total := reader.NumPage()
	for n := 1; n <= total; n++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			parts = append(parts, fmt.Sprintf("--- Page %d (extraction failed: %v) ---", n, err))
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", n, text))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// PageCount reports the document's page count, the one PageRenderer method
// ledongthuc/pdf can genuinely back; RenderPages needs an actual rasterizer
// and is not implemented here.
func (Extractor) PageCount(_ context.Context, pdfBytes []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return 0, fmt.Errorf("pdftext: open: %w", err)
	}
	return reader.NumPage(), nil
}
