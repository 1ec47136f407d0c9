package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// StructuredBackend parses the PDF object graph with ledongthuc/pdf.
// It's a pure Go implementation — no CGO or external dependencies required.
type StructuredBackend struct{}

func (StructuredBackend) Name() string { return "structured" }

// ExtractPDF walks pages in order and joins their text with newlines.
// A page that errors (or panics inside the parser) is skipped so one bad
// page does not lose the whole document.
func (StructuredBackend) ExtractPDF(ctx context.Context, _ string, data []byte) (out PDFText, err error) {
	// The parser panics on some malformed inputs instead of returning errors.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return PDFText{}, fmt.Errorf("failed to open PDF: %w", err)
	}

	pageCount := reader.NumPage()
	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return PDFText{}, err
		}
		if text, ok := pageText(reader, i); ok {
			pages = append(pages, text)
		}
	}

	return PDFText{Text: strings.Join(pages, "\n"), PageCount: pageCount}, nil
}

func pageText(reader *pdf.Reader, i int) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()

	page := reader.Page(i)
	if page.V.IsNull() {
		return "", false
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(text), true
}
