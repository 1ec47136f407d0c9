// Package extract turns uploaded files into plain text.
//
// Extraction never fails loudly. When a file cannot be read, or yields too
// little text, the Result carries a human-readable placeholder and
// Status=failed. Downstream code checks the status (or IsPlaceholder) and
// must not send placeholders to a summarizer.
package extract

import (
	"context"
	"strings"

	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
	"github.com/Shimizu-Technology/learnsmart-api/internal/textutil"
)

// MinPDFTextLength is the shortest PDF extraction we accept as real text.
const MinPDFTextLength = 50

// Extraction placeholders. Every one starts with a prefix IsPlaceholder knows.
const (
	PlaceholderPDFNoText       = "Could not extract readable text from this PDF file. The file may be image-based or protected."
	PlaceholderPDFReadError    = "Error reading PDF file. Please try a different file or convert to text format."
	PlaceholderServiceDown     = "Could not connect to the PDF extraction service. Please make sure it is running and try again."
	PlaceholderImage           = "Could not extract text from image files. Upload a PDF, Word, PowerPoint, Excel or text file instead."
	PlaceholderLegacyOffice    = "Could not extract text from legacy Office formats (.doc, .ppt, .xls). Save the file as .docx, .pptx or .xlsx and upload it again."
	PlaceholderEmpty           = "Could not extract readable text from this file. The file appears to be empty."
	PlaceholderUnsupported     = "Could not extract text from this file type."
	PlaceholderOfficeReadError = "Error reading document file. The file may be corrupted or password-protected."
)

var placeholderPrefixes = []string{"Could not extract", "Could not connect", "Error reading"}

// IsPlaceholder reports whether text is an extraction placeholder rather
// than document content.
func IsPlaceholder(text string) bool {
	for _, p := range placeholderPrefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

// Upload is a file as received from the client.
type Upload struct {
	Name     string
	MimeType string
	Data     []byte
}

// Result is the outcome of one extraction.
type Result struct {
	Text      string
	Status    models.ResultStatus // ok or failed
	Kind      Kind
	Strategy  string // PDF backend name, empty for other kinds
	PageCount int
	WordCount int
}

// Extractor dispatches on file kind. PDFs go to exactly one PDFBackend.
type Extractor struct {
	pdf PDFBackend
	log *logger.Logger
}

// New creates an extractor that uses the given PDF backend.
func New(pdf PDFBackend, log *logger.Logger) *Extractor {
	return &Extractor{pdf: pdf, log: log}
}

// Strategy returns the name of the active PDF backend.
func (e *Extractor) Strategy() string {
	return e.pdf.Name()
}

// Extract produces the best-effort plain text of u. It never returns nil.
func (e *Extractor) Extract(ctx context.Context, u Upload) *Result {
	kind := DetectKind(u.Name, u.Data)
	log := e.log.With("file", u.Name, "kind", kind, "bytes", len(u.Data))

	var res *Result
	switch kind {
	case KindPDF:
		res = e.extractPDF(ctx, log, u)
	case KindDOCX:
		res = fromParser(log, kind, func() (string, error) { return extractDOCX(u.Data) })
	case KindPPTX:
		res = fromParser(log, kind, func() (string, error) { return extractPPTX(u.Data) })
	case KindXLSX:
		res = fromParser(log, kind, func() (string, error) { return extractXLSX(u.Data) })
	case KindHTML:
		res = fromParser(log, kind, func() (string, error) { return htmlToText(string(u.Data)) })
	case KindText:
		res = fromPlain(kind, string(u.Data))
	case KindImage:
		res = placeholder(kind, PlaceholderImage)
	case KindLegacyOffice:
		res = placeholder(kind, PlaceholderLegacyOffice)
	default:
		res = placeholder(kind, PlaceholderUnsupported)
	}

	if res.Status == models.StatusOK {
		res.WordCount = textutil.CountWords(res.Text)
		log.Info("📄 Text extracted", "chars", textutil.Len(res.Text), "words", res.WordCount)
	} else {
		log.Warn("⚠️  Extraction produced a placeholder", "placeholder", res.Text)
	}
	return res
}

func (e *Extractor) extractPDF(ctx context.Context, log *logger.Logger, u Upload) *Result {
	name := e.pdf.Name()
	if !hasPDFHeader(u.Data) {
		log.Warn("File has a .pdf name but no PDF header")
		res := placeholder(KindPDF, PlaceholderPDFReadError)
		res.Strategy = name
		return res
	}

	out, err := e.pdf.ExtractPDF(ctx, u.Name, u.Data)
	if err != nil {
		log.Warn("PDF backend failed", "strategy", name, "error", err)
		msg := PlaceholderPDFReadError
		if isServiceUnavailable(err) {
			msg = PlaceholderServiceDown
		}
		res := placeholder(KindPDF, msg)
		res.Strategy = name
		return res
	}

	text := textutil.Normalize(out.Text)
	if textutil.Len(text) < MinPDFTextLength {
		log.Warn("PDF yielded too little text", "strategy", name, "chars", textutil.Len(text))
		res := placeholder(KindPDF, PlaceholderPDFNoText)
		res.Strategy = name
		res.PageCount = out.PageCount
		return res
	}

	return &Result{
		Text:      text,
		Status:    models.StatusOK,
		Kind:      KindPDF,
		Strategy:  name,
		PageCount: out.PageCount,
	}
}

func fromParser(log *logger.Logger, kind Kind, fn func() (string, error)) *Result {
	raw, err := fn()
	if err != nil {
		log.Warn("Document parsing failed", "error", err)
		return placeholder(kind, PlaceholderOfficeReadError)
	}
	return fromPlain(kind, raw)
}

func fromPlain(kind Kind, raw string) *Result {
	text := textutil.Normalize(raw)
	if text == "" {
		return placeholder(kind, PlaceholderEmpty)
	}
	return &Result{Text: text, Status: models.StatusOK, Kind: kind}
}

func placeholder(kind Kind, msg string) *Result {
	return &Result{Text: msg, Status: models.StatusFailed, Kind: kind}
}
