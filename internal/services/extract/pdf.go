package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shimizu-Technology/learnsmart-api/internal/config"
)

// PDFText is the raw output of a PDF backend, before the length policy runs.
type PDFText struct {
	Text      string
	PageCount int
}

// PDFBackend is one way of getting text out of a PDF. The Extractor owns
// the decision policy (length threshold, placeholders); backends only
// report text or an error.
type PDFBackend interface {
	Name() string
	ExtractPDF(ctx context.Context, filename string, data []byte) (PDFText, error)
}

// ErrServiceUnavailable means the delegated extraction service could not
// be reached at all (as opposed to reporting an error about the file).
var ErrServiceUnavailable = errors.New("pdf extraction service unavailable")

func isServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// NewPDFBackend builds the backend named by strategy.
func NewPDFBackend(strategy, serviceURL string, timeout time.Duration) (PDFBackend, error) {
	switch strategy {
	case config.PDFStrategyStructured:
		return StructuredBackend{}, nil
	case config.PDFStrategyRegex:
		return RegexBackend{}, nil
	case config.PDFStrategyDelegated:
		return NewDelegatedBackend(serviceURL, timeout), nil
	default:
		return nil, fmt.Errorf("unknown PDF strategy %q", strategy)
	}
}

// hasPDFHeader reports whether data starts with the "%PDF-" marker. A
// file that only claims to be a PDF by its extension is not worth a
// backend round trip.
func hasPDFHeader(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}
