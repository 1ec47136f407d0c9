package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"
)

// DelegatedBackend ships the file to an external extraction service:
// multipart POST with a "file" field, JSON {"text": ...} or {"error": ...} back.
type DelegatedBackend struct {
	url        string
	httpClient *http.Client
}

// NewDelegatedBackend creates a backend for the service at url.
func NewDelegatedBackend(url string, timeout time.Duration) *DelegatedBackend {
	return &DelegatedBackend{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type delegatedResponse struct {
	Text  *string `json:"text"`
	Error string  `json:"error"`
}

func (d *DelegatedBackend) Name() string { return "delegated" }

func (d *DelegatedBackend) ExtractPDF(ctx context.Context, filename string, data []byte) (PDFText, error) {
	if filename == "" {
		filename = "document.pdf"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return PDFText{}, err
	}
	if _, err := part.Write(data); err != nil {
		return PDFText{}, err
	}
	if err := writer.Close(); err != nil {
		return PDFText{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, &buf)
	if err != nil {
		return PDFText{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return PDFText{}, ctx.Err()
		}
		return PDFText{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PDFText{}, fmt.Errorf("failed to read response: %w", err)
	}

	var out delegatedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return PDFText{}, fmt.Errorf("extraction service returned %d with unreadable body: %w", resp.StatusCode, err)
	}
	if out.Error != "" {
		return PDFText{}, fmt.Errorf("extraction service error: %s", out.Error)
	}
	if resp.StatusCode/100 != 2 {
		return PDFText{}, fmt.Errorf("extraction service returned %d", resp.StatusCode)
	}
	if out.Text == nil {
		return PDFText{}, errors.New("extraction service response has no text field")
	}
	return PDFText{Text: *out.Text}, nil
}
