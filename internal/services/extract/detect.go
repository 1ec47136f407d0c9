package extract

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind is the extraction route chosen for a file.
type Kind string

const (
	KindPDF          Kind = "pdf"
	KindDOCX         Kind = "docx"
	KindPPTX         Kind = "pptx"
	KindXLSX         Kind = "xlsx"
	KindText         Kind = "text"
	KindHTML         Kind = "html"
	KindImage        Kind = "image"
	KindLegacyOffice Kind = "legacy_office"
	KindUnknown      Kind = "unknown"
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// AcceptedExtensions are the upload types the API takes. Images are
// accepted but not processed for text.
var AcceptedExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
	".xls": true, ".xlsx": true, ".txt": true, ".md": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
}

// IsAccepted reports whether the file name has an accepted extension.
func IsAccepted(name string) bool {
	return AcceptedExtensions[strings.ToLower(filepath.Ext(name))]
}

// DetectKind sniffs the content first and falls back to the extension.
// Content wins because browsers routinely send wrong or empty MIME types.
func DetectKind(name string, data []byte) Kind {
	m := mimetype.Detect(data)
	switch {
	case m.Is("application/pdf"):
		return KindPDF
	case m.Is(mimeDOCX):
		return KindDOCX
	case m.Is(mimePPTX):
		return KindPPTX
	case m.Is(mimeXLSX):
		return KindXLSX
	case m.Is("application/msword"), m.Is("application/vnd.ms-powerpoint"),
		m.Is("application/vnd.ms-excel"), m.Is("application/x-ole-storage"):
		return KindLegacyOffice
	case strings.HasPrefix(m.String(), "image/"):
		return KindImage
	case m.Is("text/html"):
		return KindHTML
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	case ".pptx":
		return KindPPTX
	case ".xlsx":
		return KindXLSX
	case ".doc", ".ppt", ".xls":
		return KindLegacyOffice
	case ".jpg", ".jpeg", ".png", ".gif":
		return KindImage
	case ".html", ".htm":
		return KindHTML
	case ".txt", ".md":
		return KindText
	}

	// Empty files are detected as text/plain, which is what we want.
	if m.Is("text/plain") {
		return KindText
	}
	return KindUnknown
}
