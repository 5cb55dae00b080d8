// Package attachment turns raw files into normalized payloads suitable for
// prompt inclusion: inline base64 images, or extracted plain text documents.
package attachment

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"omnichat/internal/logging"
)

// DocumentKind tags where a document payload's text came from.
type DocumentKind string

const (
	KindPDF  DocumentKind = "pdf"
	KindText DocumentKind = "txt"
)

// ImagePayload is an image normalized for inline transmission.
type ImagePayload struct {
	Name    string
	MIME    string
	Data    []byte // raw bytes, not base64
	DataURL string // data:<mime>;base64,<payload> for display/persistence
}

// DocumentPayload is a document reduced to plain extracted text.
type DocumentPayload struct {
	Name    string
	Content string
	Kind    DocumentKind
}

// ResolveImage reads an image file and produces an inline payload with an
// inferred MIME type. Failures are recoverable; the caller discards any
// staged state and reports to the user.
func ResolveImage(path string) (*ImagePayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.AttachmentError("image read failed: %v", err)
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image %s is empty", filepath.Base(path))
	}

	mimeType := detectMIME(path, data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%s does not look like an image (%s)", filepath.Base(path), mimeType)
	}

	p := &ImagePayload{
		Name: filepath.Base(path),
		MIME: mimeType,
		Data: data,
	}
	p.DataURL = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	logging.Attachment("resolved image %s (%s, %d bytes)", p.Name, p.MIME, len(data))
	return p, nil
}

// ResolveDocument reads a document file and extracts its text. PDFs are
// extracted page by page in order; anything else is read as plain text.
func ResolveDocument(path string) (*DocumentPayload, error) {
	name := filepath.Base(path)

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err := extractPDF(path)
		if err != nil {
			logging.AttachmentError("pdf extraction failed for %s: %v", name, err)
			return nil, fmt.Errorf("extract pdf %s: %w", name, err)
		}
		logging.Attachment("resolved pdf %s (%d chars)", name, len(text))
		return &DocumentPayload{Name: name, Content: text, Kind: KindPDF}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logging.AttachmentError("document read failed: %v", err)
		return nil, fmt.Errorf("read document: %w", err)
	}
	logging.Attachment("resolved text file %s (%d bytes)", name, len(data))
	return &DocumentPayload{Name: name, Content: string(data), Kind: KindText}, nil
}

// extractPDF reads every page in order and concatenates the extracted text.
func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return JoinPages(pages), nil
}

// JoinPages concatenates per-page text, one newline per page, preserving
// page order.
func JoinPages(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p)
		b.WriteString("\n")
	}
	return b.String()
}

// detectMIME sniffs content first and falls back to the file extension.
func detectMIME(path string, data []byte) string {
	sniffed := http.DetectContentType(data)
	if sniffed != "application/octet-stream" {
		return sniffed
	}
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return byExt
	}
	return sniffed
}
