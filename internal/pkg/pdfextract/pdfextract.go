package pdfextract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText returns the plain text of a PDF document. A PDF without a text
// layer yields an empty string and no error.
func ExtractText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	return Clean(string(out)), nil
}

// FromContent extracts text based on the mime type; unsupported types
// return an error.
func FromContent(mimeType string, data []byte) (string, error) {
	switch {
	case mimeType == "application/pdf":
		return ExtractText(data)
	case strings.HasPrefix(mimeType, "text/"):
		return Clean(string(data)), nil
	default:
		return "", fmt.Errorf("unsupported mime type %q", mimeType)
	}
}

// Clean makes extracted text storable in a Postgres text column: NUL bytes
// are dropped and invalid UTF-8 (for example Latin-1 files) is replaced.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ToValidUTF8(text, "\uFFFD")
	return strings.TrimSpace(text)
}
