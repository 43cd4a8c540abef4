// Package extract converts uploaded document bytes into the text or image
// payloads the workflow stages consume. Plain text and CSV documents are
// normalized to text, PDFs have their text layer extracted, and images are
// passed through for vision analysis as base64 data URIs.
package extract

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Domain errors for extraction operations.
var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrNoText          = errors.New("document contains no extractable text")
)

// MapHTTPStatus maps extraction errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrUnsupportedType) {
		return http.StatusUnsupportedMediaType
	}
	if errors.Is(err, ErrNoText) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Extractor converts raw document bytes into stage-ready payloads.
type Extractor interface {
	Text(filename, contentType string, data []byte) (string, error)
	DataURI(contentType string, data []byte) string
}

type extractor struct{}

// New creates the default Extractor.
func New() Extractor {
	return &extractor{}
}

// Text extracts the textual content of a document. CSV files are reparsed and
// re-emitted with normalized delimiters so ragged rows do not poison the
// downstream prompt. PDFs yield their embedded text layer.
func (e *extractor) Text(filename, contentType string, data []byte) (string, error) {
	switch {
	case IsPDF(contentType, filename):
		return pdfText(data)
	case IsCSV(contentType, filename):
		return csvText(data)
	case IsText(contentType):
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
}

// DataURI encodes image bytes as a base64 data URI for vision model calls.
func (e *extractor) DataURI(contentType string, data []byte) string {
	return fmt.Sprintf(
		"data:%s;base64,%s",
		contentType,
		base64.StdEncoding.EncodeToString(data),
	)
}

// IsImage reports whether a content type denotes an image document.
func IsImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

// IsPDF reports whether a document is a PDF, by content type or extension.
func IsPDF(contentType, filename string) bool {
	return contentType == "application/pdf" ||
		strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// IsCSV reports whether a document is CSV, by content type or extension.
func IsCSV(contentType, filename string) bool {
	return contentType == "text/csv" ||
		strings.HasSuffix(strings.ToLower(filename), ".csv")
}

// IsText reports whether a content type denotes a plain text document.
func IsText(contentType string) bool {
	return strings.HasPrefix(contentType, "text/") ||
		contentType == "application/json"
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, text); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrNoText
	}

	return sb.String(), nil
}

func csvText(data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	var sb strings.Builder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse csv: %w", err)
		}
		sb.WriteString(strings.Join(record, " | "))
		sb.WriteString("\n")
	}

	if sb.Len() == 0 {
		return "", ErrNoText
	}

	return sb.String(), nil
}
