// Package parser provides document parsing adapters implementing ports.DocumentParser.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts plain text from PDF documents.
type PDFParser struct{}

// NewPDFParser creates a new PDF parser.
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse extracts the text of every page, in page order.
func (p *PDFParser) Parse(ctx context.Context, data []byte, filename string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// The pdf package panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing %s: malformed PDF: %v", filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", filename, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", filename, err)
	}
	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("reading text of %s: %w", filename, err)
	}
	return cleanPDFContent(buf.String()), nil
}

// SupportedFormats returns formats this parser handles.
func (p *PDFParser) SupportedFormats() []string {
	return []string{"pdf"}
}

// cleanPDFContent drops control characters left by text extraction.
func cleanPDFContent(content string) string {
	var cleaned strings.Builder
	for _, r := range content {
		if r >= 32 && r != 127 || r == '\n' || r == '\t' {
			cleaned.WriteRune(r)
		}
	}
	return strings.TrimSpace(cleaned.String())
}
