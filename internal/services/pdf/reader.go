// Package pdf reads, splits and protects payslip PDFs.
//
// Two libraries split the work: ledongthuc/pdf extracts per-page plain text
// (pure Go, no CGO), and pdfcpu handles page-level surgery — writing the
// per-employee subset documents and encrypting them.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageTexts extracts the plain text of every page of a PDF, in page order.
// A page whose text cannot be extracted (image-only, garbled operators)
// yields an empty string at its index rather than an error — the caller's
// heuristics treat it as an unattributable page.
func PageTexts(data []byte) ([]string, error) {
	reader := bytes.NewReader(data)

	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	pageCount := pdfReader.NumPage()
	texts := make([]string, 0, pageCount)

	// ledongthuc/pdf pages are 1-based
	for i := 1; i <= pageCount; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, strings.TrimSpace(text))
	}

	return texts, nil
}

// ValidatePDF checks if the data looks like a valid PDF by checking the magic bytes.
func ValidatePDF(data []byte) bool {
	// PDF files start with "%PDF-"
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}
