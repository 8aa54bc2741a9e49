// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package input

import (
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// extractPDF extracts the plain text of every page, with form feeds as
// page separators. Pages that fail extraction are skipped.
func extractPDF(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}
