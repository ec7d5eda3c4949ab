package files

import (
	"bytes"
	"fmt"

	pdf "rsc.io/pdf"
)

// ExtractPDFText opens a PDF at filePath and returns the text of its text
// layer, page by page. Scanned documents have no text layer and yield "".
// maxChars <= 0 means no limit.
func ExtractPDFText(filePath string, maxChars int) (text string, err error) {
	// rsc.io/pdf panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parse: %v", r)
		}
	}()

	r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	total := r.NumPage()
	for pageIndex := 1; pageIndex <= total; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}
		for _, t := range p.Content().Text {
			buf.WriteString(t.S)
		}
		buf.WriteString("\n\n")
		if maxChars > 0 && buf.Len() >= maxChars {
			break
		}
	}
	return truncateRunes(buf.String(), maxChars), nil
}

// truncateRunes cuts s to at most n runes without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Truncate is exported for callers that bound prompt sizes.
func Truncate(s string, n int) string { return truncateRunes(s, n) }
