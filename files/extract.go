package files

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// MinPDFTextChars is the shortest text layer still treated as a readable PDF.
const MinPDFTextChars = 50

var (
	// ErrScannedPDF marks a PDF without a usable text layer. It is a distinct
	// outcome from a failed extraction: uploads reject it with 422.
	ErrScannedPDF = errors.New("scanned pdf: no extractable text")
	// ErrFileMissing is returned when the stored file is gone.
	ErrFileMissing = errors.New("file not found")
)

// OCR recognizes text in an image file.
type OCR interface {
	Recognize(ctx context.Context, path, mediaType string) (string, error)
}

// Extractor turns a stored file into raw text. PDFs go through the text layer,
// everything else is treated as an image and sent to OCR.
type Extractor struct {
	OCR OCR
	// PDF is swappable in tests; defaults to ExtractPDFText without a limit.
	PDF func(path string) (string, error)
}

func NewExtractor(ocr OCR) *Extractor {
	return &Extractor{
		OCR: ocr,
		PDF: func(path string) (string, error) { return ExtractPDFText(path, 0) },
	}
}

// IsPDF reports whether the declared media type or the file name says PDF.
func IsPDF(path, mediaType string) bool {
	return strings.Contains(strings.ToLower(mediaType), "pdf") || strings.HasSuffix(strings.ToLower(path), ".pdf")
}

// ExtractText returns the text of the file at path. A PDF whose text is
// shorter than MinPDFTextChars yields ErrScannedPDF; images return whatever
// OCR recovers, possibly "". Any other failure is returned wrapped with "".
func (e *Extractor) ExtractText(ctx context.Context, path, mediaType string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileMissing, path)
		}
		return "", err
	}

	if IsPDF(path, mediaType) {
		text, err := e.PDF(path)
		if err != nil {
			return "", fmt.Errorf("extract pdf text: %w", err)
		}
		if len([]rune(strings.TrimSpace(text))) < MinPDFTextChars {
			return "", ErrScannedPDF
		}
		return text, nil
	}

	if e.OCR == nil {
		return "", errors.New("no OCR engine configured")
	}
	text, err := e.OCR.Recognize(ctx, path, mediaType)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}
