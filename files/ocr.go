package files

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// TesseractOCR shells out to the tesseract binary and reads the result from
// stdout.
type TesseractOCR struct {
	Bin  string
	Lang string
}

func NewTesseractOCR(bin string) *TesseractOCR {
	if bin == "" {
		bin = "tesseract"
	}
	return &TesseractOCR{Bin: bin, Lang: "eng"}
}

func (t *TesseractOCR) Recognize(ctx context.Context, path, _ string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Bin, path, "stdout", "-l", t.Lang)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", t.Bin, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
