package files

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectMediaType keeps a meaningful declared type and otherwise sniffs the
// file content. Browsers often send application/octet-stream for scans.
func DetectMediaType(path, declared string) string {
	declared = strings.TrimSpace(strings.ToLower(declared))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	m, err := mimetype.DetectFile(path)
	if err != nil {
		if declared != "" {
			return declared
		}
		return "application/octet-stream"
	}
	return m.String()
}
