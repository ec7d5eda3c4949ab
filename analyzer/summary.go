package analyzer

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Summary is the model-derived metadata stored on a record. The model decides
// the shape, so every key is optional and values pass through uncorrected.
// Only the documented top-level keys survive Normalize.
type Summary map[string]any

var documentedKeys = map[string]bool{
	"hospitalVisits":   true,
	"medicines":        true,
	"diseases":         true,
	"tests":            true,
	"clinicalAnalysis": true,
}

// Normalize drops undocumented top-level keys. A nil input yields an empty,
// non-nil summary.
func Normalize(m map[string]any) Summary {
	out := Summary{}
	for k, v := range m {
		if documentedKeys[k] {
			out[k] = v
		}
	}
	return out
}

var jsonRe = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON returns the text between the first '{' and the last '}', or ""
// when the reply has no brace pair.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	return jsonRe.FindString(s)
}

// ParseSummary parses a raw model reply. No braces means nothing was
// extracted and yields an empty summary; invalid JSON is an error.
func ParseSummary(raw string) (Summary, error) {
	obj := ExtractJSON(raw)
	if obj == "" {
		return Summary{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		return nil, fmt.Errorf("parse summary: %w", err)
	}
	return Normalize(m), nil
}

// DiseaseNames lists diseases[].name, skipping malformed entries.
func (s Summary) DiseaseNames() []string { return s.names("diseases") }

// MedicineNames lists medicines[].name, skipping malformed entries.
func (s Summary) MedicineNames() []string { return s.names("medicines") }

func (s Summary) names(key string) []string {
	if s == nil {
		return nil
	}
	list, ok := s[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := m["name"].(string); ok && strings.TrimSpace(name) != "" {
			out = append(out, name)
		}
	}
	return out
}

// ClinicalAnalysis returns the free-text analysis, or "".
func (s Summary) ClinicalAnalysis() string {
	v, _ := s["clinicalAnalysis"].(string)
	return v
}

// Value stores the summary as a JSON column.
func (s Summary) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a JSON column written by Value. NULL becomes an empty summary.
func (s *Summary) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*s = Summary{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("summary: unsupported column type")
	}
	if len(b) == 0 {
		*s = Summary{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*s = Normalize(m)
	return nil
}
