package files

import (
	"os"
	"strings"
	"testing"
)

func TestLocalStorage_SaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir, "http://localhost:5001/")

	sf, err := s.Save(strings.NewReader("%PDF-1.4 body"), "../../blood test.pdf")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if strings.Contains(sf.Name, "/") || !strings.HasSuffix(sf.Name, "-blood_test.pdf") {
		t.Fatalf("unexpected stored name %q", sf.Name)
	}
	if sf.URL != "http://localhost:5001/uploads/"+sf.Name {
		t.Fatalf("unexpected url %q", sf.URL)
	}
	b, err := os.ReadFile(s.Path(sf.Name))
	if err != nil || string(b) != "%PDF-1.4 body" {
		t.Fatalf("content mismatch: %q %v", b, err)
	}
	if err := s.Remove(sf.Name); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(sf.Name); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
}

func TestDetectMediaType(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir, "")
	sf, err := s.Save(strings.NewReader("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n"), "noext")
	if err != nil {
		t.Fatal(err)
	}
	if got := DetectMediaType(sf.Path, "application/octet-stream"); got != "application/pdf" {
		t.Fatalf("sniffed %q", got)
	}
	if got := DetectMediaType(sf.Path, "Image/JPEG; charset=binary"); got != "image/jpeg" {
		t.Fatalf("declared type should win, got %q", got)
	}
}
