package records

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"medivault-backend/conn/conntest"
)

func TestRepositoryClaimUnowned(t *testing.T) {
	db, script := conntest.Open(t, conntest.Step{Query: "UPDATE records SET owner=? WHERE owner IS NULL OR owner=''", Affected: 3})
	n, err := NewRepository(db).ClaimUnowned(context.Background(), "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("claimed %d, want 3", n)
	}
	if got := script.Calls[0].Args; len(got) != 1 || got[0] != "a@x.com" {
		t.Fatalf("args %v", got)
	}
}

func TestRepositoryListScansNullableColumns(t *testing.T) {
	cols := []string{"id", "owner", "file_name", "stored_file_name", "file_url", "file_type", "upload_date", "issued_by", "ai_summary"}
	day := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
	db, script := conntest.Open(t, conntest.Step{
		Query:   "FROM records WHERE owner=? ORDER BY upload_date DESC",
		Columns: cols,
		Rows: [][]driver.Value{
			{"r2", "a@x.com", "cbc.pdf", "2-cbc.pdf", "http://h/uploads/2-cbc.pdf", "application/pdf", day, "Dr. Ananya", []byte(`{"diseases":[{"name":"Anemia"}],"extra":1}`)},
			{"r1", "a@x.com", "old.png", nil, "http://h/uploads/old.png", "image/png", day.AddDate(0, 0, -1), nil, nil},
		},
	})
	list, err := NewRepository(db).List(context.Background(), "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || script.Calls[0].Args[0] != "a@x.com" {
		t.Fatalf("list %+v calls %+v", list, script.Calls)
	}
	if list[0].IssuedBy != "Dr. Ananya" || list[0].AISummary.DiseaseNames()[0] != "Anemia" {
		t.Fatalf("first %+v", list[0])
	}
	if list[1].StoredFileName != "" || list[1].IssuedBy != "" || list[1].AISummary == nil {
		t.Fatalf("nullable columns %+v", list[1])
	}
}
