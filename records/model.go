package records

import (
	"context"
	"time"

	"medivault-backend/analyzer"
)

// Record is one uploaded document and its model-derived summary. Owner is
// empty only for legacy rows created before ownership existed.
type Record struct {
	ID             string           `json:"_id"`
	Owner          string           `json:"owner,omitempty"`
	FileName       string           `json:"fileName"`
	StoredFileName string           `json:"storedFileName,omitempty"`
	FileURL        string           `json:"fileUrl"`
	FileType       string           `json:"fileType"`
	UploadDate     time.Time        `json:"uploadDate"`
	IssuedBy       string           `json:"issuedBy,omitempty"`
	AISummary      analyzer.Summary `json:"aiSummary"`
}

// Store persists records. Get returns (nil, nil) for an unknown id.
type Store interface {
	Create(ctx context.Context, r *Record) error
	// List returns the owner's records newest first; an empty owner lists all.
	List(ctx context.Context, owner string) ([]Record, error)
	// Recent returns at most n of the owner's records, newest first.
	Recent(ctx context.Context, owner string, n int) ([]Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) (bool, error)
	// ClaimUnowned sets owner on every record lacking one.
	ClaimUnowned(ctx context.Context, owner string) (int64, error)
}
