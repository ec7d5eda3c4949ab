package share

import (
	"context"
	"time"
)

// Link binds an opaque token to a patient for a fixed window. PatientName is
// the display name at issuance and is informational only; redemption reads
// the live profile.
type Link struct {
	Token       string    `json:"token" bson:"token"`
	PatientID   string    `json:"patientId" bson:"patientId"`
	PatientName string    `json:"patientName" bson:"patientName"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt" bson:"expiresAt"`
}

// Expired reports whether the link is past its window at now.
func (l *Link) Expired(now time.Time) bool { return now.After(l.ExpiresAt) }

// Store persists links. GetByToken returns (nil, nil) for an unknown token.
type Store interface {
	Create(ctx context.Context, l *Link) error
	GetByToken(ctx context.Context, token string) (*Link, error)
}
