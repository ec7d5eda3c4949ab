package notifications

import (
	"context"
	"time"
)

const (
	TypeInfo    = "info"
	TypeSuccess = "success"
)

type Notification struct {
	ID        string    `json:"_id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Message   string    `json:"message" bson:"message"`
	Type      string    `json:"type" bson:"type"`
	Read      bool      `json:"read" bson:"read"`
	Owner     string    `json:"owner" bson:"owner"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Store persists notifications. Get returns (nil, nil) for an unknown id.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	// ListByOwner returns newest first.
	ListByOwner(ctx context.Context, owner string) ([]Notification, error)
	Get(ctx context.Context, id string) (*Notification, error)
	// MarkRead sets read=true and reports whether the id exists.
	MarkRead(ctx context.Context, id string) (bool, error)
}
