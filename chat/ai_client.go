package chat

import (
	"context"

	"medivault-backend/records"
)

// AIClient abstracts the model client for easier mocking in unit tests.
// Only the methods the chat flows use are listed.
type AIClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
	StreamMessage(ctx context.Context, system, user string) (<-chan string, error)
}

type RecordReader interface {
	Get(ctx context.Context, id string) (*records.Record, error)
	Recent(ctx context.Context, owner string, n int) ([]records.Record, error)
}

type TextExtractor interface {
	ExtractText(ctx context.Context, path, mediaType string) (string, error)
}
