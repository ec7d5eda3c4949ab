package accounts

import (
	"context"
	"errors"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Store persists accounts. Lookups return (nil, nil) when nothing matches.
type Store interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, a *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	Update(ctx context.Context, a *Account) error
	ListByRole(ctx context.Context, role string) ([]Account, error)
}
