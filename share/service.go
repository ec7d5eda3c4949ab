package share

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"medivault-backend/accounts"
	"medivault-backend/records"
)

// DefaultTTL is the validity window of a new link.
const DefaultTTL = 15 * time.Minute

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrNotFound        = errors.New("invalid link")
	ErrExpired         = errors.New("link expired")
)

type AccountReader interface {
	GetByEmail(ctx context.Context, email string) (*accounts.Account, error)
	GetByID(ctx context.Context, id string) (*accounts.Account, error)
}

type RecordLister interface {
	List(ctx context.Context, owner string) ([]records.Record, error)
}

// PatientValues is the medical profile subset exposed through a link.
type PatientValues struct {
	BloodGroup       string `json:"bloodGroup"`
	Allergies        string `json:"allergies"`
	EmergencyContact string `json:"emergencyContact"`
}

// Redemption is read live at redemption time, never from a snapshot.
type Redemption struct {
	PatientName   string
	PatientValues PatientValues
	Records       []records.Record
}

type Service struct {
	Store    Store
	Accounts AccountReader
	Records  RecordLister
	TTL      time.Duration
	Now      func() time.Time
}

func NewService(store Store, acc AccountReader, recs RecordLister, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{Store: store, Accounts: acc, Records: recs, TTL: ttl, Now: time.Now}
}

// NewToken returns 16 random bytes, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *Service) Issue(ctx context.Context, patientEmail string) (*Link, error) {
	acc, err := s.Accounts.GetByEmail(ctx, patientEmail)
	if err != nil {
		return nil, fmt.Errorf("lookup patient: %w", err)
	}
	if acc == nil || acc.Role != accounts.RolePatient {
		return nil, ErrPatientNotFound
	}
	token, err := NewToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	now := s.Now().UTC()
	l := &Link{
		Token:       token,
		PatientID:   acc.ID,
		PatientName: acc.Name,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.TTL),
	}
	if err := s.Store.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("store link: %w", err)
	}
	return l, nil
}

// Redeem resolves a token to the patient's current profile and records.
// Expired links are rejected with ErrExpired.
func (s *Service) Redeem(ctx context.Context, token string) (*Redemption, error) {
	l, err := s.Store.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup link: %w", err)
	}
	if l == nil {
		return nil, ErrNotFound
	}
	if l.Expired(s.Now()) {
		return nil, ErrExpired
	}
	acc, err := s.Accounts.GetByID(ctx, l.PatientID)
	if err != nil {
		return nil, fmt.Errorf("lookup patient: %w", err)
	}
	if acc == nil {
		return nil, ErrPatientNotFound
	}
	recs, err := s.Records.List(ctx, acc.Email)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return &Redemption{
		PatientName: acc.Name,
		PatientValues: PatientValues{
			BloodGroup:       acc.BloodGroup,
			Allergies:        acc.Allergies,
			EmergencyContact: acc.EmergencyContact,
		},
		Records: recs,
	}, nil
}
