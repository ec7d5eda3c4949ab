package accounts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ValidationError is a client mistake in a signup payload.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

type Service struct {
	Store Store
	Cost  int
}

func NewService(store Store, cost int) *Service {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{Store: store, Cost: cost}
}

func HashPassword(pw string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Register validates the payload, rejects a known email and stores a new
// account with a hashed password. The existence check and insert are not
// atomic; the unique index on email turns a lost race into ErrDuplicateEmail.
func (s *Service) Register(ctx context.Context, in Signup) (*Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = RolePatient
	}
	switch {
	case in.Name == "":
		return nil, &ValidationError{"Name is required"}
	case in.Email == "":
		return nil, &ValidationError{"Email is required"}
	case in.Password == "":
		return nil, &ValidationError{"Password is required"}
	case len(in.Password) > 72:
		return nil, &ValidationError{"Password must be at most 72 bytes"}
	case role != RolePatient && role != RoleDoctor:
		return nil, &ValidationError{"Role must be doctor or patient"}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, &ValidationError{"Email is not valid"}
	}

	exists, err := s.Store.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrDuplicateEmail
	}
	hash, err := HashPassword(in.Password, s.Cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &Account{
		ID:         uuid.NewString(),
		Email:      in.Email,
		Password:   hash,
		Role:       role,
		Name:       in.Name,
		JoinedDate: time.Now().UTC(),
	}
	if role == RolePatient {
		a.BloodGroup, a.Allergies, a.EmergencyContact = in.BloodGroup, in.Allergies, in.EmergencyContact
	} else {
		a.Specialization, a.Affiliation, a.LicenseNumber = in.Specialization, in.Affiliation, in.LicenseNumber
	}
	if err := s.Store.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Authenticate returns the account when the password matches its hash.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	a, err := s.Store.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if a == nil || !CheckPassword(a.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

var demoAccounts = []Signup{
	{Name: "Dr. Ananya", Email: "admin@medivault.ai", Password: "admin123", Role: RoleDoctor, Specialization: "General Medicine"},
	{Name: "Kavya Suma", Email: "patient@medivault.ai", Password: "patient123", Role: RolePatient},
}

// SeedDemo creates the two demo logins when they are missing.
func (s *Service) SeedDemo(ctx context.Context) (int, error) {
	created := 0
	for _, d := range demoAccounts {
		_, err := s.Register(ctx, d)
		if errors.Is(err, ErrDuplicateEmail) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", d.Email, err)
		}
		log.Printf("[ACCOUNTS][SEED] created %s (%s)", d.Email, d.Role)
		created++
	}
	return created, nil
}
