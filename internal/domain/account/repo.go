package account

import (
	"context"
	"errors"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrConflict           = errors.New("account already exists")
	ErrStoreUnavailable   = errors.New("account store unavailable")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type AmbulanceRepository interface {
	Create(ctx context.Context, a *Ambulance) error
	GetByCredentials(ctx context.Context, ambulanceID, phone string) (*Ambulance, error)
}

type UserRepository interface {
	// Touch creates the user if missing and refreshes last-active otherwise.
	Touch(ctx context.Context, u *User) (*User, error)
}

type HospitalRepository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, hospitalID string) (*Hospital, error)
	GetByLogin(ctx context.Context, hospitalID, email string) (*Hospital, error)
}

// Store groups the account repositories. A nil *Store means no database is
// configured and every lookup reports ErrStoreUnavailable.
type Store struct {
	Ambulances AmbulanceRepository
	Users      UserRepository
	Hospitals  HospitalRepository
}
