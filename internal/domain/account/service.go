package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/dispatch"
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/platform/auth"
)

// Values reported for a driver whose login was accepted without a lookup.
const (
	fallbackDriverName  = "Siva"
	fallbackVehicleType = "Advanced Life Support"
)

// Tokens signs login sessions. *auth.TokenIssuer satisfies it.
type Tokens interface {
	Issue(kind auth.Kind, subject, name string, fallback bool) (string, time.Time, error)
}

type Service struct {
	store    *Store
	tokens   Tokens
	fallback bool
	cost     int
	now      func() time.Time
	logger   zerolog.Logger
}

type Option func(*Service)

// WithFallback accepts well-formed credentials when the store cannot be
// reached. Such responses are flagged.
func WithFallback(enabled bool) Option { return func(s *Service) { s.fallback = enabled } }

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option { return func(s *Service) { s.cost = cost } }

func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService builds the account service. store may be nil when no
// database is configured.
func NewService(store *Store, tokens Tokens, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func required(fields ...string) error {
	var missing []string
	for i := 0; i+1 < len(fields); i += 2 {
		if strings.TrimSpace(fields[i+1]) == "" {
			missing = append(missing, fields[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// degraded reports whether err should be answered from the fallback path.
func (s *Service) degraded(op string, err error) bool {
	if !s.fallback || !errors.Is(err, ErrStoreUnavailable) {
		return false
	}
	s.logger.Warn().Err(err).Str("op", op).Msg("account store unavailable, using fallback")
	return true
}

func (s *Service) ambulances() (AmbulanceRepository, error) {
	if s.store == nil || s.store.Ambulances == nil {
		return nil, fmt.Errorf("%w: not configured", ErrStoreUnavailable)
	}
	return s.store.Ambulances, nil
}

func (s *Service) users() (UserRepository, error) {
	if s.store == nil || s.store.Users == nil {
		return nil, fmt.Errorf("%w: not configured", ErrStoreUnavailable)
	}
	return s.store.Users, nil
}

func (s *Service) hospitals() (HospitalRepository, error) {
	if s.store == nil || s.store.Hospitals == nil {
		return nil, fmt.Errorf("%w: not configured", ErrStoreUnavailable)
	}
	return s.store.Hospitals, nil
}

// -- Drivers --

// RegisterDriver creates an ambulance account. The bool reports a fallback
// answer that was not persisted.
func (s *Service) RegisterDriver(ctx context.Context, req RegisterDriverRequest) (*Ambulance, bool, error) {
	if err := required("ambulanceId", req.AmbulanceID, "driverName", req.DriverName, "phone", req.Phone); err != nil {
		return nil, false, err
	}
	if req.VehicleType == "" {
		req.VehicleType = dispatch.DefaultVehicleType
	}
	a := &Ambulance{
		AmbulanceID: req.AmbulanceID,
		DriverName:  req.DriverName,
		Phone:       req.Phone,
		VehicleType: req.VehicleType,
		Status:      AmbulanceOffline,
		IsActive:    true,
	}

	repo, err := s.ambulances()
	if err == nil {
		err = repo.Create(ctx, a)
	}
	if err != nil {
		if s.degraded("register driver", err) {
			now := s.now()
			a.CreatedAt, a.UpdatedAt = now, now
			return a, true, nil
		}
		return nil, false, err
	}
	s.logger.Info().Str("ambulance_id", a.AmbulanceID).Msg("driver registered")
	return a, false, nil
}

func (s *Service) LoginDriver(ctx context.Context, req DriverLoginRequest) (*Ambulance, *Session, error) {
	if err := required("ambulanceId", req.AmbulanceID, "phone", req.Phone); err != nil {
		return nil, nil, err
	}

	repo, err := s.ambulances()
	var a *Ambulance
	if err == nil {
		a, err = repo.GetByCredentials(ctx, req.AmbulanceID, req.Phone)
	}
	fallback := false
	if err != nil {
		if !s.degraded("login driver", err) {
			return nil, nil, err
		}
		fallback = true
		a = &Ambulance{
			AmbulanceID: req.AmbulanceID,
			DriverName:  fallbackDriverName,
			Phone:       req.Phone,
			VehicleType: fallbackVehicleType,
			Status:      AmbulanceOffline,
			IsActive:    true,
		}
	}

	sess, err := s.session(auth.KindDriver, a.AmbulanceID, a.DriverName, fallback)
	if err != nil {
		return nil, nil, err
	}
	return a, sess, nil
}

// -- Users --

// LoginUser finds or creates the patient account for a phone number.
func (s *Service) LoginUser(ctx context.Context, req UserLoginRequest) (*User, *Session, error) {
	if err := required("phone", req.Phone); err != nil {
		return nil, nil, err
	}
	name := req.Name
	if name == "" {
		name = "User"
	}
	u := &User{UserID: dispatch.PatientIDFromPhone(req.Phone), Phone: req.Phone, Name: name}

	repo, err := s.users()
	var stored *User
	if err == nil {
		stored, err = repo.Touch(ctx, u)
	}
	fallback := false
	switch {
	case err == nil:
		u = stored
	case s.degraded("login user", err):
		fallback = true
		u.LastActive = s.now()
	default:
		return nil, nil, err
	}

	sess, err := s.session(auth.KindPatient, u.UserID, u.Name, fallback)
	if err != nil {
		return nil, nil, err
	}
	return u, sess, nil
}

// -- Hospitals --

func (s *Service) RegisterHospital(ctx context.Context, req RegisterHospitalRequest) (*Hospital, bool, error) {
	if err := required("hospitalId", req.HospitalID, "name", req.Name, "email", req.Email, "password", req.Password); err != nil {
		return nil, false, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}
	h := &Hospital{
		HospitalID:   req.HospitalID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Phone:        req.Phone,
		Address:      req.Address,
		IsActive:     true,
	}

	repo, err := s.hospitals()
	if err == nil {
		err = repo.Create(ctx, h)
	}
	if err != nil {
		if s.degraded("register hospital", err) {
			now := s.now()
			h.CreatedAt, h.UpdatedAt = now, now
			return h, true, nil
		}
		return nil, false, err
	}
	s.logger.Info().Str("hospital_id", h.HospitalID).Msg("hospital registered")
	return h, false, nil
}

func (s *Service) LoginHospital(ctx context.Context, req HospitalLoginRequest) (*Hospital, *Session, error) {
	if err := required("hospitalId", req.HospitalID, "email", req.Email, "password", req.Password); err != nil {
		return nil, nil, err
	}

	repo, err := s.hospitals()
	var h *Hospital
	if err == nil {
		h, err = repo.GetByLogin(ctx, req.HospitalID, req.Email)
	}
	fallback := false
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(h.PasswordHash), []byte(req.Password)) != nil {
			return nil, nil, ErrInvalidCredentials
		}
	case s.degraded("login hospital", err):
		fallback = true
		h = &Hospital{HospitalID: req.HospitalID, Email: req.Email, IsActive: true}
	default:
		return nil, nil, err
	}

	sess, err := s.session(auth.KindHospital, h.HospitalID, h.Name, fallback)
	if err != nil {
		return nil, nil, err
	}
	return h, sess, nil
}

// GetHospital returns the stored profile. The bool reports a fallback
// answer carrying only the id.
func (s *Service) GetHospital(ctx context.Context, hospitalID string) (*Hospital, bool, error) {
	if err := required("hospitalId", hospitalID); err != nil {
		return nil, false, err
	}
	repo, err := s.hospitals()
	var h *Hospital
	if err == nil {
		h, err = repo.GetByID(ctx, hospitalID)
	}
	if err != nil {
		if s.degraded("get hospital", err) {
			return &Hospital{HospitalID: hospitalID, IsActive: true}, true, nil
		}
		return nil, false, err
	}
	return h, false, nil
}

func (s *Service) session(kind auth.Kind, subject, name string, fallback bool) (*Session, error) {
	token, exp, err := s.tokens.Issue(kind, subject, name, fallback)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("kind", string(kind)).Str("subject", subject).Bool("fallback", fallback).Msg("login")
	return &Session{Token: token, ExpiresAt: exp, Fallback: fallback}, nil
}
