package account

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/platform/auth"
)

// -- Mock Repositories --

type mockAmbulanceRepo struct {
	ambulances map[string]*Ambulance
	err        error
}

func newMockAmbulanceRepo() *mockAmbulanceRepo {
	return &mockAmbulanceRepo{ambulances: make(map[string]*Ambulance)}
}

func (m *mockAmbulanceRepo) Create(_ context.Context, a *Ambulance) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.ambulances[a.AmbulanceID]; ok {
		return fmt.Errorf("create ambulance: %w", ErrConflict)
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.ambulances[a.AmbulanceID] = a
	return nil
}

func (m *mockAmbulanceRepo) GetByCredentials(_ context.Context, ambulanceID, phone string) (*Ambulance, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.ambulances[ambulanceID]
	if !ok || a.Phone != phone {
		return nil, ErrNotFound
	}
	return a, nil
}

type mockUserRepo struct {
	users   map[string]*User
	touches int
	err     error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*User)}
}

func (m *mockUserRepo) Touch(_ context.Context, u *User) (*User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.touches++
	existing, ok := m.users[u.UserID]
	if !ok {
		cp := *u
		cp.CreatedAt = time.Now()
		existing = &cp
		m.users[u.UserID] = existing
	}
	existing.LastActive = time.Now()
	out := *existing
	return &out, nil
}

type mockHospitalRepo struct {
	hospitals map[string]*Hospital
	err       error
}

func newMockHospitalRepo() *mockHospitalRepo {
	return &mockHospitalRepo{hospitals: make(map[string]*Hospital)}
}

func (m *mockHospitalRepo) Create(_ context.Context, h *Hospital) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.hospitals[h.HospitalID]; ok {
		return fmt.Errorf("create hospital: %w", ErrConflict)
	}
	m.hospitals[h.HospitalID] = h
	return nil
}

func (m *mockHospitalRepo) GetByID(_ context.Context, id string) (*Hospital, error) {
	if m.err != nil {
		return nil, m.err
	}
	h, ok := m.hospitals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return h, nil
}

func (m *mockHospitalRepo) GetByLogin(ctx context.Context, id, email string) (*Hospital, error) {
	h, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.Email != email {
		return nil, ErrNotFound
	}
	return h, nil
}

type fixture struct {
	svc        *Service
	tokens     *auth.TokenIssuer
	ambulances *mockAmbulanceRepo
	users      *mockUserRepo
	hospitals  *mockHospitalRepo
}

var errDown = fmt.Errorf("dial tcp: %w", ErrStoreUnavailable)

func newFixture(t *testing.T, fallback bool) *fixture {
	t.Helper()
	tokens, err := auth.NewTokenIssuer([]byte("account-tests-signing-key-0123456789"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	f := &fixture{
		tokens:     tokens,
		ambulances: newMockAmbulanceRepo(),
		users:      newMockUserRepo(),
		hospitals:  newMockHospitalRepo(),
	}
	store := &Store{Ambulances: f.ambulances, Users: f.users, Hospitals: f.hospitals}
	f.svc = NewService(store, tokens, WithFallback(fallback), WithBcryptCost(bcrypt.MinCost))
	return f
}

func (f *fixture) storeDown() {
	f.ambulances.err = errDown
	f.users.err = errDown
	f.hospitals.err = errDown
}

func (f *fixture) claims(t *testing.T, sess *Session) *auth.Claims {
	t.Helper()
	claims, err := f.tokens.Parse(sess.Token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return claims
}

// -- Driver tests --

func TestService_RegisterDriver(t *testing.T) {
	f := newFixture(t, true)
	a, fallback, err := f.svc.RegisterDriver(context.Background(), RegisterDriverRequest{
		AmbulanceID: "AMB-001", DriverName: "Siva", Phone: "98400",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fallback {
		t.Error("expected a persisted registration")
	}
	if a.VehicleType != "Basic Life Support" || a.Status != AmbulanceOffline {
		t.Errorf("defaults not applied: %+v", a)
	}
	if _, ok := f.ambulances.ambulances["AMB-001"]; !ok {
		t.Error("expected ambulance in store")
	}
}

func TestService_RegisterDriver_Validation(t *testing.T) {
	f := newFixture(t, true)
	_, _, err := f.svc.RegisterDriver(context.Background(), RegisterDriverRequest{AmbulanceID: "AMB-001"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_RegisterDriver_Duplicate(t *testing.T) {
	f := newFixture(t, true)
	req := RegisterDriverRequest{AmbulanceID: "AMB-001", DriverName: "Siva", Phone: "98400"}
	if _, _, err := f.svc.RegisterDriver(context.Background(), req); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, _, err := f.svc.RegisterDriver(context.Background(), req); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestService_LoginDriver(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	if _, _, err := f.svc.RegisterDriver(ctx, RegisterDriverRequest{AmbulanceID: "AMB-001", DriverName: "Kumar", Phone: "98400"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	a, sess, err := f.svc.LoginDriver(ctx, DriverLoginRequest{AmbulanceID: "AMB-001", Phone: "98400"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if a.DriverName != "Kumar" || sess.Fallback {
		t.Errorf("unexpected login result: %+v %+v", a, sess)
	}
	claims := f.claims(t, sess)
	if claims.Kind != auth.KindDriver || claims.Subject != "AMB-001" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	if _, _, err := f.svc.LoginDriver(ctx, DriverLoginRequest{AmbulanceID: "AMB-001", Phone: "11111"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for wrong phone, got %v", err)
	}
}

func TestService_LoginDriver_Fallback(t *testing.T) {
	f := newFixture(t, true)
	f.storeDown()

	a, sess, err := f.svc.LoginDriver(context.Background(), DriverLoginRequest{AmbulanceID: "AMB-009", Phone: "98400"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sess.Fallback || a.AmbulanceID != "AMB-009" || a.VehicleType != fallbackVehicleType {
		t.Errorf("unexpected fallback login: %+v %+v", a, sess)
	}
	if !f.claims(t, sess).Fallback {
		t.Error("token should carry the fallback flag")
	}
}

func TestService_FallbackDisabled(t *testing.T) {
	f := newFixture(t, false)
	f.storeDown()

	if _, _, err := f.svc.LoginDriver(context.Background(), DriverLoginRequest{AmbulanceID: "AMB-001", Phone: "98400"}); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestService_NoStoreConfigured(t *testing.T) {
	f := newFixture(t, true)
	svc := NewService(nil, f.tokens, WithFallback(true))

	u, sess, err := svc.LoginUser(context.Background(), UserLoginRequest{Phone: "555"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sess.Fallback || u.UserID != "user_555" || u.Name != "User" {
		t.Errorf("unexpected fallback user: %+v", u)
	}

	strict := NewService(nil, f.tokens)
	if _, _, err := strict.GetHospital(context.Background(), "HOSP-001"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

// -- User tests --

func TestService_LoginUser_FindOrCreate(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	u, sess, err := f.svc.LoginUser(ctx, UserLoginRequest{Phone: "555", Name: "Ravi"})
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if u.UserID != "user_555" || u.Name != "Ravi" {
		t.Errorf("unexpected user: %+v", u)
	}
	if c := f.claims(t, sess); c.Kind != auth.KindPatient || c.Subject != "user_555" {
		t.Errorf("unexpected claims: %+v", c)
	}

	u, _, err = f.svc.LoginUser(ctx, UserLoginRequest{Phone: "555", Name: "Someone Else"})
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if u.Name != "Ravi" {
		t.Errorf("existing user should keep its name, got %q", u.Name)
	}
	if len(f.users.users) != 1 || f.users.touches != 2 {
		t.Errorf("expected one user touched twice, got %d users %d touches", len(f.users.users), f.users.touches)
	}
}

func TestService_LoginUser_RequiresPhone(t *testing.T) {
	f := newFixture(t, true)
	if _, _, err := f.svc.LoginUser(context.Background(), UserLoginRequest{Name: "Ravi"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

// -- Hospital tests --

func registerHospital(t *testing.T, f *fixture) {
	t.Helper()
	_, _, err := f.svc.RegisterHospital(context.Background(), RegisterHospitalRequest{
		HospitalID: "HOSP-001", Name: "City Medical Center", Email: "er@city.example", Password: "s3cret",
	})
	if err != nil {
		t.Fatalf("register hospital: %v", err)
	}
}

func TestService_RegisterHospital_HashesPassword(t *testing.T) {
	f := newFixture(t, true)
	registerHospital(t, f)

	stored := f.hospitals.hospitals["HOSP-001"]
	if stored.PasswordHash == "s3cret" || stored.PasswordHash == "" {
		t.Fatalf("password stored in clear: %q", stored.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
}

func TestService_LoginHospital(t *testing.T) {
	f := newFixture(t, true)
	registerHospital(t, f)
	ctx := context.Background()

	h, sess, err := f.svc.LoginHospital(ctx, HospitalLoginRequest{HospitalID: "HOSP-001", Email: "er@city.example", Password: "s3cret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if h.Name != "City Medical Center" {
		t.Errorf("unexpected hospital: %+v", h)
	}
	if c := f.claims(t, sess); c.Kind != auth.KindHospital || c.Name != "City Medical Center" {
		t.Errorf("unexpected claims: %+v", c)
	}

	_, _, err = f.svc.LoginHospital(ctx, HospitalLoginRequest{HospitalID: "HOSP-001", Email: "er@city.example", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	_, _, err = f.svc.LoginHospital(ctx, HospitalLoginRequest{HospitalID: "HOSP-001", Email: "other@city.example", Password: "s3cret"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_GetHospital(t *testing.T) {
	f := newFixture(t, true)
	registerHospital(t, f)

	h, fallback, err := f.svc.GetHospital(context.Background(), "HOSP-001")
	if err != nil || fallback || h.Email != "er@city.example" {
		t.Fatalf("GetHospital = %+v, %v, %v", h, fallback, err)
	}
	if _, _, err := f.svc.GetHospital(context.Background(), "HOSP-404"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	f.storeDown()
	h, fallback, err = f.svc.GetHospital(context.Background(), "HOSP-001")
	if err != nil || !fallback || h.HospitalID != "HOSP-001" {
		t.Errorf("fallback GetHospital = %+v, %v, %v", h, fallback, err)
	}
}
