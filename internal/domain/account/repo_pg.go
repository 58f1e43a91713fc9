package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/geo"
)

type queryable interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// NewStorePG builds the account store on a pgx pool.
func NewStorePG(pool *pgxpool.Pool) *Store {
	return &Store{
		Ambulances: &ambulanceRepoPG{db: pool},
		Users:      &userRepoPG{db: pool},
		Hospitals:  &hospitalRepoPG{db: pool},
	}
}

// classify maps driver errors onto the package sentinels.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}

// -- Ambulance Repository --

type ambulanceRepoPG struct{ db queryable }

const ambulanceColumns = `ambulance_id, driver_name, phone, vehicle_type, status, is_active, created_at, updated_at`

func (r *ambulanceRepoPG) Create(ctx context.Context, a *Ambulance) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO ambulance (ambulance_id, driver_name, phone, vehicle_type, status, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		a.AmbulanceID, a.DriverName, a.Phone, a.VehicleType, a.Status, a.IsActive,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return classify("create ambulance", err)
}

func (r *ambulanceRepoPG) GetByCredentials(ctx context.Context, ambulanceID, phone string) (*Ambulance, error) {
	var a Ambulance
	err := r.db.QueryRow(ctx, `SELECT `+ambulanceColumns+` FROM ambulance WHERE ambulance_id = $1 AND phone = $2`,
		ambulanceID, phone,
	).Scan(&a.AmbulanceID, &a.DriverName, &a.Phone, &a.VehicleType, &a.Status, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, classify("get ambulance", err)
	}
	return &a, nil
}

// -- User Repository --

type userRepoPG struct{ db queryable }

func (r *userRepoPG) Touch(ctx context.Context, u *User) (*User, error) {
	var (
		out      User
		lat, lon *float64
	)
	err := r.db.QueryRow(ctx, `
		INSERT INTO app_user (user_id, phone, name, last_active)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE SET last_active = NOW()
		RETURNING user_id, phone, name, latitude, longitude, last_active, created_at`,
		u.UserID, u.Phone, u.Name,
	).Scan(&out.UserID, &out.Phone, &out.Name, &lat, &lon, &out.LastActive, &out.CreatedAt)
	if err != nil {
		return nil, classify("touch user", err)
	}
	out.Location = location(lat, lon)
	return &out, nil
}

// -- Hospital Repository --

type hospitalRepoPG struct{ db queryable }

const hospitalColumns = `hospital_id, name, email, password_hash, phone, address, latitude, longitude,
	departments, is_active, created_at, updated_at`

func (r *hospitalRepoPG) Create(ctx context.Context, h *Hospital) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO hospital (hospital_id, name, email, password_hash, phone, address, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		h.HospitalID, h.Name, h.Email, h.PasswordHash, h.Phone, h.Address, h.IsActive,
	).Scan(&h.CreatedAt, &h.UpdatedAt)
	return classify("create hospital", err)
}

func (r *hospitalRepoPG) GetByID(ctx context.Context, hospitalID string) (*Hospital, error) {
	return r.scan(r.db.QueryRow(ctx, `SELECT `+hospitalColumns+` FROM hospital WHERE hospital_id = $1`, hospitalID))
}

func (r *hospitalRepoPG) GetByLogin(ctx context.Context, hospitalID, email string) (*Hospital, error) {
	return r.scan(r.db.QueryRow(ctx, `SELECT `+hospitalColumns+` FROM hospital WHERE hospital_id = $1 AND email = $2`,
		hospitalID, email))
}

func (r *hospitalRepoPG) scan(row pgx.Row) (*Hospital, error) {
	var (
		h              Hospital
		phone, address *string
		lat, lon       *float64
	)
	err := row.Scan(&h.HospitalID, &h.Name, &h.Email, &h.PasswordHash, &phone, &address, &lat, &lon,
		&h.Departments, &h.IsActive, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, classify("get hospital", err)
	}
	if phone != nil {
		h.Phone = *phone
	}
	if address != nil {
		h.Address = *address
	}
	h.Location = location(lat, lon)
	return &h, nil
}

func location(lat, lon *float64) *geo.Location {
	if lat == nil || lon == nil {
		return nil
	}
	return &geo.Location{Latitude: *lat, Longitude: *lon}
}
