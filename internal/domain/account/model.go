package account

import (
	"time"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/geo"
)

// Ambulance is a registered driver account, keyed by ambulance id.
type Ambulance struct {
	AmbulanceID string    `json:"ambulanceId"`
	DriverName  string    `json:"driverName"`
	Phone       string    `json:"phone"`
	VehicleType string    `json:"vehicleType"`
	Status      string    `json:"status"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Ambulance availability as stored on the account row.
const (
	AmbulanceAvailable = "available"
	AmbulanceOnDuty    = "on-duty"
	AmbulanceBusy      = "busy"
	AmbulanceOffline   = "offline"
)

// User is a patient account. The id is derived from the phone number.
type User struct {
	UserID     string        `json:"userId"`
	Phone      string        `json:"phone"`
	Name       string        `json:"name"`
	Location   *geo.Location `json:"location,omitempty"`
	LastActive time.Time     `json:"lastActive"`
	CreatedAt  time.Time     `json:"createdAt"`
}

type Hospital struct {
	HospitalID   string        `json:"hospitalId"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Phone        string        `json:"phone,omitempty"`
	Address      string        `json:"address,omitempty"`
	Location     *geo.Location `json:"location,omitempty"`
	Departments  []string      `json:"departments,omitempty"`
	IsActive     bool          `json:"isActive"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

type RegisterDriverRequest struct {
	AmbulanceID string `json:"ambulanceId"`
	DriverName  string `json:"driverName"`
	Phone       string `json:"phone"`
	VehicleType string `json:"vehicleType"`
}

type DriverLoginRequest struct {
	AmbulanceID string `json:"ambulanceId"`
	Phone       string `json:"phone"`
}

type UserLoginRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

type RegisterHospitalRequest struct {
	HospitalID string `json:"hospitalId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

type HospitalLoginRequest struct {
	HospitalID string `json:"hospitalId"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Fallback  bool      `json:"-"`
}
