package dispatch

import (
	"time"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/geo"
)

// ChannelID identifies one transport connection. Sessions are keyed by
// domain id but remember the channel that owns them.
type ChannelID string

const (
	DefaultVehicleType = "Basic Life Support"
	DefaultPatientName = "Unknown Patient"
	DefaultPhone       = "Not provided"
	DefaultEmergency   = "Medical Emergency"
	DefaultCondition   = "Patient needs immediate assistance"
	defaultUserName    = "User"
)

// PatientIDFromPhone derives the stable patient id used by the login flow.
func PatientIDFromPhone(phone string) string {
	return "user_" + phone
}

type DriverSession struct {
	AmbulanceID string       `json:"ambulanceId"`
	DriverName  string       `json:"driverName"`
	Phone       string       `json:"phone"`
	VehicleType string       `json:"vehicleType"`
	Location    geo.Location `json:"location"`
	LastUpdate  time.Time    `json:"lastUpdate"`
	Channel     ChannelID    `json:"-"`
	JoinedAt    time.Time    `json:"joinedAt"`
}

// PatientInfo is the display data a patient joins with.
type PatientInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type PatientSession struct {
	PatientID  string        `json:"userId"`
	Info       PatientInfo   `json:"userData"`
	Location   *geo.Location `json:"location"`
	LastUpdate time.Time     `json:"lastUpdate"`
	Channel    ChannelID     `json:"-"`
	JoinedAt   time.Time     `json:"joinedAt"`
}

func (p *PatientSession) displayName(fallback string) string {
	if p.Info.Name != "" {
		return p.Info.Name
	}
	return fallback
}

type HospitalSession struct {
	HospitalID string       `json:"hospitalId"`
	Name       string       `json:"hospitalName"`
	Location   geo.Location `json:"location"`
	Channel    ChannelID    `json:"-"`
	JoinedAt   time.Time    `json:"joinedAt"`
}

// EmergencyStatus is the hub-visible lifecycle of an emergency.
type EmergencyStatus string

const (
	StatusPending  EmergencyStatus = "pending"
	StatusAccepted EmergencyStatus = "accepted"
)

type Emergency struct {
	ID               string          `json:"emergencyId"`
	PatientID        string          `json:"userId"`
	PatientName      string          `json:"userName"`
	Phone            string          `json:"phone"`
	Location         geo.Location    `json:"location"`
	EmergencyType    string          `json:"emergencyType"`
	PatientCondition string          `json:"patientCondition"`
	Status           EmergencyStatus `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
	AcceptedBy       *string         `json:"acceptedBy"`
	AcceptedAt       *time.Time      `json:"acceptedAt,omitempty"`
}

func (e Emergency) clone() Emergency {
	if e.AcceptedBy != nil {
		v := *e.AcceptedBy
		e.AcceptedBy = &v
	}
	if e.AcceptedAt != nil {
		v := *e.AcceptedAt
		e.AcceptedAt = &v
	}
	return e
}

// DetailsSummary is the detail payload attached to a ledger entry.
type DetailsSummary struct {
	UserName  string `json:"userName"`
	Phone     string `json:"phone"`
	Condition string `json:"condition"`
}

// PatientLocationRecord is one entry of an ambulance's patient ledger.
type PatientLocationRecord struct {
	PatientID   string          `json:"userId"`
	Location    geo.Location    `json:"location"`
	Timestamp   time.Time       `json:"timestamp"`
	PatientName string          `json:"userName"`
	Phone       string          `json:"phone"`
	PatientInfo *DetailsSummary `json:"patientInfo"`
	HasDetails  bool            `json:"hasDetails"`
}

func (r PatientLocationRecord) clone() PatientLocationRecord {
	if r.PatientInfo != nil {
		v := *r.PatientInfo
		r.PatientInfo = &v
	}
	return r
}

// PatientDetails is what a patient last submitted through the detail form,
// kept independently of any ambulance.
type PatientDetails struct {
	PatientID        string        `json:"userId"`
	PatientName      string        `json:"userName"`
	Phone            string        `json:"phone"`
	Location         *geo.Location `json:"location"`
	PatientCondition string        `json:"patientCondition"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

func (d PatientDetails) clone() PatientDetails {
	if d.Location != nil {
		v := *d.Location
		d.Location = &v
	}
	return d
}

// Counts reports table sizes.
type Counts struct {
	Drivers          int `json:"drivers"`
	Patients         int `json:"users"`
	Hospitals        int `json:"hospitals"`
	Emergencies      int `json:"emergencies"`
	TrackingPairs    int `json:"trackingPairs"`
	PatientLocations int `json:"patientLocations"`
}
