package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/geo"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound is the closed set of events a participant can send.
type Inbound interface {
	EventName() string
	validate() error
}

// Timestamp accepts an RFC3339 string or unix milliseconds. Anything else
// decodes to the zero time, which handlers replace with the current time.
type Timestamp struct{ time.Time }

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.Time = parsed
		}
		return nil
	}
	if ms, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		t.Time = time.UnixMilli(ms)
	}
	return nil
}

func (t Timestamp) or(now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.Time
}

func require(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: missing %s", ErrInvalidPayload, field)
	}
	return nil
}

type DriverJoin struct {
	AmbulanceID string        `json:"ambulanceId"`
	DriverName  string        `json:"driverName"`
	Phone       string        `json:"phone"`
	VehicleType string        `json:"vehicleType"`
	Location    *geo.Location `json:"location"`
}

func (DriverJoin) EventName() string { return "driver-join" }
func (e DriverJoin) validate() error { return require("ambulanceId", e.AmbulanceID) }

type DriverLocationUpdate struct {
	AmbulanceID string    `json:"ambulanceId"`
	DriverName  string    `json:"driverName"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Timestamp   Timestamp `json:"timestamp"`
}

func (DriverLocationUpdate) EventName() string { return "driver-location-update" }
func (e DriverLocationUpdate) validate() error { return require("ambulanceId", e.AmbulanceID) }

type PatientJoin struct {
	PatientID string      `json:"userId"`
	Info      PatientInfo `json:"userData"`
}

func (PatientJoin) EventName() string { return "patient-join" }

func (e PatientJoin) validate() error {
	if e.PatientID == "" && e.Info.Phone == "" {
		return fmt.Errorf("%w: missing userId", ErrInvalidPayload)
	}
	return nil
}

type PatientLocationUpdate struct {
	PatientID   string    `json:"userId"`
	AmbulanceID string    `json:"ambulanceId"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Timestamp   Timestamp `json:"timestamp"`
}

func (PatientLocationUpdate) EventName() string { return "patient-location-update" }
func (e PatientLocationUpdate) validate() error { return require("userId", e.PatientID) }

type ShareLocation struct {
	PatientID   string    `json:"userId"`
	AmbulanceID string    `json:"ambulanceId"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Timestamp   Timestamp `json:"timestamp"`
}

func (ShareLocation) EventName() string { return "share-location-with-driver" }

func (e ShareLocation) validate() error {
	if err := require("userId", e.PatientID); err != nil {
		return err
	}
	return require("ambulanceId", e.AmbulanceID)
}

type PatientDetailsUpdate struct {
	PatientID        string        `json:"userId"`
	AmbulanceID      string        `json:"ambulanceId"`
	PatientName      string        `json:"userName"`
	Phone            string        `json:"phone"`
	Location         *geo.Location `json:"location"`
	PatientCondition string        `json:"patientCondition"`
}

func (PatientDetailsUpdate) EventName() string { return "patient-details-update" }
func (e PatientDetailsUpdate) validate() error { return require("userId", e.PatientID) }

type RequestPatientDetails struct {
	AmbulanceID string `json:"ambulanceId"`
	PatientID   string `json:"userId"`
}

func (RequestPatientDetails) EventName() string { return "driver-request-patient-details" }

func (e RequestPatientDetails) validate() error {
	if err := require("ambulanceId", e.AmbulanceID); err != nil {
		return err
	}
	return require("userId", e.PatientID)
}

type EmergencyRequest struct {
	PatientID        string       `json:"userId"`
	PatientName      string       `json:"userName"`
	Phone            string       `json:"phone"`
	Location         geo.Location `json:"location"`
	EmergencyType    string       `json:"emergencyType"`
	PatientCondition string       `json:"patientCondition"`
}

func (EmergencyRequest) EventName() string { return "emergency-request" }
func (e EmergencyRequest) validate() error { return require("userId", e.PatientID) }

type AcceptEmergency struct {
	EmergencyID    string        `json:"emergencyId"`
	AmbulanceID    string        `json:"ambulanceId"`
	DriverName     string        `json:"driverName"`
	DriverLocation *geo.Location `json:"driverLocation"`
}

func (AcceptEmergency) EventName() string { return "accept-emergency" }

func (e AcceptEmergency) validate() error {
	if err := require("emergencyId", e.EmergencyID); err != nil {
		return err
	}
	return require("ambulanceId", e.AmbulanceID)
}

type SelectAmbulance struct {
	PatientID   string `json:"userId"`
	AmbulanceID string `json:"ambulanceId"`
}

func (SelectAmbulance) EventName() string { return "select-ambulance" }

func (e SelectAmbulance) validate() error {
	if err := require("userId", e.PatientID); err != nil {
		return err
	}
	return require("ambulanceId", e.AmbulanceID)
}

type StartTrackingPatient struct {
	AmbulanceID string `json:"ambulanceId"`
	PatientID   string `json:"userId"`
}

func (StartTrackingPatient) EventName() string { return "start-tracking-patient" }

func (e StartTrackingPatient) validate() error {
	if err := require("ambulanceId", e.AmbulanceID); err != nil {
		return err
	}
	return require("userId", e.PatientID)
}

type HospitalJoin struct {
	HospitalID   string        `json:"hospitalId"`
	HospitalName string        `json:"hospitalName"`
	Location     *geo.Location `json:"location"`
}

func (HospitalJoin) EventName() string { return "hospital-join" }
func (e HospitalJoin) validate() error { return require("hospitalId", e.HospitalID) }

type HospitalRequestRoster struct {
	HospitalID string `json:"hospitalId"`
}

func (HospitalRequestRoster) EventName() string { return "hospital-request-roster" }
func (e HospitalRequestRoster) validate() error { return require("hospitalId", e.HospitalID) }

// HospitalDispatch carries destination and patient info through untouched.
type HospitalDispatch struct {
	HospitalID  string          `json:"hospitalId"`
	AmbulanceID string          `json:"ambulanceId"`
	Destination json.RawMessage `json:"destination,omitempty"`
	PatientInfo json.RawMessage `json:"patientInfo,omitempty"`
}

func (HospitalDispatch) EventName() string { return "hospital-dispatch-ambulance" }

func (e HospitalDispatch) validate() error {
	if err := require("hospitalId", e.HospitalID); err != nil {
		return err
	}
	return require("ambulanceId", e.AmbulanceID)
}

type Ping struct{}

func (Ping) EventName() string { return "ping" }
func (Ping) validate() error   { return nil }

// Disconnect is synthesized by the transport when a channel closes.
type Disconnect struct{}

func (Disconnect) EventName() string { return "disconnect" }
func (Disconnect) validate() error   { return nil }

var decoders = map[string]func() Inbound{
	"driver-join":                    func() Inbound { return &DriverJoin{} },
	"driver-location-update":         func() Inbound { return &DriverLocationUpdate{} },
	"patient-join":                   func() Inbound { return &PatientJoin{} },
	"patient-location-update":        func() Inbound { return &PatientLocationUpdate{} },
	"share-location-with-driver":     func() Inbound { return &ShareLocation{} },
	"patient-details-update":         func() Inbound { return &PatientDetailsUpdate{} },
	"driver-request-patient-details": func() Inbound { return &RequestPatientDetails{} },
	"emergency-request":              func() Inbound { return &EmergencyRequest{} },
	"accept-emergency":               func() Inbound { return &AcceptEmergency{} },
	"select-ambulance":               func() Inbound { return &SelectAmbulance{} },
	"start-tracking-patient":         func() Inbound { return &StartTrackingPatient{} },
	"hospital-join":                  func() Inbound { return &HospitalJoin{} },
	"hospital-request-roster":        func() Inbound { return &HospitalRequestRoster{} },
	"hospital-dispatch-ambulance":    func() Inbound { return &HospitalDispatch{} },
	"ping":                           func() Inbound { return &Ping{} },
}

// DecodeInbound turns a wire frame into a typed event. disconnect is not
// accepted from clients.
func DecodeInbound(env Envelope) (Inbound, error) {
	mk, ok := decoders[env.Event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	ev := mk()
	if len(env.Data) > 0 && !bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		if err := json.Unmarshal(env.Data, ev); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Event, err)
		}
	}
	ev = deref(ev)
	if err := ev.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", env.Event, err)
	}
	return ev, nil
}

// deref returns the value form so handlers switch on value types only.
func deref(ev Inbound) Inbound {
	switch e := ev.(type) {
	case *DriverJoin:
		return *e
	case *DriverLocationUpdate:
		return *e
	case *PatientJoin:
		return *e
	case *PatientLocationUpdate:
		return *e
	case *ShareLocation:
		return *e
	case *PatientDetailsUpdate:
		return *e
	case *RequestPatientDetails:
		return *e
	case *EmergencyRequest:
		return *e
	case *AcceptEmergency:
		return *e
	case *SelectAmbulance:
		return *e
	case *StartTrackingPatient:
		return *e
	case *HospitalJoin:
		return *e
	case *HospitalRequestRoster:
		return *e
	case *HospitalDispatch:
		return *e
	case *Ping:
		return *e
	}
	return ev
}
