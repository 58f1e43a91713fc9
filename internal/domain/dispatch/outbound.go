package dispatch

import (
	"encoding/json"
	"time"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/geo"
)

// Outbound is the closed set of events the hub emits.
type Outbound interface {
	EventName() string
}

// Emitter delivers an outbound event to one channel. Implementations must
// not block and must not call back into the hub.
type Emitter interface {
	Emit(ch ChannelID, ev Outbound)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ch ChannelID, ev Outbound)

func (f EmitterFunc) Emit(ch ChannelID, ev Outbound) { f(ch, ev) }

// Encode wraps ev in the wire envelope.
func Encode(ev Outbound) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: ev.EventName(), Data: data})
}

type RosterEntry struct {
	AmbulanceID string       `json:"ambulanceId"`
	DriverName  string       `json:"driverName"`
	Phone       string       `json:"phone"`
	VehicleType string       `json:"vehicleType"`
	Location    geo.Location `json:"location"`
	LastUpdate  time.Time    `json:"lastUpdate"`
}

// RosterUpdate is a full replace of the live ambulance list.
type RosterUpdate []RosterEntry

func (RosterUpdate) EventName() string { return "roster-update" }

type HospitalRosterEntry struct {
	RosterEntry
	Status         string  `json:"status"`
	CurrentPatient *string `json:"currentPatient"`
}

type HospitalRosterUpdate []HospitalRosterEntry

func (HospitalRosterUpdate) EventName() string { return "hospital-roster-update" }

type DriverLocation struct {
	AmbulanceID string    `json:"ambulanceId"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	DriverName  string    `json:"driverName"`
	Timestamp   time.Time `json:"timestamp"`
}

func (DriverLocation) EventName() string { return "driver-location" }

type HospitalAmbulanceLocation struct {
	AmbulanceID string       `json:"ambulanceId"`
	DriverName  string       `json:"driverName"`
	Location    geo.Location `json:"location"`
	Status      string       `json:"status"`
	Timestamp   time.Time    `json:"timestamp"`
}

func (HospitalAmbulanceLocation) EventName() string { return "hospital-ambulance-location" }

// DistanceUpdate goes to the patient.
type DistanceUpdate struct {
	AmbulanceID string       `json:"ambulanceId"`
	Distance    geo.Distance `json:"distance"`
	ETA         string       `json:"eta"`
}

func (DistanceUpdate) EventName() string { return "distance-update" }

// DistanceUpdateDriver goes to the driver and echoes the patient location.
type DistanceUpdateDriver struct {
	PatientID    string       `json:"userId"`
	Distance     geo.Distance `json:"distance"`
	ETA          string       `json:"eta"`
	UserLocation geo.Location `json:"userLocation"`
}

func (DistanceUpdateDriver) EventName() string { return "distance-update-driver" }

type PatientLocation struct {
	PatientID   string    `json:"userId"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Timestamp   time.Time `json:"timestamp"`
	PatientName string    `json:"userName"`
}

func (PatientLocation) EventName() string { return "patient-location" }

type NewEmergency struct {
	Emergency
}

func (NewEmergency) EventName() string { return "new-emergency" }

type EmergencyRequestConfirmed struct {
	EmergencyID string `json:"emergencyId"`
	Message     string `json:"message"`
}

func (EmergencyRequestConfirmed) EventName() string { return "emergency-request-confirmed" }

type EmergencyAccepted struct {
	EmergencyID    string       `json:"emergencyId"`
	AmbulanceID    string       `json:"ambulanceId"`
	DriverName     string       `json:"driverName"`
	AmbulancePhone string       `json:"ambulancePhone"`
	ETA            string       `json:"eta"`
	Distance       geo.Distance `json:"distance"`
	DriverLocation geo.Location `json:"driverLocation"`
	Message        string       `json:"message"`
}

func (EmergencyAccepted) EventName() string { return "emergency-accepted" }

type EmergencyAcceptedAck struct {
	EmergencyID      string       `json:"emergencyId"`
	PatientID        string       `json:"userId"`
	PatientName      string       `json:"userName"`
	PatientPhone     string       `json:"userPhone"`
	PatientLocation  geo.Location `json:"userLocation"`
	EmergencyType    string       `json:"emergencyType"`
	PatientCondition string       `json:"patientCondition"`
	Distance         geo.Distance `json:"distance"`
	ETA              string       `json:"eta"`
}

func (EmergencyAcceptedAck) EventName() string { return "emergency-accepted-ack" }

type HospitalEmergencyAccepted struct {
	EmergencyID string       `json:"emergencyId"`
	AmbulanceID string       `json:"ambulanceId"`
	DriverName  string       `json:"driverName"`
	PatientName string       `json:"patientName"`
	Condition   string       `json:"condition"`
	Location    geo.Location `json:"location"`
	Timestamp   time.Time    `json:"timestamp"`
	Status      string       `json:"status"`
	Distance    geo.Distance `json:"distance"`
	ETA         string       `json:"eta"`
}

func (HospitalEmergencyAccepted) EventName() string { return "hospital-emergency-accepted" }

type PatientLocationShared struct {
	PatientID   string       `json:"userId"`
	PatientName string       `json:"userName"`
	Location    geo.Location `json:"location"`
	Timestamp   time.Time    `json:"timestamp"`
	Message     string       `json:"message"`
}

func (PatientLocationShared) EventName() string { return "patient-location-shared" }

type PatientDetailsUpdated struct {
	PatientID        string        `json:"userId"`
	PatientName      string        `json:"userName"`
	Phone            string        `json:"phone"`
	Location         *geo.Location `json:"location"`
	PatientCondition string        `json:"patientCondition"`
	Timestamp        time.Time     `json:"timestamp"`
	Message          string        `json:"message"`
}

func (PatientDetailsUpdated) EventName() string { return "patient-details-updated" }

// PatientDetailsResponse answers a driver's detail request. Only Message is
// set when nothing is stored.
type PatientDetailsResponse struct {
	PatientID        string        `json:"userId"`
	PatientName      string        `json:"userName,omitempty"`
	Phone            string        `json:"phone,omitempty"`
	Location         *geo.Location `json:"location,omitempty"`
	PatientCondition string        `json:"patientCondition,omitempty"`
	UpdatedAt        *time.Time    `json:"updatedAt,omitempty"`
	Message          string        `json:"message,omitempty"`
}

func (PatientDetailsResponse) EventName() string { return "patient-details-response" }

type AmbulanceSelected struct {
	AmbulanceID string       `json:"ambulanceId"`
	DriverName  string       `json:"driverName"`
	Phone       string       `json:"phone"`
	Location    geo.Location `json:"location"`
	VehicleType string       `json:"vehicleType"`
}

func (AmbulanceSelected) EventName() string { return "ambulance-selected" }

type PatientSelectedDriver struct {
	PatientID string        `json:"userId"`
	Info      PatientInfo   `json:"userData"`
	Location  *geo.Location `json:"location"`
}

func (PatientSelectedDriver) EventName() string { return "patient-selected-driver" }

// HospitalEmergencyAlert covers both new requests and location shares;
// Type tells them apart.
type HospitalEmergencyAlert struct {
	Type        string       `json:"type"`
	PatientName string       `json:"patientName"`
	AmbulanceID *string      `json:"ambulanceId"`
	Location    geo.Location `json:"location"`
	Timestamp   time.Time    `json:"timestamp"`
	Condition   string       `json:"condition"`
	EmergencyID string       `json:"emergencyId,omitempty"`
}

func (HospitalEmergencyAlert) EventName() string { return "hospital-emergency-alert" }

const (
	AlertEmergencyRequest = "Emergency Request"
	AlertLocationShared   = "Location Shared"
	AlertPatientDetails   = "Patient Details"
)

type HospitalPatientUpdate struct {
	PatientID   string       `json:"userId"`
	PatientName string       `json:"userName"`
	AmbulanceID string       `json:"ambulanceId"`
	Location    geo.Location `json:"location"`
	Type        string       `json:"type"`
	Timestamp   time.Time    `json:"timestamp"`
}

func (HospitalPatientUpdate) EventName() string { return "hospital-patient-update" }

type HospitalPatientDetails struct {
	PatientID   string        `json:"userId"`
	PatientName string        `json:"userName"`
	Phone       string        `json:"phone"`
	Condition   string        `json:"condition"`
	AmbulanceID string        `json:"ambulanceId"`
	Location    *geo.Location `json:"location"`
	Timestamp   time.Time     `json:"timestamp"`
	Type        string        `json:"type"`
}

func (HospitalPatientDetails) EventName() string { return "hospital-patient-details" }

type HospitalDispatchRequest struct {
	HospitalID   string          `json:"hospitalId"`
	HospitalName string          `json:"hospitalName"`
	Destination  json.RawMessage `json:"destination,omitempty"`
	PatientInfo  json.RawMessage `json:"patientInfo,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

func (HospitalDispatchRequest) EventName() string { return "hospital-dispatch-request" }

type DispatchConfirmed struct {
	AmbulanceID string    `json:"ambulanceId"`
	DriverName  string    `json:"driverName"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

func (DispatchConfirmed) EventName() string { return "dispatch-confirmed" }

type DriverDisconnected struct {
	AmbulanceID string `json:"ambulanceId"`
}

func (DriverDisconnected) EventName() string { return "driver-disconnected" }

type HospitalAmbulanceDisconnected struct {
	AmbulanceID string `json:"ambulanceId"`
}

func (HospitalAmbulanceDisconnected) EventName() string { return "hospital-ambulance-disconnected" }

type Pong struct {
	Timestamp time.Time `json:"timestamp"`
}

func (Pong) EventName() string { return "pong" }
