package emergency

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names the event a stored document describes.
type Kind string

const (
	KindEmergencyCreated  Kind = "emergency.created"
	KindEmergencyAccepted Kind = "emergency.accepted"
	KindPatientDetails    Kind = "patient.details"
)

// Status is the lifecycle state recorded on a document. The hub only ever
// writes pending and accepted; the remaining states are set by reporting and
// admin tooling.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusEnroute   Status = "enroute"
	StatusArrived   Status = "arrived"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusEnroute, StatusArrived, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Document maps to the hub_document table.
type Document struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Kind        Kind            `db:"kind" json:"kind"`
	EmergencyID *string         `db:"emergency_id" json:"emergency_id,omitempty"`
	PatientID   string          `db:"patient_id" json:"patient_id"`
	AmbulanceID *string         `db:"ambulance_id" json:"ambulance_id,omitempty"`
	Status      Status          `db:"status" json:"status"`
	Body        json.RawMessage `db:"body" json:"body"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// NewDocument builds a document of the given kind with body encoded as JSON.
func NewDocument(kind Kind, status Status, patientID string, body interface{}) (*Document, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", kind, err)
	}
	return &Document{
		ID:        uuid.New(),
		Kind:      kind,
		PatientID: patientID,
		Status:    status,
		Body:      raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// WithEmergency tags the document with an emergency id.
func (d *Document) WithEmergency(id string) *Document {
	if id != "" {
		d.EmergencyID = &id
	}
	return d
}

// WithAmbulance tags the document with an ambulance id.
func (d *Document) WithAmbulance(id string) *Document {
	if id != "" {
		d.AmbulanceID = &id
	}
	return d
}
