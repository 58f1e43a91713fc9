// Package dispatch is the coordination hub: the live session registry, the
// patient/ambulance pairings, the pending emergency ledger, the per-ambulance
// patient ledgers and the hospital assignments, plus the event router that
// mutates them.
//
// A Hub is not safe for concurrent use. It is owned by exactly one Reactor
// goroutine; everything else talks to it through Reactor.Submit and
// Reactor.Query.
package dispatch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/emergency"
)

type Hub struct {
	drivers     map[string]*DriverSession
	patients    map[string]*PatientSession
	hospitals   map[string]*HospitalSession
	pairings    map[string]string // patient id -> ambulance id
	pending     map[string]*Emergency
	ledgers     map[string][]PatientLocationRecord // ambulance id -> entries
	details     map[string]PatientDetails
	assignments map[string][]string // hospital id -> ambulance ids

	emit     Emitter
	recorder emergency.Recorder
	now      func() time.Time
	suffix   func() string
	logger   zerolog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

func WithClock(now func() time.Time) Option { return func(h *Hub) { h.now = now } }

// WithIDGenerator sets the random suffix used in emergency ids.
func WithIDGenerator(suffix func() string) Option { return func(h *Hub) { h.suffix = suffix } }

func WithRecorder(r emergency.Recorder) Option { return func(h *Hub) { h.recorder = r } }

func WithLogger(l zerolog.Logger) Option { return func(h *Hub) { h.logger = l } }

func NewHub(emit Emitter, opts ...Option) *Hub {
	h := &Hub{
		drivers:     make(map[string]*DriverSession),
		patients:    make(map[string]*PatientSession),
		hospitals:   make(map[string]*HospitalSession),
		pairings:    make(map[string]string),
		pending:     make(map[string]*Emergency),
		ledgers:     make(map[string][]PatientLocationRecord),
		details:     make(map[string]PatientDetails),
		assignments: make(map[string][]string),
		emit:        emit,
		recorder:    emergency.NopRecorder{},
		now:         func() time.Time { return time.Now().UTC() },
		suffix:      randomSuffix,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

func (h *Hub) newEmergencyID() string {
	return fmt.Sprintf("EMG-%d-%s", h.now().UnixMilli(), h.suffix())
}

// Handle routes one inbound event from channel ch.
func (h *Hub) Handle(ch ChannelID, ev Inbound) Result {
	switch e := ev.(type) {
	case DriverJoin:
		return h.JoinDriver(ch, e)
	case DriverLocationUpdate:
		return h.ReportDriverLocation(e)
	case PatientJoin:
		return h.JoinPatient(ch, e)
	case PatientLocationUpdate:
		return h.ReportPatientLocation(e)
	case ShareLocation:
		return h.ShareLocationWithDriver(e)
	case PatientDetailsUpdate:
		return h.UpdatePatientDetails(e)
	case RequestPatientDetails:
		return h.RequestPatientDetails(e)
	case EmergencyRequest:
		_, res := h.CreateEmergency(e)
		return res
	case AcceptEmergency:
		return h.AcceptEmergency(e)
	case SelectAmbulance:
		return h.SelectAmbulance(e)
	case StartTrackingPatient:
		return h.StartTrackingPatient(e)
	case HospitalJoin:
		return h.JoinHospital(ch, e)
	case HospitalRequestRoster:
		return h.RequestRoster(e)
	case HospitalDispatch:
		return h.Dispatch(e)
	case Ping:
		h.emit.Emit(ch, Pong{Timestamp: h.now()})
		return applied()
	case Disconnect:
		return h.Leave(ch)
	case nil:
		return failed(fmt.Errorf("%w: nil event", ErrUnknownEvent))
	}
	return failed(fmt.Errorf("%w: %T", ErrUnknownEvent, ev))
}

// Fan-out helpers. Map iteration order is irrelevant: every recipient gets
// the same event.

func (h *Hub) toAllPatients(ev Outbound) {
	for _, p := range h.patients {
		h.emit.Emit(p.Channel, ev)
	}
}

func (h *Hub) toAllDrivers(ev Outbound) {
	for _, d := range h.drivers {
		h.emit.Emit(d.Channel, ev)
	}
}

func (h *Hub) toAllHospitals(ev Outbound) {
	for _, hs := range h.hospitals {
		h.emit.Emit(hs.Channel, ev)
	}
}

func (h *Hub) toDriver(ambulanceID string, ev Outbound) bool {
	d, ok := h.drivers[ambulanceID]
	if !ok {
		return false
	}
	h.emit.Emit(d.Channel, ev)
	return true
}

func (h *Hub) toPatient(patientID string, ev Outbound) bool {
	p, ok := h.patients[patientID]
	if !ok {
		return false
	}
	h.emit.Emit(p.Channel, ev)
	return true
}

// Roster returns the live ambulances sorted by id.
func (h *Hub) Roster() []RosterEntry {
	out := make([]RosterEntry, 0, len(h.drivers))
	for _, d := range h.drivers {
		out = append(out, rosterEntry(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AmbulanceID < out[j].AmbulanceID })
	return out
}

func rosterEntry(d *DriverSession) RosterEntry {
	vt := d.VehicleType
	if vt == "" {
		vt = DefaultVehicleType
	}
	return RosterEntry{
		AmbulanceID: d.AmbulanceID,
		DriverName:  d.DriverName,
		Phone:       d.Phone,
		VehicleType: vt,
		Location:    d.Location,
		LastUpdate:  d.LastUpdate,
	}
}

func (h *Hub) hospitalRoster(filter func(string) bool) HospitalRosterUpdate {
	roster := h.Roster()
	out := make(HospitalRosterUpdate, 0, len(roster))
	for _, r := range roster {
		if filter != nil && !filter(r.AmbulanceID) {
			continue
		}
		out = append(out, HospitalRosterEntry{RosterEntry: r, Status: "active"})
	}
	return out
}

// Ledger returns a copy of an ambulance's patient ledger.
func (h *Hub) Ledger(ambulanceID string) []PatientLocationRecord {
	src := h.ledgers[ambulanceID]
	out := make([]PatientLocationRecord, len(src))
	for i, r := range src {
		out[i] = r.clone()
	}
	return out
}

// HospitalAmbulances returns the live ambulances a hospital has dispatched.
func (h *Hub) HospitalAmbulances(hospitalID string) []HospitalRosterEntry {
	assigned := make(map[string]struct{})
	for _, id := range h.assignments[hospitalID] {
		assigned[id] = struct{}{}
	}
	return h.hospitalRoster(func(id string) bool {
		_, ok := assigned[id]
		return ok
	})
}

// Pairing reports which ambulance a patient is paired with.
func (h *Hub) Pairing(patientID string) (string, bool) {
	amb, ok := h.pairings[patientID]
	return amb, ok
}

// PendingEmergency returns a copy of a pending record.
func (h *Hub) PendingEmergency(id string) (Emergency, bool) {
	e, ok := h.pending[id]
	if !ok {
		return Emergency{}, false
	}
	return e.clone(), true
}

func (h *Hub) Counts() Counts {
	return Counts{
		Drivers:          len(h.drivers),
		Patients:         len(h.patients),
		Hospitals:        len(h.hospitals),
		Emergencies:      len(h.pending),
		TrackingPairs:    len(h.pairings),
		PatientLocations: len(h.ledgers),
	}
}

// Snapshot is a deep copy of every table.
type Snapshot struct {
	Drivers     map[string]DriverSession
	Patients    map[string]PatientSession
	Hospitals   map[string]HospitalSession
	Pairings    map[string]string
	Pending     map[string]Emergency
	Ledgers     map[string][]PatientLocationRecord
	Details     map[string]PatientDetails
	Assignments map[string][]string
}

func (h *Hub) Snapshot() Snapshot {
	s := Snapshot{
		Drivers:     make(map[string]DriverSession, len(h.drivers)),
		Patients:    make(map[string]PatientSession, len(h.patients)),
		Hospitals:   make(map[string]HospitalSession, len(h.hospitals)),
		Pairings:    make(map[string]string, len(h.pairings)),
		Pending:     make(map[string]Emergency, len(h.pending)),
		Ledgers:     make(map[string][]PatientLocationRecord, len(h.ledgers)),
		Details:     make(map[string]PatientDetails, len(h.details)),
		Assignments: make(map[string][]string, len(h.assignments)),
	}
	for k, v := range h.drivers {
		s.Drivers[k] = *v
	}
	for k, v := range h.patients {
		p := *v
		if p.Location != nil {
			loc := *p.Location
			p.Location = &loc
		}
		s.Patients[k] = p
	}
	for k, v := range h.hospitals {
		s.Hospitals[k] = *v
	}
	for k, v := range h.pairings {
		s.Pairings[k] = v
	}
	for k, v := range h.pending {
		s.Pending[k] = v.clone()
	}
	for k := range h.ledgers {
		s.Ledgers[k] = h.Ledger(k)
	}
	for k, v := range h.details {
		s.Details[k] = v.clone()
	}
	for k, v := range h.assignments {
		s.Assignments[k] = append([]string{}, v...)
	}
	return s
}

func (h *Hub) record(kind emergency.Kind, status emergency.Status, patientID, emergencyID, ambulanceID string, body interface{}) {
	doc, err := emergency.NewDocument(kind, status, patientID, body)
	if err != nil {
		h.logger.Error().Err(err).Str("kind", string(kind)).Msg("build document")
		return
	}
	h.recorder.Record(doc.WithEmergency(emergencyID).WithAmbulance(ambulanceID))
}
