package dispatch

import (
	"sort"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/geo"
)

// JoinDriver registers or replaces the session for an ambulance. The
// ambulance's patient ledger survives a reconnect.
func (h *Hub) JoinDriver(ch ChannelID, e DriverJoin) Result {
	now := h.now()
	var loc geo.Location
	if e.Location != nil {
		loc = *e.Location
	}
	vehicle := e.VehicleType
	if vehicle == "" {
		vehicle = DefaultVehicleType
	}

	h.drivers[e.AmbulanceID] = &DriverSession{
		AmbulanceID: e.AmbulanceID,
		DriverName:  e.DriverName,
		Phone:       e.Phone,
		VehicleType: vehicle,
		Location:    loc,
		LastUpdate:  now,
		Channel:     ch,
		JoinedAt:    now,
	}
	if _, ok := h.ledgers[e.AmbulanceID]; !ok {
		h.ledgers[e.AmbulanceID] = []PatientLocationRecord{}
	}

	h.logger.Info().Str("ambulance_id", e.AmbulanceID).Str("channel", string(ch)).
		Int("drivers", len(h.drivers)).Msg("driver joined")
	h.broadcastRoster()
	return applied()
}

// JoinPatient registers or replaces a patient session. The joining patient
// receives the current roster.
func (h *Hub) JoinPatient(ch ChannelID, e PatientJoin) Result {
	id := e.PatientID
	if id == "" {
		id = PatientIDFromPhone(e.Info.Phone)
	}
	now := h.now()
	h.patients[id] = &PatientSession{
		PatientID:  id,
		Info:       e.Info,
		LastUpdate: now,
		Channel:    ch,
		JoinedAt:   now,
	}

	h.logger.Info().Str("patient_id", id).Str("channel", string(ch)).
		Int("patients", len(h.patients)).Msg("patient joined")
	h.emit.Emit(ch, RosterUpdate(h.Roster()))
	return applied()
}

// JoinHospital registers or replaces a hospital session. Its assignment
// list survives a reconnect.
func (h *Hub) JoinHospital(ch ChannelID, e HospitalJoin) Result {
	var loc geo.Location
	if e.Location != nil {
		loc = *e.Location
	}
	h.hospitals[e.HospitalID] = &HospitalSession{
		HospitalID: e.HospitalID,
		Name:       e.HospitalName,
		Location:   loc,
		Channel:    ch,
		JoinedAt:   h.now(),
	}
	if _, ok := h.assignments[e.HospitalID]; !ok {
		h.assignments[e.HospitalID] = []string{}
	}

	h.logger.Info().Str("hospital_id", e.HospitalID).Str("channel", string(ch)).
		Int("hospitals", len(h.hospitals)).Msg("hospital joined")
	h.emit.Emit(ch, h.hospitalRoster(nil))
	return applied()
}

// RequestRoster sends the hospital roster to one hospital.
func (h *Hub) RequestRoster(e HospitalRequestRoster) Result {
	hs, ok := h.hospitals[e.HospitalID]
	if !ok {
		return ignored("unknown hospital " + e.HospitalID)
	}
	h.emit.Emit(hs.Channel, h.hospitalRoster(nil))
	return applied()
}

// Leave removes every session owned by ch. Sessions whose stored channel
// differs are left alone, so a disconnect from a superseded connection
// cannot evict its replacement.
func (h *Hub) Leave(ch ChannelID) Result {
	removed := 0

	for _, id := range sortedKeys(h.drivers, func(d *DriverSession) bool { return d.Channel == ch }) {
		h.removeDriver(id)
		removed++
	}
	for _, id := range sortedKeys(h.patients, func(p *PatientSession) bool { return p.Channel == ch }) {
		h.removePatient(id)
		removed++
	}
	for _, id := range sortedKeys(h.hospitals, func(hs *HospitalSession) bool { return hs.Channel == ch }) {
		h.removeHospital(id)
		removed++
	}

	if removed == 0 {
		return ignored("no session on channel " + string(ch))
	}
	h.broadcastRoster()
	return applied()
}

func (h *Hub) removeDriver(id string) {
	delete(h.drivers, id)
	delete(h.ledgers, id)
	for pid, amb := range h.pairings {
		if amb == id {
			delete(h.pairings, pid)
		}
	}
	h.logger.Info().Str("ambulance_id", id).Msg("driver disconnected")
	h.toAllPatients(DriverDisconnected{AmbulanceID: id})
	h.toAllHospitals(HospitalAmbulanceDisconnected{AmbulanceID: id})
}

func (h *Hub) removePatient(id string) {
	delete(h.patients, id)
	delete(h.pairings, id)
	delete(h.details, id)
	for amb, entries := range h.ledgers {
		h.ledgers[amb] = withoutPatient(entries, id)
	}
	h.logger.Info().Str("patient_id", id).Msg("patient disconnected")
}

func (h *Hub) removeHospital(id string) {
	delete(h.hospitals, id)
	delete(h.assignments, id)
	h.logger.Info().Str("hospital_id", id).Msg("hospital disconnected")
}

func withoutPatient(entries []PatientLocationRecord, patientID string) []PatientLocationRecord {
	out := entries[:0]
	for _, r := range entries {
		if r.PatientID != patientID {
			out = append(out, r)
		}
	}
	return out
}

// broadcastRoster replaces the roster on every patient and hospital.
func (h *Hub) broadcastRoster() {
	h.toAllPatients(RosterUpdate(h.Roster()))
	h.toAllHospitals(h.hospitalRoster(nil))
}

func sortedKeys[V any](m map[string]V, match func(V) bool) []string {
	var keys []string
	for k, v := range m {
		if match(v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
