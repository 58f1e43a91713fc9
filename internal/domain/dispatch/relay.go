package dispatch

import (
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/geo"
)

// ReportDriverLocation moves a driver, fans the position out to patients and
// hospitals, and refreshes distance for every patient paired with it.
func (h *Hub) ReportDriverLocation(e DriverLocationUpdate) Result {
	d, ok := h.drivers[e.AmbulanceID]
	if !ok {
		return ignored("unknown ambulance " + e.AmbulanceID)
	}
	d.Location = geo.Location{Latitude: e.Latitude, Longitude: e.Longitude}
	d.LastUpdate = e.Timestamp.or(h.now())

	name := e.DriverName
	if name == "" {
		name = d.DriverName
	}
	h.toAllPatients(DriverLocation{
		AmbulanceID: d.AmbulanceID,
		Latitude:    e.Latitude,
		Longitude:   e.Longitude,
		DriverName:  name,
		Timestamp:   d.LastUpdate,
	})
	h.toAllHospitals(HospitalAmbulanceLocation{
		AmbulanceID: d.AmbulanceID,
		DriverName:  name,
		Location:    d.Location,
		Status:      "on-duty",
		Timestamp:   d.LastUpdate,
	})
	h.broadcastRoster()

	for _, pid := range sortedKeys(h.pairings, func(amb string) bool { return amb == d.AmbulanceID }) {
		p, ok := h.patients[pid]
		if !ok || p.Location == nil {
			continue
		}
		h.emitDistancePair(d, p)
	}
	return applied()
}

// ReportPatientLocation stores a patient's position and, when it names a
// live driver, relays it there.
func (h *Hub) ReportPatientLocation(e PatientLocationUpdate) Result {
	p, ok := h.patients[e.PatientID]
	if !ok {
		return ignored("unknown patient " + e.PatientID)
	}
	p.Location = &geo.Location{Latitude: e.Latitude, Longitude: e.Longitude}
	p.LastUpdate = e.Timestamp.or(h.now())

	if e.AmbulanceID == "" {
		return applied()
	}
	d, ok := h.drivers[e.AmbulanceID]
	if !ok {
		return applied()
	}
	h.emit.Emit(d.Channel, patientLocation(p))
	h.toAllHospitals(HospitalPatientUpdate{
		PatientID:   p.PatientID,
		PatientName: p.displayName(defaultUserName),
		AmbulanceID: d.AmbulanceID,
		Location:    *p.Location,
		Type:        AlertLocationShared,
		Timestamp:   p.LastUpdate,
	})
	if d.Location.Known() {
		h.emitDistancePair(d, p)
	}
	return applied()
}

// ShareLocationWithDriver upserts the patient into the ambulance's ledger
// and pairs them unless the patient is already paired elsewhere.
func (h *Hub) ShareLocationWithDriver(e ShareLocation) Result {
	p, ok := h.patients[e.PatientID]
	if !ok {
		return ignored("unknown patient " + e.PatientID)
	}
	d, ok := h.drivers[e.AmbulanceID]
	if !ok {
		return ignored("unknown ambulance " + e.AmbulanceID)
	}

	loc := geo.Location{Latitude: e.Latitude, Longitude: e.Longitude}
	p.Location = &loc
	p.LastUpdate = e.Timestamp.or(h.now())

	rec := PatientLocationRecord{
		PatientID:   p.PatientID,
		Location:    loc,
		Timestamp:   p.LastUpdate,
		PatientName: p.displayName(DefaultPatientName),
		Phone:       p.Info.Phone,
	}
	if rec.Phone == "" {
		rec.Phone = DefaultPhone
	}
	if det, ok := h.details[p.PatientID]; ok {
		rec.PatientInfo = &DetailsSummary{UserName: det.PatientName, Phone: det.Phone, Condition: det.PatientCondition}
		rec.HasDetails = true
	}
	h.upsertLedger(d.AmbulanceID, rec)

	if _, paired := h.pairings[p.PatientID]; !paired {
		h.pairings[p.PatientID] = d.AmbulanceID
	}

	h.emit.Emit(d.Channel, PatientLocationShared{
		PatientID:   p.PatientID,
		PatientName: rec.PatientName,
		Location:    loc,
		Timestamp:   p.LastUpdate,
		Message:     "Patient has shared their location",
	})
	amb := d.AmbulanceID
	h.toAllHospitals(HospitalEmergencyAlert{
		Type:        AlertLocationShared,
		PatientName: rec.PatientName,
		AmbulanceID: &amb,
		Location:    loc,
		Timestamp:   p.LastUpdate,
		Condition:   "Location shared",
	})
	h.emit.Emit(d.Channel, patientLocation(p))
	if d.Location.Known() {
		h.emitDistancePair(d, p)
	}
	return applied()
}

// SelectAmbulance is the patient-initiated pairing.
func (h *Hub) SelectAmbulance(e SelectAmbulance) Result {
	p, ok := h.patients[e.PatientID]
	if !ok {
		return ignored("unknown patient " + e.PatientID)
	}
	d, ok := h.drivers[e.AmbulanceID]
	if !ok {
		return ignored("unknown ambulance " + e.AmbulanceID)
	}
	h.pairings[p.PatientID] = d.AmbulanceID

	entry := rosterEntry(d)
	h.emit.Emit(p.Channel, AmbulanceSelected{
		AmbulanceID: d.AmbulanceID,
		DriverName:  d.DriverName,
		Phone:       d.Phone,
		Location:    d.Location,
		VehicleType: entry.VehicleType,
	})
	h.emit.Emit(d.Channel, PatientSelectedDriver{
		PatientID: p.PatientID,
		Info:      p.Info,
		Location:  copyLocation(p.Location),
	})
	h.pairingFollowUp(d, p)
	return applied()
}

// StartTrackingPatient is the driver-initiated pairing.
func (h *Hub) StartTrackingPatient(e StartTrackingPatient) Result {
	d, ok := h.drivers[e.AmbulanceID]
	if !ok {
		return ignored("unknown ambulance " + e.AmbulanceID)
	}
	p, ok := h.patients[e.PatientID]
	if !ok {
		return ignored("unknown patient " + e.PatientID)
	}
	h.pairings[p.PatientID] = d.AmbulanceID
	h.pairingFollowUp(d, p)
	return applied()
}

// pairingFollowUp pushes the patient's last position to the driver and the
// distance to both sides, when the positions are known.
func (h *Hub) pairingFollowUp(d *DriverSession, p *PatientSession) {
	if p.Location == nil {
		return
	}
	h.emit.Emit(d.Channel, patientLocation(p))
	if d.Location.Known() {
		h.emitDistancePair(d, p)
	}
}

func (h *Hub) emitDistancePair(d *DriverSession, p *PatientSession) {
	dist := geo.DistanceKm(d.Location, *p.Location)
	eta := geo.ETAMinutes(dist)
	h.emit.Emit(p.Channel, DistanceUpdate{AmbulanceID: d.AmbulanceID, Distance: dist, ETA: eta})
	h.emit.Emit(d.Channel, DistanceUpdateDriver{
		PatientID:    p.PatientID,
		Distance:     dist,
		ETA:          eta,
		UserLocation: *p.Location,
	})
}

func (h *Hub) upsertLedger(ambulanceID string, rec PatientLocationRecord) {
	entries := h.ledgers[ambulanceID]
	for i := range entries {
		if entries[i].PatientID == rec.PatientID {
			entries[i] = rec
			return
		}
	}
	h.ledgers[ambulanceID] = append(entries, rec)
}

func patientLocation(p *PatientSession) PatientLocation {
	return PatientLocation{
		PatientID:   p.PatientID,
		Latitude:    p.Location.Latitude,
		Longitude:   p.Location.Longitude,
		Timestamp:   p.LastUpdate,
		PatientName: p.displayName(defaultUserName),
	}
}

func copyLocation(l *geo.Location) *geo.Location {
	if l == nil {
		return nil
	}
	v := *l
	return &v
}
