package dispatch

import (
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/emergency"
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/geo"
)

// CreateEmergency records a pending request and alerts every driver and
// hospital. It returns the generated emergency id.
func (h *Hub) CreateEmergency(e EmergencyRequest) (string, Result) {
	rec := &Emergency{
		ID:               h.newEmergencyID(),
		PatientID:        e.PatientID,
		PatientName:      orDefault(e.PatientName, DefaultPatientName),
		Phone:            orDefault(e.Phone, DefaultPhone),
		Location:         e.Location,
		EmergencyType:    orDefault(e.EmergencyType, DefaultEmergency),
		PatientCondition: orDefault(e.PatientCondition, DefaultCondition),
		Status:           StatusPending,
		CreatedAt:        h.now(),
	}
	h.pending[rec.ID] = rec

	h.logger.Info().Str("emergency_id", rec.ID).Str("patient_id", rec.PatientID).
		Str("type", rec.EmergencyType).Int("drivers", len(h.drivers)).Msg("emergency created")

	h.toAllDrivers(NewEmergency{Emergency: rec.clone()})
	h.toAllHospitals(HospitalEmergencyAlert{
		Type:        AlertEmergencyRequest,
		PatientName: rec.PatientName,
		Location:    rec.Location,
		Timestamp:   rec.CreatedAt,
		Condition:   rec.PatientCondition,
		EmergencyID: rec.ID,
	})
	h.toPatient(rec.PatientID, EmergencyRequestConfirmed{
		EmergencyID: rec.ID,
		Message:     "Emergency request sent successfully.",
	})

	h.record(emergency.KindEmergencyCreated, emergency.StatusPending, rec.PatientID, rec.ID, "", rec.clone())
	return rec.ID, applied()
}

// AcceptEmergency moves a pending request to accepted and pairs the
// requesting patient with the accepting ambulance. Unknown ids are ignored
// without touching any table.
func (h *Hub) AcceptEmergency(e AcceptEmergency) Result {
	rec, ok := h.pending[e.EmergencyID]
	if !ok {
		return ignored("unknown emergency " + e.EmergencyID)
	}

	now := h.now()
	amb := e.AmbulanceID
	rec.Status = StatusAccepted
	rec.AcceptedBy = &amb
	rec.AcceptedAt = &now
	delete(h.pending, e.EmergencyID)
	h.pairings[rec.PatientID] = amb

	h.logger.Info().Str("emergency_id", rec.ID).Str("ambulance_id", amb).
		Str("patient_id", rec.PatientID).Msg("emergency accepted")
	h.record(emergency.KindEmergencyAccepted, emergency.StatusAccepted, rec.PatientID, rec.ID, amb, rec.clone())

	d, driverLive := h.drivers[amb]
	p, patientLive := h.patients[rec.PatientID]
	if !driverLive || !patientLive {
		return applied()
	}

	driverLoc := d.Location
	if e.DriverLocation != nil && e.DriverLocation.Known() {
		driverLoc = *e.DriverLocation
	}
	dist := geo.DistanceKm(driverLoc, rec.Location)
	eta := geo.ETAMinutes(dist)
	name := orDefault(e.DriverName, d.DriverName)

	h.emit.Emit(p.Channel, EmergencyAccepted{
		EmergencyID:    rec.ID,
		AmbulanceID:    amb,
		DriverName:     name,
		AmbulancePhone: d.Phone,
		ETA:            eta,
		Distance:       dist,
		DriverLocation: driverLoc,
		Message:        "Ambulance is on the way!",
	})
	h.emit.Emit(d.Channel, EmergencyAcceptedAck{
		EmergencyID:      rec.ID,
		PatientID:        rec.PatientID,
		PatientName:      rec.PatientName,
		PatientPhone:     rec.Phone,
		PatientLocation:  rec.Location,
		EmergencyType:    rec.EmergencyType,
		PatientCondition: rec.PatientCondition,
		Distance:         dist,
		ETA:              eta,
	})
	h.toAllHospitals(HospitalEmergencyAccepted{
		EmergencyID: rec.ID,
		AmbulanceID: amb,
		DriverName:  name,
		PatientName: rec.PatientName,
		Condition:   rec.PatientCondition,
		Location:    rec.Location,
		Timestamp:   now,
		Status:      string(StatusAccepted),
		Distance:    dist,
		ETA:         eta,
	})
	return applied()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
