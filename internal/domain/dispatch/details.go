package dispatch

import (
	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/emergency"
)

// UpdatePatientDetails stores the patient's details and, if the patient is
// already in the ambulance's ledger, attaches them there and notifies the
// driver and hospitals. The document write is queued either way.
func (h *Hub) UpdatePatientDetails(e PatientDetailsUpdate) Result {
	now := h.now()
	det := PatientDetails{
		PatientID:        e.PatientID,
		PatientName:      e.PatientName,
		Phone:            e.Phone,
		Location:         copyLocation(e.Location),
		PatientCondition: e.PatientCondition,
		UpdatedAt:        now,
	}
	h.details[e.PatientID] = det
	h.record(emergency.KindPatientDetails, emergency.StatusAccepted, e.PatientID, "", e.AmbulanceID, det.clone())

	entries := h.ledgers[e.AmbulanceID]
	idx := -1
	for i := range entries {
		if entries[i].PatientID == e.PatientID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return applied()
	}
	entries[idx].PatientInfo = &DetailsSummary{UserName: e.PatientName, Phone: e.Phone, Condition: e.PatientCondition}
	entries[idx].HasDetails = true

	h.toDriver(e.AmbulanceID, PatientDetailsUpdated{
		PatientID:        e.PatientID,
		PatientName:      e.PatientName,
		Phone:            e.Phone,
		Location:         copyLocation(e.Location),
		PatientCondition: e.PatientCondition,
		Timestamp:        now,
		Message:          "Patient details updated",
	})
	h.toAllHospitals(HospitalPatientDetails{
		PatientID:   e.PatientID,
		PatientName: e.PatientName,
		Phone:       e.Phone,
		Condition:   e.PatientCondition,
		AmbulanceID: e.AmbulanceID,
		Location:    copyLocation(e.Location),
		Timestamp:   now,
		Type:        AlertPatientDetails,
	})
	return applied()
}

// RequestPatientDetails answers a driver with whatever the patient last
// submitted.
func (h *Hub) RequestPatientDetails(e RequestPatientDetails) Result {
	d, ok := h.drivers[e.AmbulanceID]
	if !ok {
		return ignored("unknown ambulance " + e.AmbulanceID)
	}
	det, hasDetails := h.details[e.PatientID]
	_, live := h.patients[e.PatientID]
	if !hasDetails || !live {
		h.emit.Emit(d.Channel, PatientDetailsResponse{
			PatientID: e.PatientID,
			Message:   "Patient details not available yet",
		})
		return applied()
	}
	updated := det.UpdatedAt
	h.emit.Emit(d.Channel, PatientDetailsResponse{
		PatientID:        det.PatientID,
		PatientName:      det.PatientName,
		Phone:            det.Phone,
		Location:         copyLocation(det.Location),
		PatientCondition: det.PatientCondition,
		UpdatedAt:        &updated,
	})
	return applied()
}
