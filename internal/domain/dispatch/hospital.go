package dispatch

// Dispatch sends an ambulance on a hospital's behalf and marks it assigned
// to that hospital.
func (h *Hub) Dispatch(e HospitalDispatch) Result {
	d, ok := h.drivers[e.AmbulanceID]
	if !ok {
		return ignored("unknown ambulance " + e.AmbulanceID)
	}
	hs, ok := h.hospitals[e.HospitalID]
	if !ok {
		return ignored("unknown hospital " + e.HospitalID)
	}

	now := h.now()
	h.emit.Emit(d.Channel, HospitalDispatchRequest{
		HospitalID:   hs.HospitalID,
		HospitalName: hs.Name,
		Destination:  e.Destination,
		PatientInfo:  e.PatientInfo,
		Timestamp:    now,
	})

	assigned := h.assignments[hs.HospitalID]
	if !contains(assigned, d.AmbulanceID) {
		h.assignments[hs.HospitalID] = append(assigned, d.AmbulanceID)
	}

	h.emit.Emit(hs.Channel, DispatchConfirmed{
		AmbulanceID: d.AmbulanceID,
		DriverName:  d.DriverName,
		Status:      "dispatched",
		Timestamp:   now,
	})
	h.logger.Info().Str("hospital_id", hs.HospitalID).Str("ambulance_id", d.AmbulanceID).Msg("ambulance dispatched")
	return applied()
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
