package dispatch

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/domain/geo"
)

func decode(t *testing.T, frame string) (Inbound, error) {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal([]byte(frame), &env); err != nil {
		t.Fatalf("envelope: %v", err)
	}
	return DecodeInbound(env)
}

func TestDecodeInbound_TypedPayloads(t *testing.T) {
	tests := []struct {
		frame string
		check func(t *testing.T, ev Inbound)
	}{
		{
			`{"event":"driver-join","data":{"ambulanceId":"AMB-001","driverName":"Siva","location":{"latitude":10.9,"longitude":76.9}}}`,
			func(t *testing.T, ev Inbound) {
				e := ev.(DriverJoin)
				if e.AmbulanceID != "AMB-001" || e.Location == nil || e.Location.Latitude != 10.9 {
					t.Errorf("got %+v", e)
				}
			},
		},
		{
			`{"event":"driver-location-update","data":{"ambulanceId":"AMB-001","latitude":10.9,"longitude":76.9,"timestamp":"2026-03-14T09:30:00Z"}}`,
			func(t *testing.T, ev Inbound) {
				e := ev.(DriverLocationUpdate)
				if !e.Timestamp.Equal(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)) {
					t.Errorf("timestamp = %v", e.Timestamp)
				}
			},
		},
		{
			`{"event":"patient-join","data":{"userData":{"name":"Ravi","phone":"555"}}}`,
			func(t *testing.T, ev Inbound) {
				if e := ev.(PatientJoin); e.Info.Phone != "555" {
					t.Errorf("got %+v", e)
				}
			},
		},
		{
			`{"event":"emergency-request","data":{"userId":"user_555","location":{"latitude":10.95,"longitude":77.05}}}`,
			func(t *testing.T, ev Inbound) {
				if e := ev.(EmergencyRequest); e.Location != (geo.Location{Latitude: 10.95, Longitude: 77.05}) {
					t.Errorf("got %+v", e)
				}
			},
		},
		{
			`{"event":"hospital-dispatch-ambulance","data":{"hospitalId":"H1","ambulanceId":"A1","destination":{"name":"ER"},"patientInfo":"stable"}}`,
			func(t *testing.T, ev Inbound) {
				e := ev.(HospitalDispatch)
				if string(e.Destination) != `{"name":"ER"}` || string(e.PatientInfo) != `"stable"` {
					t.Errorf("opaque fields not passed through: %s %s", e.Destination, e.PatientInfo)
				}
			},
		},
		{
			`{"event":"ping"}`,
			func(t *testing.T, ev Inbound) {
				if _, ok := ev.(Ping); !ok {
					t.Errorf("got %T", ev)
				}
			},
		},
	}
	for _, tt := range tests {
		ev, err := decode(t, tt.frame)
		if err != nil {
			t.Errorf("%s: %v", tt.frame, err)
			continue
		}
		tt.check(t, ev)
	}
}

func TestDecodeInbound_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"unknown event", `{"event":"teleport","data":{}}`, ErrUnknownEvent},
		{"client disconnect", `{"event":"disconnect"}`, ErrUnknownEvent},
		{"missing id", `{"event":"driver-join","data":{"driverName":"Siva"}}`, ErrInvalidPayload},
		{"wrong type", `{"event":"accept-emergency","data":{"emergencyId":42}}`, ErrInvalidPayload},
		{"share without ambulance", `{"event":"share-location-with-driver","data":{"userId":"P1"}}`, ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(t, tt.frame)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTimestamp_Lenient(t *testing.T) {
	tests := []struct {
		raw  string
		zero bool
	}{
		{`"2026-03-14T09:30:00.123Z"`, false},
		{`1773480600000`, false},
		{`"yesterday"`, true},
		{`null`, true},
	}
	for _, tt := range tests {
		var ts Timestamp
		if err := json.Unmarshal([]byte(tt.raw), &ts); err != nil {
			t.Errorf("%s: %v", tt.raw, err)
			continue
		}
		if ts.IsZero() != tt.zero {
			t.Errorf("%s: zero = %v, want %v", tt.raw, ts.IsZero(), tt.zero)
		}
	}
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := (Timestamp{}).or(fallback); !got.Equal(fallback) {
		t.Errorf("or() = %v", got)
	}
}

func TestEncode_Envelope(t *testing.T) {
	data, err := Encode(DistanceUpdate{AmbulanceID: "AMB-001", Distance: geo.Kilometers(0.5), ETA: "5"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"event":"distance-update","data":{"ambulanceId":"AMB-001","distance":"0.5","eta":"5"}}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}
}

func TestEncode_EmptyRosterIsArray(t *testing.T) {
	h, _, _ := newTestHub(t)
	data, err := Encode(RosterUpdate(h.Roster()))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `"data":[]`) {
		t.Errorf("empty roster should encode as [], got %s", data)
	}
}
