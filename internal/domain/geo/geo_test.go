package geo

import (
	"encoding/json"
	"math"
	"testing"
)

var (
	coimbatore = Location{Latitude: 10.8998, Longitude: 76.9962}
	hospital   = Location{Latitude: 10.904214, Longitude: 76.998148}
	farPoint   = Location{Latitude: 10.95, Longitude: 77.05}
)

func TestDistanceKm_SamePointIsZero(t *testing.T) {
	points := []Location{coimbatore, hospital, farPoint, {Latitude: -33.86, Longitude: 151.21}}
	for _, p := range points {
		d := DistanceKm(p, p)
		if !d.Known {
			t.Fatalf("DistanceKm(%v, %v) should be known", p, p)
		}
		if d.Km != 0 {
			t.Errorf("DistanceKm(%v, %v) = %v, want 0", p, p, d.Km)
		}
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	pairs := [][2]Location{
		{coimbatore, hospital},
		{coimbatore, farPoint},
		{hospital, farPoint},
		{{Latitude: 51.5, Longitude: -0.12}, {Latitude: 40.71, Longitude: -74.0}},
	}
	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1])
		ba := DistanceKm(p[1], p[0])
		if ab != ba {
			t.Errorf("DistanceKm not symmetric: %v vs %v for %v", ab, ba, p)
		}
	}
}

func TestDistanceKm_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b Location
		want float64
	}{
		{"short hop", coimbatore, hospital, 0.5},
		{"across town", coimbatore, farPoint, 8.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if !got.Known || got.Km != tt.want {
				t.Errorf("DistanceKm = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistanceKm_UnknownWhenNotLocated(t *testing.T) {
	tests := []struct {
		name string
		a, b Location
	}{
		{"zero origin", Location{}, hospital},
		{"zero destination", hospital, Location{}},
		{"zero latitude", Location{Longitude: 76.9}, hospital},
		{"NaN", Location{Latitude: math.NaN(), Longitude: 76.9}, hospital},
		{"Inf", Location{Latitude: 10, Longitude: math.Inf(1)}, hospital},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DistanceKm(tt.a, tt.b); got.Known {
				t.Errorf("expected unknown distance, got %v", got)
			}
		})
	}
}

func TestETAMinutes(t *testing.T) {
	tests := []struct {
		name string
		d    Distance
		want string
	}{
		{"zero distance", Kilometers(0), "5"},
		{"tiny distance", Kilometers(0.1), "5"},
		{"rounds to zero", Kilometers(0.3), "5"},
		{"sub-kilometre", Kilometers(0.7), "1"},
		{"short hop", Kilometers(1.3), "2"},
		{"two kilometres", Kilometers(2.0), "3"},
		{"under lead time", Kilometers(2.9), "4"},
		{"past lead time", Kilometers(3.4), "5"},
		{"across town", Kilometers(8.1), "12"},
		{"long haul", Kilometers(100), "150"},
		{"unknown", Unknown, "--"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ETAMinutes(tt.d); got != tt.want {
				t.Errorf("ETAMinutes(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestKilometers_RoundsToOneDecimal(t *testing.T) {
	if got := Kilometers(0.5349); got.Km != 0.5 {
		t.Errorf("Kilometers(0.5349) = %v, want 0.5", got.Km)
	}
	if got := Kilometers(1.26); got.Km != 1.3 {
		t.Errorf("Kilometers(1.26) = %v, want 1.3", got.Km)
	}
}

func TestDistance_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Distance{"known": Kilometers(2.25), "unknown": Unknown})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"known":"2.3","unknown":"--"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestLocation_Known(t *testing.T) {
	if (Location{}).Known() {
		t.Error("zero location must not be known")
	}
	if !coimbatore.Known() {
		t.Error("expected located point to be known")
	}
}
