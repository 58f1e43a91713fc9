// Package geo holds the distance and ETA arithmetic shared by every location
// relay in the hub. All functions are pure.
package geo

import (
	"encoding/json"
	"math"
	"strconv"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0
	// AverageSpeedKmh is the constant ambulance speed assumed for ETAs.
	AverageSpeedKmh = 40.0
	// MinimumLeadMinutes is reported when the ETA rounds to zero.
	MinimumLeadMinutes = 5
)

// unknownText is what an unknown distance or ETA renders as on the wire.
const unknownText = "--"

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Known reports whether both coordinates are finite and non-zero. A zero
// coordinate is how clients describe "not located yet".
func (l Location) Known() bool {
	return usable(l.Latitude) && usable(l.Longitude)
}

func usable(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Distance is a great-circle distance rounded to one decimal place, or the
// Unknown sentinel.
type Distance struct {
	Km    float64
	Known bool
}

// Unknown is returned whenever one of the endpoints is not located.
var Unknown = Distance{}

// Kilometers returns a known distance of km, rounded to one decimal place.
func Kilometers(km float64) Distance {
	return Distance{Km: math.Round(km*10) / 10, Known: true}
}

func (d Distance) String() string {
	if !d.Known {
		return unknownText
	}
	return strconv.FormatFloat(d.Km, 'f', 1, 64)
}

// MarshalJSON encodes the distance the way clients display it ("0.7", "--").
func (d Distance) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// DistanceKm returns the haversine distance between a and b.
func DistanceKm(a, b Location) Distance {
	if !a.Known() || !b.Known() {
		return Unknown
	}

	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Latitude))*math.Cos(radians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return Kilometers(EarthRadiusKm * c)
}

// ETAMinutes converts a distance into whole minutes at AverageSpeedKmh.
// A distance that rounds to zero minutes reports MinimumLeadMinutes.
func ETAMinutes(d Distance) string {
	if !d.Known {
		return unknownText
	}
	minutes := int(math.Round(d.Km / AverageSpeedKmh * 60))
	if minutes <= 0 {
		minutes = MinimumLeadMinutes
	}
	return strconv.Itoa(minutes)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
