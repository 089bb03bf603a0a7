// Package geo classifies phone coordinates into commute zones. The zone
// decides which summary the notification renders: the home-side bus view, the
// city-side subway and rail view, or the Newark return view.
package geo

import (
	"math"

	"commutewatch/internal/types"
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// Anchor coordinates for the commute.
var (
	Home   = Point{Lat: 40.64101, Lon: -74.38390}
	Penn   = Point{Lat: 40.7506, Lon: -73.9935}
	Office = Point{Lat: 40.7581, Lon: -73.9700}
	Newark = Point{Lat: 40.7347, Lon: -74.1641}
)

const (
	// zoneThresholdMeters is the radius that places a coordinate inside a
	// zone anchor.
	zoneThresholdMeters = 10000

	// pennProximityMeters is the tighter radius that counts as being at
	// Penn Station itself, used to arm the arrival monitor.
	pennProximityMeters = 300

	earthRadiusMeters = 6371000
)

// DistanceMeters returns the haversine great-circle distance between two
// points.
func DistanceMeters(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Near reports whether p is within threshold meters of target.
func Near(p, target Point, thresholdMeters float64) bool {
	return DistanceMeters(p, target) <= thresholdMeters
}

// ZoneFor classifies a coordinate into a commute zone. Home wins over the
// city anchors when both are somehow in range; coordinates outside every
// anchor are unknown.
func ZoneFor(lat, lon float64) types.Zone {
	p := Point{Lat: lat, Lon: lon}
	switch {
	case Near(p, Home, zoneThresholdMeters):
		return types.ZoneHome
	case Near(p, Penn, zoneThresholdMeters), Near(p, Office, zoneThresholdMeters):
		return types.ZoneNYC
	case Near(p, Newark, zoneThresholdMeters):
		return types.ZoneNewark
	default:
		return types.ZoneUnknown
	}
}

// IsNearPennStation reports whether the coordinate is close enough to Penn
// Station to arm the train arrival monitor.
func IsNearPennStation(lat, lon float64) bool {
	return Near(Point{Lat: lat, Lon: lon}, Penn, pennProximityMeters)
}
