package services

import (
	"satin/contexts/verification/impact-oracle/domain/entities"
	"satin/internal/shared/geo"
)

// HighNeedZone cross-references a location against known humanitarian
// crisis regions. A submission inside a zone inherits its poverty index.
type HighNeedZone struct {
	Name         string
	Latitude     float64
	Longitude    float64
	RadiusKm     float64
	PovertyIndex float64
}

var HighNeedZones = []HighNeedZone{
	{Name: "Yemen", Latitude: 14.4974, Longitude: 46.9611, RadiusKm: 200, PovertyIndex: 0.95},
	{Name: "Sudan", Latitude: 15.5527, Longitude: 32.5324, RadiusKm: 150, PovertyIndex: 0.88},
	{Name: "DRC", Latitude: -0.2280, Longitude: 15.8277, RadiusKm: 300, PovertyIndex: 0.90},
	{Name: "Afghanistan", Latitude: 33.9391, Longitude: 67.7100, RadiusKm: 200, PovertyIndex: 0.85},
	{Name: "Somalia", Latitude: 12.3714, Longitude: 43.1456, RadiusKm: 180, PovertyIndex: 0.87},
}

// GPSCheck is the location validation outcome.
type GPSCheck struct {
	Valid                bool
	Reason               string
	InHighNeedZone       bool
	DetectedPovertyIndex float64
	NearestZone          string
	DistanceToNearestKm  float64
}

// ValidateGPS range-checks a coordinate and scans the high-need zones.
func ValidateGPS(gps entities.GPSCoordinate) GPSCheck {
	if !geo.InRange(gps.Latitude, gps.Longitude) {
		return GPSCheck{Valid: false, Reason: "coordinates out of range"}
	}

	check := GPSCheck{Valid: true, DistanceToNearestKm: -1}
	for _, zone := range HighNeedZones {
		dist := geo.HaversineKm(gps.Latitude, gps.Longitude, zone.Latitude, zone.Longitude)
		if check.DistanceToNearestKm < 0 || dist < check.DistanceToNearestKm {
			check.DistanceToNearestKm = dist
			check.NearestZone = zone.Name
			if dist <= zone.RadiusKm {
				check.InHighNeedZone = true
				check.DetectedPovertyIndex = zone.PovertyIndex
			}
		}
	}
	return check
}
