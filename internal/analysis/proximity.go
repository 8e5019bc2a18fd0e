// Package analysis holds the geographic rules applied to complaints: the
// proximity check that suppresses duplicate reports and the heatmap
// aggregation used by the dashboards.
package analysis

import (
	"wastewatch/backend/internal/models"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius (IUGG).
const EarthRadiusMeters = 6371008.8

// DistanceMeters returns the great-circle distance between two points given
// in decimal degrees.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * EarthRadiusMeters
}

// FindDuplicate returns the first record strictly closer than radiusMeters to
// the candidate point. No status filtering is done here.
func FindDuplicate(lat, lon float64, records []models.ComplaintRecord, radiusMeters float64) (models.ComplaintRecord, bool) {
	for _, rec := range records {
		if DistanceMeters(lat, lon, rec.Latitude, rec.Longitude) < radiusMeters {
			return rec, true
		}
	}
	return models.ComplaintRecord{}, false
}

// IsDuplicate reports whether any record lies strictly within radiusMeters.
func IsDuplicate(lat, lon float64, records []models.ComplaintRecord, radiusMeters float64) bool {
	_, found := FindDuplicate(lat, lon, records, radiusMeters)
	return found
}

// ConflictPair is two records closer to each other than the dedup radius.
type ConflictPair struct {
	A, B           models.ComplaintRecord
	DistanceMeters float64
}

// FindConflicts lists every pair of records closer than radiusMeters.
// It is quadratic and meant for audits, not for the request path.
func FindConflicts(records []models.ComplaintRecord, radiusMeters float64) []ConflictPair {
	var pairs []ConflictPair
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			d := DistanceMeters(records[i].Latitude, records[i].Longitude, records[j].Latitude, records[j].Longitude)
			if d < radiusMeters {
				pairs = append(pairs, ConflictPair{A: records[i], B: records[j], DistanceMeters: d})
			}
		}
	}
	return pairs
}
