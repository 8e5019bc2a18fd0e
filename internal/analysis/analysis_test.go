package analysis_test

import (
	"math"
	"testing"

	"wastewatch/backend/internal/analysis"
	"wastewatch/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metersNorth returns the latitude reached by walking m meters north of lat.
func metersNorth(lat, m float64) float64 {
	return lat + m/analysis.EarthRadiusMeters*180/math.Pi
}

func TestDistanceMeters(t *testing.T) {
	assert.InDelta(t, 0, analysis.DistanceMeters(12.9716, 77.5946, 12.9716, 77.5946), 1e-9)

	// Neighbouring reports in Bengaluru, about 15 m apart.
	d := analysis.DistanceMeters(12.9716, 77.5946, 12.9717, 77.5947)
	assert.InDelta(t, 15.3, d, 1.0)

	// One degree of latitude.
	assert.InDelta(t, 111195, analysis.DistanceMeters(0, 0, 1, 0), 10)

	// Symmetric.
	assert.InDelta(t,
		analysis.DistanceMeters(51.5074, -0.1278, 48.8566, 2.3522),
		analysis.DistanceMeters(48.8566, 2.3522, 51.5074, -0.1278), 1e-6)
}

func TestDistanceMeters_Antimeridian(t *testing.T) {
	d := analysis.DistanceMeters(0, 179.9995, 0, -179.9995)
	assert.InDelta(t, 111.2, d, 1.0)
}

func TestIsDuplicate(t *testing.T) {
	base := models.ComplaintRecord{ImageID: "base", Latitude: 12.9716, Longitude: 77.5946}
	records := []models.ComplaintRecord{base}

	tests := []struct {
		name   string
		meters float64
		want   bool
	}{
		{"same spot", 0, true},
		{"inside radius", 100, true},
		{"just inside", 149, true},
		{"just outside", 151, false},
		{"far away", 5000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat := metersNorth(base.Latitude, tt.meters)
			assert.Equal(t, tt.want, analysis.IsDuplicate(lat, base.Longitude, records, 150))
		})
	}
}

func TestIsDuplicate_EmptySet(t *testing.T) {
	assert.False(t, analysis.IsDuplicate(1, 1, nil, 150))
}

func TestFindDuplicate_ReturnsFirstMatch(t *testing.T) {
	records := []models.ComplaintRecord{
		{ImageID: "far", Latitude: 10, Longitude: 10},
		{ImageID: "near-1", Latitude: 12.9716, Longitude: 77.5946},
		{ImageID: "near-2", Latitude: 12.97161, Longitude: 77.59461},
	}

	rec, found := analysis.FindDuplicate(12.9717, 77.5947, records, 150)
	require.True(t, found)
	assert.Equal(t, "near-1", rec.ImageID)
}

func TestFindConflicts(t *testing.T) {
	records := []models.ComplaintRecord{
		{ImageID: "a", Latitude: 12.9716, Longitude: 77.5946},
		{ImageID: "b", Latitude: 12.9717, Longitude: 77.5947},
		{ImageID: "c", Latitude: 13.5, Longitude: 77.5},
	}

	pairs := analysis.FindConflicts(records, 150)
	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].A.ImageID)
	assert.Equal(t, "b", pairs[0].B.ImageID)
	assert.Less(t, pairs[0].DistanceMeters, 150.0)

	assert.Empty(t, analysis.FindConflicts(records[2:], 150))
}

func TestAggregateHeat(t *testing.T) {
	points := []models.HeatPoint{
		{Latitude: 12.97160, Longitude: 77.59460, PixelArea: 100},
		{Latitude: 12.97165, Longitude: 77.59465, PixelArea: 300},
		{Latitude: 28.6139, Longitude: 77.2090, PixelArea: 50},
	}

	cells := analysis.AggregateHeat(points, 10)
	require.Len(t, cells, 2)

	var total, count int64
	var single *models.HeatCell
	for i := range cells {
		total += cells[i].PixelArea
		count += cells[i].Count
		if cells[i].Count == 1 {
			single = &cells[i]
		}
		assert.NotEmpty(t, cells[i].CellID)
	}
	assert.Equal(t, int64(450), total)
	assert.Equal(t, int64(3), count)

	require.NotNil(t, single)
	assert.InDelta(t, 28.6139, single.Latitude, 1e-9, "single point cell keeps the exact position")
	assert.InDelta(t, 77.2090, single.Longitude, 1e-9)
}

func TestAggregateHeat_Empty(t *testing.T) {
	assert.Empty(t, analysis.AggregateHeat(nil, 12))
}

func TestClampLevel(t *testing.T) {
	assert.Equal(t, 6, analysis.ClampLevel(1))
	assert.Equal(t, 12, analysis.ClampLevel(12))
	assert.Equal(t, 20, analysis.ClampLevel(30))
}

func TestIntensity(t *testing.T) {
	assert.InDelta(t, 0.42, analysis.Intensity(4200), 1e-12)
	assert.Equal(t, 0.0, analysis.Intensity(0))
}
