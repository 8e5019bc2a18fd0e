package analysis

import (
	"sort"

	"wastewatch/backend/internal/config"
	"wastewatch/backend/internal/models"

	"github.com/golang/geo/s2"
)

type heatUnit struct {
	count     int64
	pixelArea int64
	origin    s2.LatLng
}

// AggregateHeat groups points by their S2 parent cell at level. A cell holding
// a single point keeps that point's exact position; larger groups are placed
// at the cell centre.
func AggregateHeat(points []models.HeatPoint, level int) []models.HeatCell {
	level = ClampLevel(level)

	units := make(map[s2.CellID]*heatUnit)
	for _, p := range points {
		ll := s2.LatLngFromDegrees(p.Latitude, p.Longitude)
		parent := s2.CellIDFromLatLng(ll).Parent(level)
		u, ok := units[parent]
		if !ok {
			u = &heatUnit{origin: ll}
			units[parent] = u
		}
		u.count++
		u.pixelArea += p.PixelArea
	}

	cells := make([]models.HeatCell, 0, len(units))
	for id, u := range units {
		ll := id.LatLng()
		if u.count == 1 {
			ll = u.origin
		}
		cells = append(cells, models.HeatCell{
			CellID:    id.ToToken(),
			Latitude:  ll.Lat.Degrees(),
			Longitude: ll.Lng.Degrees(),
			Count:     u.count,
			PixelArea: u.pixelArea,
		})
	}

	sort.Slice(cells, func(i, j int) bool { return cells[i].CellID < cells[j].CellID })
	return cells
}

// ClampLevel keeps an S2 level inside the range the dashboards support.
func ClampLevel(level int) int {
	if level < config.MinHeatmapCellLevel {
		return config.MinHeatmapCellLevel
	}
	if level > config.MaxHeatmapCellLevel {
		return config.MaxHeatmapCellLevel
	}
	return level
}

// Intensity is the heat weight of a complaint on the citizen map.
func Intensity(pixelArea int64) float64 {
	return float64(pixelArea) / config.HeatmapIntensityScale
}
