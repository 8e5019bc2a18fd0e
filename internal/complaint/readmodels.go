package complaint

import (
	"context"
	"fmt"

	"wastewatch/backend/internal/analysis"
	"wastewatch/backend/internal/models"

	geojson "github.com/paulmach/go.geojson"
)

// All returns every complaint regardless of status.
func (s *Service) All(ctx context.Context) ([]models.ComplaintRecord, error) {
	records, err := s.store.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load complaints: %w", err)
	}
	return records, nil
}

// Open returns the complaints still waiting for the authorities.
func (s *Service) Open(ctx context.Context) ([]models.ComplaintRecord, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]models.ComplaintRecord, 0, len(records))
	for _, r := range records {
		if r.IsOpen() {
			open = append(open, r)
		}
	}
	return open, nil
}

// Locations projects every complaint, any status, for the citizen map.
func (s *Service) Locations(ctx context.Context) ([]models.Location, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	locs := make([]models.Location, 0, len(records))
	for _, r := range records {
		locs = append(locs, r.ToLocation())
	}
	return locs, nil
}

// HeatmapPoints projects the open complaints for the authority heatmap.
func (s *Service) HeatmapPoints(ctx context.Context) ([]models.HeatPoint, error) {
	open, err := s.Open(ctx)
	if err != nil {
		return nil, err
	}
	points := make([]models.HeatPoint, 0, len(open))
	for _, r := range open {
		points = append(points, r.ToHeatPoint())
	}
	return points, nil
}

// HeatmapCells aggregates the open complaints into S2 cells at level.
func (s *Service) HeatmapCells(ctx context.Context, level int) ([]models.HeatCell, error) {
	points, err := s.HeatmapPoints(ctx)
	if err != nil {
		return nil, err
	}
	return analysis.AggregateHeat(points, level), nil
}

// OpenGeoJSON returns the open complaints as a FeatureCollection of points.
func (s *Service) OpenGeoJSON(ctx context.Context) (*geojson.FeatureCollection, error) {
	open, err := s.Open(ctx)
	if err != nil {
		return nil, err
	}
	return ToGeoJSON(open), nil
}

// ToGeoJSON converts records into point features keyed by image id.
func ToGeoJSON(records []models.ComplaintRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range records {
		f := geojson.NewPointFeature([]float64{r.Longitude, r.Latitude})
		f.ID = r.ImageID
		f.SetProperty("image_id", r.ImageID)
		f.SetProperty("pixel_area", r.PixelArea)
		f.SetProperty("status", string(r.Status))
		f.SetProperty("date", r.Date)
		f.SetProperty("intensity", analysis.Intensity(r.PixelArea))
		fc.AddFeature(f)
	}
	return fc
}

// CheckInvariant lists pairs of open complaints closer than the dedup radius.
// An empty result means the store is consistent.
func (s *Service) CheckInvariant(ctx context.Context) ([]analysis.ConflictPair, error) {
	open, err := s.Open(ctx)
	if err != nil {
		return nil, err
	}
	return analysis.FindConflicts(open, s.opts.RadiusMeters), nil
}

// RadiusMeters is the dedup radius the service enforces.
func (s *Service) RadiusMeters() float64 {
	return s.opts.RadiusMeters
}
