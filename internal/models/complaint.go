package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusResolved   Status = "resolved"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	return s == StatusProcessing || s == StatusResolved
}

// CanTransitionTo reports whether a record in state s may be moved to next.
// Re-resolving a resolved record is allowed and changes nothing.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusProcessing:
		return next == StatusProcessing || next == StatusResolved
	case StatusResolved:
		return next == StatusResolved
	default:
		return false
	}
}

// ComplaintRecord is a citizen report of garbage at a location, with the
// pixel area measured on the submitted photo.
type ComplaintRecord struct {
	// ImageID is the primary key, also used to name the stored images.
	ImageID   string  `gorm:"primaryKey;type:varchar(36)" json:"image_id"`
	Latitude  float64 `gorm:"not null" json:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude"`
	// PixelArea is the number of pixels the segmentation engine marked as garbage.
	PixelArea int64  `gorm:"not null" json:"pixel_area"`
	Status    Status `gorm:"type:varchar(16);not null;index" json:"status"`
	// Date is kept as submitted by the client, or the server time at intake.
	Date string `gorm:"type:varchar(64)" json:"date"`
}

// TableName keeps the table name stable regardless of gorm naming strategy.
func (ComplaintRecord) TableName() string {
	return "complaints"
}

// BeforeCreate fills ImageID with a new UUID when the caller did not set one.
func (c *ComplaintRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ImageID == "" {
		c.ImageID = uuid.New().String()
	}
	return
}

// IsOpen reports whether the complaint still waits for the authorities.
func (c ComplaintRecord) IsOpen() bool {
	return c.Status == StatusProcessing
}

// Location is the map projection of a record, used by the citizen map.
type Location struct {
	ImageID   string  `json:"image_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PixelArea int64   `json:"pixel_area"`
}

// HeatPoint is a heatmap sample: position plus intensity source.
type HeatPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PixelArea int64   `json:"pixel_area"`
}

// HeatCell is an aggregated group of heat points sharing an S2 cell.
type HeatCell struct {
	CellID    string  `json:"cell_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Count     int64   `json:"count"`
	PixelArea int64   `json:"pixel_area"`
}

// ToLocation projects the record onto the citizen map view.
func (c ComplaintRecord) ToLocation() Location {
	return Location{
		ImageID:   c.ImageID,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		PixelArea: c.PixelArea,
	}
}

// ToHeatPoint projects the record onto the heatmap view.
func (c ComplaintRecord) ToHeatPoint() HeatPoint {
	return HeatPoint{
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		PixelArea: c.PixelArea,
	}
}
