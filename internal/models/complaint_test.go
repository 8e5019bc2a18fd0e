package models_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"wastewatch/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestComplaintBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestComplaintBeforeCreate_GeneratesUUID(t *testing.T) {
	c := &models.ComplaintRecord{
		Latitude:  12.9716,
		Longitude: 77.5946,
		PixelArea: 4200,
		Status:    models.StatusProcessing,
	}
	assert.Empty(t, c.ImageID)

	err := c.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(c.ImageID)
	assert.NoError(t, parseErr, "ImageID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
}

// TestComplaintBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestComplaintBeforeCreate_PreservesExistingID(t *testing.T) {
	existing := uuid.New().String()
	c := &models.ComplaintRecord{ImageID: existing}

	assert.NoError(t, c.BeforeCreate(nil))
	assert.Equal(t, existing, c.ImageID)
}

func TestComplaintBeforeCreate_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		c := &models.ComplaintRecord{}
		require.NoError(t, c.BeforeCreate(nil))
		assert.NotContains(t, seen, c.ImageID)
		seen[c.ImageID] = true
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to models.Status
		allowed  bool
	}{
		{models.StatusProcessing, models.StatusResolved, true},
		{models.StatusResolved, models.StatusResolved, true},
		{models.StatusResolved, models.StatusProcessing, false},
		{models.StatusProcessing, models.Status("archived"), false},
		{models.Status("archived"), models.StatusResolved, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, models.StatusProcessing.Valid())
	assert.True(t, models.StatusResolved.Valid())
	assert.False(t, models.Status("").Valid())
}

// TestComplaintJSONFieldNames pins the wire names used by the mobile app and dashboards.
func TestComplaintJSONFieldNames(t *testing.T) {
	c := models.ComplaintRecord{
		ImageID:   "abc",
		Latitude:  1.5,
		Longitude: 2.5,
		PixelArea: 10,
		Status:    models.StatusProcessing,
		Date:      "2024-05-01T10:00:00Z",
	}
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, name := range []string{"image_id", "latitude", "longitude", "pixel_area", "status", "date"} {
		assert.Contains(t, fields, name)
	}
	assert.Equal(t, "processing", fields["status"])
}

func TestComplaintStructTags(t *testing.T) {
	typ := reflect.TypeOf(models.ComplaintRecord{})

	idField, found := typ.FieldByName("ImageID")
	require.True(t, found)
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey")

	statusField, found := typ.FieldByName("Status")
	require.True(t, found)
	assert.Contains(t, statusField.Tag.Get("gorm"), "index")
}

func TestProjections(t *testing.T) {
	c := models.ComplaintRecord{
		ImageID:   "id-1",
		Latitude:  12.9716,
		Longitude: 77.5946,
		PixelArea: 4200,
		Status:    models.StatusProcessing,
		Date:      "2024-05-01",
	}

	assert.Equal(t, models.Location{ImageID: "id-1", Latitude: 12.9716, Longitude: 77.5946, PixelArea: 4200}, c.ToLocation())
	assert.Equal(t, models.HeatPoint{Latitude: 12.9716, Longitude: 77.5946, PixelArea: 4200}, c.ToHeatPoint())
	assert.True(t, c.IsOpen())

	c.Status = models.StatusResolved
	assert.False(t, c.IsOpen())
}
