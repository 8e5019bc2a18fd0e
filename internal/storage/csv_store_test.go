package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"wastewatch/backend/internal/config"
	"wastewatch/backend/internal/models"
	"wastewatch/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVStore_CreatesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "complaints.csv")

	_, err := storage.NewCSVStore(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image_id,latitude,longitude,pixel_area,status,date\n", string(data))
}

func TestCSVStore_HeaderOnEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "complaints.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := storage.NewCSVStore(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "image_id,latitude")
}

func TestCSVStore_SchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "complaints.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,lat,lon\n1,2,3\n"), 0o644))

	_, err := storage.NewCSVStore(path)
	assert.ErrorIs(t, err, storage.ErrSchemaMismatch)
}

func TestCSVStore_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "complaints.csv")
	content := "image_id,latitude,longitude,pixel_area,status,date\n" +
		"a1,12.9716,77.5946,4200.0,processing,2024-05-01T10:00:00.000Z\n" +
		"b2,13.0,77.6,0,resolved,2024-05-02T08:30:00\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := storage.NewCSVStore(path)
	require.NoError(t, err)

	records, err := s.ScanAll(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.ComplaintRecord{
		{ImageID: "a1", Latitude: 12.9716, Longitude: 77.5946, PixelArea: 4200, Status: models.StatusProcessing, Date: "2024-05-01T10:00:00.000Z"},
		{ImageID: "b2", Latitude: 13.0, Longitude: 77.6, PixelArea: 0, Status: models.StatusResolved, Date: "2024-05-02T08:30:00"},
	}, records)
}

func TestCSVStore_CorruptRow(t *testing.T) {
	tests := map[string]string{
		"bad latitude":   "a1,north,77.5946,10,processing,2024\n",
		"unknown status": "a1,12.9,77.5,10,closed,2024\n",
		"missing field":  "a1,12.9,77.5,10,processing\n",
		"negative area":  "a1,12.9,77.5,-3,processing,2024\n",
	}
	for name, row := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "complaints.csv")
			content := "image_id,latitude,longitude,pixel_area,status,date\n" + row
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := storage.NewCSVStore(path)
			assert.ErrorIs(t, err, storage.ErrStore)
		})
	}
}

func TestCSVStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "complaints.csv")

	s, err := storage.NewCSVStore(path)
	require.NoError(t, err)
	rec := models.ComplaintRecord{ImageID: "a1", Latitude: -33.8688, Longitude: 151.2093, PixelArea: 12, Status: models.StatusProcessing, Date: "d"}
	require.NoError(t, s.Append(ctx, rec))
	_, err = s.UpdateStatus(ctx, "a1", models.StatusResolved)
	require.NoError(t, err)

	reopened, err := storage.NewCSVStore(path)
	require.NoError(t, err)
	records, err := reopened.ScanAll(ctx)
	require.NoError(t, err)

	rec.Status = models.StatusResolved
	assert.Equal(t, []models.ComplaintRecord{rec}, records)
}

func TestCSVStore_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := storage.NewCSVStore(filepath.Join(dir, "complaints.csv"))
	require.NoError(t, err)

	for _, rec := range sampleRecords(3) {
		require.NoError(t, s.Append(ctx, rec))
	}
	_, err = s.UpdateStatus(ctx, "img-000", models.StatusResolved)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "complaints.csv", entries[0].Name())
}

func TestCSVStore_CancelledContext(t *testing.T) {
	s, err := storage.NewCSVStore(filepath.Join(t.TempDir(), "complaints.csv"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Append(ctx, sampleRecords(1)[0]), context.Canceled)
	_, err = s.ScanAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	s, err := storage.Open(config.Store{Driver: config.StoreCSV, CSVPath: filepath.Join(t.TempDir(), "c.csv")})
	require.NoError(t, err)
	assert.IsType(t, &storage.CSVStore{}, s)

	_, err = storage.Open(config.Store{Driver: "mongo"})
	assert.Error(t, err)
}
