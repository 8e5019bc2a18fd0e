package storage_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"wastewatch/backend/internal/models"
	"wastewatch/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) storage.Storage

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"csv": func(t *testing.T) storage.Storage {
			s, err := storage.NewCSVStore(filepath.Join(t.TempDir(), "data", "complaints.csv"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) storage.Storage {
			s, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "complaints.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func sampleRecords(n int) []models.ComplaintRecord {
	records := make([]models.ComplaintRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, models.ComplaintRecord{
			ImageID:   fmt.Sprintf("img-%03d", i),
			Latitude:  12.9716 + float64(i)*0.01,
			Longitude: 77.5946 - float64(i)*0.01,
			PixelArea: int64(i * 1000),
			Status:    models.StatusProcessing,
			Date:      "2024-05-01T10:00:00.000Z",
		})
	}
	return records
}

func TestStore_RoundTrip(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			written := sampleRecords(5)
			written[2].Status = models.StatusResolved
			for _, rec := range written {
				require.NoError(t, s.Append(ctx, rec))
			}

			read, err := s.ScanAll(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, written, read)
		})
	}
}

func TestStore_EmptyScan(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			read, err := newStore(t).ScanAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, read)
		})
	}
}

func TestStore_AppendDuplicateID(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			rec := sampleRecords(1)[0]

			require.NoError(t, s.Append(ctx, rec))
			err := s.Append(ctx, rec)
			assert.ErrorIs(t, err, storage.ErrDuplicateID)

			read, err := s.ScanAll(ctx)
			require.NoError(t, err)
			assert.Len(t, read, 1)
		})
	}
}

func TestStore_UpdateStatus(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			written := sampleRecords(3)
			for _, rec := range written {
				require.NoError(t, s.Append(ctx, rec))
			}

			found, err := s.UpdateStatus(ctx, "img-001", models.StatusResolved)
			require.NoError(t, err)
			assert.True(t, found)

			read, err := s.ScanAll(ctx)
			require.NoError(t, err)
			want := append([]models.ComplaintRecord(nil), written...)
			want[1].Status = models.StatusResolved
			assert.ElementsMatch(t, want, read, "only the status of the target record changes")
		})
	}
}

func TestStore_UpdateStatusUnknownID(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			written := sampleRecords(2)
			for _, rec := range written {
				require.NoError(t, s.Append(ctx, rec))
			}

			found, err := s.UpdateStatus(ctx, "missing", models.StatusResolved)
			require.NoError(t, err)
			assert.False(t, found)

			read, err := s.ScanAll(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, written, read)
		})
	}
}

func TestStore_ResolveIsIdempotent(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			require.NoError(t, s.Append(ctx, sampleRecords(1)[0]))

			for i := 0; i < 2; i++ {
				found, err := s.UpdateStatus(ctx, "img-000", models.StatusResolved)
				require.NoError(t, err)
				assert.True(t, found)
			}

			read, err := s.ScanAll(ctx)
			require.NoError(t, err)
			require.Len(t, read, 1)
			assert.Equal(t, models.StatusResolved, read[0].Status)
		})
	}
}

func TestStore_StatusNeverGoesBack(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			rec := sampleRecords(1)[0]
			rec.Status = models.StatusResolved
			require.NoError(t, s.Append(ctx, rec))

			found, err := s.UpdateStatus(ctx, rec.ImageID, models.StatusProcessing)
			assert.True(t, found)
			assert.ErrorIs(t, err, storage.ErrInvalidTransition)

			read, err := s.ScanAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, models.StatusResolved, read[0].Status)
		})
	}
}

func TestStore_ConcurrentAppends(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			written := sampleRecords(20)

			var wg sync.WaitGroup
			for _, rec := range written {
				wg.Add(1)
				go func(rec models.ComplaintRecord) {
					defer wg.Done()
					assert.NoError(t, s.Append(ctx, rec))
				}(rec)
			}
			wg.Wait()

			read, err := s.ScanAll(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, written, read)
		})
	}
}
