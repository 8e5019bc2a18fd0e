package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"wastewatch/backend/internal/models"

	"github.com/apex/log"
)

// Header is the column layout of the CSV store.
var Header = []string{"image_id", "latitude", "longitude", "pixel_area", "status", "date"}

// CSVStore keeps all records in one CSV file. Every mutation reads the whole
// file, changes it in memory and atomically replaces the file, so the cost of
// a write grows with the number of records.
type CSVStore struct {
	path string
	mu   sync.RWMutex
}

// NewCSVStore opens the file at path, creating it with the header when it
// does not exist yet. An existing file must carry the expected header.
func NewCSVStore(path string) (*CSVStore, error) {
	s := &CSVStore{path: path}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory for %s: %w", ErrStore, path, err)
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist) || (err == nil && info.Size() == 0):
		if err := s.writeAll(nil); err != nil {
			return nil, err
		}
		log.Infof("Created complaint store %s", path)
	case err != nil:
		return nil, fmt.Errorf("%w: stat %s: %w", ErrStore, path, err)
	default:
		if _, err := s.readAll(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Path returns the backing file location.
func (s *CSVStore) Path() string {
	return s.path
}

func (s *CSVStore) Append(ctx context.Context, rec models.ComplaintRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readAll()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.ImageID == rec.ImageID {
			return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ImageID)
		}
	}

	return s.writeAll(append(records, rec))
}

func (s *CSVStore) ScanAll(ctx context.Context) ([]models.ComplaintRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.readAll()
}

func (s *CSVStore) UpdateStatus(ctx context.Context, imageID string, status models.Status) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readAll()
	if err != nil {
		return false, err
	}

	for i := range records {
		if records[i].ImageID != imageID {
			continue
		}
		if err := checkTransition(imageID, records[i].Status, status); err != nil {
			return true, err
		}
		if records[i].Status == status {
			return true, nil
		}
		records[i].Status = status
		return true, s.writeAll(records)
	}
	return false, nil
}

func (s *CSVStore) Close() error {
	return nil
}

func (s *CSVStore) readAll() ([]models.ComplaintRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStore, s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s has no header", ErrSchemaMismatch, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header of %s: %w", ErrStore, s.path, err)
	}
	if !sameColumns(header, Header) {
		return nil, fmt.Errorf("%w: %s has columns %v, want %v", ErrSchemaMismatch, s.path, header, Header)
	}

	var records []models.ComplaintRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %w", ErrStore, s.path, line, err)
		}
		if len(row) != len(Header) {
			return nil, fmt.Errorf("%w: %s line %d: %d fields, want %d", ErrStore, s.path, line, len(row), len(Header))
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %w", ErrStore, s.path, line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// writeAll replaces the store with header plus records. The data goes to a
// temporary file in the same directory first and is renamed over the store
// only once it is fully synced.
func (s *CSVStore) writeAll(records []models.ComplaintRecord) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrStore, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = WriteCSV(tmp, records); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %w", ErrStore, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %w", ErrStore, err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %w", ErrStore, s.path, err)
	}
	return nil
}

// WriteCSV writes the header and records in the store's column layout.
func WriteCSV(out io.Writer, records []models.ComplaintRecord) error {
	w := csv.NewWriter(out)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(formatRow(rec)); err != nil {
			return fmt.Errorf("write record %s: %w", rec.ImageID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func formatRow(rec models.ComplaintRecord) []string {
	return []string{
		rec.ImageID,
		strconv.FormatFloat(rec.Latitude, 'f', -1, 64),
		strconv.FormatFloat(rec.Longitude, 'f', -1, 64),
		strconv.FormatInt(rec.PixelArea, 10),
		string(rec.Status),
		rec.Date,
	}
}

func parseRow(row []string) (models.ComplaintRecord, error) {
	rec := models.ComplaintRecord{
		ImageID: row[0],
		Status:  models.Status(row[4]),
		Date:    row[5],
	}
	if rec.ImageID == "" {
		return rec, errors.New("empty image_id")
	}

	var err error
	if rec.Latitude, err = strconv.ParseFloat(row[1], 64); err != nil {
		return rec, fmt.Errorf("latitude: %w", err)
	}
	if rec.Longitude, err = strconv.ParseFloat(row[2], 64); err != nil {
		return rec, fmt.Errorf("longitude: %w", err)
	}
	if rec.PixelArea, err = parsePixelArea(row[3]); err != nil {
		return rec, fmt.Errorf("pixel_area: %w", err)
	}
	if !rec.Status.Valid() {
		return rec, fmt.Errorf("unknown status %q", row[4])
	}
	return rec, nil
}

// parsePixelArea accepts integers and the "4200.0" form other tools write.
func parsePixelArea(v string) (int64, error) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("invalid value %q", v)
	}
	return int64(math.Round(f)), nil
}

func sameColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
