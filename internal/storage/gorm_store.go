package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"wastewatch/backend/internal/models"

	"github.com/apex/log"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const pqUniqueViolation = "23505"

// GormStore keeps complaints in a relational table.
type GormStore struct {
	DB *gorm.DB

	// mu serializes writers so that a status change never interleaves with
	// another mutation, the same discipline as the flat-file store.
	mu sync.Mutex
}

// OpenPostgres connects with lib/pq and hands the pool to gorm.
func OpenPostgres(dsn string) (*GormStore, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %w", ErrStore, err)
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: connect postgres: %w", ErrStore, err)
	}
	return NewGormStore(db)
}

// OpenSQLite opens (or creates) an SQLite database file.
func OpenSQLite(dsn string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrStore, err)
	}
	return NewGormStore(db)
}

// NewGormStore migrates the complaints table on db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&models.ComplaintRecord{}); err != nil {
		return nil, fmt.Errorf("%w: migrate complaints: %w", ErrStore, err)
	}
	log.Infof("Complaint table ready (%s)", db.Dialector.Name())
	return &GormStore{DB: db}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
}

func (s *GormStore) Append(ctx context.Context, rec models.ComplaintRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.DB.WithContext(ctx).Create(&rec).Error
	if isDuplicateKey(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ImageID)
	}
	if err != nil {
		return fmt.Errorf("%w: insert %s: %w", ErrStore, rec.ImageID, err)
	}
	return nil
}

func (s *GormStore) ScanAll(ctx context.Context) ([]models.ComplaintRecord, error) {
	var records []models.ComplaintRecord
	if err := s.DB.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("%w: scan complaints: %w", ErrStore, err)
	}
	return records, nil
}

func (s *GormStore) UpdateStatus(ctx context.Context, imageID string, status models.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.ComplaintRecord
		err := tx.Where("image_id = ?", imageID).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: find %s: %w", ErrStore, imageID, err)
		}
		found = true

		if err := checkTransition(imageID, rec.Status, status); err != nil {
			return err
		}
		if rec.Status == status {
			return nil
		}
		if err := tx.Model(&rec).Update("status", status).Error; err != nil {
			return fmt.Errorf("%w: update %s: %w", ErrStore, imageID, err)
		}
		return nil
	})
	return found, err
}

func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
