package config_test

import (
	"testing"
	"time"

	"wastewatch/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.HTTP.Port)
	assert.Equal(t, config.StoreCSV, cfg.Store.Driver)
	assert.Equal(t, "data/complaints.csv", cfg.Store.CSVPath)
	assert.Equal(t, config.ImagesDisk, cfg.Images.Driver)
	assert.Equal(t, 30*time.Second, cfg.Segmentation.Timeout)
	assert.Equal(t, 150.0, cfg.Dedup.RadiusMeters)
	assert.False(t, cfg.Dedup.IncludeResolved)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("STORE_DSN", "file::memory:")
	t.Setenv("SEGMENTATION_TIMEOUT", "5s")
	t.Setenv("DEDUP_INCLUDE_RESOLVED", "true")

	cfg, err := config.New()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.HTTP.Port)
	assert.Equal(t, config.StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Segmentation.Timeout)
	assert.True(t, cfg.Dedup.IncludeResolved)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		valid bool
	}{
		{name: "unknown store", env: map[string]string{"STORE_DRIVER": "mongo"}},
		{name: "postgres without dsn", env: map[string]string{"STORE_DRIVER": "postgres"}},
		{name: "s3 without bucket", env: map[string]string{"IMAGES_DRIVER": "s3"}},
		{name: "zero timeout", env: map[string]string{"SEGMENTATION_TIMEOUT": "0s"}},
		{name: "telegram without chat", env: map[string]string{"TELEGRAM_BOT_TOKEN": "123:abc"}},
		{name: "s3 with bucket", env: map[string]string{"IMAGES_DRIVER": "s3", "S3_BUCKET": "complaints"}, valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.New()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLogSetup(t *testing.T) {
	assert.NoError(t, config.Log{Level: "debug", Format: "json"}.Setup())
	assert.NoError(t, config.Log{Level: "info", Format: "text"}.Setup())
	assert.Error(t, config.Log{Level: "loud", Format: "text"}.Setup())
	assert.Error(t, config.Log{Level: "info", Format: "xml"}.Setup())
}
