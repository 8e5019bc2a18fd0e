package config

const (
	// Store drivers
	StoreCSV      = "csv"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	// Image store drivers
	ImagesDisk = "disk"
	ImagesS3   = "s3"

	// Dedup
	DuplicateRadiusMeters = 150.0

	// Heatmap
	// Map embed page weight is pixel_area / HeatmapIntensityScale.
	HeatmapIntensityScale   = 10000.0
	DefaultHeatmapCellLevel = 15
	MinHeatmapCellLevel     = 6
	MaxHeatmapCellLevel     = 20

	// Dates
	DateLayout = "2006-01-02T15:04:05.000000"
)

// Advisory message keys, resolved through the localization catalogues.
const (
	MsgComplaintRegistered = "complaint_registered"
	MsgNoGarbageDetected   = "no_garbage_detected"
	MsgDuplicateLocation   = "duplicate_location"
	MsgNoImage             = "no_image"
	MsgInvalidInput        = "invalid_input"
	MsgNotFound            = "not_found"
	MsgResolved            = "resolved"
	MsgNoMatchingRecord    = "no_matching_record"
	MsgSegmentationFailed  = "segmentation_failed"
	MsgSegmentationTimeout = "segmentation_timeout"
	MsgStoreError          = "store_error"
	MsgRateLimited         = "rate_limited"
)
