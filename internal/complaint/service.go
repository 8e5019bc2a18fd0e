// Package complaint is the lifecycle manager of garbage complaints: intake
// with proximity deduplication and segmentation, resolution, and the read
// models behind the dashboards.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"wastewatch/backend/internal/analysis"
	"wastewatch/backend/internal/config"
	"wastewatch/backend/internal/imagestore"
	"wastewatch/backend/internal/imaging"
	"wastewatch/backend/internal/metrics"
	"wastewatch/backend/internal/models"
	"wastewatch/backend/internal/segmentation"
	"wastewatch/backend/internal/storage"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// Options tune the Service. Zero values fall back to the defaults.
type Options struct {
	RadiusMeters float64
	// IncludeResolved makes resolved complaints block new nearby submissions too.
	IncludeResolved     bool
	SegmentationTimeout time.Duration

	Now   func() time.Time
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.RadiusMeters <= 0 {
		o.RadiusMeters = config.DuplicateRadiusMeters
	}
	if o.SegmentationTimeout <= 0 {
		o.SegmentationTimeout = 30 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.New().String() }
	}
	return o
}

// CreateRequest is a citizen submission as received from the client.
type CreateRequest struct {
	Image     []byte
	Latitude  string
	Longitude string
	// Date is optional; the server time is used when empty.
	Date string
}

// CreateResult describes a persisted complaint.
type CreateResult struct {
	Record models.ComplaintRecord
	// Message is a localization key: complaint_registered or no_garbage_detected.
	Message string
}

// Service creates and resolves complaints.
type Service struct {
	store  storage.Storage
	seg    segmentation.Segmenter
	images imagestore.Store
	sink   EventSink
	opts   Options

	// mu makes the duplicate check and the location reservation atomic.
	mu sync.Mutex
	// inFlight holds submissions that passed the duplicate check but are not
	// appended yet, keyed by image id.
	inFlight map[string]models.ComplaintRecord
}

// NewService wires the lifecycle manager. images and sink may be nil.
func NewService(store storage.Storage, seg segmentation.Segmenter, images imagestore.Store, sink EventSink, opts Options) *Service {
	return &Service{
		store:    store,
		seg:      seg,
		images:   images,
		sink:     sink,
		opts:     opts.withDefaults(),
		inFlight: make(map[string]models.ComplaintRecord),
	}
}

// Create runs intake: validation, duplicate check, segmentation and append.
// Either the record is persisted or nothing is.
func (s *Service) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	lat, lon, err := parseRequest(req)
	if err != nil {
		metrics.ComplaintsRejected.WithLabelValues(metrics.ReasonValidation).Inc()
		return CreateResult{}, err
	}

	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = s.opts.Now().UTC().Format(config.DateLayout)
	}

	rec, err := s.reserve(ctx, lat, lon)
	if err != nil {
		if errors.Is(err, ErrDuplicateComplaint) {
			metrics.ComplaintsRejected.WithLabelValues(metrics.ReasonDuplicate).Inc()
		} else {
			metrics.ComplaintsRejected.WithLabelValues(metrics.ReasonStore).Inc()
		}
		return CreateResult{}, err
	}
	defer s.release(rec.ImageID)

	rec.Date = date
	logger := log.WithFields(log.Fields{"image_id": rec.ImageID, "lat": lat, "lon": lon})

	if err := s.saveImage(ctx, imagestore.KindInput, rec.ImageID, req.Image); err != nil {
		metrics.ComplaintsRejected.WithLabelValues(metrics.ReasonStore).Inc()
		return CreateResult{}, err
	}

	result, err := s.measure(ctx, req.Image)
	if err != nil {
		s.discardImages(rec.ImageID)
		logger.WithError(err).Warn("segmentation failed, complaint dropped")
		return CreateResult{}, err
	}
	rec.PixelArea = result.PixelArea

	annotated := result.Annotated
	if len(annotated) == 0 {
		annotated, err = imaging.Annotate(req.Image, rec.PixelArea)
		if err != nil {
			logger.WithError(err).Warn("could not render annotated image")
		}
	}
	if len(annotated) > 0 {
		if err := s.saveImage(ctx, imagestore.KindOutput, rec.ImageID, annotated); err != nil {
			logger.WithError(err).Warn("could not store annotated image")
		}
	}

	if err := s.store.Append(ctx, rec); err != nil {
		s.discardImages(rec.ImageID)
		metrics.ComplaintsRejected.WithLabelValues(metrics.ReasonStore).Inc()
		return CreateResult{}, fmt.Errorf("append complaint: %w", err)
	}

	msg := config.MsgComplaintRegistered
	if rec.PixelArea == 0 {
		msg = config.MsgNoGarbageDetected
		metrics.ComplaintsCreated.WithLabelValues(metrics.ResultNoDetection).Inc()
	} else {
		metrics.ComplaintsCreated.WithLabelValues(metrics.ResultRegistered).Inc()
	}
	logger.WithField("pixel_area", rec.PixelArea).Info("complaint registered")

	s.emit(ctx, models.EventComplaintCreated, rec)
	return CreateResult{Record: rec, Message: msg}, nil
}

// reserve checks the candidate location against open complaints and the
// submissions in flight, and holds the location for a new image id.
func (s *Service) reserve(ctx context.Context, lat, lon float64) (models.ComplaintRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.ScanAll(ctx)
	if err != nil {
		return models.ComplaintRecord{}, fmt.Errorf("load complaints: %w", err)
	}

	candidates := make([]models.ComplaintRecord, 0, len(records)+len(s.inFlight))
	for _, r := range records {
		if s.opts.IncludeResolved || r.IsOpen() {
			candidates = append(candidates, r)
		}
	}
	for _, r := range s.inFlight {
		candidates = append(candidates, r)
	}

	if dup, found := analysis.FindDuplicate(lat, lon, candidates, s.opts.RadiusMeters); found {
		return models.ComplaintRecord{}, &DuplicateError{
			ExistingID:     dup.ImageID,
			DistanceMeters: analysis.DistanceMeters(lat, lon, dup.Latitude, dup.Longitude),
		}
	}

	rec := models.ComplaintRecord{
		ImageID:   s.opts.NewID(),
		Latitude:  lat,
		Longitude: lon,
		Status:    models.StatusProcessing,
	}
	s.inFlight[rec.ImageID] = rec
	return rec, nil
}

func (s *Service) release(imageID string) {
	s.mu.Lock()
	delete(s.inFlight, imageID)
	s.mu.Unlock()
}

func (s *Service) measure(ctx context.Context, image []byte) (segmentation.Result, error) {
	segCtx, cancel := context.WithTimeout(ctx, s.opts.SegmentationTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.seg.Segment(segCtx, image)
	metrics.SegmentationDurationSeconds.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(segCtx.Err(), context.DeadlineExceeded):
		metrics.ComplaintsRejected.WithLabelValues(metrics.ReasonTimeout).Inc()
		return segmentation.Result{}, fmt.Errorf("%w after %s", ErrSegmentationTimeout, s.opts.SegmentationTimeout)
	default:
		metrics.ComplaintsRejected.WithLabelValues(metrics.ReasonSegmentation).Inc()
		return segmentation.Result{}, fmt.Errorf("%w: %w", ErrSegmentationFailed, err)
	}
}

func (s *Service) saveImage(ctx context.Context, kind imagestore.Kind, imageID string, data []byte) error {
	if s.images == nil {
		return nil
	}
	if err := s.images.Save(ctx, kind, imageID, data); err != nil {
		return fmt.Errorf("save %s image: %w", kind, err)
	}
	return nil
}

// discardImages removes what a failed submission left behind. It runs on a
// fresh context so a cancelled request still cleans up.
func (s *Service) discardImages(imageID string) {
	if s.images == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, kind := range []imagestore.Kind{imagestore.KindInput, imagestore.KindOutput} {
		if err := s.images.Delete(ctx, kind, imageID); err != nil {
			log.WithError(err).WithField("image_id", imageID).Warn("could not delete image")
		}
	}
}

// Resolve marks a complaint as resolved. Resolving a resolved complaint is a
// no-op that still succeeds.
func (s *Service) Resolve(ctx context.Context, imageID string) (models.ComplaintRecord, error) {
	imageID = strings.TrimSpace(imageID)
	if imageID == "" {
		return models.ComplaintRecord{}, ErrNotFound
	}

	before, err := s.Get(ctx, imageID)
	if err != nil {
		return models.ComplaintRecord{}, err
	}

	found, err := s.store.UpdateStatus(ctx, imageID, models.StatusResolved)
	if err != nil {
		return models.ComplaintRecord{}, fmt.Errorf("resolve complaint: %w", err)
	}
	if !found {
		return models.ComplaintRecord{}, fmt.Errorf("%w: %s", ErrNotFound, imageID)
	}

	after := before
	after.Status = models.StatusResolved
	metrics.ComplaintsResolved.Inc()

	if before.IsOpen() {
		log.WithField("image_id", imageID).Info("complaint resolved")
		s.emit(ctx, models.EventComplaintResolved, after)
	}
	return after, nil
}

// Get returns a single complaint.
func (s *Service) Get(ctx context.Context, imageID string) (models.ComplaintRecord, error) {
	records, err := s.store.ScanAll(ctx)
	if err != nil {
		return models.ComplaintRecord{}, fmt.Errorf("load complaints: %w", err)
	}
	for _, r := range records {
		if r.ImageID == imageID {
			return r, nil
		}
	}
	return models.ComplaintRecord{}, fmt.Errorf("%w: %s", ErrNotFound, imageID)
}

func parseRequest(req CreateRequest) (lat, lon float64, err error) {
	if len(req.Image) == 0 {
		return 0, 0, &ValidationError{Field: "image", Reason: "is required"}
	}
	lat, err = parseCoordinate("latitude", req.Latitude, 90)
	if err != nil {
		return 0, 0, err
	}
	lon, err = parseCoordinate("longitude", req.Longitude, 180)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func parseCoordinate(field, raw string, limit float64) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &ValidationError{Field: field, Reason: "is required"}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: field, Reason: "must be a number"}
	}
	if v < -limit || v > limit {
		return 0, &ValidationError{Field: field, Reason: fmt.Sprintf("must be within ±%g", limit)}
	}
	return v, nil
}
