package segmentation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/apex/log"
)

// maxResponseBytes bounds the engine reply, annotated image included.
const maxResponseBytes = 64 << 20

type engineResponse struct {
	PixelArea      *float64 `json:"pixel_area"`
	AnnotatedImage string   `json:"annotated_image"`
}

// HTTPSegmenter calls a segmentation engine exposed over HTTP. The image is
// sent as the multipart field "image" and the engine replies with
// {"pixel_area": n, "annotated_image": "<base64>"}.
type HTTPSegmenter struct {
	URL    string
	Client *http.Client
}

// NewHTTPSegmenter creates a client for the engine at url. The timeout is
// applied per request on top of whatever deadline the caller's context has.
func NewHTTPSegmenter(url string, timeout time.Duration) *HTTPSegmenter {
	return &HTTPSegmenter{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSegmenter) Segment(ctx context.Context, image []byte) (Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "image.jpg")
	if err != nil {
		return Result{}, fmt.Errorf("segmentation: build request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return Result{}, fmt.Errorf("segmentation: build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Result{}, fmt.Errorf("segmentation: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, &body)
	if err != nil {
		return Result{}, fmt.Errorf("segmentation: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.Client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("segmentation: call engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("segmentation: engine returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var er engineResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&er); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if er.PixelArea == nil {
		return Result{}, fmt.Errorf("%w: missing pixel_area", ErrInvalidResponse)
	}
	area := *er.PixelArea
	if area < 0 || math.IsNaN(area) || math.IsInf(area, 0) {
		return Result{}, fmt.Errorf("%w: pixel_area %v", ErrInvalidResponse, area)
	}

	res := Result{PixelArea: int64(math.Round(area))}
	if er.AnnotatedImage != "" {
		res.Annotated, err = base64.StdEncoding.DecodeString(er.AnnotatedImage)
		if err != nil {
			return Result{}, fmt.Errorf("%w: annotated_image: %w", ErrInvalidResponse, err)
		}
	}

	log.WithFields(log.Fields{
		"pixel_area": res.PixelArea,
		"annotated":  len(res.Annotated) > 0,
		"took":       time.Since(start).String(),
	}).Debug("segmentation finished")

	return res, nil
}
