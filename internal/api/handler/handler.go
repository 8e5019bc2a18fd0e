// Package handler is the HTTP surface of the complaint service: the citizen
// app API, the authority dashboard pages and the live feed.
package handler

import (
	"errors"
	"net/http"
	"time"

	"wastewatch/backend/internal/complaint"
	"wastewatch/backend/internal/config"
	"wastewatch/backend/internal/hub"
	"wastewatch/backend/internal/imagestore"
	"wastewatch/backend/internal/localization"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

const serviceName = "wastewatch"

// Handler holds what the routes need.
type Handler struct {
	Complaints *complaint.Service
	Hub        *hub.ManagerService
	Images     imagestore.Store
	Localizer  *localization.Localizer

	MaxUploadBytes int64
	Now            func() time.Time
}

func NewHandler(complaints *complaint.Service, h *hub.ManagerService, images imagestore.Store, localizer *localization.Localizer, maxUploadBytes int64) *Handler {
	return &Handler{
		Complaints:     complaints,
		Hub:            h,
		Images:         images,
		Localizer:      localizer,
		MaxUploadBytes: maxUploadBytes,
		Now:            time.Now,
	}
}

// message localizes key for the caller's Accept-Language.
func (h *Handler) message(c *gin.Context, key string) string {
	return h.Localizer.GetString(h.Localizer.Match(c.GetHeader("Accept-Language")), key)
}

// errorStatus maps service errors to an HTTP status and a message key.
func errorStatus(err error) (int, string) {
	var verr *complaint.ValidationError
	switch {
	case errors.As(err, &verr) && verr.Field == "image":
		return http.StatusBadRequest, config.MsgNoImage
	case errors.Is(err, complaint.ErrValidation):
		return http.StatusBadRequest, config.MsgInvalidInput
	case errors.Is(err, complaint.ErrDuplicateComplaint):
		return http.StatusConflict, config.MsgDuplicateLocation
	case errors.Is(err, complaint.ErrNotFound):
		return http.StatusNotFound, config.MsgNotFound
	case errors.Is(err, complaint.ErrSegmentationTimeout):
		return http.StatusGatewayTimeout, config.MsgSegmentationTimeout
	case errors.Is(err, complaint.ErrSegmentationFailed):
		return http.StatusBadGateway, config.MsgSegmentationFailed
	default:
		return http.StatusInternalServerError, config.MsgStoreError
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status, key := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, gin.H{"message": h.message(c, key)})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
		"time":    h.Now().UTC().Format(time.RFC3339),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
