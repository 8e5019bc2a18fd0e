package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"wastewatch/backend/internal/imagestore"
	"wastewatch/backend/internal/imaging"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

const maxThumbnailSide = 1024

// ServeImage handles GET /images/:kind/:image_id, optionally ?size=N for a
// thumbnail.
func (h *Handler) ServeImage(c *gin.Context) {
	if h.Images == nil {
		c.Status(http.StatusNotFound)
		return
	}

	kind, err := imagestore.ParseKind(c.Param("kind"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	size := 0
	if raw := c.Query("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size <= 0 || size > maxThumbnailSide {
			c.Status(http.StatusBadRequest)
			return
		}
	}

	rc, err := h.Images.Open(c.Request.Context(), kind, c.Param("image_id"))
	if errors.Is(err, imagestore.ErrNotFound) || errors.Is(err, imagestore.ErrInvalidID) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		log.WithError(err).Error("open image")
		c.Status(http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	if size == 0 {
		c.DataFromReader(http.StatusOK, -1, "image/jpeg", rc, nil)
		return
	}

	data, err := io.ReadAll(rc)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	thumb, err := imaging.Thumbnail(data, size)
	if err != nil {
		log.WithError(err).Warn("thumbnail failed, serving original")
		thumb = data
	}
	c.Data(http.StatusOK, "image/jpeg", thumb)
}
