package handler

import (
	"errors"
	"io"
	"net/http"

	"wastewatch/backend/internal/complaint"
	"wastewatch/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// CreateComplaint handles POST /complaints (multipart: image, latitude,
// longitude, optional date).
func (h *Handler) CreateComplaint(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}

	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": h.message(c, config.MsgInvalidInput)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": h.message(c, config.MsgNoImage)})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": h.message(c, config.MsgNoImage)})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": h.message(c, config.MsgNoImage)})
		return
	}

	res, err := h.Complaints.Create(c.Request.Context(), complaint.CreateRequest{
		Image:     data,
		Latitude:  c.PostForm("latitude"),
		Longitude: c.PostForm("longitude"),
		Date:      c.PostForm("date"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  h.message(c, res.Message),
		"image_id": res.Record.ImageID,
	})
}

// ListComplaints handles GET /complaints.
func (h *Handler) ListComplaints(c *gin.Context) {
	records, err := h.Complaints.All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(records))
}

// Locations handles GET /complaints/locations.
func (h *Handler) Locations(c *gin.Context) {
	locs, err := h.Complaints.Locations(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(locs))
}

// ResolveComplaint handles PUT /complaints/resolve/:image_id.
func (h *Handler) ResolveComplaint(c *gin.Context) {
	if _, err := h.Complaints.Resolve(c.Request.Context(), c.Param("image_id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.message(c, config.MsgResolved)})
}

// OpenGeoJSON handles GET /complaints/geojson.
func (h *Handler) OpenGeoJSON(c *gin.Context) {
	fc, err := h.Complaints.OpenGeoJSON(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}
