package handler

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"sort"
	"strconv"

	"wastewatch/backend/internal/analysis"
	"wastewatch/backend/internal/complaint"
	"wastewatch/backend/internal/config"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates parses the embedded dashboard pages.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))
}

// Index renders the review dashboard with the open complaints, newest first.
func (h *Handler) Index(c *gin.Context) {
	open, err := h.Complaints.Open(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("dashboard: load open complaints")
		c.String(http.StatusInternalServerError, h.message(c, config.MsgStoreError))
		return
	}
	sort.SliceStable(open, func(i, j int) bool { return open[i].Date > open[j].Date })

	c.HTML(http.StatusOK, "index.html", gin.H{
		"reports": open,
	})
}

// DashboardResolve handles the form POST /resolve from the dashboard.
func (h *Handler) DashboardResolve(c *gin.Context) {
	_, err := h.Complaints.Resolve(c.Request.Context(), c.PostForm("image_id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	case errors.Is(err, complaint.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "failed", "message": h.message(c, config.MsgNoMatchingRecord)})
	default:
		log.WithError(err).Error("dashboard: resolve")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "failed", "message": h.message(c, config.MsgStoreError)})
	}
}

// Heatmap renders the authority heatmap page.
func (h *Handler) Heatmap(c *gin.Context) {
	c.HTML(http.StatusOK, "heatmap.html", nil)
}

// MapEmbed renders the citizen app map page.
func (h *Handler) MapEmbed(c *gin.Context) {
	c.HTML(http.StatusOK, "map_embed.html", gin.H{
		"scale": config.HeatmapIntensityScale,
	})
}

// HeatmapData handles GET /heatmap_data: open complaints only.
func (h *Handler) HeatmapData(c *gin.Context) {
	points, err := h.Complaints.HeatmapPoints(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(points))
}

// HeatmapCells handles GET /heatmap_cells?level=N.
func (h *Handler) HeatmapCells(c *gin.Context) {
	level := config.DefaultHeatmapCellLevel
	if raw := c.Query("level"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": h.message(c, config.MsgInvalidInput)})
			return
		}
		level = analysis.ClampLevel(v)
	}

	cells, err := h.Complaints.HeatmapCells(c.Request.Context(), level)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"level": level, "cells": nonNil(cells)})
}
