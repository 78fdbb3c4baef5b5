package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greenridge/replen/internal/service"
)

type HistoryHandler struct {
	service *service.HistoryService
}

func NewHistoryHandler(svc *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{service: svc}
}

// Ingest runs one ingestion batch over the snapshot inbox.
func (h *HistoryHandler) Ingest(c *gin.Context) {
	summary, err := h.service.Ingest(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoHistory) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if strings.Contains(err.Error(), "already in progress") {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Velocity returns the rolling velocity for one SKU at one store.
func (h *HistoryHandler) Velocity(c *gin.Context) {
	sku := strings.TrimSpace(c.Query("sku"))
	location := strings.TrimSpace(c.Query("location"))
	if sku == "" || location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sku and location are required"})
		return
	}

	weeks := 0
	if raw := c.Query("weeks"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "weeks must be a positive integer"})
			return
		}
		weeks = parsed
	}

	rv, err := h.service.RollingVelocity(c.Request.Context(), sku, location, weeks)
	if err != nil {
		if errors.Is(err, service.ErrNoHistory) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rv)
}

// Snapshots lists the report end dates held in the memory bank.
func (h *HistoryHandler) Snapshots(c *gin.Context) {
	dates, err := h.service.SnapshotDates(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoHistory) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(time.DateOnly)
	}
	c.JSON(http.StatusOK, gin.H{"dates": out})
}
