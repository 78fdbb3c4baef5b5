package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/greenridge/replen/internal/domain"
	"github.com/greenridge/replen/internal/engine"
	"github.com/greenridge/replen/internal/service"
)

type AnalysisHandler struct {
	service *service.AnalysisService
}

func NewAnalysisHandler(svc *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: svc}
}

type runRequest struct {
	service.AnalysisInputs
	Async bool `json:"async"`
}

// Run starts an analysis for the posted input files. Synchronous by default;
// large catalogues finish in seconds, so a blocking response keeps the client
// contract simple. With "async": true the inputs are still validated in the
// request, but scoring continues in the background and the caller polls
// Status and Latest.
func (h *AnalysisHandler) Run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.InventoryPath == "" || req.SalesPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "inventory and sales paths are required"})
		return
	}

	if req.Async {
		// The run outlives this request, so it cannot inherit the request
		// context.
		err := h.service.RunAsync(context.Background(), req.AnalysisInputs, nil)
		if err != nil {
			if errors.Is(err, service.ErrRunInProgress) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"running": true})
		return
	}

	result, err := h.service.Run(c.Request.Context(), req.AnalysisInputs)
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rows":         len(result.Rows),
		"diagnostics":  len(result.Diagnostics),
		"generated_at": result.GeneratedAt,
	})
}

// Latest returns the most recent completed run in full. An optional status
// query narrows the rows to one tag, e.g. ?status=reorder.
func (h *AnalysisHandler) Latest(c *gin.Context) {
	var filter domain.StatusTag
	if raw := c.Query("status"); raw != "" {
		tag, ok := domain.ParseStatusTag(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status tag: " + raw})
			return
		}
		filter = tag
	}

	result, summary, ok := h.service.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed analysis run"})
		return
	}
	if filter != "" {
		filtered := &engine.Result{Diagnostics: result.Diagnostics, GeneratedAt: result.GeneratedAt}
		for _, row := range result.Rows {
			if row.Status == filter {
				filtered.Rows = append(filtered.Rows, row)
			}
		}
		result = filtered
	}
	c.JSON(http.StatusOK, gin.H{
		"result": result,
		"reconciliation": gin.H{
			"inventory_rows":     summary.InventoryRows,
			"sales_rows":         summary.SalesRows,
			"excluded_skus":      summary.ExcludedSKUs,
			"unmapped_locations": summary.UnmappedLocations,
			"warnings":           summary.Warnings,
		},
	})
}

// Status reports whether a run is executing.
func (h *AnalysisHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": h.service.Running()})
}
