package handlers

import (
	"net/http"
	"time"

	"github.com/maxsviluppo/ristosync/internal/search"
	"github.com/maxsviluppo/ristosync/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ReportsHandler serves receipt history queries from the search index
type ReportsHandler struct {
	search   *search.ElasticClient
	tracer   tracing.Tracer
	tenantID string
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(esClient *search.ElasticClient, tracer tracing.Tracer, tenantID string) *ReportsHandler {
	return &ReportsHandler{search: esClient, tracer: tracer, tenantID: tenantID}
}

// RegisterRoutes registers the report routes
func (h *ReportsHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/reports")
	{
		group.GET("/daily", h.HandleDailyTotals)
		group.GET("/receipts", h.HandleSearchReceipts)
	}
}

// HandleDailyTotals returns revenue and receipt count for one day
func (h *ReportsHandler) HandleDailyTotals(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-daily-totals")
	defer h.tracer.EndTransaction(txn)

	day := time.Now().UTC()
	if raw := c.Query("day"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	total, count, err := h.search.DailyTotals(c.Request.Context(), h.tenantID, day)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query daily totals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"day":      day.Format("2006-01-02"),
		"total":    total,
		"receipts": count,
	})
}

// HandleSearchReceipts runs a free-text search over archived receipts
func (h *ReportsHandler) HandleSearchReceipts(c *gin.Context) {
	text := c.Query("q")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	hits, err := h.search.SearchReceipts(c.Request.Context(), h.tenantID, text)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search receipts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hits": hits})
}
