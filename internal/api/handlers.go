package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"immopilot/server/internal/analysis"
	"immopilot/server/internal/geocoding"
	"immopilot/server/internal/loader"
	"immopilot/server/internal/models"
	"immopilot/server/internal/store"
)

type Handler struct {
	logger   *logrus.Logger
	loader   *loader.Loader
	analyzer *analysis.Analyzer
	geocoder *geocoding.Geocoder
	store    *store.Store
}

func NewHandler(logger *logrus.Logger, l *loader.Loader, analyzer *analysis.Analyzer, geocoder *geocoding.Geocoder, st *store.Store) *Handler {
	return &Handler{
		logger:   logger,
		loader:   l,
		analyzer: analyzer,
		geocoder: geocoder,
		store:    st,
	}
}

// AnalyzeMarket loads the transaction set (cache aware) and runs the
// market analysis for the posted target property.
func (h *Handler) AnalyzeMarket(c *gin.Context) {
	var target models.TargetProperty
	if err := c.ShouldBindJSON(&target); err != nil {
		h.logger.WithError(err).Error("Failed to parse target property")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target property"})
		return
	}

	transactions, err := h.loader.LoadTransactions(c.Request.Context(), nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load transactions")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No transaction data available"})
		return
	}

	result, err := h.analyzer.AnalyzeMarket(c.Request.Context(), transactions, target)
	if err != nil {
		h.logger.WithError(err).Error("Market analysis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Market analysis failed"})
		return
	}
	if result == nil {
		// No comparable candidates for this area: a valid negative outcome
		c.Status(http.StatusNoContent)
		return
	}
	result.DataVintage = h.loader.ActiveVintage()

	c.JSON(http.StatusOK, result)
}

// GetTransactionStats reports the load counters and cache state.
func (h *Handler) GetTransactionStats(c *gin.Context) {
	stats := h.loader.LastStats()
	c.JSON(http.StatusOK, gin.H{
		"active_vintage": h.loader.ActiveVintage(),
		"rows_read":      stats.RowsRead,
		"rows_accepted":  stats.RowsAccepted,
		"rows_rejected":  stats.RowsRejected,
		"fetch_count":    h.loader.FetchCount(),
	})
}

// GetAreaStats aggregates the snapshot store for one postal code.
func (h *Handler) GetAreaStats(c *gin.Context) {
	postalCode := c.Param("postal_code")
	stats, err := h.store.GetAreaStats(postalCode)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get area stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get area stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ClearCache drops the transaction cache and resets the active vintage.
func (h *Handler) ClearCache(c *gin.Context) {
	h.loader.ClearCache()
	c.JSON(http.StatusOK, gin.H{"status": "Cache cleared"})
}

// Geocode resolves a free-text address, as a diagnostic surface.
func (h *Handler) Geocode(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}

	point := h.geocoder.Resolve(c.Request.Context(), query, c.Query("postcode"), c.Query("city"))
	if point == nil {
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"found":     true,
		"latitude":  point.Lat(),
		"longitude": point.Lon(),
	})
}
