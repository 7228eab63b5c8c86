package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockwatch/internal/domain/models"
	"github.com/mamadbah2/stockwatch/internal/service/lowstock"
	"github.com/mamadbah2/stockwatch/internal/service/reporting"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LowStockService is the evaluator surface exposed over HTTP.
type LowStockService interface {
	Run(ctx context.Context) (models.RunSummary, error)
	CurrentLowStock(ctx context.Context) ([]models.LowStockEntry, error)
}

// LowStockHandler serves the low-stock endpoints.
type LowStockHandler struct {
	svc     LowStockService
	reports *reporting.Service
	logger  *zap.Logger
}

// NewLowStockHandler constructs the HTTP handler adapter.
func NewLowStockHandler(svc LowStockService, reports *reporting.Service, logger *zap.Logger) *LowStockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LowStockHandler{svc: svc, reports: reports, logger: logger}
}

// Evaluate runs one evaluation and returns its summary.
func (h *LowStockHandler) Evaluate(c *gin.Context) {
	summary, err := h.svc.Run(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, summary)
	case errors.Is(err, lowstock.ErrRunInProgress):
		c.JSON(http.StatusConflict, summary)
	default:
		h.logger.Error("low stock evaluation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, summary)
	}
}

type lowStockItemResponse struct {
	ItemID     string     `json:"itemId"`
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Location   string     `json:"location"`
	Quantity   float64    `json:"quantity"`
	Minimum    float64    `json:"minimumQuantity"`
	Shortfall  float64    `json:"shortfall"`
	FirstLowAt *time.Time `json:"firstLowAt,omitempty"`
}

// List returns the items that are currently low.
func (h *LowStockHandler) List(c *gin.Context) {
	entries, err := h.svc.CurrentLowStock(c.Request.Context())
	if err != nil {
		h.logger.Error("failed listing low stock", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to load low stock"})
		return
	}

	rows := h.reports.LowStockRows(entries)
	resp := make([]lowStockItemResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, lowStockItemResponse{
			ItemID:     r.ItemID,
			Name:       r.Name,
			Category:   r.Category,
			Location:   r.Location,
			Quantity:   r.Quantity,
			Minimum:    r.Minimum,
			Shortfall:  r.Shortfall,
			FirstLowAt: r.FirstLowAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"count": len(resp), "items": resp})
}

// Export streams the current low-stock list as an xlsx workbook.
func (h *LowStockHandler) Export(c *gin.Context) {
	entries, err := h.svc.CurrentLowStock(c.Request.Context())
	if err != nil {
		h.logger.Error("failed loading low stock for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to load low stock"})
		return
	}

	f, err := h.reports.LowStockWorkbook(entries)
	if err != nil {
		h.logger.Error("failed building export workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to build export"})
		return
	}
	defer func() { _ = f.Close() }()

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", "attachment; filename=low-stock.xlsx")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("failed writing export workbook", zap.Error(err))
	}
}
