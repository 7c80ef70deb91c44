package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/printdesk/internal/api/dto"
	"github.com/gin-gonic/gin"
)

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	if h.orders == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Order ledger is disabled",
		})
		return
	}

	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), req.CustomerID, req.Limit)
	if err != nil {
		h.logger.Error("Failed to list orders", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list orders",
		})
		return
	}

	resp := dto.ListOrdersResponse{Orders: make([]dto.OrderDTO, len(orders))}
	for i, o := range orders {
		resp.Orders[i] = dto.OrderDTO{
			OrderID:     o.OrderID,
			CustomerID:  o.CustomerID,
			FileNames:   o.FileNames,
			FileCount:   o.FileCount,
			TotalPages:  o.TotalPages,
			TotalCost:   o.TotalCost.StringFixed(2),
			CompletedAt: o.CompletedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, resp)
}
