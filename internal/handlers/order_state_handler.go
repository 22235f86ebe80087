package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nicomollet/payment-reconciler/internal/interfaces"
)

type OrderStateHandler struct {
	repo interfaces.OrderRepository
}

func NewOrderStateHandler(repo interfaces.OrderRepository) *OrderStateHandler {
	return &OrderStateHandler{repo: repo}
}

func (h *OrderStateHandler) GetOrderState(c *gin.Context) {
	orderID := c.Param("id")

	order, err := h.repo.GetByID(c.Request.Context(), orderID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":          order.ID,
		"status":            order.Status,
		"status_final":      order.StatusFinal,
		"transaction_id":    order.TransactionID,
		"payment_intent_id": order.PaymentIntentID,
		"locked":            order.IsLocked(time.Now()),
		"notes":             order.Notes,
		"updated_at":        order.UpdatedAt,
	})
}
