package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
)

type orderResponse struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

type orderHandler struct {
	svc OrderService
	log *slog.Logger
}

// checkout answers 201 for a new order and 200 when Idempotency-Key
// replays an earlier one.
func (h *orderHandler) checkout(c *gin.Context) {
	o, replayed, err := h.svc.Checkout(c.Request.Context(), identityFrom(c).UserID, c.GetHeader("Idempotency-Key"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if replayed {
		c.JSON(http.StatusOK, orderResponse{Message: "Order already placed", Order: o})
		return
	}
	c.JSON(http.StatusCreated, orderResponse{Message: "Order placed successfully", Order: o})
}

// listByUser and get are public; an unknown id gives an empty list or 404.
func (h *orderHandler) listByUser(c *gin.Context) {
	list, err := h.svc.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *orderHandler) get(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
