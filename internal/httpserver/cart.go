package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
)

// cartLineRequest is shared by the cart mutations. Quantity defaults to 1
// where the operation allows it.
type cartLineRequest struct {
	ProductID string `json:"productId" binding:"required"`
	VariantID string `json:"variantId" binding:"required"`
	Quantity  *int   `json:"quantity"`
}

func (r cartLineRequest) input(defaultQty int) cartsvc.ItemInput {
	qty := defaultQty
	if r.Quantity != nil {
		qty = *r.Quantity
	}
	return cartsvc.ItemInput{ProductID: r.ProductID, VariantID: r.VariantID, Quantity: qty}
}

type cartResponse struct {
	Message string       `json:"message"`
	Cart    *domain.Cart `json:"cart"`
}

type cartHandler struct {
	svc CartService
	log *slog.Logger
}

type cartMutation func(ctx context.Context, userID string, in cartsvc.ItemInput) (*domain.Cart, error)

func (h *cartHandler) mutate(c *gin.Context, op cartMutation, defaultQty int, message string) {
	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "productId and variantId are required")
		return
	}
	cart, err := op(c.Request.Context(), identityFrom(c).UserID, req.input(defaultQty))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Message: message, Cart: cart})
}

func (h *cartHandler) add(c *gin.Context) {
	h.mutate(c, h.svc.AddItem, 1, "Product added to cart")
}

func (h *cartHandler) remove(c *gin.Context) {
	h.mutate(c, h.svc.RemoveItem, 0, "Product removed from cart")
}

func (h *cartHandler) reduce(c *gin.Context) {
	h.mutate(c, h.svc.ReduceQuantity, 1, "Product quantity reduced")
}

func (h *cartHandler) setQuantity(c *gin.Context) {
	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		badRequest(c, "productId, variantId and quantity are required")
		return
	}
	cart, err := h.svc.SetQuantity(c.Request.Context(), identityFrom(c).UserID, req.input(0))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Message: "Cart quantity updated", Cart: cart})
}

func (h *cartHandler) get(c *gin.Context) {
	view, err := h.svc.GetCart(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *cartHandler) itemCount(c *gin.Context) {
	n, err := h.svc.ItemCount(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"itemsCount": n})
}
