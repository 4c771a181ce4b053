package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/taptosell-commerce/internal/checkout"
	"github.com/01moynul/taptosell-commerce/internal/middleware"
	"github.com/01moynul/taptosell-commerce/internal/models"
)

//
// --- Order Handlers ---
//

// CheckoutInput is the (optional) body of POST /orders.
type CheckoutInput struct {
	ShippingAddress *models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   *string                 `json:"paymentMethod"`
}

// UpdateOrderStatusInput is the body of PATCH /orders/:id/status.
type UpdateOrderStatusInput struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// PlaceOrder turns the caller's cart into an order.
func (h *Handlers) PlaceOrder(c *gin.Context) {
	// 1. --- Bind Input ---
	// An empty body is a checkout without address or payment method.
	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	// 2. --- Run the Checkout ---
	order, err := h.Checkout.Checkout(c.Request.Context(), middleware.UserID(c), checkout.Request{
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	// 3. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{"message": "Checkout successful", "order": order})
}

func (h *Handlers) GetMyOrders(c *gin.Context) {
	list, err := h.Orders.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handlers) GetOrder(c *gin.Context) {
	order, err := h.Orders.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus is admin-only (enforced by the router).
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), input.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": order})
}
