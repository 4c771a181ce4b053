package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/01moynul/taptosell-commerce/internal/middleware"
)

//
// --- Cart Handlers (any signed-in user) ---
//

// AddToCartInput is the body of POST /cart/items. Price is what the client
// believes the product costs; it is checked against the catalog, never used.
type AddToCartInput struct {
	ProductID string           `json:"productId" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,gt=0,lte=1000"`
	Price     *decimal.Decimal `json:"price"`
}

// UpdateCartItemInput is the body of PUT /cart/items/:productId.
type UpdateCartItemInput struct {
	Quantity int              `json:"quantity" binding:"required,gt=0,lte=1000"`
	Price    *decimal.Decimal `json:"price"`
}

func (h *Handlers) GetCart(c *gin.Context) {
	cart, err := h.Carts.GetCart(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handlers) AddToCart(c *gin.Context) {
	var input AddToCartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	cart, err := h.Carts.AddItem(c.Request.Context(), middleware.UserID(c), input.ProductID, input.Quantity, input.Price)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handlers) UpdateCartItem(c *gin.Context) {
	var input UpdateCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	cart, err := h.Carts.UpdateItemQuantity(c.Request.Context(), middleware.UserID(c), c.Param("productId"), input.Quantity, input.Price)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handlers) RemoveCartItem(c *gin.Context) {
	cart, err := h.Carts.RemoveItem(c.Request.Context(), middleware.UserID(c), c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart", "cart": cart})
}

func (h *Handlers) ClearCart(c *gin.Context) {
	if err := h.Carts.ClearCart(c.Request.Context(), middleware.UserID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
