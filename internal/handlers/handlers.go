package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/cart"
	"github.com/01moynul/taptosell-commerce/internal/catalog"
	"github.com/01moynul/taptosell-commerce/internal/checkout"
	"github.com/01moynul/taptosell-commerce/internal/orders"
	"github.com/01moynul/taptosell-commerce/internal/users"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Carts    *cart.Service
	Checkout *checkout.Orchestrator
	Orders   *orders.Service
	Catalog  *catalog.Service
	Users    *users.Service
	Log      *slog.Logger
}

// respondError writes err as {"error": msg}. Server errors are logged with
// full detail and reach the client only as a generic message.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger().ErrorContext(c.Request.Context(), "request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Any("err", err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": apperrors.PublicMessage(err)})
}

// badRequest is for bodies gin could not bind.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *Handlers) logger() *slog.Logger {
	if h.Log == nil {
		return slog.Default()
	}
	return h.Log
}
