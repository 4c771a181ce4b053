package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/taptosell-commerce/internal/auth"
	"github.com/01moynul/taptosell-commerce/internal/handlers"
	"github.com/01moynul/taptosell-commerce/internal/metrics"
	"github.com/01moynul/taptosell-commerce/internal/middleware"
	"github.com/01moynul/taptosell-commerce/internal/models"
)

// Pinger is the health check target (the store).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the router's cross-cutting collaborators.
type Deps struct {
	Tokens     *auth.Tokens
	Health     Pinger
	Metrics    *metrics.Metrics
	Limiter    *middleware.RateLimiter
	Log        *slog.Logger
	CORSOrigin string
}

func SetupRouter(h *handlers.Handlers, d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = slog.Default()
	}

	// 1. --- Global Middleware ---
	router := gin.New()
	router.Use(gin.Recovery())
	// CORS first so preflights never hit the limiter or auth.
	router.Use(middleware.CORS(d.CORSOrigin))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(d.Log, d.Metrics))
	if d.Limiter != nil {
		router.Use(d.Limiter.Middleware())
	}

	// 2. --- Health & Metrics (Public) ---
	router.GET("/healthz", healthz(d.Health))
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// 3. --- Auth Routes (Public) ---
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)

	// 4. --- Public Product Routes ---
	router.GET("/products", h.GetProducts)
	router.GET("/products/:id", h.GetProduct)

	// 5. --- Protected Routes (Login Required) ---
	authed := router.Group("/")
	authed.Use(middleware.AuthMiddleware(d.Tokens))
	{
		authed.GET("/users/profile", h.GetProfile)
		authed.PUT("/users/profile", h.UpdateProfile)

		cart := authed.Group("/cart")
		{
			cart.GET("", h.GetCart)
			cart.DELETE("", h.ClearCart)
			cart.POST("/items", h.AddToCart)
			cart.PUT("/items/:productId", h.UpdateCartItem)
			cart.DELETE("/items/:productId", h.RemoveCartItem)
		}

		orders := authed.Group("/orders")
		{
			orders.POST("", h.PlaceOrder)
			orders.GET("", h.GetMyOrders)
			orders.GET("/:id", h.GetOrder)
		}

		// --- Admin Routes ---
		admin := authed.Group("/")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/products", h.CreateProduct)
			admin.PUT("/products/:id", h.UpdateProduct)
			admin.DELETE("/products/:id", h.DeleteProduct)
			admin.PATCH("/products/:id/stock", h.AdjustStock)
			admin.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		}
	}

	return router
}

func healthz(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
