package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/01moynul/taptosell-commerce/internal/catalog"
	"github.com/01moynul/taptosell-commerce/internal/models"
)

//
// --- Product Handlers ---
//

type CreateProductInput struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category"`
	Images        []string        `json:"images"`
	StockQuantity *int            `json:"stockQuantity" binding:"required,gte=0,lte=1000000000"`
}

// UpdateProductInput only carries what was sent. Stock is not accepted here.
type UpdateProductInput struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	Category      *string          `json:"category"`
	Images        []string         `json:"images"`
	StockQuantity *int             `json:"stockQuantity"`
}

type AdjustStockInput struct {
	Delta int `json:"delta" binding:"required,min=-1000000000,max=1000000000"`
}

// GetProducts lists products with ?category=&page=&limit=.
func (h *Handlers) GetProducts(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		badRequest(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.Catalog.List(c.Request.Context(), models.ProductFilter{
		Category: c.Query("category"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) GetProduct(c *gin.Context) {
	product, err := h.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handlers) CreateProduct(c *gin.Context) {
	// 1. --- Bind Input ---
	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	// 2. --- Validate & Insert ---
	product, err := h.Catalog.Create(c.Request.Context(), catalog.NewProduct{
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		Category:      input.Category,
		Images:        input.Images,
		StockQuantity: *input.StockQuantity,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	// 3. --- Send Success Response ---
	c.JSON(http.StatusCreated, product)
}

func (h *Handlers) UpdateProduct(c *gin.Context) {
	var input UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	if input.StockQuantity != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Stock is changed through PATCH /products/{id}/stock"})
		return
	}

	product, err := h.Catalog.Update(c.Request.Context(), c.Param("id"), models.ProductPatch{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Images:      input.Images,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handlers) DeleteProduct(c *gin.Context) {
	if err := h.Catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// AdjustStock restocks or writes off units: {"delta": 5} or {"delta": -2}.
func (h *Handlers) AdjustStock(c *gin.Context) {
	var input AdjustStockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.Catalog.AdjustStock(c.Request.Context(), c.Param("id"), input.Delta)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// queryInt reads an optional integer query parameter; missing means 0.
func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return n, nil
}
