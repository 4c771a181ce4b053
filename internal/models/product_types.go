package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product categories accepted by the catalog.
const (
	CategoryRings     = "rings"
	CategoryNecklaces = "necklaces"
	CategoryEarrings  = "earrings"
	CategoryBracelets = "bracelets"
)

// MaxStockQuantity caps a product's stock. Restocks that would pass it are
// rejected, so stock arithmetic can never overflow.
const MaxStockQuantity = 1_000_000_000

// Categories lists every valid product category.
var Categories = []string{CategoryRings, CategoryNecklaces, CategoryEarrings, CategoryBracelets}

// Product is the model for the 'products' collection.
// The cart and checkout code only reads Price and mutates StockQuantity.
type Product struct {
	ID          string          `json:"id" bson:"_id"`
	Name        string          `json:"name" bson:"name"`
	Slug        string          `json:"slug" bson:"slug"`
	Description string          `json:"description" bson:"description"`
	Price       decimal.Decimal `json:"price" bson:"price"`
	Category    string          `json:"category" bson:"category"`
	Images      []string        `json:"images" bson:"images"`

	// Never negative; only the stock ledger changes it.
	StockQuantity int `json:"stockQuantity" bson:"stockQuantity"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	Category string
	Page     int // 1-based
	Limit    int
}

// ProductPatch carries a partial product update. Nil fields are left alone.
type ProductPatch struct {
	Name        *string
	Slug        *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
	Images      []string
}
