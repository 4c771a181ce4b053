package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxItemQuantity caps the quantity of a single cart line.
const MaxItemQuantity = 1000

// Cart is the single pending cart of a user, stored in the 'carts'
// collection with a unique index on userId.
type Cart struct {
	ID          string          `json:"id,omitempty" bson:"_id"`
	UserID      string          `json:"userId" bson:"userId"`
	Items       []CartItem      `json:"items" bson:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount" bson:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt,omitempty" bson:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt,omitempty" bson:"updatedAt"`
}

// CartItem is one product line of a cart. UnitPrice is the catalog price
// captured at the time of the last mutation of this line.
type CartItem struct {
	ProductID string          `json:"productId" bson:"productId"`
	Quantity  int             `json:"quantity" bson:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" bson:"unitPrice"`

	// Populated on reads only, never persisted.
	Product *Product `json:"product,omitempty" bson:"-"`
}

// EmptyCart is what a user without a cart sees.
func EmptyCart(userID string) *Cart {
	return &Cart{UserID: userID, Items: []CartItem{}, TotalAmount: decimal.Zero}
}

// FindItem returns the index of the line for productID, or -1.
func (c *Cart) FindItem(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Recalculate sets TotalAmount to Σ quantity × unitPrice over the lines.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	c.TotalAmount = total
}

// Clone returns a deep copy of the cart without resolved products.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = make([]CartItem, len(c.Items))
	for i, item := range c.Items {
		item.Product = nil
		out.Items[i] = item
	}
	return &out
}
