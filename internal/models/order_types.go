package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order. A pending order does not
// exist: pending purchases live in the cart.
type OrderStatus string

const (
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ShippingAddress is optional on an order.
type ShippingAddress struct {
	Street string `json:"street" bson:"street"`
	City   string `json:"city" bson:"city"`
}

// Blank reports whether neither field is set.
func (a ShippingAddress) Blank() bool {
	return strings.TrimSpace(a.Street) == "" && strings.TrimSpace(a.City) == ""
}

// Order is the immutable record written by checkout into the 'orders'
// collection. Only Status (and UpdatedAt) change after creation.
type Order struct {
	ID              string           `json:"id" bson:"_id"`
	UserID          string           `json:"userId" bson:"userId"`
	Items           []OrderItem      `json:"items" bson:"items"`
	TotalAmount     decimal.Decimal  `json:"totalAmount" bson:"totalAmount"`
	Status          OrderStatus      `json:"status" bson:"status"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty" bson:"shippingAddress,omitempty"`
	PaymentMethod   string           `json:"paymentMethod,omitempty" bson:"paymentMethod,omitempty"`
	CreatedAt       time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt" bson:"updatedAt"`
}

// OrderItem snapshots a cart line at checkout time.
type OrderItem struct {
	ProductID string          `json:"productId" bson:"productId"`
	Name      string          `json:"name" bson:"name"`
	Quantity  int             `json:"quantity" bson:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" bson:"unitPrice"` // Price at the time of purchase
}
