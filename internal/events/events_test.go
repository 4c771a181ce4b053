package events

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/taptosell-commerce/internal/models"
)

func TestNewOrderEvent(t *testing.T) {
	o := &models.Order{
		ID:          "o1",
		UserID:      "u1",
		Status:      models.OrderShipped,
		TotalAmount: decimal.NewFromInt(25),
		Items: []models.OrderItem{
			{ProductID: "A", Quantity: 2},
			{ProductID: "B", Quantity: 1},
		},
	}

	e := NewOrderEvent(OrderStatusChanged, o, models.OrderProcessing)
	assert.Equal(t, OrderStatusChanged, e.Type)
	assert.Equal(t, "o1", e.OrderID)
	assert.Equal(t, models.OrderShipped, e.Status)
	assert.Equal(t, models.OrderProcessing, e.Previous)
	assert.Equal(t, 3, e.ItemCount)
	assert.True(t, e.TotalAmount.Equal(decimal.NewFromInt(25)))
	assert.False(t, e.OccurredAt.IsZero())
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(nil)
	require.NoError(t, p.Publish(context.Background(), OrderEvent{Type: OrderCreated, OrderID: "o1"}))
	require.NoError(t, p.Close())
}
