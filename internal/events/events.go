// Package events publishes order lifecycle events for downstream consumers
// (fulfilment, notifications). Publishing happens after the store commit, so
// a failed publish never undoes an order.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/01moynul/taptosell-commerce/internal/models"
)

const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
)

// OrderEvent is the message body written for every order event.
type OrderEvent struct {
	Type        string             `json:"type"`
	OrderID     string             `json:"orderId"`
	UserID      string             `json:"userId"`
	Status      models.OrderStatus `json:"status"`
	Previous    models.OrderStatus `json:"previousStatus,omitempty"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	ItemCount   int                `json:"itemCount"`
	OccurredAt  time.Time          `json:"occurredAt"`
}

// NewOrderEvent fills an event from the order's current state.
func NewOrderEvent(kind string, o *models.Order, previous models.OrderStatus) OrderEvent {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return OrderEvent{
		Type:        kind,
		OrderID:     o.ID,
		UserID:      o.UserID,
		Status:      o.Status,
		Previous:    previous,
		TotalAmount: o.TotalAmount,
		ItemCount:   count,
		OccurredAt:  time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e OrderEvent) error
	Close() error
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, e OrderEvent) error {
	p.log.InfoContext(ctx, "order event",
		slog.String("type", e.Type),
		slog.String("order_id", e.OrderID),
		slog.String("user_id", e.UserID),
		slog.String("status", string(e.Status)))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
