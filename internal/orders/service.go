// Package orders serves a user's order history and drives fulfilment
// status changes.
package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/events"
	"github.com/01moynul/taptosell-commerce/internal/inventory"
	"github.com/01moynul/taptosell-commerce/internal/metrics"
	"github.com/01moynul/taptosell-commerce/internal/models"
	"github.com/01moynul/taptosell-commerce/internal/store"
)

type Service struct {
	store     store.Store
	ledger    *inventory.Ledger
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

func NewService(s store.Store, ledger *inventory.Ledger, pub events.Publisher, m *metrics.Metrics, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if ledger == nil {
		ledger = inventory.NewLedger(log)
	}
	if pub == nil {
		pub = events.NewLogPublisher(log)
	}
	return &Service{
		store:     s,
		ledger:    ledger,
		publisher: pub,
		metrics:   m,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListMine returns the user's orders, newest first.
func (s *Service) ListMine(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID)
}

// Get returns one of the user's orders. Orders of other users are reported
// as not found.
func (s *Service) Get(ctx context.Context, userID, orderID string) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, fmt.Errorf("order %w", apperrors.ErrNotFound)
	}
	return o, nil
}

// UpdateStatus moves an order along processing -> shipped -> delivered, or
// cancels a processing order. Cancelling puts the ordered units back in
// stock in the same transaction as the status change.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidInput, next)
	}

	var (
		updated  *models.Order
		previous models.OrderStatus
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		// 1. Load the order and check the transition is legal.
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		previous = o.Status
		if !o.Status.CanTransitionTo(next) {
			return apperrors.NewClientConflict(fmt.Sprintf("cannot move order from %s to %s", o.Status, next))
		}

		// 2. A cancellation puts its units back on the shelf.
		if next == models.OrderCancelled {
			if err := s.ledger.ReleaseAll(ctx, tx, linesOf(o)); err != nil {
				return err
			}
		}

		// 3. Persist the new status.
		now := s.now()
		if err := tx.UpdateOrderStatus(ctx, orderID, next, now); err != nil {
			return err
		}
		o.Status = next
		o.UpdatedAt = now
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderTransition(string(next))
	if next == models.OrderCancelled {
		s.metrics.StockMoved("release", units(updated))
	}
	s.log.InfoContext(ctx, "order status changed",
		slog.String("order_id", orderID),
		slog.String("from", string(previous)),
		slog.String("to", string(next)))

	if err := s.publisher.Publish(ctx, events.NewOrderEvent(events.OrderStatusChanged, updated, previous)); err != nil {
		s.log.WarnContext(ctx, "status changed but event not published",
			slog.String("order_id", orderID), slog.Any("err", err))
	}
	return updated, nil
}

func linesOf(o *models.Order) []inventory.Line {
	lines := make([]inventory.Line, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func units(o *models.Order) int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
