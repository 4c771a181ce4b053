// Package checkout turns a user's cart into an order.
//
// One checkout is a single store transaction: load the cart, check every
// line against the catalog, reserve stock through the ledger in cart order,
// insert the order and delete the cart. Either all of it commits or none of
// it does. Checkouts of the same user are additionally serialised by a
// per-user lock, so the second of two concurrent attempts sees no cart.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/events"
	"github.com/01moynul/taptosell-commerce/internal/inventory"
	"github.com/01moynul/taptosell-commerce/internal/locker"
	"github.com/01moynul/taptosell-commerce/internal/metrics"
	"github.com/01moynul/taptosell-commerce/internal/models"
	"github.com/01moynul/taptosell-commerce/internal/store"
)

const maxPaymentMethodLen = 64

// Request carries the optional fulfilment fields of a checkout.
type Request struct {
	ShippingAddress *models.ShippingAddress
	PaymentMethod   *string
}

// Error reports the state a failed checkout was in when it aborted.
type Error struct {
	State State
	Err   error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

type Orchestrator struct {
	store     store.Store
	ledger    *inventory.Ledger
	locks     locker.Locker
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

type Config struct {
	Store     store.Store
	Ledger    *inventory.Ledger
	Locker    locker.Locker
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	// Timeout bounds lock wait plus the transaction. Zero means 10s.
	Timeout time.Duration
}

func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		store:     cfg.Store,
		ledger:    cfg.Ledger,
		locks:     cfg.Locker,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		timeout:   cfg.Timeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.ledger == nil {
		o.ledger = inventory.NewLedger(o.log)
	}
	if o.locks == nil {
		o.locks = locker.NewLocal()
	}
	if o.publisher == nil {
		o.publisher = events.NewLogPublisher(o.log)
	}
	if o.timeout <= 0 {
		o.timeout = 10 * time.Second
	}
	return o
}

// Checkout places an order for everything in the user's cart.
func (o *Orchestrator) Checkout(ctx context.Context, userID string, req Request) (*models.Order, error) {
	start := time.Now()
	order, err := o.checkout(ctx, userID, req)
	o.metrics.ObserveCheckout(outcome(err), time.Since(start))

	if err != nil {
		level := slog.LevelInfo
		if apperrors.HTTPStatus(err) >= 500 {
			level = slog.LevelError
		}
		o.log.Log(ctx, level, "checkout aborted",
			slog.String("user_id", userID),
			slog.String("outcome", outcome(err)),
			slog.Any("err", err))
		return nil, err
	}

	units := 0
	for _, item := range order.Items {
		units += item.Quantity
	}
	o.metrics.StockMoved("reserve", units)
	o.log.InfoContext(ctx, "checkout completed",
		slog.String("user_id", userID),
		slog.String("order_id", order.ID),
		slog.String("total", order.TotalAmount.String()),
		slog.Int("lines", len(order.Items)))

	// The order is committed; a failed publish is logged, not returned.
	if err := o.publisher.Publish(ctx, events.NewOrderEvent(events.OrderCreated, order, "")); err != nil {
		o.log.WarnContext(ctx, "order created but event not published",
			slog.String("order_id", order.ID),
			slog.Any("err", err))
	}
	return order, nil
}

func (o *Orchestrator) checkout(ctx context.Context, userID string, req Request) (*models.Order, error) {
	m := newMachine()
	fail := func(err error) (*models.Order, error) {
		m.abort()
		return nil, &Error{State: m.path[len(m.path)-2], Err: err}
	}

	if err := m.to(Validating); err != nil {
		return nil, err
	}
	address, payment, err := req.normalize()
	if err != nil {
		return fail(err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	unlock, err := o.locks.Acquire(ctx, "checkout:"+userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			err = fmt.Errorf("%w: a checkout for this user is already in progress", apperrors.ErrConflict)
		}
		return fail(err)
	}
	defer unlock()

	var order *models.Order
	err = o.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		m.rewind()

		// 1. Read the pending cart. No cart, or an empty one, ends here.
		cart, err := tx.GetCart(ctx, userID)
		if errors.Is(err, apperrors.ErrNotFound) || (err == nil && len(cart.Items) == 0) {
			return apperrors.ErrEmptyCart
		}
		if err != nil {
			return err
		}

		// 2. Validate every line before touching stock.
		products, err := o.validate(ctx, tx, cart)
		if err != nil {
			return err
		}

		// 3. Reserve stock for all lines, in cart order.
		if err := m.to(Reserving); err != nil {
			return err
		}
		if _, err := o.ledger.ReserveAll(ctx, tx, linesOf(cart)); err != nil {
			return err
		}

		// 4. Write the order and drop the cart. A cart already gone means a
		// concurrent checkout won.
		if err := m.to(Committing); err != nil {
			return err
		}
		order = o.snapshot(cart, products, address, payment)
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		existed, err := tx.DeleteCart(ctx, userID)
		if err != nil {
			return err
		}
		if !existed {
			return apperrors.ErrEmptyCart
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: checkout timed out", apperrors.ErrConflict)
		}
		return fail(err)
	}

	if err := m.to(Done); err != nil {
		return nil, err
	}
	return order, nil
}

// validate checks every line before any stock is touched, so a cart that
// cannot be fulfilled aborts without a single write.
func (o *Orchestrator) validate(ctx context.Context, tx store.Tx, cart *models.Cart) (map[string]*models.Product, error) {
	products := make(map[string]*models.Product, len(cart.Items))
	for _, item := range cart.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: invalid quantity %d for product %s", apperrors.ErrInvalidInput, item.Quantity, item.ProductID)
		}
		p, err := tx.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("product %s %w", item.ProductID, apperrors.ErrNotFound)
			}
			return nil, err
		}
		if p.StockQuantity < item.Quantity {
			return nil, fmt.Errorf("%w for product %s", apperrors.ErrInsufficientStock, p.Name)
		}
		products[item.ProductID] = p
	}
	return products, nil
}

func (o *Orchestrator) snapshot(cart *models.Cart, products map[string]*models.Product, address *models.ShippingAddress, payment string) *models.Order {
	now := o.now()
	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      products[line.ProductID].Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	cart.Recalculate()

	return &models.Order{
		ID:              o.store.NewID(),
		UserID:          cart.UserID,
		Items:           items,
		TotalAmount:     cart.TotalAmount,
		Status:          models.OrderProcessing,
		ShippingAddress: address,
		PaymentMethod:   payment,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func linesOf(cart *models.Cart) []inventory.Line {
	lines := make([]inventory.Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// normalize validates the optional fields and returns them trimmed.
// An address with both fields blank counts as no address.
func (r Request) normalize() (*models.ShippingAddress, string, error) {
	var address *models.ShippingAddress
	if r.ShippingAddress != nil && !r.ShippingAddress.Blank() {
		a := models.ShippingAddress{
			Street: strings.TrimSpace(r.ShippingAddress.Street),
			City:   strings.TrimSpace(r.ShippingAddress.City),
		}
		if a.Street == "" || a.City == "" {
			return nil, "", fmt.Errorf("%w: shipping address needs both street and city", apperrors.ErrInvalidInput)
		}
		address = &a
	}

	payment := ""
	if r.PaymentMethod != nil {
		payment = strings.TrimSpace(*r.PaymentMethod)
		if payment == "" {
			return nil, "", fmt.Errorf("%w: payment method must not be blank", apperrors.ErrInvalidInput)
		}
		if len(payment) > maxPaymentMethodLen {
			return nil, "", fmt.Errorf("%w: payment method is longer than %d characters", apperrors.ErrInvalidInput, maxPaymentMethodLen)
		}
	}
	return address, payment, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, apperrors.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
