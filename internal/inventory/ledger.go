// Package inventory is the stock ledger: the only code allowed to change a
// product's stockQuantity.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/models"
	"github.com/01moynul/taptosell-commerce/internal/store"
)

// Line is one product/quantity pair to reserve or release.
type Line struct {
	ProductID string
	Quantity  int
}

// Ledger reserves and releases stock through a store.Tx.
type Ledger struct {
	log *slog.Logger
}

func NewLedger(log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{log: log}
}

// Reserve takes qty units of a product. The decrement is conditional in the
// store, so two concurrent reservations can never push stock below zero.
func (l *Ledger) Reserve(ctx context.Context, tx store.Tx, productID string, qty int) (*models.Product, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", apperrors.ErrInvalidInput)
	}
	return tx.DecrementStock(ctx, productID, qty)
}

// Release gives qty units back (restock or compensation).
func (l *Ledger) Release(ctx context.Context, tx store.Tx, productID string, qty int) (*models.Product, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", apperrors.ErrInvalidInput)
	}
	return tx.IncrementStock(ctx, productID, qty)
}

// ReserveAll reserves every line in the order given. The order is kept
// stable by callers so concurrent checkouts touch products in the same
// sequence. On the first failure every reservation already made by this
// call is released before the error is returned.
func (l *Ledger) ReserveAll(ctx context.Context, tx store.Tx, lines []Line) ([]*models.Product, error) {
	reserved := make([]*models.Product, 0, len(lines))
	for i, line := range lines {
		p, err := l.Reserve(ctx, tx, line.ProductID, line.Quantity)
		if err != nil {
			l.compensate(ctx, tx, lines[:i])
			return nil, fmt.Errorf("reserve %s: %w", line.ProductID, err)
		}
		reserved = append(reserved, p)
	}
	return reserved, nil
}

// ReleaseAll returns stock for every line; used when an order is cancelled.
// Lines whose product was deleted from the catalog are skipped and logged.
func (l *Ledger) ReleaseAll(ctx context.Context, tx store.Tx, lines []Line) error {
	for _, line := range lines {
		_, err := l.Release(ctx, tx, line.ProductID, line.Quantity)
		if errors.Is(err, apperrors.ErrNotFound) {
			l.log.WarnContext(ctx, "released stock for a deleted product, skipping",
				slog.String("product_id", line.ProductID),
				slog.Int("quantity", line.Quantity))
			continue
		}
		if err != nil {
			return fmt.Errorf("release %s: %w", line.ProductID, err)
		}
	}
	return nil
}

func (l *Ledger) compensate(ctx context.Context, tx store.Tx, done []Line) {
	for i := len(done) - 1; i >= 0; i-- {
		if _, err := l.Release(ctx, tx, done[i].ProductID, done[i].Quantity); err != nil {
			// The enclosing transaction abort still undoes the decrement.
			l.log.WarnContext(ctx, "stock compensation failed",
				slog.String("product_id", done[i].ProductID),
				slog.Int("quantity", done[i].Quantity),
				slog.Any("err", err))
		}
	}
}
