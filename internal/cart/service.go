// Package cart owns the single pending cart of each user.
//
// Every mutation re-reads the product from the catalog and captures its
// current price on the line, then recomputes the total from the lines, so a
// stored total always equals Σ quantity × unitPrice right after a write.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/metrics"
	"github.com/01moynul/taptosell-commerce/internal/models"
	"github.com/01moynul/taptosell-commerce/internal/store"
)

type Service struct {
	store   store.Store
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(s store.Store, log *slog.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: s, log: log, metrics: m, now: func() time.Time { return time.Now().UTC() }}
}

// GetCart returns the user's cart with products resolved, or an empty cart.
func (s *Service) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	c, err := s.store.GetCart(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.EmptyCart(userID), nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddItem adds quantity units of a product, creating the cart on first use.
// A product already in the cart has its line quantity increased instead of
// getting a second line.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int, priceHint *decimal.Decimal) (*models.Cart, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, fmt.Errorf("%w: productId is required", apperrors.ErrInvalidInput)
	}
	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}

	var saved *models.Cart
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		// 1. The product must exist; its catalog price is the one captured.
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		s.checkHint(ctx, product, priceHint)

		// 2. Load the cart, or start one.
		c, err := s.loadOrNew(ctx, tx, userID)
		if err != nil {
			return err
		}

		// 3. Merge into an existing line or append a new one.
		if idx := c.FindItem(productID); idx >= 0 {
			if c.Items[idx].Quantity > models.MaxItemQuantity-quantity {
				return fmt.Errorf("%w: a cart line holds at most %d units", apperrors.ErrInvalidInput, models.MaxItemQuantity)
			}
			c.Items[idx].Quantity += quantity
			c.Items[idx].UnitPrice = product.Price
		} else {
			c.Items = append(c.Items, models.CartItem{
				ProductID: productID,
				Quantity:  quantity,
				UnitPrice: product.Price,
			})
		}

		// 4. Recompute the total and write.
		saved, err = s.save(ctx, tx, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.CartMutation("add")
	return s.resolved(ctx, saved)
}

// UpdateItemQuantity sets the quantity of an existing line. Quantities below
// one are rejected; removing a line is RemoveItem's job.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int, priceHint *decimal.Decimal) (*models.Cart, error) {
	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}

	var saved *models.Cart
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		c, idx, err := s.loadLine(ctx, tx, userID, productID)
		if err != nil {
			return err
		}

		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		s.checkHint(ctx, product, priceHint)

		c.Items[idx].Quantity = quantity
		c.Items[idx].UnitPrice = product.Price

		saved, err = s.save(ctx, tx, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.CartMutation("update")
	return s.resolved(ctx, saved)
}

// RemoveItem drops a line and re-prices the remaining lines from the catalog.
// A line whose product can no longer be resolved counts as zero and is
// logged rather than failing the removal.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, error) {
	var saved *models.Cart
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		c, idx, err := s.loadLine(ctx, tx, userID, productID)
		if err != nil {
			return err
		}
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)

		for i := range c.Items {
			product, err := tx.GetProduct(ctx, c.Items[i].ProductID)
			switch {
			case err == nil:
				c.Items[i].UnitPrice = product.Price
			case errors.Is(err, apperrors.ErrNotFound):
				s.log.WarnContext(ctx, "cart line has no resolvable price, counting it as zero",
					slog.String("user_id", userID),
					slog.String("product_id", c.Items[i].ProductID))
				c.Items[i].UnitPrice = decimal.Zero
			default:
				return err
			}
		}

		saved, err = s.save(ctx, tx, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.CartMutation("remove")
	return s.resolved(ctx, saved)
}

// ClearCart deletes the cart. Clearing a missing cart is not an error.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	if _, err := s.store.DeleteCart(ctx, userID); err != nil {
		return err
	}
	s.metrics.CartMutation("clear")
	return nil
}

func checkQuantity(quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", apperrors.ErrInvalidInput)
	}
	if quantity > models.MaxItemQuantity {
		return fmt.Errorf("%w: quantity must be at most %d", apperrors.ErrInvalidInput, models.MaxItemQuantity)
	}
	return nil
}

func (s *Service) loadOrNew(ctx context.Context, tx store.Tx, userID string) (*models.Cart, error) {
	c, err := tx.GetCart(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		c = models.EmptyCart(userID)
		c.CreatedAt = s.now()
		return c, nil
	}
	return c, err
}

func (s *Service) loadLine(ctx context.Context, tx store.Tx, userID, productID string) (*models.Cart, int, error) {
	c, err := tx.GetCart(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, -1, fmt.Errorf("cart %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, -1, err
	}
	idx := c.FindItem(productID)
	if idx < 0 {
		return nil, -1, fmt.Errorf("item %w in cart", apperrors.ErrNotFound)
	}
	return c, idx, nil
}

func (s *Service) save(ctx context.Context, tx store.Tx, c *models.Cart) (*models.Cart, error) {
	c.Recalculate()
	c.UpdatedAt = s.now()
	if err := tx.SaveCart(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// checkHint logs when the client's idea of the price disagrees with the
// catalog. The catalog price is always the one used.
func (s *Service) checkHint(ctx context.Context, product *models.Product, hint *decimal.Decimal) {
	if hint == nil || hint.Equal(product.Price) {
		return
	}
	s.log.WarnContext(ctx, "client price differs from catalog, using catalog price",
		slog.String("product_id", product.ID),
		slog.String("client_price", hint.String()),
		slog.String("catalog_price", product.Price.String()))
}

func (s *Service) resolved(ctx context.Context, c *models.Cart) (*models.Cart, error) {
	if err := s.populate(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// populate attaches product details to each line for responses.
func (s *Service) populate(ctx context.Context, c *models.Cart) error {
	for i := range c.Items {
		p, err := s.store.GetProduct(ctx, c.Items[i].ProductID)
		if errors.Is(err, apperrors.ErrNotFound) {
			c.Items[i].Product = nil
			continue
		}
		if err != nil {
			return err
		}
		c.Items[i].Product = p
	}
	return nil
}
