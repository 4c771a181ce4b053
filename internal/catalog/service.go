// Package catalog manages products. Stock is only changed through the
// inventory ledger, never by a plain product update.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/inventory"
	"github.com/01moynul/taptosell-commerce/internal/metrics"
	"github.com/01moynul/taptosell-commerce/internal/models"
	"github.com/01moynul/taptosell-commerce/internal/store"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

var validate = validator.New()

// NewProduct is the input of Create.
type NewProduct struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	Category      string
	Images        []string
	StockQuantity int
}

// Page is one page of a listing.
type Page struct {
	Products      []models.Product `json:"products"`
	Page          int              `json:"page"`
	Limit         int              `json:"limit"`
	TotalPages    int64            `json:"totalPages"`
	TotalProducts int64            `json:"totalProducts"`
}

type Service struct {
	store   store.Store
	ledger  *inventory.Ledger
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

func NewService(s store.Store, ledger *inventory.Ledger, m *metrics.Metrics, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if ledger == nil {
		ledger = inventory.NewLedger(log)
	}
	return &Service{store: s, ledger: ledger, metrics: m, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Create(ctx context.Context, in NewProduct) (*models.Product, error) {
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}
	if err := validateCategory(in.Category); err != nil {
		return nil, err
	}
	if err := validateImages(in.Images); err != nil {
		return nil, err
	}
	if in.StockQuantity < 0 {
		return nil, fmt.Errorf("%w: Stock quantity must be a non-negative integer", apperrors.ErrInvalidInput)
	}
	if in.StockQuantity > models.MaxStockQuantity {
		return nil, fmt.Errorf("%w: Stock quantity must be at most %d", apperrors.ErrInvalidInput, models.MaxStockQuantity)
	}

	now := s.now()
	p := &models.Product{
		ID:            s.store.NewID(),
		Name:          strings.TrimSpace(in.Name),
		Slug:          slug.Make(in.Name),
		Description:   strings.TrimSpace(in.Description),
		Price:         in.Price,
		Category:      in.Category,
		Images:        in.Images,
		StockQuantity: in.StockQuantity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.InsertProduct(ctx, p); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "product created", slog.String("product_id", p.ID), slog.String("slug", p.Slug))
	return p, nil
}

// Update applies the non-nil fields of patch. Changing the name also
// regenerates the slug.
func (s *Service) Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	if patch.Name != nil {
		if err := validateName(*patch.Name); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(*patch.Name)
		sl := slug.Make(name)
		patch.Name, patch.Slug = &name, &sl
	}
	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			return nil, err
		}
		d := strings.TrimSpace(*patch.Description)
		patch.Description = &d
	}
	if patch.Price != nil {
		if err := validatePrice(*patch.Price); err != nil {
			return nil, err
		}
	}
	if patch.Category != nil {
		if err := validateCategory(*patch.Category); err != nil {
			return nil, err
		}
	}
	if patch.Images != nil {
		if err := validateImages(patch.Images); err != nil {
			return nil, err
		}
	}
	return s.store.UpdateProduct(ctx, id, patch, s.now())
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// List returns a page of products, newest first. Page and limit default to
// 1 and 10; limit is capped at 100.
func (s *Service) List(ctx context.Context, filter models.ProductFilter) (*Page, error) {
	if filter.Category != "" {
		if err := validateCategory(filter.Category); err != nil {
			return nil, err
		}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}

	products, total, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	limit := int64(filter.Limit)
	return &Page{
		Products:      products,
		Page:          filter.Page,
		Limit:         filter.Limit,
		TotalPages:    (total + limit - 1) / limit,
		TotalProducts: total,
	}, nil
}

// AdjustStock restocks (delta > 0) or writes off (delta < 0) units through
// the ledger, so stock can never go below zero here either.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (*models.Product, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: delta must not be zero", apperrors.ErrInvalidInput)
	}
	if delta > models.MaxStockQuantity || delta < -models.MaxStockQuantity {
		return nil, fmt.Errorf("%w: delta must be within ±%d", apperrors.ErrInvalidInput, models.MaxStockQuantity)
	}

	var updated *models.Product
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if delta > 0 {
			updated, err = s.ledger.Release(ctx, tx, id, delta)
		} else {
			updated, err = s.ledger.Reserve(ctx, tx, id, -delta)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if delta > 0 {
		s.metrics.StockMoved("release", delta)
	} else {
		s.metrics.StockMoved("reserve", -delta)
	}
	s.log.InfoContext(ctx, "stock adjusted",
		slog.String("product_id", id),
		slog.Int("delta", delta),
		slog.Int("stock", updated.StockQuantity))
	return updated, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: Name must be a non-empty string", apperrors.ErrInvalidInput)
	}
	return nil
}

func validateDescription(d string) error {
	if strings.TrimSpace(d) == "" {
		return fmt.Errorf("%w: Description must be a non-empty string", apperrors.ErrInvalidInput)
	}
	return nil
}

func validatePrice(p decimal.Decimal) error {
	if !p.IsPositive() {
		return fmt.Errorf("%w: Price must be a positive number", apperrors.ErrInvalidInput)
	}
	return nil
}

func validateCategory(c string) error {
	if !slices.Contains(models.Categories, c) {
		return fmt.Errorf("%w: Category must be one of: %s", apperrors.ErrInvalidInput, strings.Join(models.Categories, ", "))
	}
	return nil
}

func validateImages(images []string) error {
	if len(images) == 0 {
		return fmt.Errorf("%w: Images must be an array of valid image URLs", apperrors.ErrInvalidInput)
	}
	for _, raw := range images {
		if err := validate.Var(raw, "required,http_url"); err != nil {
			return fmt.Errorf("%w: Images must be an array of valid image URLs", apperrors.ErrInvalidInput)
		}
	}
	return nil
}
