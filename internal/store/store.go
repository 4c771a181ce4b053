// Package store declares the persistence ports used by the services.
// Implementations live in memstore (in-process) and mongostore (MongoDB).
package store

import (
	"context"
	"time"

	"github.com/01moynul/taptosell-commerce/internal/models"
)

// Tx is the set of storage operations. Used outside RunInTx each call stands
// alone; used inside it, every write commits together or not at all.
//
// Lookups of missing records return an error wrapping apperrors.ErrNotFound.
type Tx interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)
	InsertProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, id string, patch models.ProductPatch, now time.Time) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	// DecrementStock lowers stock by qty only if at least qty is available.
	// It fails with ErrNotFound or ErrInsufficientStock and changes nothing then.
	DecrementStock(ctx context.Context, id string, qty int) (*models.Product, error)
	// IncrementStock raises stock by qty. It fails with ErrInvalidInput when
	// the result would pass models.MaxStockQuantity.
	IncrementStock(ctx context.Context, id string, qty int) (*models.Product, error)

	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	// SaveCart upserts the cart keyed by its UserID.
	SaveCart(ctx context.Context, cart *models.Cart) error
	// DeleteCart reports whether a cart existed.
	DeleteCart(ctx context.Context, userID string) (bool, error)
	DeleteCartsIdleSince(ctx context.Context, cutoff time.Time) (int64, error)

	InsertOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, now time.Time) error

	// InsertUser fails with a client conflict when the email is taken.
	InsertUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	// UpdateProfile sets username and email. It fails with a client conflict
	// when the email belongs to another account.
	UpdateProfile(ctx context.Context, id, username, email string, now time.Time) (*models.User, error)
}

// Store is a Tx that can also open transactions.
type Store interface {
	Tx

	// RunInTx runs fn atomically. Any error returned by fn aborts the
	// transaction; fn may be invoked more than once on transient conflicts,
	// so it must not have side effects outside tx.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// NewID returns an identifier in the store's native format.
	NewID() string

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
