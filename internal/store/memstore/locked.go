package memstore

import (
	"context"
	"time"

	"github.com/01moynul/taptosell-commerce/internal/models"
)

// The methods below are the non-transactional entry points: each takes the
// lock for a single operation. Calling them from inside RunInTx deadlocks;
// use the tx passed to the callback instead.

func (s *Store) tx() (*memTx, func()) {
	s.mu.Lock()
	return &memTx{s: s}, s.mu.Unlock
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	t, unlock := s.tx()
	defer unlock()
	return t.GetProduct(ctx, id)
}

func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	t, unlock := s.tx()
	defer unlock()
	return t.ListProducts(ctx, filter)
}

func (s *Store) InsertProduct(ctx context.Context, p *models.Product) error {
	t, unlock := s.tx()
	defer unlock()
	return t.InsertProduct(ctx, p)
}

func (s *Store) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch, now time.Time) (*models.Product, error) {
	t, unlock := s.tx()
	defer unlock()
	return t.UpdateProduct(ctx, id, patch, now)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	t, unlock := s.tx()
	defer unlock()
	return t.DeleteProduct(ctx, id)
}

func (s *Store) DecrementStock(ctx context.Context, id string, qty int) (*models.Product, error) {
	t, unlock := s.tx()
	defer unlock()
	return t.DecrementStock(ctx, id, qty)
}

func (s *Store) IncrementStock(ctx context.Context, id string, qty int) (*models.Product, error) {
	t, unlock := s.tx()
	defer unlock()
	return t.IncrementStock(ctx, id, qty)
}

func (s *Store) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	t, unlock := s.tx()
	defer unlock()
	return t.GetCart(ctx, userID)
}

func (s *Store) SaveCart(ctx context.Context, cart *models.Cart) error {
	t, unlock := s.tx()
	defer unlock()
	return t.SaveCart(ctx, cart)
}

func (s *Store) DeleteCart(ctx context.Context, userID string) (bool, error) {
	t, unlock := s.tx()
	defer unlock()
	return t.DeleteCart(ctx, userID)
}

func (s *Store) DeleteCartsIdleSince(ctx context.Context, cutoff time.Time) (int64, error) {
	t, unlock := s.tx()
	defer unlock()
	return t.DeleteCartsIdleSince(ctx, cutoff)
}

func (s *Store) InsertOrder(ctx context.Context, o *models.Order) error {
	t, unlock := s.tx()
	defer unlock()
	return t.InsertOrder(ctx, o)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	t, unlock := s.tx()
	defer unlock()
	return t.GetOrder(ctx, id)
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	t, unlock := s.tx()
	defer unlock()
	return t.ListOrdersByUser(ctx, userID)
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, now time.Time) error {
	t, unlock := s.tx()
	defer unlock()
	return t.UpdateOrderStatus(ctx, id, status, now)
}

func (s *Store) InsertUser(ctx context.Context, u *models.User) error {
	t, unlock := s.tx()
	defer unlock()
	return t.InsertUser(ctx, u)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	t, unlock := s.tx()
	defer unlock()
	return t.GetUserByEmail(ctx, email)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	t, unlock := s.tx()
	defer unlock()
	return t.GetUser(ctx, id)
}

func (s *Store) UpdateProfile(ctx context.Context, id, username, email string, now time.Time) (*models.User, error) {
	t, unlock := s.tx()
	defer unlock()
	return t.UpdateProfile(ctx, id, username, email, now)
}
