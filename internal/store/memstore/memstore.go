// Package memstore is an in-process implementation of store.Store.
// A single mutex serialises every operation; RunInTx holds it for the whole
// callback and restores a snapshot if the callback fails.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/models"
	"github.com/01moynul/taptosell-commerce/internal/store"
)

// Store keeps everything in maps guarded by mu.
type Store struct {
	mu     sync.Mutex
	data   *state
	faults map[string]error
}

type state struct {
	products map[string]models.Product
	carts    map[string]models.Cart // keyed by user id
	orders   map[string]models.Order
	users    map[string]models.User
	emails   map[string]string // lower-cased email -> user id
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		data: &state{
			products: make(map[string]models.Product),
			carts:    make(map[string]models.Cart),
			orders:   make(map[string]models.Order),
			users:    make(map[string]models.User),
			emails:   make(map[string]string),
		},
		faults: make(map[string]error),
	}
}

// InjectFault makes the next call of the named operation (e.g. "InsertOrder")
// fail with err. Used by tests to exercise abort paths.
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) NewID() string { return uuid.NewString() }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close(context.Context) error { return nil }

// RunInTx runs fn with the store locked. On error the state fn saw is discarded.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (st *state) clone() *state {
	out := &state{
		products: make(map[string]models.Product, len(st.products)),
		carts:    make(map[string]models.Cart, len(st.carts)),
		orders:   make(map[string]models.Order, len(st.orders)),
		users:    make(map[string]models.User, len(st.users)),
		emails:   make(map[string]string, len(st.emails)),
	}
	for k, v := range st.products {
		out.products[k] = copyProduct(v)
	}
	for k, v := range st.carts {
		out.carts[k] = *v.Clone()
	}
	for k, v := range st.orders {
		out.orders[k] = copyOrder(v)
	}
	for k, v := range st.users {
		out.users[k] = v
	}
	for k, v := range st.emails {
		out.emails[k] = v
	}
	return out
}

func copyProduct(p models.Product) models.Product {
	p.Images = append([]string(nil), p.Images...)
	return p
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		o.ShippingAddress = &addr
	}
	return o
}

// memTx operates on the state; the caller holds s.mu.
type memTx struct{ s *Store }

func (t *memTx) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := t.s.faults[op]; ok {
		delete(t.s.faults, op)
		return err
	}
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", apperrors.ErrNotFound, kind, id)
}

func stockCapErr(name string, stock, qty int) error {
	return fmt.Errorf("%w: adding %d to %s (stock %d) would exceed %d units",
		apperrors.ErrInvalidInput, qty, name, stock, models.MaxStockQuantity)
}

func (t *memTx) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if err := t.check(ctx, "GetProduct"); err != nil {
		return nil, err
	}
	p, ok := t.s.data.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	p = copyProduct(p)
	return &p, nil
}

func (t *memTx) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	if err := t.check(ctx, "ListProducts"); err != nil {
		return nil, 0, err
	}
	var matched []models.Product
	for _, p := range t.s.data.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		matched = append(matched, copyProduct(p))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return []models.Product{}, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (t *memTx) InsertProduct(ctx context.Context, p *models.Product) error {
	if err := t.check(ctx, "InsertProduct"); err != nil {
		return err
	}
	if _, exists := t.s.data.products[p.ID]; exists {
		return fmt.Errorf("%w: product %s already exists", apperrors.ErrConflict, p.ID)
	}
	t.s.data.products[p.ID] = copyProduct(*p)
	return nil
}

func (t *memTx) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch, now time.Time) (*models.Product, error) {
	if err := t.check(ctx, "UpdateProduct"); err != nil {
		return nil, err
	}
	p, ok := t.s.data.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Slug != nil {
		p.Slug = *patch.Slug
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Images != nil {
		p.Images = append([]string(nil), patch.Images...)
	}
	p.UpdatedAt = now
	t.s.data.products[id] = p
	out := copyProduct(p)
	return &out, nil
}

func (t *memTx) DeleteProduct(ctx context.Context, id string) error {
	if err := t.check(ctx, "DeleteProduct"); err != nil {
		return err
	}
	if _, ok := t.s.data.products[id]; !ok {
		return notFound("product", id)
	}
	delete(t.s.data.products, id)
	return nil
}

func (t *memTx) DecrementStock(ctx context.Context, id string, qty int) (*models.Product, error) {
	if err := t.check(ctx, "DecrementStock"); err != nil {
		return nil, err
	}
	p, ok := t.s.data.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	if p.StockQuantity < qty {
		return nil, fmt.Errorf("%w: %s has %d, requested %d", apperrors.ErrInsufficientStock, p.Name, p.StockQuantity, qty)
	}
	p.StockQuantity -= qty
	t.s.data.products[id] = p
	out := copyProduct(p)
	return &out, nil
}

func (t *memTx) IncrementStock(ctx context.Context, id string, qty int) (*models.Product, error) {
	if err := t.check(ctx, "IncrementStock"); err != nil {
		return nil, err
	}
	p, ok := t.s.data.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	if qty > models.MaxStockQuantity-p.StockQuantity {
		return nil, stockCapErr(p.Name, p.StockQuantity, qty)
	}
	p.StockQuantity += qty
	t.s.data.products[id] = p
	out := copyProduct(p)
	return &out, nil
}

func (t *memTx) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	if err := t.check(ctx, "GetCart"); err != nil {
		return nil, err
	}
	c, ok := t.s.data.carts[userID]
	if !ok {
		return nil, notFound("cart for user", userID)
	}
	return c.Clone(), nil
}

func (t *memTx) SaveCart(ctx context.Context, cart *models.Cart) error {
	if err := t.check(ctx, "SaveCart"); err != nil {
		return err
	}
	if existing, ok := t.s.data.carts[cart.UserID]; ok && cart.ID == "" {
		cart.ID = existing.ID
	}
	if cart.ID == "" {
		cart.ID = t.s.NewID()
	}
	t.s.data.carts[cart.UserID] = *cart.Clone()
	return nil
}

func (t *memTx) DeleteCart(ctx context.Context, userID string) (bool, error) {
	if err := t.check(ctx, "DeleteCart"); err != nil {
		return false, err
	}
	_, ok := t.s.data.carts[userID]
	delete(t.s.data.carts, userID)
	return ok, nil
}

func (t *memTx) DeleteCartsIdleSince(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := t.check(ctx, "DeleteCartsIdleSince"); err != nil {
		return 0, err
	}
	var n int64
	for userID, c := range t.s.data.carts {
		if c.UpdatedAt.Before(cutoff) {
			delete(t.s.data.carts, userID)
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *models.Order) error {
	if err := t.check(ctx, "InsertOrder"); err != nil {
		return err
	}
	if _, exists := t.s.data.orders[o.ID]; exists {
		return fmt.Errorf("%w: order %s already exists", apperrors.ErrConflict, o.ID)
	}
	t.s.data.orders[o.ID] = copyOrder(*o)
	return nil
}

func (t *memTx) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if err := t.check(ctx, "GetOrder"); err != nil {
		return nil, err
	}
	o, ok := t.s.data.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	o = copyOrder(o)
	return &o, nil
}

func (t *memTx) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	if err := t.check(ctx, "ListOrdersByUser"); err != nil {
		return nil, err
	}
	out := []models.Order{}
	for _, o := range t.s.data.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, now time.Time) error {
	if err := t.check(ctx, "UpdateOrderStatus"); err != nil {
		return err
	}
	o, ok := t.s.data.orders[id]
	if !ok {
		return notFound("order", id)
	}
	o.Status = status
	o.UpdatedAt = now
	t.s.data.orders[id] = o
	return nil
}

func (t *memTx) InsertUser(ctx context.Context, u *models.User) error {
	if err := t.check(ctx, "InsertUser"); err != nil {
		return err
	}
	key := strings.ToLower(u.Email)
	if _, taken := t.s.data.emails[key]; taken {
		return apperrors.NewClientConflict("Email is already registered")
	}
	t.s.data.users[u.ID] = *u
	t.s.data.emails[key] = u.ID
	return nil
}

func (t *memTx) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := t.check(ctx, "GetUserByEmail"); err != nil {
		return nil, err
	}
	id, ok := t.s.data.emails[strings.ToLower(email)]
	if !ok {
		return nil, notFound("user", email)
	}
	u := t.s.data.users[id]
	return &u, nil
}

func (t *memTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	if err := t.check(ctx, "GetUser"); err != nil {
		return nil, err
	}
	u, ok := t.s.data.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (t *memTx) UpdateProfile(ctx context.Context, id, username, email string, now time.Time) (*models.User, error) {
	if err := t.check(ctx, "UpdateProfile"); err != nil {
		return nil, err
	}
	u, ok := t.s.data.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	key := strings.ToLower(email)
	if owner, taken := t.s.data.emails[key]; taken && owner != id {
		return nil, apperrors.NewClientConflict("Email is already registered")
	}
	delete(t.s.data.emails, strings.ToLower(u.Email))
	t.s.data.emails[key] = id
	u.Username = username
	u.Email = key
	u.UpdatedAt = now
	t.s.data.users[id] = u
	return &u, nil
}
