package memstore

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/models"
	"github.com/01moynul/taptosell-commerce/internal/store"
)

func seedProduct(t *testing.T, s *Store, id string, stock int) {
	t.Helper()
	require.NoError(t, s.InsertProduct(context.Background(), &models.Product{
		ID:            id,
		Name:          "product " + id,
		Price:         decimal.NewFromInt(10),
		StockQuantity: stock,
		CreatedAt:     time.Now(),
	}))
}

func TestDecrementStock_NeverGoesNegative(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "p1", 3)

	p, err := s.DecrementStock(ctx, "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, p.StockQuantity)

	_, err = s.DecrementStock(ctx, "p1", 2)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	current, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, current.StockQuantity)

	_, err = s.DecrementStock(ctx, "missing", 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestIncrementStock_StopsAtTheCap(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "p1", 5)

	_, err := s.IncrementStock(ctx, "p1", math.MaxInt)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = s.IncrementStock(ctx, "p1", models.MaxStockQuantity-4)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	current, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, current.StockQuantity)

	p, err := s.IncrementStock(ctx, "p1", models.MaxStockQuantity-5)
	require.NoError(t, err)
	assert.Equal(t, models.MaxStockQuantity, p.StockQuantity)

	_, err = s.IncrementStock(ctx, "missing", 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRunInTx_RollsBackEveryWriteOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "p1", 5)
	require.NoError(t, s.SaveCart(ctx, &models.Cart{UserID: "u1", Items: []models.CartItem{{ProductID: "p1", Quantity: 1}}}))

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.DecrementStock(ctx, "p1", 4); err != nil {
			return err
		}
		if _, err := tx.DeleteCart(ctx, "u1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.StockQuantity)

	_, err = s.GetCart(ctx, "u1")
	assert.NoError(t, err, "cart must survive the aborted transaction")
}

func TestRunInTx_CommitsOnSuccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "p1", 5)

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.DecrementStock(ctx, "p1", 5)
		return err
	})
	require.NoError(t, err)

	p, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.StockQuantity)
}

func TestSaveCart_OneCartPerUser(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := &models.Cart{UserID: "u1"}
	require.NoError(t, s.SaveCart(ctx, first))
	require.NotEmpty(t, first.ID)

	second := &models.Cart{UserID: "u1", Items: []models.CartItem{{ProductID: "p", Quantity: 2}}}
	require.NoError(t, s.SaveCart(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	got, err := s.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestDeleteCart_ReportsExistence(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.SaveCart(ctx, &models.Cart{UserID: "u1"}))

	existed, err := s.DeleteCart(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.DeleteCart(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.SaveCart(ctx, &models.Cart{UserID: "u1", Items: []models.CartItem{{ProductID: "p", Quantity: 1}}}))

	got, err := s.GetCart(ctx, "u1")
	require.NoError(t, err)
	got.Items[0].Quantity = 99

	again, err := s.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)
}

func TestListProducts_FiltersAndPaginates(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now()
	for i, cat := range []string{"rings", "rings", "necklaces", "rings"} {
		require.NoError(t, s.InsertProduct(ctx, &models.Product{
			ID:        string(rune('a' + i)),
			Category:  cat,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, total, err := s.ListProducts(ctx, models.ProductFilter{Category: "rings", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].ID, "newest first")
	assert.Equal(t, "b", page[1].ID)

	page, _, err = s.ListProducts(ctx, models.ProductFilter{Category: "rings", Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestInsertUser_DuplicateEmailIsClientConflict(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InsertUser(ctx, &models.User{ID: "1", Email: "a@b.co"}))

	err := s.InsertUser(ctx, &models.User{ID: "2", Email: "A@B.co"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.True(t, apperrors.IsClientConflict(err))
}

func TestUpdateProfile_ReindexesEmail(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.InsertUser(ctx, &models.User{ID: "1", Username: "ann", Email: "a@b.co"}))
	require.NoError(t, s.InsertUser(ctx, &models.User{ID: "2", Username: "bob", Email: "bob@b.co"}))

	_, err := s.UpdateProfile(ctx, "2", "bob", "A@b.co", now)
	assert.True(t, apperrors.IsClientConflict(err))

	u, err := s.UpdateProfile(ctx, "1", "ann k", "Ann@b.co", now)
	require.NoError(t, err)
	assert.Equal(t, "ann@b.co", u.Email)
	assert.Equal(t, "ann k", u.Username)

	_, err = s.GetUserByEmail(ctx, "a@b.co")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	got, err := s.GetUserByEmail(ctx, "ann@b.co")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)

	_, err = s.UpdateProfile(ctx, "ghost", "x", "x@b.co", now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInjectFault_FiresOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("disk on fire")
	s.InjectFault("GetCart", boom)

	_, err := s.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, boom)

	_, err = s.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
