package cart

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/models"
	"github.com/01moynul/taptosell-commerce/internal/store/memstore"
)

func setup(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, st.InsertProduct(ctx, &models.Product{ID: "A", Name: "Ring", Price: decimal.NewFromInt(10), StockQuantity: 5}))
	require.NoError(t, st.InsertProduct(ctx, &models.Product{ID: "B", Name: "Chain", Price: decimal.NewFromInt(5), StockQuantity: 1}))
	require.NoError(t, st.InsertProduct(ctx, &models.Product{ID: "C", Name: "Stud", Price: decimal.RequireFromString("2.50"), StockQuantity: 9}))
	return NewService(st, nil, nil), st
}

func sumLines(c *models.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func TestGetCart_NoCartIsEmpty(t *testing.T) {
	svc, _ := setup(t)

	c, err := svc.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
	assert.Empty(t, c.Items)
	assert.True(t, c.TotalAmount.IsZero())
}

func TestAddItem_MergesSameProduct(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "A", 1, nil)
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, "u1", "A", 2, nil)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.True(t, c.TotalAmount.Equal(decimal.NewFromInt(30)))
	require.NotNil(t, c.Items[0].Product)
	assert.Equal(t, "Ring", c.Items[0].Product.Name)
}

func TestAddItem_UsesCatalogPriceOverHint(t *testing.T) {
	svc, _ := setup(t)
	cheap := decimal.NewFromInt(1)

	c, err := svc.AddItem(context.Background(), "u1", "A", 2, &cheap)
	require.NoError(t, err)
	assert.True(t, c.Items[0].UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, c.TotalAmount.Equal(decimal.NewFromInt(20)))
}

func TestAddItem_Rejects(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "A", 0, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.AddItem(ctx, "u1", " ", 1, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.AddItem(ctx, "u1", "nope", 1, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, c.Items, "failed adds must not create a cart")
}

func TestUpdateItemQuantity(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.UpdateItemQuantity(ctx, "u1", "A", 2, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "no cart yet")

	_, err = svc.AddItem(ctx, "u1", "A", 1, nil)
	require.NoError(t, err)

	_, err = svc.UpdateItemQuantity(ctx, "u1", "B", 2, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "item not in cart")

	_, err = svc.UpdateItemQuantity(ctx, "u1", "A", 0, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	c, err := svc.UpdateItemQuantity(ctx, "u1", "A", 4, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Items[0].Quantity)
	assert.True(t, c.TotalAmount.Equal(decimal.NewFromInt(40)))
}

func TestRemoveItem_RecomputesTotal(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "A", 2, nil)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "C", 2, nil)
	require.NoError(t, err)

	c, err := svc.RemoveItem(ctx, "u1", "A")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.True(t, c.TotalAmount.Equal(decimal.NewFromInt(5)))

	_, err = svc.RemoveItem(ctx, "u1", "A")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.RemoveItem(ctx, "nobody", "A")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRemoveItem_UnresolvableLineCountsZero(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "A", 1, nil)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "B", 1, nil)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "C", 2, nil)
	require.NoError(t, err)
	require.NoError(t, st.DeleteProduct(ctx, "B"))

	c, err := svc.RemoveItem(ctx, "u1", "A")
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.True(t, c.TotalAmount.Equal(decimal.NewFromInt(5)))
	assert.True(t, c.TotalAmount.Equal(sumLines(c)))
}

func TestClearCart_Idempotent(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "A", 1, nil)
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(ctx, "u1"))
	require.NoError(t, svc.ClearCart(ctx, "u1"))

	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestTotalAlwaysMatchesLines(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	steps := []func() (*models.Cart, error){
		func() (*models.Cart, error) { return svc.AddItem(ctx, "u1", "A", 3, nil) },
		func() (*models.Cart, error) { return svc.AddItem(ctx, "u1", "C", 1, nil) },
		func() (*models.Cart, error) { return svc.AddItem(ctx, "u1", "B", 7, nil) },
		func() (*models.Cart, error) { return svc.UpdateItemQuantity(ctx, "u1", "C", 5, nil) },
		func() (*models.Cart, error) { return svc.RemoveItem(ctx, "u1", "A") },
		func() (*models.Cart, error) { return svc.AddItem(ctx, "u1", "C", 1, nil) },
	}
	for i, step := range steps {
		c, err := step()
		require.NoError(t, err, "step %d", i)
		assert.True(t, c.TotalAmount.Equal(sumLines(c)), "step %d: total %s", i, c.TotalAmount)

		stored, err := svc.GetCart(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, stored.TotalAmount.Equal(sumLines(stored)))
	}
}

func TestAddItem_StorageFailureLeavesCartUntouched(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "A", 1, nil)
	require.NoError(t, err)

	boom := errors.New("write failed")
	st.InjectFault("SaveCart", boom)
	_, err = svc.AddItem(ctx, "u1", "C", 1, nil)
	require.ErrorIs(t, err, boom)

	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "A", c.Items[0].ProductID)
}

func TestAddItem_QuantityIsCapped(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "A", math.MaxInt, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.AddItem(ctx, "u1", "A", models.MaxItemQuantity, nil)
	require.NoError(t, err)

	// Merging must not push the line past the cap, nor wrap around.
	_, err = svc.AddItem(ctx, "u1", "A", 1, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, models.MaxItemQuantity, c.Items[0].Quantity)
	assert.True(t, c.TotalAmount.IsPositive())
	assert.True(t, c.TotalAmount.Equal(sumLines(c)))
}

func TestUpdateItemQuantity_RejectsAboveCap(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "A", 1, nil)
	require.NoError(t, err)

	_, err = svc.UpdateItemQuantity(ctx, "u1", "A", models.MaxItemQuantity+1, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Items[0].Quantity)
}
