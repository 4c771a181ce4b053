package orders

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/events"
	"github.com/01moynul/taptosell-commerce/internal/models"
	"github.com/01moynul/taptosell-commerce/internal/store/memstore"
)

type capture struct{ got []events.OrderEvent }

func (c *capture) Publish(_ context.Context, e events.OrderEvent) error {
	c.got = append(c.got, e)
	return nil
}

func (c *capture) Close() error { return nil }

func seed(t *testing.T) (*Service, *memstore.Store, *capture) {
	t.Helper()
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, st.InsertProduct(ctx, &models.Product{ID: "A", Name: "Ring", Price: decimal.NewFromInt(10), StockQuantity: 3}))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"o1", "o2"} {
		require.NoError(t, st.InsertOrder(ctx, &models.Order{
			ID:          id,
			UserID:      "u1",
			Items:       []models.OrderItem{{ProductID: "A", Name: "Ring", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}},
			TotalAmount: decimal.NewFromInt(20),
			Status:      models.OrderProcessing,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}
	pub := &capture{}
	return NewService(st, nil, pub, nil, nil), st, pub
}

func TestListMine_NewestFirst(t *testing.T) {
	svc, _, _ := seed(t)

	list, err := svc.ListMine(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "o2", list[0].ID)

	list, err = svc.ListMine(context.Background(), "someone-else")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGet_HidesOtherUsersOrders(t *testing.T) {
	svc, _, _ := seed(t)
	ctx := context.Background()

	o, err := svc.Get(ctx, "u1", "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)

	_, err = svc.Get(ctx, "u2", "o1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Get(ctx, "u1", "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateStatus_FollowsLifecycle(t *testing.T) {
	svc, _, pub := seed(t)
	ctx := context.Background()

	o, err := svc.UpdateStatus(ctx, "o1", models.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, o.Status)

	_, err = svc.UpdateStatus(ctx, "o1", models.OrderCancelled)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.True(t, apperrors.IsClientConflict(err))

	o, err = svc.UpdateStatus(ctx, "o1", models.OrderDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, o.Status)

	_, err = svc.UpdateStatus(ctx, "o1", "lost")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	require.Len(t, pub.got, 2)
	assert.Equal(t, events.OrderStatusChanged, pub.got[1].Type)
	assert.Equal(t, models.OrderShipped, pub.got[1].Previous)
}

func TestUpdateStatus_CancelReleasesStock(t *testing.T) {
	svc, st, _ := seed(t)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, "o2", models.OrderCancelled)
	require.NoError(t, err)

	p, err := st.GetProduct(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 5, p.StockQuantity)

	_, err = svc.UpdateStatus(ctx, "o2", models.OrderCancelled)
	assert.ErrorIs(t, err, apperrors.ErrConflict, "cancel twice must not release twice")

	p, err = st.GetProduct(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 5, p.StockQuantity)
}

func TestUpdateStatus_FailedWriteKeepsStock(t *testing.T) {
	svc, st, _ := seed(t)
	ctx := context.Background()
	st.InjectFault("UpdateOrderStatus", apperrors.ErrStorage)

	_, err := svc.UpdateStatus(ctx, "o1", models.OrderCancelled)
	require.ErrorIs(t, err, apperrors.ErrStorage)

	p, err := st.GetProduct(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 3, p.StockQuantity)

	o, err := st.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, o.Status)
}
