package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/models"
	"github.com/01moynul/taptosell-commerce/internal/store/memstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSweepOnce_RemovesOnlyIdleCarts(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.SaveCart(ctx, &models.Cart{UserID: "stale", UpdatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, st.SaveCart(ctx, &models.Cart{UserID: "fresh", UpdatedAt: now.Add(-time.Hour)}))

	w := NewCartSweeper(st, 24*time.Hour, time.Hour, nil, nil)
	w.now = func() time.Time { return now }

	n, err := w.SweepOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = st.GetCart(ctx, "stale")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = st.GetCart(ctx, "fresh")
	assert.NoError(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	st := memstore.New()
	require.NoError(t, st.SaveCart(context.Background(), &models.Cart{UserID: "old", UpdatedAt: time.Now().Add(-time.Hour)}))

	w := NewCartSweeper(st, time.Minute, 5*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := st.GetCart(context.Background(), "old")
		return err != nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
