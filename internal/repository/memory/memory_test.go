package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront-backend/internal/models"
	"storefront-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAdjustStockNeverOversells(t *testing.T) {
	ctx := context.Background()
	products := New().Products()
	p := &models.Product{Title: "Mug", Stock: 10}
	require.NoError(t, products.Create(ctx, p))

	var wg sync.WaitGroup
	var sold atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := products.AdjustStock(ctx, p.ID, -1); err == nil {
				sold.Add(1)
			} else {
				assert.ErrorIs(t, err, repository.ErrNotEnough)
			}
		}()
	}
	wg.Wait()

	got, err := products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(10), sold.Load())
	assert.Equal(t, 0, got.Stock)
}

func TestAdjustStockMissingProduct(t *testing.T) {
	_, err := New().Products().AdjustStock(context.Background(), primitive.NewObjectID(), 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserEmailUnique(t *testing.T) {
	ctx := context.Background()
	users := New().Users()

	require.NoError(t, users.Create(ctx, &models.User{Email: "a@example.com"}))
	assert.ErrorIs(t, users.Create(ctx, &models.User{Email: "a@example.com"}), repository.ErrDuplicate)

	b := &models.User{Email: "b@example.com"}
	require.NoError(t, users.Create(ctx, b))
	b.Email = "a@example.com"
	assert.ErrorIs(t, users.Update(ctx, b), repository.ErrDuplicate)
}

func TestOrdersNewestFirstAndTransitions(t *testing.T) {
	ctx := context.Background()
	store := New()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	orders := store.Orders()
	user := primitive.NewObjectID()

	first := &models.Order{User: user}
	second := &models.Order{User: user}
	other := &models.Order{User: primitive.NewObjectID()}
	for _, o := range []*models.Order{first, second, other} {
		require.NoError(t, orders.Create(ctx, o))
	}

	mine, err := orders.ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	_, err = orders.MarkCancelled(ctx, first.ID, clock)
	require.NoError(t, err)
	_, err = orders.MarkCancelled(ctx, first.ID, clock)
	assert.ErrorIs(t, err, repository.ErrConflict)
	_, err = orders.MarkDelivered(ctx, first.ID, clock)
	assert.ErrorIs(t, err, repository.ErrConflict)

	delivered, err := orders.MarkDelivered(ctx, second.ID, clock)
	require.NoError(t, err)
	assert.True(t, delivered.IsDelivered)
	_, err = orders.MarkCancelled(ctx, second.ID, clock)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestIdempotencyKeyUniquePerUser(t *testing.T) {
	ctx := context.Background()
	orders := New().Orders()
	user := primitive.NewObjectID()

	require.NoError(t, orders.Create(ctx, &models.Order{User: user, IdempotencyKey: "k1"}))
	assert.ErrorIs(t, orders.Create(ctx, &models.Order{User: user, IdempotencyKey: "k1"}), repository.ErrDuplicate)
	require.NoError(t, orders.Create(ctx, &models.Order{User: primitive.NewObjectID(), IdempotencyKey: "k1"}))

	got, err := orders.GetByIdempotencyKey(ctx, user, "k1")
	require.NoError(t, err)
	assert.Equal(t, user, got.User)
}

func TestProductUpdatePatchesSuppliedFields(t *testing.T) {
	ctx := context.Background()
	products := New().Products()
	p := &models.Product{Title: "Mug", Price: 8, Stock: 5, User: primitive.NewObjectID()}
	require.NoError(t, products.Create(ctx, p))

	_, err := products.AdjustStock(ctx, p.ID, -2)
	require.NoError(t, err)

	title := "Cup"
	updated, err := products.Update(ctx, p.ID, repository.ProductChanges{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Cup", updated.Title)
	assert.Equal(t, 8.0, updated.Price)
	assert.Equal(t, 3, updated.Stock)
	assert.Equal(t, p.User, updated.User)

	zero := 0
	updated, err = products.Update(ctx, p.ID, repository.ProductChanges{Stock: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock)

	_, err = products.Update(ctx, primitive.NewObjectID(), repository.ProductChanges{Title: &title})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
