package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"storefront-backend/internal/models"
	"storefront-backend/internal/repository"
	"storefront-backend/internal/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newCachedRepo(t *testing.T) (*CachedProductRepository, repository.ProductRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	backing := memory.New().Products()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCachedProductRepository(backing, rdb, time.Minute, log), backing, mr
}

func TestGetByIDIsCached(t *testing.T) {
	ctx := context.Background()
	cached, backing, mr := newCachedRepo(t)

	p := &models.Product{Title: "Mug", Stock: 4, User: primitive.NewObjectID()}
	require.NoError(t, cached.Create(ctx, p))

	got, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mug", got.Title)
	assert.True(t, mr.Exists(productKey(p.ID)))

	// a change behind the cache's back stays invisible until invalidation
	_, err = backing.Update(ctx, p.ID, repository.ProductChanges{Title: ptr("Cup")})
	require.NoError(t, err)
	got, err = cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mug", got.Title)
}

func TestAdjustStockInvalidates(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCachedRepo(t)

	p := &models.Product{Title: "Mug", Stock: 4, User: primitive.NewObjectID()}
	require.NoError(t, cached.Create(ctx, p))
	_, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	_, err = cached.List(ctx, repository.ProductFilter{})
	require.NoError(t, err)

	_, err = cached.AdjustStock(ctx, p.ID, -3)
	require.NoError(t, err)
	assert.False(t, mr.Exists(productKey(p.ID)))
	assert.False(t, mr.Exists(allProductsKey))

	got, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
}

func TestNotFoundIsRemembered(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCachedRepo(t)
	id := primitive.NewObjectID()

	_, err := cached.GetByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	v, err := mr.Get(productKey(id))
	require.NoError(t, err)
	assert.Equal(t, notFoundMarker, v)
}

func TestListByOwnerUsesSeparateKey(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCachedRepo(t)
	owner := primitive.NewObjectID()

	require.NoError(t, cached.Create(ctx, &models.Product{Title: "A", User: owner}))
	require.NoError(t, cached.Create(ctx, &models.Product{Title: "B", User: primitive.NewObjectID()}))

	mine, err := cached.List(ctx, repository.ProductFilter{Owner: owner})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mr.Exists(ownerKey(owner)))
	assert.False(t, mr.Exists(allProductsKey))
}

func TestRedisDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCachedRepo(t)

	p := &models.Product{Title: "Mug"}
	require.NoError(t, cached.Create(ctx, p))
	mr.SetError("ERR injected failure")

	got, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mug", got.Title)
}

func ptr[T any](v T) *T { return &v }

func TestProductEntriesExpireQuickly(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCachedRepo(t)

	p := &models.Product{Title: "Mug", Stock: 4, User: primitive.NewObjectID()}
	require.NoError(t, cached.Create(ctx, p))
	_, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	_, err = cached.List(ctx, repository.ProductFilter{})
	require.NoError(t, err)

	assert.Equal(t, maxProductTTL, mr.TTL(productKey(p.ID)))
	assert.Equal(t, time.Minute, mr.TTL(allProductsKey))

	// a copy cached after a racing invalidation is gone once the cap passes
	_, err = cached.AdjustStock(ctx, p.ID, -1)
	require.NoError(t, err)
	require.NoError(t, mr.Set(productKey(p.ID), `{"title":"Mug","stock":4}`))
	mr.SetTTL(productKey(p.ID), maxProductTTL)
	mr.FastForward(maxProductTTL + time.Second)

	got, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestUpdateInvalidatesAndKeepsStock(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCachedRepo(t)
	owner := primitive.NewObjectID()

	p := &models.Product{Title: "Mug", Stock: 4, User: owner}
	require.NoError(t, cached.Create(ctx, p))
	_, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	_, err = cached.List(ctx, repository.ProductFilter{Owner: owner})
	require.NoError(t, err)

	_, err = cached.AdjustStock(ctx, p.ID, -1)
	require.NoError(t, err)
	_, err = cached.GetByID(ctx, p.ID)
	require.NoError(t, err)

	updated, err := cached.Update(ctx, p.ID, repository.ProductChanges{Title: ptr("Cup")})
	require.NoError(t, err)
	assert.Equal(t, "Cup", updated.Title)
	assert.Equal(t, 3, updated.Stock)
	assert.False(t, mr.Exists(productKey(p.ID)))
	assert.False(t, mr.Exists(ownerKey(owner)))

	_, err = cached.Update(ctx, primitive.NewObjectID(), repository.ProductChanges{Title: ptr("x")})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
