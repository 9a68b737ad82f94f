package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"storefront-backend/internal/models"
	"storefront-backend/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	allProductsKey = "products:all"
	notFoundMarker = "notfound"
	notFoundTTL    = time.Minute

	// single-product entries carry live stock, so a copy written after a
	// racing invalidation must not outlive this
	maxProductTTL = 15 * time.Second
)

// CachedProductRepository serves product reads from redis and drops the
// affected keys on every write. Redis errors fall through to the database.
type CachedProductRepository struct {
	realRepo repository.ProductRepository
	redis    *redis.Client
	ttl      time.Duration
	log      *slog.Logger
}

func NewCachedProductRepository(realRepo repository.ProductRepository, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *CachedProductRepository {
	return &CachedProductRepository{
		realRepo: realRepo,
		redis:    rdb,
		ttl:      ttl,
		log:      log,
	}
}

func productKey(id primitive.ObjectID) string { return "product:" + id.Hex() }

func ownerKey(owner primitive.ObjectID) string { return "products:user:" + owner.Hex() }

func listKey(filter repository.ProductFilter) string {
	if filter.Owner.IsZero() {
		return allProductsKey
	}
	return ownerKey(filter.Owner)
}

func (c *CachedProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	key := productKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, repository.ErrNotFound
		}
		var product models.Product
		if err := json.Unmarshal(data, &product); err == nil {
			return &product, nil
		}
		c.log.Warn("corrupt cached product, reading database", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("redis get failed, reading database", "key", key, "error", err)
	}

	product, err := c.realRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.set(ctx, key, notFoundMarker, notFoundTTL)
		}
		return nil, err
	}
	c.setJSON(ctx, key, product, min(c.ttl, maxProductTTL))
	return product, nil
}

func (c *CachedProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	key := listKey(filter)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var products []models.Product
		if err := json.Unmarshal(data, &products); err == nil {
			return products, nil
		}
		c.log.Warn("corrupt cached product list, reading database", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("redis get failed, reading database", "key", key, "error", err)
	}

	products, err := c.realRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	c.setJSON(ctx, key, products, c.ttl)
	return products, nil
}

func (c *CachedProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := c.realRepo.Create(ctx, product); err != nil {
		return err
	}
	c.invalidate(ctx, product.ID, product.User)
	return nil
}

func (c *CachedProductRepository) Update(ctx context.Context, id primitive.ObjectID, changes repository.ProductChanges) (*models.Product, error) {
	product, err := c.realRepo.Update(ctx, id, changes)
	var owner primitive.ObjectID
	if product != nil {
		owner = product.User
	}
	c.invalidate(ctx, id, owner)
	return product, err
}

func (c *CachedProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	var owner primitive.ObjectID
	if p, err := c.realRepo.GetByID(ctx, id); err == nil {
		owner = p.User
	}
	err := c.realRepo.Delete(ctx, id)
	c.invalidate(ctx, id, owner)
	return err
}

func (c *CachedProductRepository) AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) (*models.Product, error) {
	product, err := c.realRepo.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, id, product.User)
	return product, nil
}

func (c *CachedProductRepository) invalidate(ctx context.Context, id, owner primitive.ObjectID) {
	keys := []string{productKey(id), allProductsKey}
	if !owner.IsZero() {
		keys = append(keys, ownerKey(owner))
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.log.Error("failed to invalidate product cache", "keys", keys, "error", err)
	}
}

func (c *CachedProductRepository) setJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("failed to marshal product cache entry", "key", key, "error", err)
		return
	}
	c.set(ctx, key, data, ttl)
}

func (c *CachedProductRepository) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if err := c.redis.Set(ctx, key, v, ttl).Err(); err != nil {
		c.log.Warn("failed to cache product entry", "key", key, "error", err)
	}
}
