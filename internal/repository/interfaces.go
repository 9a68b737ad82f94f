package repository

import (
	"context"
	"time"

	"storefront-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// ProductFilter narrows List. A zero filter returns every product.
type ProductFilter struct {
	Owner primitive.ObjectID
}

// ProductChanges lists the fields an Update writes. Nil fields keep their
// stored value, so an edit never overwrites stock it did not set.
type ProductChanges struct {
	Title       *string
	Description *string
	Category    *string
	ImageURL    *string
	Price       *float64
	Stock       *int
	Discount    *float64
	CreatedBy   *models.Owner
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	// Update applies changes to one product and returns the stored result.
	Update(ctx context.Context, id primitive.ObjectID, changes ProductChanges) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// AdjustStock adds delta to the product's stock in a single atomic
	// step. A negative delta is applied only if the current stock covers
	// it, otherwise ErrNotEnough is returned and nothing changes.
	AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) (*models.Product, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	GetByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)

	// MarkCancelled flips isCancelled on an order that is neither delivered
	// nor cancelled. ErrConflict means the order exists but no longer
	// qualifies.
	MarkCancelled(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error)
	// MarkDelivered flips isDelivered on an order that is not cancelled.
	MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error)
}

type CartRepository interface {
	// Get returns an empty cart for users that never saved one.
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Clear(ctx context.Context, userID primitive.ObjectID) error
}
