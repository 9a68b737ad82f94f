package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ordersCollection = "orders"

type orderRepo struct {
	coll *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &orderRepo{coll: db.Collection(ordersCollection)}
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *orderRepo) GetByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"user": userID, "idempotencyKey": key})
}

func (r *orderRepo) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	err := r.coll.FindOne(ctx, filter).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &order, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.list(ctx, bson.M{"user": userID})
}

func (r *orderRepo) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.list(ctx, bson.M{})
}

func (r *orderRepo) list(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepo) MarkCancelled(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error) {
	filter := bson.M{"_id": id, "isCancelled": false, "isDelivered": false}
	set := bson.M{"isCancelled": true, "cancelledAt": at, "updatedAt": at}
	return r.transition(ctx, id, filter, set)
}

func (r *orderRepo) MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error) {
	filter := bson.M{"_id": id, "isCancelled": false}
	set := bson.M{"isDelivered": true, "deliveredAt": at, "updatedAt": at}
	return r.transition(ctx, id, filter, set)
}

func (r *orderRepo) transition(ctx context.Context, id primitive.ObjectID, filter, set bson.M) (*models.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&order)
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update order %s: %w", id.Hex(), err)
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("count order %s: %w", id.Hex(), err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrConflict
}
