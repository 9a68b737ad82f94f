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

const cartsCollection = "carts"

type cartRepo struct {
	coll *mongo.Collection
}

func NewCartRepository(db *mongo.Database) CartRepository {
	return &cartRepo{coll: db.Collection(cartsCollection)}
}

func (r *cartRepo) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	err := r.coll.FindOne(ctx, bson.M{"user": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &models.Cart{User: userID, Items: []models.CartItem{}}, nil
		}
		return nil, fmt.Errorf("find cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

func (r *cartRepo) Save(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	update := bson.M{"$set": bson.M{"items": cart.Items, "updatedAt": cart.UpdatedAt}}

	_, err := r.coll.UpdateOne(ctx, bson.M{"user": cart.User}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (r *cartRepo) Clear(ctx context.Context, userID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"items": []models.CartItem{}, "updatedAt": time.Now().UTC()}}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"user": userID}, update); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
