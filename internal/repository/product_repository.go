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

const productsCollection = "products"

type productRepo struct {
	coll *mongo.Collection
}

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &productRepo{coll: db.Collection(productsCollection)}
}

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	now := time.Now().UTC()
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	product.CreatedAt = now
	product.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find product %s: %w", id.Hex(), err)
	}
	return &product, nil
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := bson.M{}
	if !filter.Owner.IsZero() {
		query["user"] = filter.Owner
	}

	cur, err := r.coll.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (changes ProductChanges) setDoc(now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if changes.Title != nil {
		set["title"] = *changes.Title
	}
	if changes.Description != nil {
		set["description"] = *changes.Description
	}
	if changes.Category != nil {
		set["category"] = *changes.Category
	}
	if changes.ImageURL != nil {
		set["imageUrl"] = *changes.ImageURL
	}
	if changes.Price != nil {
		set["price"] = *changes.Price
	}
	if changes.Stock != nil {
		set["stock"] = *changes.Stock
	}
	if changes.Discount != nil {
		set["discount"] = *changes.Discount
	}
	if changes.CreatedBy != nil {
		set["createdBy"] = *changes.CreatedBy
	}
	return set
}

func (r *productRepo) Update(ctx context.Context, id primitive.ObjectID, changes ProductChanges) (*models.Product, error) {
	update := bson.M{"$set": changes.setDoc(time.Now().UTC())}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product models.Product
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update product %s: %w", id.Hex(), err)
	}
	return &product, nil
}

func (r *productRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) (*models.Product, error) {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["stock"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"stock": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product models.Product
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&product)
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("adjust stock %s: %w", id.Hex(), err)
	}
	if delta >= 0 {
		return nil, ErrNotFound
	}

	// the guard failed: tell a missing product apart from a short one
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("count product %s: %w", id.Hex(), err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrNotEnough
}
