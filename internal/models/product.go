package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlaceholderImage is stored when a product is created without an upload.
const PlaceholderImage = "/uploads/placeholder.jpg"

// Owner is a copy of the seller's identity taken when the product is
// created and refreshed on every update.
type Owner struct {
	ID    primitive.ObjectID `bson:"_id" json:"_id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User        primitive.ObjectID `bson:"user" json:"user"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Price       float64            `bson:"price" json:"price"`
	ImageURL    string             `bson:"imageUrl" json:"imageUrl"`
	Category    string             `bson:"category" json:"category"`
	Stock       int                `bson:"stock" json:"stock"`
	Discount    float64            `bson:"discount" json:"discount"`
	CreatedBy   Owner              `bson:"createdBy" json:"createdBy"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func OwnerOf(u *User) Owner {
	return Owner{ID: u.ID, Name: u.Name, Email: u.Email}
}
