package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User struct matches the document in MongoDB.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Name      string             `bson:"name" json:"name"`
	Password  string             `bson:"password" json:"-"`
	Role      string             `bson:"role" json:"role"` // "farmer" or "admin"
	FarmName  string             `bson:"farmName,omitempty" json:"farmName,omitempty"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Status    string             `bson:"status" json:"status"` // "active", "suspended"
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
