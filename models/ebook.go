package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ebook statuses
const (
	EbookAvailable = "available"
	EbookUpcoming  = "upcoming"
)

type Ebook struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Cover       string             `json:"cover,omitempty" bson:"cover,omitempty"`
	Price       float64            `json:"price" bson:"price"`
	Status      string             `json:"status" bson:"status"`
	FilePath    string             `json:"-" bson:"filePath,omitempty"`
	ReleaseDate *time.Time         `json:"releaseDate,omitempty" bson:"releaseDate,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// UpcomingRegistration is an email signup for an ebook that has not been released yet.
type UpcomingRegistration struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	EbookID   primitive.ObjectID `json:"ebookId" bson:"ebookId"`
	Email     string             `json:"email" bson:"email"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

type CreateEbookRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Cover       string     `json:"cover,omitempty"`
	Price       float64    `json:"price" validate:"gte=0"`
	Status      string     `json:"status" validate:"required,oneof=available upcoming"`
	ReleaseDate *time.Time `json:"releaseDate,omitempty"`
}

type RegisterUpcomingRequest struct {
	Email string `json:"email" validate:"required,email"`
}
