package catalog

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when no product matches the requested id.
var ErrNotFound = errors.New("no product found with that ID")

// ValidationError reports a product field that violates an invariant.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for field %q: %s", e.Field, e.Message)
}

const (
	EventsQueue  = "catalog.events"
	EventCreated = "product_created"
	EventUpdated = "product_updated"
	EventDeleted = "product_deleted"
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name" validate:"required"`
	Description string             `bson:"description" json:"description" validate:"required"`
	Price       float64            `bson:"price" json:"price" validate:"gte=0"`
	Category    string             `bson:"category" json:"category" validate:"required"`
	Stock       int                `bson:"stock" json:"stock" validate:"gte=0"`
	Location    string             `bson:"location" json:"location" validate:"required"`
	Rating      float64            `bson:"rating" json:"rating" validate:"gte=0,lte=5"`
	CreatedBy   primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	// Owner is filled in from the users collection when a single product
	// is fetched. It is never persisted with the product document.
	Owner     *UserSummary `bson:"-" json:"owner,omitempty"`
	CreatedAt time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// UserSummary is the name/email projection of a referenced user.
type UserSummary struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
}

// ProductPatch carries a partial update. Nil fields are left untouched.
type ProductPatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
	Stock       *int     `json:"stock"`
	Location    *string  `json:"location"`
	Rating      *float64 `json:"rating"`
}

// ProductEvent is published after a successful catalog mutation.
type ProductEvent struct {
	EventType string    `json:"event_type"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
