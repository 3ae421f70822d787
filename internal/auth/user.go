package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrUserNotFound = errors.New("the user belonging to this token does no longer exist")

const usersCollection = "users"

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	GoogleID  string             `bson:"googleId" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Store persists users keyed by their external auth identifier.
type Store struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) users() *mongo.Collection {
	return s.db.Collection(usersCollection)
}

// UpsertByGoogleID creates or refreshes the user record for an external
// Google identity. Emails are stored lowercase.
func (s *Store) UpsertByGoogleID(ctx context.Context, googleID, name, email string) (User, error) {
	now := time.Now().UTC()

	var user User
	err := s.users().FindOneAndUpdate(ctx,
		bson.M{"googleId": googleID},
		bson.M{
			"$set": bson.M{
				"name":      name,
				"email":     strings.ToLower(email),
				"updatedAt": now,
			},
			"$setOnInsert": bson.M{
				"googleId":  googleID,
				"createdAt": now,
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

func (s *Store) FindByID(ctx context.Context, id primitive.ObjectID) (User, error) {
	var user User
	if err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("find user %s: %w", id.Hex(), err)
	}
	return user, nil
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "googleId", Value: 1}},
			Options: options.Index().
				SetName("googleId_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"googleId": bson.M{"$exists": true}}),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}
