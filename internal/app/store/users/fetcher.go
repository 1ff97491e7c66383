package userstore

import (
	"context"

	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/auth"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/timeouts"
	"github.com/knowledgeconnect/knowledgeconnect/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher to load fresh user data on each
// request, so profile updates take effect immediately instead of living
// in the token until it expires.
type Fetcher struct {
	store *Store
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{store: New(db)}
}

// FetchUser retrieves a user by ID and returns nil if the user is not
// found or any error occurs. This implements auth.UserFetcher.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.User {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{
		"_id":       1,
		"full_name": 1,
		"email":     1,
	})
	if err := f.store.c.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&u); err != nil {
		return nil
	}

	return &auth.User{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
	}
}
