// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the current user's Mongo ObjectID, display name, and a
// found flag. If no user is present in context or the user ID is
// malformed, it returns NilObjectID, "", false. Callers can trust that
// ok=true means a valid, authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (userID primitive.ObjectID, name string, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, "", false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in a verified token - fail closed.
		return primitive.NilObjectID, "", false
	}
	return userID, user.Name, true
}
