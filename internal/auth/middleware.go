package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// ContextUserKey holds the authenticated User in the gin context.
	ContextUserKey = "authUser"
	// ContextUserIDKey holds the authenticated user's ObjectID.
	ContextUserIDKey = "authUserID"
)

// UserFinder loads the user a token refers to.
type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (User, error)
}

// Protect rejects requests without a valid Bearer token whose user still
// exists, and injects the identity into the context. Reads never pass
// through here; mutations always do.
func Protect(secret string, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			abortUnauthorized(c, "you are not logged in, please log in to get access")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "invalid token")
			return
		}

		userID, err := parseUserID(secret, parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			abortUnauthorized(c, ErrUserNotFound.Error())
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by Protect.
func UserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, ok := c.Get(ContextUserIDKey)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	return id, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"status":  "fail",
		"message": message,
	})
}
