// Package middleware provides HTTP middleware for the API.
//
// Go Pattern: Middleware in Go is a function that wraps an HTTP handler.
// In Gin, middleware is a gin.HandlerFunc that calls c.Next() to continue
// the chain, or c.Abort() to stop processing.
package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
// Go Pattern: Use unexported types for context keys so other packages
// can't accidentally overwrite your values.
type contextKey string

const (
	apiKeyContextKey contextKey = "api_key"
	userContextKey   contextKey = "user"
)

// AuthStore is the lookup side of authentication. *database.DB satisfies it.
type AuthStore interface {
	GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// credentials reports which credentials the request carries.
func credentials(c *gin.Context) (rawKey, token string) {
	rawKey = c.GetHeader("X-API-Key")
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	return rawKey, token
}

// authenticate resolves the request's credentials and stores the caller in
// the context. It returns false when credentials were given but none was
// valid. A request without credentials is not an error.
func authenticate(c *gin.Context, store AuthStore, jwtSecret string) (ok bool, anonymous bool) {
	rawKey, token := credentials(c)
	if rawKey == "" && token == "" {
		return true, true
	}

	// API key first, then the bearer token.
	if rawKey != "" {
		apiKey, err := store.GetAPIKeyByHash(c.Request.Context(), HashAPIKey(rawKey))
		if err == nil {
			c.Set(string(apiKeyContextKey), apiKey)
			// Fire and forget. The request context is gone by the time
			// this runs, so it gets its own.
			go func(id string) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := store.UpdateAPIKeyLastUsed(ctx, id); err != nil {
					log.Printf("⚠️  Failed to update last_used_at for key %s: %v", id, err)
				}
			}(apiKey.ID)
			return true, false
		}
	}

	if token != "" {
		claims, err := ParseJWT(token, jwtSecret)
		if err == nil {
			user, err := store.GetUserByID(c.Request.Context(), claims.UserID)
			if err == nil {
				c.Set(string(userContextKey), user)
				return true, false
			}
		}
	}
	return false, false
}

func unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: msg,
		Code:    http.StatusUnauthorized,
	})
	c.Abort()
}

// OptionalAuth identifies the caller when credentials are present and lets
// anonymous requests through. Bad credentials are still rejected so a
// client with a typo in its key does not silently fall under the
// anonymous daily limit.
func OptionalAuth(store AuthStore, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ok, _ := authenticate(c, store, jwtSecret); !ok {
			unauthorized(c, "Invalid API key or token")
			return
		}
		c.Next()
	}
}

// DualAuth returns middleware that accepts EITHER API key OR JWT token and
// rejects anonymous requests.
func DualAuth(store AuthStore, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, anonymous := authenticate(c, store, jwtSecret)
		if !ok || anonymous {
			unauthorized(c, "Provide a valid X-API-Key header or Authorization: Bearer <token>")
			return
		}
		c.Next()
	}
}

// GetAPIKey retrieves the authenticated API key from the request context.
func GetAPIKey(c *gin.Context) *models.APIKey {
	val, exists := c.Get(string(apiKeyContextKey))
	if !exists {
		return nil
	}
	// Go Pattern: The comma-ok type assertion won't panic on a wrong type.
	key, ok := val.(*models.APIKey)
	if !ok {
		return nil
	}
	return key
}

// GetUser retrieves the authenticated user from the request context.
func GetUser(c *gin.Context) *models.User {
	val, exists := c.Get(string(userContextKey))
	if !exists {
		return nil
	}
	user, ok := val.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// Authenticated reports whether the request carried valid credentials.
func Authenticated(c *gin.Context) bool {
	return GetAPIKey(c) != nil || GetUser(c) != nil
}

// Owner returns the caller's API key ID and user ID; either may be nil.
// An API key issued to a user also yields that user's ID.
func Owner(c *gin.Context) (apiKeyID, userID *string) {
	if key := GetAPIKey(c); key != nil {
		id := key.ID
		apiKeyID = &id
		if key.UserID != nil {
			uid := *key.UserID
			userID = &uid
		}
	}
	if user := GetUser(c); user != nil {
		id := user.ID
		userID = &id
	}
	return apiKeyID, userID
}

// HashAPIKey creates a SHA-256 hash of an API key.
// We store hashes, not raw keys, the same way passwords are stored.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", hash)
}
