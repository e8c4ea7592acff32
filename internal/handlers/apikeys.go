// apikeys.go handles API key management endpoints.
package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/middleware"
	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
)

// CreateAPIKey generates a new API key.
// POST /api/v1/keys
//
// Security: A signed-in user may create keys for their own account. Anyone
// else needs the X-Admin-Key header when ADMIN_API_KEY is set; in
// development it is open for bootstrapping.
//
// Request body:
//
//	{"name": "My App", "rate_limit": 200}
//
// The response includes the raw key. It is only shown once.
func (h *Handler) CreateAPIKey(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil && h.AdminAPIKey != "" {
		providedKey := c.GetHeader("X-Admin-Key")
		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "X-Admin-Key header is required to create API keys",
				Code:    http.StatusUnauthorized,
			})
			return
		}
		if providedKey != h.AdminAPIKey {
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "forbidden",
				Message: "Invalid admin key",
				Code:    http.StatusForbidden,
			})
			return
		}
	}

	var req models.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "name is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	// Go Pattern: crypto/rand, never math/rand, for secrets.
	rawKey, err := generateAPIKey()
	if err != nil {
		log.Printf("❌ Failed to generate API key: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "generation_error",
			Message: "Failed to generate API key",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	rateLimit := req.RateLimit
	if rateLimit <= 0 {
		rateLimit = defaultKeyRateLimit
	}

	// Only the hash is stored.
	key := &models.APIKey{
		KeyHash:   middleware.HashAPIKey(rawKey),
		KeyPrefix: rawKey[:8] + "...", // Show first 8 chars for identification
		Name:      req.Name,
		Active:    true,
		RateLimit: rateLimit,
	}
	if user != nil {
		key.UserID = &user.ID
	}

	if err := h.Store.CreateAPIKey(c.Request.Context(), key); err != nil {
		log.Printf("❌ Failed to create API key: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to create API key",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusCreated, models.CreateAPIKeyResponse{
		APIKey: *key,
		RawKey: rawKey,
	})
}

// callerKeys returns the keys the caller may see: every key of its user,
// or just itself for a key without a user.
func (h *Handler) callerKeys(c *gin.Context) ([]models.APIKey, error) {
	all, err := h.Store.ListAPIKeys(c.Request.Context())
	if err != nil {
		return nil, err
	}
	apiKeyID, userID := middleware.Owner(c)

	keys := []models.APIKey{}
	for _, k := range all {
		switch {
		case userID != nil && k.UserID != nil && *k.UserID == *userID:
		case userID == nil && apiKeyID != nil && k.ID == *apiKeyID:
		default:
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// ListAPIKeys returns the caller's API keys (without the raw key values).
// GET /api/v1/keys
func (h *Handler) ListAPIKeys(c *gin.Context) {
	keys, err := h.callerKeys(c)
	if err != nil {
		log.Printf("❌ Failed to list API keys: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to list API keys",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, keys)
}

// RevokeAPIKey deactivates one of the caller's API keys.
// DELETE /api/v1/keys/:id
func (h *Handler) RevokeAPIKey(c *gin.Context) {
	id := c.Param("id")

	keys, err := h.callerKeys(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	owned := false
	for _, k := range keys {
		owned = owned || k.ID == id
	}

	if !owned {
		respond(c, http.StatusNotFound, "not_found", "API key not found")
		return
	}
	if err := h.Store.RevokeAPIKey(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "API key not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key revoked"})
}

// apiKeyPrefix marks keys issued by this service.
const apiKeyPrefix = "sc_"

// defaultKeyRateLimit is the requests per hour of a key created without one.
const defaultKeyRateLimit = 100

// generateAPIKey returns "sc_" followed by 32 random hex characters.
func generateAPIKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(buf), nil
}
