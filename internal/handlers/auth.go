// auth.go handles user accounts. A signed-in user is exempt from the
// anonymous daily conversion limit, so every token response also carries
// the caller's new usage standing.
package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shimizu-Technology/smartconverter-api/internal/database"
	"github.com/Shimizu-Technology/smartconverter-api/internal/middleware"
	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
)

// normalizeEmail is applied on register and login so addresses match
// regardless of case or stray spaces.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user account.
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid_request",
			"Email, password (min 8 chars), and name are required")
		return
	}
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respond(c, http.StatusBadRequest, "invalid_request", "Name must not be blank")
		return
	}

	ctx := c.Request.Context()
	switch _, err := h.Store.GetUserByEmail(ctx, req.Email); {
	case err == nil:
		respond(c, http.StatusConflict, "email_taken", "An account with this email already exists")
		return
	case !errors.Is(err, database.ErrNotFound):
		log.Printf("❌ Failed to look up %s: %v", req.Email, err)
		respond(c, http.StatusInternalServerError, "database_error", "Failed to create account")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("❌ Failed to hash password: %v", err)
		respond(c, http.StatusInternalServerError, "server_error", "Failed to create account")
		return
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
	}
	if err := h.Store.CreateUser(ctx, user); err != nil {
		log.Printf("❌ Failed to create user: %v", err)
		respond(c, http.StatusInternalServerError, "database_error", "Failed to create account")
		return
	}
	log.Printf("👤 New account %s", user.ID)

	h.issueToken(c, http.StatusCreated, user)
}

// Login authenticates a user and returns a JWT token.
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid_request", "Email and password are required")
		return
	}

	// Unknown addresses and wrong passwords answer the same way.
	user, err := h.Store.GetUserByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if err == nil {
		err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	}
	if err != nil {
		respond(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	h.issueToken(c, http.StatusOK, user)
}

// GetMe returns the current authenticated user.
// GET /api/v1/auth/me
func (h *Handler) GetMe(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		respond(c, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}
	c.JSON(http.StatusOK, user)
}

// RefreshToken issues a fresh token for a signed-in user so a client can
// keep its session without asking for the password again.
// POST /api/v1/auth/refresh
func (h *Handler) RefreshToken(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		respond(c, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}
	h.issueToken(c, http.StatusOK, user)
}

// issueToken signs a JWT for user and writes it with the usage the caller
// now has. A usage lookup failure only drops the anonymous count.
func (h *Handler) issueToken(c *gin.Context, status int, user *models.User) {
	token, err := middleware.GenerateJWT(user, h.JWTSecret)
	if err != nil {
		log.Printf("❌ Failed to generate token for %s: %v", user.ID, err)
		respond(c, http.StatusInternalServerError, "token_error", "Failed to generate token")
		return
	}

	usage, err := h.usage(c, true)
	if err != nil {
		log.Printf("⚠️  Usage lookup failed for %s: %v", user.ID, err)
	}

	c.JSON(status, models.AuthResponse{
		Token: token,
		User:  *user,
		Usage: usage,
	})
}
