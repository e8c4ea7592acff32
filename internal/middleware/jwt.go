// jwt.go issues and verifies the bearer tokens handed out at login.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
)

// TokenTTL is how long a login token stays valid.
const TokenTTL = 72 * time.Hour

// JWTClaims extends standard JWT claims with user info.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a new JWT token for a user.
func GenerateJWT(user *models.User, secret string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates and parses a JWT token string. Only HS256 is accepted.
func ParseJWT(tokenString, secret string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// JWTAuth returns middleware that only accepts a Bearer token. Routes about
// the signed-in account use it; API keys don't identify an account.
func JWTAuth(store AuthStore, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, token := credentials(c)
		if token == "" {
			unauthorized(c, "Missing or invalid Authorization header. Use 'Bearer <token>'")
			return
		}

		claims, err := ParseJWT(token, jwtSecret)
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}

		user, err := store.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			unauthorized(c, "User not found")
			return
		}

		c.Set(string(userContextKey), user)
		c.Next()
	}
}
