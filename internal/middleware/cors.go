// cors.go configures Cross-Origin Resource Sharing (CORS) for browser
// front ends hosted on another origin.
package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS returns configured CORS middleware. Content-Disposition is exposed
// so browsers can read the download name.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key", "X-Admin-Key"},
		ExposeHeaders: []string{
			"X-RateLimit-Limit", "X-RateLimit-Remaining",
			"X-Conversion-Limit", "X-Conversion-Remaining",
			"X-Input-Bytes", "X-Output-Bytes",
			"Content-Length", "Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour, // Cache preflight responses
	})
}
