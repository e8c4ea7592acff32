// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/handlers"
	"github.com/Shimizu-Technology/smartconverter-api/internal/middleware"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/limiter"
)

// convertSlugs are the converters mounted through Handler.Convert.
var convertSlugs = []string{"html-to-pdf", "word-to-pdf", "excel-to-pdf", "ppt-to-pdf", "pdf-to-jpg"}

// Setup creates and configures the Gin router with all routes.
//
// Tool routes accept anonymous callers. ConversionLimit runs after
// OptionalAuth so callers with a key or token skip the daily limit.
func Setup(h *handlers.Handler, auth middleware.AuthStore, lim *limiter.Limiter, jwtSecret string, allowedOrigins []string, defaultRateLimit int) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS(allowedOrigins))

	rateLimiter := middleware.NewRateLimiter(defaultRateLimit)
	optional := middleware.OptionalAuth(auth, jwtSecret)

	// --- Public Routes ---
	r.GET("/api/v1/health", h.HealthCheck)
	r.GET("/api/v1/tools", h.ListTools)
	r.GET("/api/v1/usage", optional, h.GetUsage)

	// Admin key, or a signed-in user creating keys for their account
	r.POST("/api/v1/keys", optional, h.CreateAPIKey)

	r.GET("/api/docs", h.ServeSwaggerUI)
	r.GET("/api/docs/openapi.yaml", h.ServeOpenAPISpec)

	r.POST("/api/v1/auth/register", h.Register)
	r.POST("/api/v1/auth/login", h.Login)

	// --- Tools ---
	api := r.Group("/api/v1")
	api.Use(optional, rateLimiter.RateLimit())

	// Read-only tools are not limited per day.
	api.POST("/pdf/inspect", h.InspectPDF)
	api.POST("/images/metadata", h.ImageMetadata)

	limited := api.Group("")
	limited.Use(middleware.ConversionLimit(lim))
	{
		pdf := limited.Group("/pdf")
		pdf.POST("/merge", h.MergePDF)
		pdf.POST("/split", h.SplitPDF)
		pdf.POST("/extract", h.ExtractPages)
		pdf.POST("/remove", h.RemovePages)
		pdf.POST("/organize", h.OrganizePDF)
		pdf.POST("/rotate", h.RotatePDF)
		pdf.POST("/compress", h.CompressPDF)
		pdf.POST("/repair", h.RepairPDF)
		pdf.POST("/protect", h.ProtectPDF)
		pdf.POST("/page-numbers", h.AddPageNumbers)
		pdf.POST("/watermark", h.WatermarkPDF)
		pdf.POST("/sign", h.SignPDF)

		images := limited.Group("/images")
		images.POST("/compress", h.CompressImage)
		images.POST("/resize", h.ResizeImage)
		images.POST("/crop", h.CropImage)
		images.POST("/rotate", h.RotateImage)
		images.POST("/convert", h.ConvertImage)
		images.POST("/filters", h.FilterImage)
		images.POST("/watermark", h.WatermarkImage)
		images.POST("/meme", h.MemeImage)

		convert := limited.Group("/convert")
		convert.POST("/jpg-to-pdf", h.ImagesToPDF)
		for _, slug := range convertSlugs {
			convert.POST("/"+slug, h.Convert(slug))
		}
	}

	// --- JWT-protected routes ---
	jwtProtected := r.Group("/api/v1/auth")
	jwtProtected.Use(middleware.JWTAuth(auth, jwtSecret))
	{
		jwtProtected.GET("/me", h.GetMe)
		jwtProtected.POST("/refresh", h.RefreshToken)
	}

	// --- Protected Routes (API key OR JWT) ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.DualAuth(auth, jwtSecret))
	protected.Use(rateLimiter.RateLimit())
	{
		protected.GET("/keys", h.ListAPIKeys)
		protected.DELETE("/keys/:id", h.RevokeAPIKey)

		protected.GET("/conversions", h.ListConversions)
		protected.GET("/conversions/:id", h.GetConversion)
		protected.GET("/conversions/:id/download", h.DownloadConversion)
	}

	return r
}
