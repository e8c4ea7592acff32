// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, Data, Status)
// - Middleware data (c.Get/c.Set)
//
// Related handlers hang off one struct (Handler) that holds the shared
// dependencies.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/convert"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/limiter"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/worker"
)

// Store is the persistence the handlers need. *database.DB satisfies it.
type Store interface {
	HealthCheck(ctx context.Context) error

	CreateConversion(ctx context.Context, cv *models.Conversion) error
	GetConversion(ctx context.Context, id string) (*models.Conversion, error)
	UpdateConversion(ctx context.Context, cv *models.Conversion) error
	ListConversions(ctx context.Context, params models.ConversionListParams) ([]models.Conversion, int, error)

	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Queue accepts background conversion jobs. *worker.Pool satisfies it.
type Queue interface {
	Submit(job worker.Job) error
	QueueSize() int
	WorkerCount() int
}

// Converter runs the heavy conversions. *convert.Service satisfies it.
type Converter interface {
	Run(ctx context.Context, slug string, in convert.Input) (convert.Result, error)
}

// Results reads back the output of queued conversions.
type Results interface {
	Open(id string) ([]byte, error)
}

// Settings are the plain values handlers read from configuration.
type Settings struct {
	Version        string
	JWTSecret      string
	AdminAPIKey    string
	MaxUploadBytes int64
	// Features reports which optional converters this server can run,
	// keyed "html_to_pdf", "office_to_pdf" and "pdf_to_jpg".
	Features map[string]bool
}

// Handler holds shared dependencies for all HTTP handlers.
// Go Pattern: Dependency injection via struct fields. Tests build a
// Handler with in-memory fakes.
type Handler struct {
	Settings

	Store     Store
	Worker    Queue
	Converter Converter
	Results   Results
	Limiter   *limiter.Limiter
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(store Store, wp Queue, conv Converter, results Results, lim *limiter.Limiter, s Settings) *Handler {
	if s.MaxUploadBytes <= 0 {
		s.MaxUploadBytes = 50 << 20
	}
	return &Handler{
		Settings:  s,
		Store:     store,
		Worker:    wp,
		Converter: conv,
		Results:   results,
		Limiter:   lim,
	}
}

// HealthCheck returns the API health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	dbStatus := "healthy"
	if err := h.Store.HealthCheck(c.Request.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	features := make(map[string]bool, len(h.Features))
	for k, v := range h.Features {
		features[k] = v
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:     "ok",
		Version:    h.Version,
		Database:   dbStatus,
		Workers:    h.Worker.WorkerCount(),
		QueueDepth: h.Worker.QueueSize(),
		Features:   features,
	})
}
