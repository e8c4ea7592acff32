// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization and
// `db` tags for sqlx column mapping. The database package handles
// persistence; nothing here talks to the database.
package models

import (
	"time"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/limiter"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/tools"
)

// ConversionStatus represents the processing state of a conversion.
type ConversionStatus string

const (
	StatusPending    ConversionStatus = "pending"
	StatusProcessing ConversionStatus = "processing"
	StatusCompleted  ConversionStatus = "completed"
	StatusFailed     ConversionStatus = "failed"
)

// Conversion is one run of a tool. Synchronous runs are recorded as
// completed straight away; queued runs move from pending to completed or
// failed and keep their output in the result store.
type Conversion struct {
	ID            string           `json:"id" db:"id"`
	Tool          string           `json:"tool" db:"tool"`
	OriginalName  string           `json:"original_name" db:"original_name"`
	OutputName    string           `json:"output_name" db:"output_name"`
	InputBytes    int64            `json:"input_bytes" db:"input_bytes"`
	OutputBytes   int64            `json:"output_bytes" db:"output_bytes"`
	PageCount     int              `json:"page_count" db:"page_count"`
	Status        ConversionStatus `json:"status" db:"status"`
	ErrorMessage  string           `json:"error_message,omitempty" db:"error_message"`
	ResultPath    string           `json:"-" db:"result_path"`
	APIKeyID      *string          `json:"api_key_id,omitempty" db:"api_key_id"` // Pointer = nullable
	UserID        *string          `json:"user_id,omitempty" db:"user_id"`
	ClientIP      string           `json:"-" db:"client_ip"`
	DurationMS    int64            `json:"duration_ms" db:"duration_ms"`
	WebhookURL    string           `json:"webhook_url,omitempty" db:"webhook_url"`
	WebhookStatus string           `json:"webhook_status,omitempty" db:"webhook_status"` // "delivered" or "failed"
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// APIKey represents an API key for authentication.
// Note: We store the HASH of the key, never the raw key itself.
type APIKey struct {
	ID         string     `json:"id" db:"id"`
	KeyHash    string     `json:"-" db:"key_hash"`            // "-" means never serialize to JSON
	KeyPrefix  string     `json:"key_prefix" db:"key_prefix"` // First 8 chars for identification
	Name       string     `json:"name" db:"name"`
	Active     bool       `json:"active" db:"active"`
	RateLimit  int        `json:"rate_limit" db:"rate_limit"` // Requests per hour
	UserID     *string    `json:"user_id,omitempty" db:"user_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"` // Pointer = nullable
}

// User is a registered account. Signed-in users are not subject to the
// daily conversion limit.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// --- Request/Response DTOs ---

// RegisterRequest is the JSON body for POST /api/v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest is the JSON body for POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries a fresh token and the account it belongs to.
// Usage shows the signed-in standing, with the conversions this client
// already made anonymously today in count.
type AuthResponse struct {
	Token string        `json:"token"`
	User  User          `json:"user"`
	Usage UsageResponse `json:"usage"`
}

// CreateAPIKeyRequest is the JSON body for POST /api/v1/keys.
type CreateAPIKeyRequest struct {
	Name      string `json:"name" binding:"required"`
	RateLimit int    `json:"rate_limit,omitempty"` // 0 = use default
}

// CreateAPIKeyResponse includes the raw key, shown only once at creation time.
type CreateAPIKeyResponse struct {
	APIKey
	RawKey string `json:"raw_key"`
}

// ConversionListParams holds query parameters for listing conversions.
// The owner fields are filled in from the authenticated caller, never
// from the query string.
type ConversionListParams struct {
	Page    int              `form:"page"`
	PerPage int              `form:"per_page"`
	Status  ConversionStatus `form:"status"`
	Tool    string           `form:"tool"`

	APIKeyID *string `form:"-"`
	UserID   *string `form:"-"`
}

// PaginatedResponse wraps a list response with pagination metadata.
type PaginatedResponse[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status     string          `json:"status"`
	Version    string          `json:"version"`
	Database   string          `json:"database"`
	Workers    int             `json:"workers"`
	QueueDepth int             `json:"queue_depth"`
	Features   map[string]bool `json:"features"`
}

// ToolsResponse lists the catalog.
type ToolsResponse struct {
	Categories []tools.Category `json:"categories"`
	Tools      []tools.Tool     `json:"tools"`
}

// UsageResponse reports the caller's standing against the daily limit.
type UsageResponse struct {
	limiter.Status
	Authenticated bool   `json:"authenticated"`
	Message       string `json:"message,omitempty"`
}

// JobResponse is returned when a conversion is queued.
type JobResponse struct {
	Conversion  Conversion `json:"conversion"`
	StatusURL   string     `json:"status_url"`
	DownloadURL string     `json:"download_url"`
}

// Webhook events sent when a queued conversion finishes.
const (
	EventConversionCompleted = "conversion.completed"
	EventConversionFailed    = "conversion.failed"
)

// WebhookPayload is the JSON body POSTed to a conversion's webhook URL.
type WebhookPayload struct {
	Event     string     `json:"event"`
	Data      Conversion `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
}
