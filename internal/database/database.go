// Package database handles PostgreSQL connections and queries.
//
// Go Pattern: We use the `sqlx` package which extends Go's standard
// `database/sql` with conveniences like scanning rows into structs. You
// write raw SQL and keep full control over every query.
//
// Go's database/sql has built-in connection pooling: one *sqlx.DB is created
// at startup and shared across the application. It is safe for concurrent
// use by multiple goroutines.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver; the underscore import runs its init()

	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// DB wraps the sqlx database connection with our application-specific methods.
// Go Pattern: Embedding (*sqlx.DB) gives us all of sqlx's methods
// automatically, plus we can add our own.
type DB struct {
	*sqlx.DB
}

// New creates a new database connection with connection pooling configured.
func New(databaseURL string) (*DB, error) {
	// sqlx.Connect both opens the connection and pings the database
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Conversions are short and CPU bound, so a small pool is plenty.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	return &DB{db}, nil
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// --- Conversion Operations ---

// CreateConversion inserts a conversion record and fills in its generated
// ID and timestamps.
func (db *DB) CreateConversion(ctx context.Context, cv *models.Conversion) error {
	query := `
		INSERT INTO conversions (tool, original_name, output_name, input_bytes, output_bytes,
			page_count, status, error_message, result_path, api_key_id, user_id, client_ip, duration_ms,
			webhook_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`

	return db.QueryRowContext(ctx, query,
		cv.Tool, cv.OriginalName, cv.OutputName, cv.InputBytes, cv.OutputBytes,
		cv.PageCount, cv.Status, cv.ErrorMessage, cv.ResultPath,
		cv.APIKeyID, cv.UserID, cv.ClientIP, cv.DurationMS, cv.WebhookURL,
	).Scan(&cv.ID, &cv.CreatedAt, &cv.UpdatedAt)
}

// GetConversion retrieves a single conversion by ID.
func (db *DB) GetConversion(ctx context.Context, id string) (*models.Conversion, error) {
	var cv models.Conversion
	err := db.GetContext(ctx, &cv, `SELECT * FROM conversions WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "conversion")
	}
	return &cv, nil
}

// UpdateConversion saves the outcome of a queued conversion.
func (db *DB) UpdateConversion(ctx context.Context, cv *models.Conversion) error {
	query := `
		UPDATE conversions
		SET output_name = $2, output_bytes = $3, page_count = $4, status = $5,
			error_message = $6, result_path = $7, duration_ms = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := db.QueryRowContext(ctx, query,
		cv.ID, cv.OutputName, cv.OutputBytes, cv.PageCount, cv.Status,
		cv.ErrorMessage, cv.ResultPath, cv.DurationMS,
	).Scan(&cv.UpdatedAt)
	if err != nil {
		return notFound(err, "conversion")
	}
	return nil
}

// RecordWebhook stores the outcome of the webhook sent for a conversion.
func (db *DB) RecordWebhook(ctx context.Context, id, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE conversions SET webhook_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to record webhook: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("conversion %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListConversions returns a page of conversions owned by the caller named
// in params, newest first.
func (db *DB) ListConversions(ctx context.Context, params models.ConversionListParams) ([]models.Conversion, int, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}

	// Build WHERE clause dynamically
	var conditions []string
	var args []interface{}
	argNum := 1

	add := func(cond string, arg interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, argNum))
		args = append(args, arg)
		argNum++
	}

	if params.Status != "" {
		add("status = $%d", params.Status)
	}
	if params.Tool != "" {
		add("tool = $%d", params.Tool)
	}
	if params.APIKeyID != nil {
		add("api_key_id = $%d", *params.APIKeyID)
	}
	if params.UserID != nil {
		add("user_id = $%d", *params.UserID)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM conversions %s", whereClause)
	if err := db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	offset := (params.Page - 1) * params.PerPage
	selectQuery := fmt.Sprintf(
		"SELECT * FROM conversions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		whereClause, argNum, argNum+1,
	)
	args = append(args, params.PerPage, offset)

	var conversions []models.Conversion
	if err := db.SelectContext(ctx, &conversions, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list query failed: %w", err)
	}
	return conversions, total, nil
}

// ExpireConversions clears the result path of completed conversions older
// than the cutoff, after their files have been swept.
func (db *DB) ExpireConversions(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE conversions SET result_path = '', updated_at = NOW()
		 WHERE result_path <> '' AND created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to expire conversions: %w", err)
	}
	return result.RowsAffected()
}

// --- API Key Operations ---

// CreateAPIKey inserts a new API key record.
func (db *DB) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (key_hash, key_prefix, name, active, rate_limit, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query,
		key.KeyHash, key.KeyPrefix, key.Name, key.Active, key.RateLimit, key.UserID,
	).Scan(&key.ID, &key.CreatedAt)
}

// GetAPIKeyByHash retrieves an active API key by its hash (used during
// authentication).
func (db *DB) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	var key models.APIKey
	err := db.GetContext(ctx, &key,
		`SELECT * FROM api_keys WHERE key_hash = $1 AND active = true`, hash)
	if err != nil {
		return nil, notFound(err, "API key")
	}
	return &key, nil
}

// UpdateAPIKeyLastUsed bumps the last_used_at timestamp.
func (db *DB) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id)
	return err
}

// ListAPIKeys returns all API keys (active and inactive).
func (db *DB) ListAPIKeys(ctx context.Context) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := db.SelectContext(ctx, &keys, `SELECT * FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	return keys, nil
}

// RevokeAPIKey deactivates an API key.
func (db *DB) RevokeAPIKey(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `UPDATE api_keys SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to revoke key: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("API key: %w", ErrNotFound)
	}
	return nil
}
