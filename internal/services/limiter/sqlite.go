package limiter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore keeps usage in a local database file. The command line tool
// uses it the way a browser uses local storage.
type SQLiteStore struct {
	db   *sqlx.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// DefaultSQLitePath is the usage file in the user's XDG data directory.
func DefaultSQLitePath() string {
	return filepath.Join(xdg.DataHome, "smartconverter", "usage.db")
}

// OpenSQLite opens (and creates if needed) the usage database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create usage directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	schema := `
	CREATE TABLE IF NOT EXISTS conversion_usage (
		client_id TEXT PRIMARY KEY,
		conversion_count INTEGER NOT NULL DEFAULT 0,
		last_conversion_date TEXT NOT NULL DEFAULT ''
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create usage table: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get reads the client's record.
func (s *SQLiteStore) Get(ctx context.Context, clientID string) (Record, error) {
	var rec Record
	err := s.db.GetContext(ctx, &rec,
		`SELECT conversion_count, last_conversion_date FROM conversion_usage WHERE client_id = ?1`, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, nil
	}
	return rec, err
}

// IncrementIfBelow performs a conditional upsert. No returned row means the
// WHERE clause refused the update, i.e. the limit is reached.
func (s *SQLiteStore) IncrementIfBelow(ctx context.Context, clientID, day string, limit int) (int, bool, error) {
	const query = `
	INSERT INTO conversion_usage (client_id, conversion_count, last_conversion_date)
	VALUES (?1, 1, ?2)
	ON CONFLICT (client_id) DO UPDATE SET
		conversion_count = CASE
			WHEN conversion_usage.last_conversion_date <> excluded.last_conversion_date THEN 1
			ELSE conversion_usage.conversion_count + 1
		END,
		last_conversion_date = excluded.last_conversion_date
	WHERE conversion_usage.last_conversion_date <> excluded.last_conversion_date
		OR conversion_usage.conversion_count < ?3
	RETURNING conversion_count`

	if limit <= 0 {
		return 0, false, nil
	}

	var count int
	err := s.db.QueryRowxContext(ctx, query, clientID, day, limit).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		rec, gerr := s.Get(ctx, clientID)
		if gerr != nil {
			return 0, false, gerr
		}
		return rec.ConversionCount, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// Reset deletes the client's record.
func (s *SQLiteStore) Reset(ctx context.Context, clientID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversion_usage WHERE client_id = ?1`, clientID)
	return err
}
