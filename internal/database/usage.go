// usage.go stores the daily conversion counters for anonymous clients.
package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/limiter"
)

// UsageStore is the PostgreSQL limiter.Store.
type UsageStore struct {
	db *DB
}

var _ limiter.Store = (*UsageStore)(nil)

// UsageStore returns the limiter store backed by the conversion_usage table.
func (db *DB) UsageStore() *UsageStore {
	return &UsageStore{db: db}
}

// Get reads the client's record; unknown clients get a zero record.
func (s *UsageStore) Get(ctx context.Context, clientID string) (limiter.Record, error) {
	var rec limiter.Record
	err := s.db.GetContext(ctx, &rec,
		`SELECT conversion_count, last_conversion_date FROM conversion_usage WHERE client_id = $1`, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return limiter.Record{}, nil
	}
	return rec, err
}

// IncrementIfBelow resets a stale day and increments in one statement. The
// row lock taken by ON CONFLICT serializes concurrent requests of the same
// client.
func (s *UsageStore) IncrementIfBelow(ctx context.Context, clientID, day string, limit int) (int, bool, error) {
	const query = `
		INSERT INTO conversion_usage (client_id, conversion_count, last_conversion_date)
		VALUES ($1, 1, $2)
		ON CONFLICT (client_id) DO UPDATE SET
			conversion_count = CASE
				WHEN conversion_usage.last_conversion_date <> EXCLUDED.last_conversion_date THEN 1
				ELSE conversion_usage.conversion_count + 1
			END,
			last_conversion_date = EXCLUDED.last_conversion_date,
			updated_at = NOW()
		WHERE conversion_usage.last_conversion_date <> EXCLUDED.last_conversion_date
			OR conversion_usage.conversion_count < $3
		RETURNING conversion_count`

	if limit <= 0 {
		return 0, false, nil
	}

	var count int
	err := s.db.QueryRowContext(ctx, query, clientID, day, limit).Scan(&count)
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
