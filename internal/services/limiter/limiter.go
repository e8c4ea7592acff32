// Package limiter implements the daily conversion counter that throttles
// anonymous usage.
//
// Every client owns a two-field record: how many conversions it ran and the
// calendar day of the last one. A record from an earlier day counts as zero,
// so the counter resets the first time it is touched on a new date.
//
// Go Pattern: The Limiter holds the rules (limit, time zone) and a Store
// holds the data. Stores are swappable behind a small interface, so the
// same rules run against memory in tests, Redis or PostgreSQL on the server
// and SQLite on the command line.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultLimit is the number of free conversions per day.
const DefaultLimit = 2

// DayLayout formats the calendar day stored next to the counter.
const DayLayout = "2006-01-02"

// Field names of the per-client record.
const (
	FieldCount = "conversionCount"
	FieldDate  = "lastConversionDate"
)

// ErrLimitReached is returned by Consume when the client used up today's
// conversions.
var ErrLimitReached = errors.New("daily conversion limit reached")

// LimitMessage is shown to callers who hit the limit.
const LimitMessage = "You have reached your daily conversion limit. Please sign up for unlimited conversions."

// Record is the stored state for one client.
type Record struct {
	ConversionCount    int    `json:"conversionCount" db:"conversion_count"`
	LastConversionDate string `json:"lastConversionDate" db:"last_conversion_date"`
}

// Store persists records.
//
// Get returns a zero Record (and no error) for unknown clients.
// IncrementIfBelow must be atomic: it resets a record whose date differs from
// day, then increments it if the count is below limit. ok is false when the
// limit was already reached; count is the value after the call.
type Store interface {
	Get(ctx context.Context, clientID string) (Record, error)
	IncrementIfBelow(ctx context.Context, clientID, day string, limit int) (count int, ok bool, err error)
}

// Status is a snapshot of one client's usage for today.
type Status struct {
	Client    string `json:"-"`
	Day       string `json:"day"`
	Count     int    `json:"count"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Unlimited bool   `json:"unlimited"`
}

// Limiter applies the daily limit on top of a Store.
type Limiter struct {
	store Store
	limit int
	loc   *time.Location
	now   func() time.Time
}

// New creates a Limiter. A limit <= 0 disables limiting; a nil location
// means time.Local.
func New(store Store, limit int, loc *time.Location) *Limiter {
	if loc == nil {
		loc = time.Local
	}
	return &Limiter{
		store: store,
		limit: limit,
		loc:   loc,
		now:   time.Now,
	}
}

// SetClock overrides the time source. Used by tests to cross midnight.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Limit returns the configured daily limit.
func (l *Limiter) Limit() int {
	return l.limit
}

// Enabled reports whether the limiter enforces anything.
func (l *Limiter) Enabled() bool {
	return l.limit > 0
}

// Today returns the current calendar day in the limiter's time zone.
func (l *Limiter) Today() string {
	return l.now().In(l.loc).Format(DayLayout)
}

// Status reports the client's usage without consuming anything.
func (l *Limiter) Status(ctx context.Context, clientID string) (Status, error) {
	day := l.Today()
	if !l.Enabled() {
		return Status{Client: clientID, Day: day, Unlimited: true}, nil
	}

	rec, err := l.store.Get(ctx, clientID)
	if err != nil {
		return Status{}, fmt.Errorf("read usage for %s: %w", clientID, err)
	}

	count := rec.ConversionCount
	if rec.LastConversionDate != day {
		count = 0
	}
	return l.status(clientID, day, count), nil
}

// Consume reserves one conversion for the client. It returns ErrLimitReached
// (with the current status) when none are left.
func (l *Limiter) Consume(ctx context.Context, clientID string) (Status, error) {
	day := l.Today()
	if !l.Enabled() {
		return Status{Client: clientID, Day: day, Unlimited: true}, nil
	}

	count, ok, err := l.store.IncrementIfBelow(ctx, clientID, day, l.limit)
	if err != nil {
		return Status{}, fmt.Errorf("consume usage for %s: %w", clientID, err)
	}
	st := l.status(clientID, day, count)
	if !ok {
		return st, ErrLimitReached
	}
	return st, nil
}

func (l *Limiter) status(clientID, day string, count int) Status {
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Client:    clientID,
		Day:       day,
		Count:     count,
		Limit:     l.limit,
		Remaining: remaining,
	}
}

// LoadLocation resolves a time zone name; empty means time.Local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", name, err)
	}
	return loc, nil
}
