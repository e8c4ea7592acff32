package limiter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// recordTTL keeps a record around long enough to cover any time zone's day.
const recordTTL = 48 * time.Hour

// consumeScript resets and increments the hash in one round trip.
// KEYS[1] = record key; ARGV = day, limit, ttl seconds.
var consumeScript = redis.NewScript(`
local day = redis.call('HGET', KEYS[1], 'lastConversionDate')
local count = tonumber(redis.call('HGET', KEYS[1], 'conversionCount') or '0') or 0
if day ~= ARGV[1] then
  count = 0
end
if count >= tonumber(ARGV[2]) then
  return {count, 0}
end
count = count + 1
redis.call('HSET', KEYS[1], 'conversionCount', count, 'lastConversionDate', ARGV[1])
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[3]))
return {count, 1}
`)

// RedisStore keeps one hash per client with the two record fields.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. Keys are "<prefix><clientID>".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "smartconverter:usage:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (s *RedisStore) key(clientID string) string {
	return s.prefix + clientID
}

// Get reads both fields; a missing hash is a zero Record.
func (s *RedisStore) Get(ctx context.Context, clientID string) (Record, error) {
	vals, err := s.client.HMGet(ctx, s.key(clientID), FieldCount, FieldDate).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Record{}, err
	}

	var rec Record
	if len(vals) == 2 {
		if v, ok := vals[0].(string); ok {
			rec.ConversionCount, _ = strconv.Atoi(v)
		}
		if v, ok := vals[1].(string); ok {
			rec.LastConversionDate = v
		}
	}
	return rec, nil
}

// IncrementIfBelow runs the consume script.
func (s *RedisStore) IncrementIfBelow(ctx context.Context, clientID, day string, limit int) (int, bool, error) {
	res, err := consumeScript.Run(ctx, s.client,
		[]string{s.key(clientID)},
		day, limit, int(recordTTL.Seconds()),
	).Int64Slice()
	if err != nil {
		return 0, false, err
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("unexpected script reply %v", res)
	}
	return int(res[0]), res[1] == 1, nil
}
