package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erain9/crossbook/pkg/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions represents configuration options for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

var defaultOptions = &RedisOptions{
	Addr:     "localhost:6379",
	Password: "",
	DB:       0,
}

// SetDefaultRedisOptions sets the default options for Redis connections
func SetDefaultRedisOptions(options *RedisOptions) {
	defaultOptions = options
}

// GetRedisClient creates a new Redis client using the default options
func GetRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     defaultOptions.Addr,
		Password: defaultOptions.Password,
		DB:       defaultOptions.DB,
	})
}

// RedisLedger implements core.MatchLedger on a Redis list. The list is
// append-only (RPUSH), so list order equals execution order. Redis errors
// are logged and surface as empty results; the matching step never fails
// on ledger writes.
type RedisLedger struct {
	client  *redis.Client
	ctx     context.Context
	listKey string
	logger  *zap.Logger
}

// NewRedisLedger creates a new instance of RedisLedger
func NewRedisLedger(client *redis.Client, prefix string, logger *zap.Logger) *RedisLedger {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RedisLedger{
		client:  client,
		ctx:     context.Background(),
		listKey: fmt.Sprintf("%s:matches", prefix),
		logger:  logger,
	}
}

// Append pushes a record to the tail of the match list
func (l *RedisLedger) Append(record core.MatchRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		l.logger.Error("Failed to marshal match record",
			zap.Int64("amount", record.Amount),
			zap.Error(err))
		return
	}

	if err := l.client.RPush(l.ctx, l.listKey, data).Err(); err != nil {
		l.logger.Error("Failed to append match record",
			zap.String("key", l.listKey),
			zap.Error(err))
	}
}

// History returns the full match list in execution order
func (l *RedisLedger) History() []core.MatchRecord {
	values, err := l.client.LRange(l.ctx, l.listKey, 0, -1).Result()
	if err != nil {
		l.logger.Error("Failed to read match history",
			zap.String("key", l.listKey),
			zap.Error(err))
		return []core.MatchRecord{}
	}

	return l.decode(values)
}

// Latest returns the suffix of length min(n, size)
func (l *RedisLedger) Latest(n int) ([]core.MatchRecord, error) {
	if n < 0 {
		return nil, core.ErrInvalidLimit
	}

	if n == 0 {
		return []core.MatchRecord{}, nil
	}

	values, err := l.client.LRange(l.ctx, l.listKey, int64(-n), -1).Result()
	if err != nil {
		l.logger.Error("Failed to read latest matches",
			zap.String("key", l.listKey),
			zap.Int("n", n),
			zap.Error(err))
		return []core.MatchRecord{}, nil
	}

	return l.decode(values), nil
}

// Size returns the number of records in the list
func (l *RedisLedger) Size() int {
	size, err := l.client.LLen(l.ctx, l.listKey).Result()
	if err != nil {
		l.logger.Error("Failed to read match list length",
			zap.String("key", l.listKey),
			zap.Error(err))
		return 0
	}
	return int(size)
}

func (l *RedisLedger) decode(values []string) []core.MatchRecord {
	records := make([]core.MatchRecord, 0, len(values))
	for _, value := range values {
		var record core.MatchRecord
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			l.logger.Error("Failed to unmarshal match record",
				zap.String("value", value),
				zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records
}

var _ core.MatchLedger = (*RedisLedger)(nil)
