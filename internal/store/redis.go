package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/akave-ai/hooklog/internal/model"
)

// appendScript assigns the next sequence number, pushes the entry and trims
// the list in one atomic step.
var appendScript = redis.NewScript(`
local seq = redis.call('INCR', KEYS[2])
redis.call('RPUSH', KEYS[1], seq .. ':' .. ARGV[1])
local limit = tonumber(ARGV[2])
if limit > 0 then
	redis.call('LTRIM', KEYS[1], -limit, -1)
end
return seq
`)

// drainScript reads and deletes the whole list atomically.
var drainScript = redis.NewScript(`
local items = redis.call('LRANGE', KEYS[1], 0, -1)
redis.call('DEL', KEYS[1])
return items
`)

// Redis keeps entries in a Redis list. Each element is "<seq>:<record json>".
type Redis struct {
	rdb    *redis.Client
	key    string
	seqKey string
	limit  int
}

// redisRecord keeps the payload as a string so it round-trips byte for byte.
type redisRecord struct {
	ID         uuid.UUID `json:"id"`
	ReceivedAt time.Time `json:"receivedAt"`
	Payload    string    `json:"payload"`
}

// NewRedis connects to the Redis server at url and stores entries under key.
func NewRedis(url, key string, limit int) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisWithClient(redis.NewClient(opt), key, limit), nil
}

// NewRedisWithClient uses an existing client. Close closes it.
func NewRedisWithClient(rdb *redis.Client, key string, limit int) *Redis {
	if limit < 0 {
		limit = 0
	}
	return &Redis{rdb: rdb, key: key, seqKey: key + ":seq", limit: limit}
}

// Append runs appendScript, which sets e.Seq from the sequence key.
func (r *Redis) Append(ctx context.Context, e *model.WebhookLogEntry) error {
	record, err := json.Marshal(redisRecord{ID: e.ID, ReceivedAt: e.ReceivedAt, Payload: string(e.Payload)})
	if err != nil {
		return fmt.Errorf("encode webhook log: %w", err)
	}
	seq, err := appendScript.Run(ctx, r.rdb, []string{r.key, r.seqKey}, string(record), r.limit).Int64()
	if err != nil {
		return fmt.Errorf("append webhook log: %w", err)
	}
	e.Seq = seq
	return nil
}

// List reads the whole list and pages it in memory.
func (r *Redis) List(ctx context.Context, q model.ListQuery) (model.LogPage, error) {
	items, err := r.rdb.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return model.LogPage{}, fmt.Errorf("list webhook logs: %w", err)
	}
	all, err := decodeElements(items)
	if err != nil {
		return model.LogPage{}, err
	}
	entries, next := paginate(all, q)
	return model.LogPage{Entries: entries, Total: len(all), NextCursor: next}, nil
}

// Clear drains the list atomically. The sequence key is kept.
func (r *Redis) Clear(ctx context.Context) ([]model.WebhookLogEntry, error) {
	items, err := drainScript.Run(ctx, r.rdb, []string{r.key}).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("clear webhook logs: %w", err)
	}
	return decodeElements(items)
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func decodeElements(items []string) ([]model.WebhookLogEntry, error) {
	out := make([]model.WebhookLogEntry, 0, len(items))
	for _, item := range items {
		e, err := decodeElement(item)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeElement(item string) (model.WebhookLogEntry, error) {
	seqPart, recordPart, ok := strings.Cut(item, ":")
	if !ok {
		return model.WebhookLogEntry{}, fmt.Errorf("decode webhook log: missing sequence in %q", item)
	}
	seq, err := strconv.ParseInt(seqPart, 10, 64)
	if err != nil {
		return model.WebhookLogEntry{}, fmt.Errorf("decode webhook log sequence: %w", err)
	}
	var rec redisRecord
	if err := json.Unmarshal([]byte(recordPart), &rec); err != nil {
		return model.WebhookLogEntry{}, fmt.Errorf("decode webhook log: %w", err)
	}
	return model.WebhookLogEntry{
		ID:         rec.ID,
		Seq:        seq,
		ReceivedAt: rec.ReceivedAt.UTC(),
		Payload:    json.RawMessage(rec.Payload),
	}, nil
}
