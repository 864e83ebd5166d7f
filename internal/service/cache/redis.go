package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ChumRoom/internal/domain/models"
	"ChumRoom/internal/protocol"
)

// RedisConfig holds connection settings for the shared window store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// snapshotEntry is the persisted form of one message: carrier context plus
// the raw wire bytes. Payloads are rebuilt through the codec on load, so
// the store never needs to serialize the tagged union itself.
type snapshotEntry struct {
	Signature string `json:"signature"`
	Sender    string `json:"sender"`
	BlockTime int64  `json:"blockTime"`
	RawHex    string `json:"rawHex"`
}

type snapshotBlob struct {
	StoredAt int64           `json:"storedAt"` // unix millis
	Entries  []snapshotEntry `json:"entries"`
}

// RedisCommands is the slice of the redis client the window store uses.
type RedisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisWindow is a window cache backed by Redis so multiple reader
// replicas share the last good scan. The key is written without expiry;
// freshness is judged against the embedded timestamp, which keeps stale
// fallback working across restarts. Redis errors degrade to cache misses.
type RedisWindow struct {
	cli RedisCommands
	key string
	ttl time.Duration
	now Clock

	mu   sync.Mutex
	last []*models.ProtocolMessage // local copy for Stale() when redis is down
}

// NewRedisWindow creates a Redis-backed window cache.
func NewRedisWindow(cfg RedisConfig, ttl time.Duration, now Clock) *RedisWindow {
	key := cfg.Key
	if key == "" {
		key = "chumroom:window"
	}
	cli := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return NewRedisWindowWithClient(cli, key, ttl, now)
}

// NewRedisWindowWithClient creates a window cache on an existing client.
func NewRedisWindowWithClient(cli RedisCommands, key string, ttl time.Duration, now Clock) *RedisWindow {
	if now == nil {
		now = time.Now
	}
	return &RedisWindow{cli: cli, key: key, ttl: ttl, now: now}
}

func (r *RedisWindow) load() (*snapshotBlob, []*models.ProtocolMessage, bool) {
	b, err := r.cli.Get(context.Background(), r.key).Bytes()
	if err != nil {
		return nil, nil, false
	}
	var blob snapshotBlob
	if err := json.Unmarshal(b, &blob); err != nil {
		return nil, nil, false
	}
	msgs := make([]*models.ProtocolMessage, 0, len(blob.Entries))
	for _, e := range blob.Entries {
		raw, err := hex.DecodeString(e.RawHex)
		if err != nil {
			continue
		}
		msg, ok := protocol.Decode(raw)
		if !ok {
			continue
		}
		msg.Signature = e.Signature
		msg.Sender = e.Sender
		msg.BlockTime = e.BlockTime
		msgs = append(msgs, msg)
	}
	return &blob, msgs, true
}

// Fresh returns the shared snapshot when it is within the TTL.
func (r *RedisWindow) Fresh() ([]*models.ProtocolMessage, bool) {
	blob, msgs, ok := r.load()
	if !ok || len(msgs) == 0 {
		return nil, false
	}
	storedAt := time.UnixMilli(blob.StoredAt)
	if r.now().Sub(storedAt) >= r.ttl {
		r.remember(msgs)
		return nil, false
	}
	r.remember(msgs)
	return msgs, true
}

// Stale returns the shared snapshot regardless of age, falling back to the
// last locally seen copy when Redis is unreachable.
func (r *RedisWindow) Stale() []*models.ProtocolMessage {
	if _, msgs, ok := r.load(); ok && len(msgs) > 0 {
		r.remember(msgs)
		return msgs
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Replace stores a new snapshot.
func (r *RedisWindow) Replace(msgs []*models.ProtocolMessage) {
	r.remember(msgs)
	blob := snapshotBlob{StoredAt: r.now().UnixMilli(), Entries: make([]snapshotEntry, 0, len(msgs))}
	for _, m := range msgs {
		blob.Entries = append(blob.Entries, snapshotEntry{
			Signature: m.Signature,
			Sender:    m.Sender,
			BlockTime: m.BlockTime,
			RawHex:    m.RawHex,
		})
	}
	b, err := json.Marshal(blob)
	if err != nil {
		return
	}
	r.cli.Set(context.Background(), r.key, b, 0)
}

// Age returns how long ago the shared snapshot was stored.
func (r *RedisWindow) Age() (time.Duration, bool) {
	blob, msgs, ok := r.load()
	if !ok || len(msgs) == 0 {
		return 0, false
	}
	return r.now().Sub(time.UnixMilli(blob.StoredAt)), true
}

// Len returns the shared snapshot size.
func (r *RedisWindow) Len() int {
	_, msgs, ok := r.load()
	if !ok {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.last)
	}
	return len(msgs)
}

// Close releases the Redis connection.
func (r *RedisWindow) Close() error { return r.cli.Close() }

func (r *RedisWindow) remember(msgs []*models.ProtocolMessage) {
	r.mu.Lock()
	r.last = msgs
	r.mu.Unlock()
}
