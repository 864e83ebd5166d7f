package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"ChumRoom/internal/domain/models"
	"ChumRoom/internal/protocol"
	"ChumRoom/pkg/solana"
)

type fakeRedis struct {
	mu   sync.Mutex
	data map[string][]byte
	down bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string][]byte{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	b, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(b), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewStatusResult("", errors.New("connection refused"))
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = v
	case string:
		f.data[key] = []byte(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Close() error { return nil }

func storedMsg(t *testing.T, sig string, raw []byte, blockTime int64) *models.ProtocolMessage {
	t.Helper()
	msg, ok := protocol.Decode(raw)
	if !ok {
		t.Fatalf("fixture must decode")
	}
	msg.Signature = sig
	msg.Sender = "sender"
	msg.BlockTime = blockTime
	return msg
}

func TestRedisWindowRoundTrip(t *testing.T) {
	mint := solana.MustPublicKey("So11111111111111111111111111111111111111112")
	conf := uint8(80)
	fr := newFakeRedis()
	now := time.Unix(1000, 0)
	w := NewRedisWindowWithClient(fr, "test:window", 15*time.Second, func() time.Time { return now })

	w.Replace([]*models.ProtocolMessage{
		storedMsg(t, "sig1", protocol.EncodeSignal(1, mint, models.DirectionBuy, &conf), 1700000100),
		storedMsg(t, "sig2", protocol.EncodeExit(2, 7, models.ReasonTargetHit), 1700000000),
	})

	msgs, ok := w.Fresh()
	if !ok || len(msgs) != 2 {
		t.Fatalf("fresh = %v %d", ok, len(msgs))
	}
	if msgs[0].Signature != "sig1" || msgs[0].BlockTime != 1700000100 {
		t.Fatalf("carrier context lost: %+v", msgs[0])
	}
	sig, isSignal := msgs[0].Payload.(*models.SignalPayload)
	if !isSignal || sig.Direction != models.DirectionBuy || *sig.Confidence != 80 {
		t.Fatalf("signal payload lost: %+v", msgs[0].Payload)
	}
	if exit, ok := msgs[1].Payload.(*models.ExitPayload); !ok || exit.RallyID != 7 {
		t.Fatalf("exit payload lost: %+v", msgs[1].Payload)
	}
	if w.Len() != 2 {
		t.Fatalf("len = %d", w.Len())
	}
}

func TestRedisWindowFreshnessFromStoredTimestamp(t *testing.T) {
	fr := newFakeRedis()
	now := time.Unix(1000, 0)
	w := NewRedisWindowWithClient(fr, "test:window", 15*time.Second, func() time.Time { return now })

	raw := protocol.EncodeExit(1, 3, models.ReasonManual)
	w.Replace([]*models.ProtocolMessage{storedMsg(t, "sig1", raw, 1700000000)})

	now = now.Add(14 * time.Second)
	if _, ok := w.Fresh(); !ok {
		t.Fatalf("window within ttl must be fresh")
	}

	now = now.Add(time.Second)
	if _, ok := w.Fresh(); ok {
		t.Fatalf("window at ttl must not be fresh")
	}
	if msgs := w.Stale(); len(msgs) != 1 || msgs[0].Signature != "sig1" {
		t.Fatalf("stale = %+v", msgs)
	}
	if age, ok := w.Age(); !ok || age != 15*time.Second {
		t.Fatalf("age = %v %v", age, ok)
	}
}

func TestRedisWindowFallsBackWhenRedisDown(t *testing.T) {
	fr := newFakeRedis()
	w := NewRedisWindowWithClient(fr, "test:window", 15*time.Second, nil)

	raw := protocol.EncodeExit(1, 3, models.ReasonManual)
	w.Replace([]*models.ProtocolMessage{storedMsg(t, "sig1", raw, 1700000000)})

	fr.mu.Lock()
	fr.down = true
	fr.mu.Unlock()

	if _, ok := w.Fresh(); ok {
		t.Fatalf("redis outage must read as a cache miss")
	}
	if msgs := w.Stale(); len(msgs) != 1 || msgs[0].Signature != "sig1" {
		t.Fatalf("local fallback lost: %+v", msgs)
	}
	if w.Len() != 1 {
		t.Fatalf("len = %d", w.Len())
	}
}

func TestRedisWindowSkipsCorruptEntries(t *testing.T) {
	fr := newFakeRedis()
	now := time.Unix(1000, 0)
	w := NewRedisWindowWithClient(fr, "test:window", 15*time.Second, func() time.Time { return now })

	good := protocol.EncodeExit(1, 3, models.ReasonManual)
	goodMsg := storedMsg(t, "sigGood", good, 1700000000)
	blob := snapshotBlob{
		StoredAt: now.UnixMilli(),
		Entries: []snapshotEntry{
			{Signature: "sigBad", Sender: "sender", BlockTime: 1, RawHex: "not hex"},
			{Signature: "sigNoise", Sender: "sender", BlockTime: 2, RawHex: "deadbeef"},
			{Signature: "sigGood", Sender: "sender", BlockTime: 1700000000, RawHex: goodMsg.RawHex},
		},
	}
	b, err := json.Marshal(blob)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	fr.Set(context.Background(), "test:window", b, 0)

	msgs, ok := w.Fresh()
	if !ok || len(msgs) != 1 || msgs[0].Signature != "sigGood" {
		t.Fatalf("expected one surviving entry, got %v %+v", ok, msgs)
	}
}
