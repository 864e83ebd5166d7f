package cache

import (
	"testing"
	"time"

	"ChumRoom/internal/domain/models"
)

func msgs(n int) []*models.ProtocolMessage {
	out := make([]*models.ProtocolMessage, n)
	for i := range out {
		out[i] = &models.ProtocolMessage{Signature: string(rune('a' + i))}
	}
	return out
}

func TestWindowFreshWithinTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	w := NewWindow(15*time.Second, func() time.Time { return now })

	if _, ok := w.Fresh(); ok {
		t.Fatalf("empty window must not be fresh")
	}

	w.Replace(msgs(3))
	now = now.Add(14 * time.Second)
	got, ok := w.Fresh()
	if !ok || len(got) != 3 {
		t.Fatalf("expected fresh snapshot, got %v %v", got, ok)
	}

	now = now.Add(2 * time.Second)
	if _, ok := w.Fresh(); ok {
		t.Fatalf("window must expire after TTL")
	}
	if len(w.Stale()) != 3 {
		t.Fatalf("stale snapshot must survive expiry")
	}
}

func TestWindowReplaceIsolatesSnapshot(t *testing.T) {
	w := NewWindow(15*time.Second, nil)
	in := msgs(2)
	w.Replace(in)
	in[0] = &models.ProtocolMessage{Signature: "mutated"}

	got := w.Stale()
	if got[0].Signature == "mutated" {
		t.Fatalf("replace must copy the slice, not alias the caller's")
	}

	w.Replace(msgs(1))
	if len(got) != 2 {
		t.Fatalf("old snapshot must stay intact after replace")
	}
}

func TestWindowAge(t *testing.T) {
	now := time.Unix(2000, 0)
	w := NewWindow(15*time.Second, func() time.Time { return now })
	if _, ok := w.Age(); ok {
		t.Fatalf("empty window has no age")
	}
	w.Replace(msgs(1))
	now = now.Add(7 * time.Second)
	age, ok := w.Age()
	if !ok || age != 7*time.Second {
		t.Fatalf("age = %v %v", age, ok)
	}
}
