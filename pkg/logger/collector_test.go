package logger

import (
	"context"
	"testing"
	"time"
)

type capturePublisher struct {
	ch chan []AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	logs, ok := payload.([]AggregatedLogEntry)
	if !ok {
		return nil
	}
	select {
	case p.ch <- logs:
	default:
	}
	return nil
}

func collectorLogger(t *testing.T, pub Publisher, threshold int) *Logger {
	t.Helper()
	log, err := New(&Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	log.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: threshold,
		Topic:          "room.logs",
		Publisher:      pub,
	})
	return log
}

func TestCollectorFlushesOnThreshold(t *testing.T) {
	pub := &capturePublisher{ch: make(chan []AggregatedLogEntry, 1)}
	log := collectorLogger(t, pub, 1)
	defer log.RemoveCollector()

	log.Error("scan failed", String("reason", "rpc down"))

	select {
	case logs := <-pub.ch:
		if len(logs) != 1 {
			t.Fatalf("expected 1 aggregated entry, got %d", len(logs))
		}
		if logs[0].Message != "scan failed" || logs[0].Count != 1 {
			t.Fatalf("entry = %+v", logs[0])
		}
		if logs[0].Fields["reason"] != "rpc down" {
			t.Fatalf("fields = %v", logs[0].Fields)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("collector never flushed")
	}
}

func TestCollectorAggregatesRepeatedErrors(t *testing.T) {
	pub := &capturePublisher{ch: make(chan []AggregatedLogEntry, 1)}
	log := collectorLogger(t, pub, 2)
	defer log.RemoveCollector()

	// Same call site, so the entries share one aggregation key.
	for i := 0; i < 3; i++ {
		log.Error("publish failed")
	}
	log.Error("archive failed")

	select {
	case logs := <-pub.ch:
		counts := map[string]int{}
		for _, entry := range logs {
			counts[entry.Message] = entry.Count
		}
		if counts["publish failed"] != 3 {
			t.Fatalf("repeated error must aggregate, got %v", counts)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("collector never flushed")
	}
}
