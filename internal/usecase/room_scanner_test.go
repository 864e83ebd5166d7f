package usecase

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ChumRoom/internal/domain/models"
	"ChumRoom/internal/protocol"
	"ChumRoom/internal/service/cache"
	"ChumRoom/pkg/logger"
	"ChumRoom/pkg/solana"
)

var (
	testRoom = solana.MustPublicKey("chumAA7QjpFzpEtZ2XezM8onHrt8of4w35p3VMS4C6T")
	testMint = solana.MustPublicKey("So11111111111111111111111111111111111111112")
)

type fakeLedger struct {
	sigs    []solana.SignatureInfo
	sigsErr error
	txs     map[string]*solana.ParsedTransaction
	txErr   map[string]error

	sigCalls int
}

func (f *fakeLedger) GetSignaturesForAddress(_ context.Context, _ solana.PublicKey, _ int) ([]solana.SignatureInfo, error) {
	f.sigCalls++
	return f.sigs, f.sigsErr
}

func (f *fakeLedger) GetTransaction(_ context.Context, sig string) (*solana.ParsedTransaction, error) {
	if err, ok := f.txErr[sig]; ok {
		return nil, err
	}
	return f.txs[sig], nil
}

func (f *fakeLedger) GetLatestBlockhash(context.Context) (string, error) { return "", nil }
func (f *fakeLedger) SendTransaction(context.Context, string) (string, error) {
	return "", nil
}
func (f *fakeLedger) GetBalance(context.Context, solana.PublicKey) (uint64, error) { return 0, nil }
func (f *fakeLedger) Health(context.Context) error                                { return nil }

type fakeMetrics struct {
	errors  map[string]int
	results map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errors: map[string]int{}, results: map[string]int{}}
}

func (m *fakeMetrics) RecordScan(time.Duration, int) {}
func (m *fakeMetrics) RecordMessage(string) {}
func (m *fakeMetrics) RecordError(kind string) { m.errors[kind]++ }
func (m *fakeMetrics) RecordCacheResult(result string) { m.results[result]++ }
func (m *fakeMetrics) RecordPosted(agent, msgT string) {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func memoTx(t *testing.T, sender string, raw []byte, blockTime int64) *solana.ParsedTransaction {
	t.Helper()
	blob := map[string]any{
		"meta":      map[string]any{"err": nil},
		"blockTime": blockTime,
		"transaction": map[string]any{
			"message": map[string]any{
				"accountKeys": []map[string]any{{"pubkey": sender, "signer": true, "writable": true}},
				"instructions": []map[string]any{
					{"programId": solana.MemoProgramID.String(), "parsed": hex.EncodeToString(raw)},
				},
			},
		},
	}
	b, err := json.Marshal(blob)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	var tx solana.ParsedTransaction
	if err := json.Unmarshal(b, &tx); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return &tx
}

func sigInfo(sig string, blockTime int64) solana.SignatureInfo {
	return solana.SignatureInfo{Signature: sig, BlockTime: &blockTime}
}

func newTestScanner(ledger *fakeLedger, win *cache.Window, metrics *fakeMetrics, t *testing.T) *RoomScanner {
	return NewRoomScanner(ledger, win, metrics, testLogger(t), testRoom,
		WithFetchRate(100, 1000))
}

func TestReadMessagesScansAndCaches(t *testing.T) {
	conf := uint8(75)
	ledger := &fakeLedger{
		sigs: []solana.SignatureInfo{
			sigInfo("sig1", 1700000100),
			{Signature: "sigFailed", Err: json.RawMessage(`{"InstructionError":[0,"Custom"]}`)},
			sigInfo("sig2", 1700000000),
		},
		txs: map[string]*solana.ParsedTransaction{
			"sig1": memoTx(t, "senderA", protocol.EncodeSignal(1, testMint, models.DirectionBuy, &conf), 1700000100),
			"sig2": memoTx(t, "senderB", protocol.EncodeExit(2, 7, models.ReasonTargetHit), 1700000000),
		},
	}
	win := cache.NewWindow(15*time.Second, nil)
	metrics := newFakeMetrics()
	s := newTestScanner(ledger, win, metrics, t)

	msgs := s.ReadMessages(context.Background(), 10)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Signature != "sig1" || msgs[0].Sender != "senderA" {
		t.Fatalf("first message = %+v", msgs[0])
	}
	if msgs[0].BlockTime != 1700000100 {
		t.Fatalf("blockTime = %d", msgs[0].BlockTime)
	}
	if msgs[1].Payload.(*models.ExitPayload).RallyID != 7 {
		t.Fatalf("second payload = %+v", msgs[1].Payload)
	}
	if win.Len() != 2 {
		t.Fatalf("cache must hold the scanned window")
	}
	if metrics.results["miss"] != 1 {
		t.Fatalf("results = %v", metrics.results)
	}
}

func TestReadMessagesServesFreshCache(t *testing.T) {
	ledger := &fakeLedger{sigsErr: errors.New("must not be called")}
	win := cache.NewWindow(15*time.Second, nil)
	win.Replace([]*models.ProtocolMessage{
		{Signature: "cached1"}, {Signature: "cached2"}, {Signature: "cached3"},
	})
	metrics := newFakeMetrics()
	s := newTestScanner(ledger, win, metrics, t)

	msgs := s.ReadMessages(context.Background(), 2)
	if ledger.sigCalls != 0 {
		t.Fatalf("fresh cache must short-circuit the ledger")
	}
	if len(msgs) != 2 || msgs[0].Signature != "cached1" {
		t.Fatalf("msgs = %+v", msgs)
	}
	if metrics.results["hit"] != 1 {
		t.Fatalf("results = %v", metrics.results)
	}
}

func TestReadMessagesFallsBackToStale(t *testing.T) {
	ledger := &fakeLedger{sigsErr: errors.New("rpc down")}
	now := time.Unix(1000, 0)
	win := cache.NewWindow(15*time.Second, func() time.Time { return now })
	win.Replace([]*models.ProtocolMessage{{Signature: "old"}})
	now = now.Add(time.Minute) // snapshot is stale now
	metrics := newFakeMetrics()
	s := newTestScanner(ledger, win, metrics, t)

	msgs := s.ReadMessages(context.Background(), 10)
	if len(msgs) != 1 || msgs[0].Signature != "old" {
		t.Fatalf("expected stale window, got %+v", msgs)
	}
	if metrics.errors["scan"] != 1 || metrics.results["stale"] != 1 {
		t.Fatalf("metrics = %v %v", metrics.errors, metrics.results)
	}
}

func TestReadMessagesEmptyWhenNothingEverWorked(t *testing.T) {
	ledger := &fakeLedger{sigsErr: errors.New("rpc down")}
	win := cache.NewWindow(15*time.Second, nil)
	s := newTestScanner(ledger, win, newFakeMetrics(), t)

	msgs := s.ReadMessages(context.Background(), 10)
	if msgs == nil || len(msgs) != 0 {
		t.Fatalf("expected empty non-nil window, got %#v", msgs)
	}
}

func TestScanIsolatesBrokenTransactions(t *testing.T) {
	ledger := &fakeLedger{
		sigs: []solana.SignatureInfo{
			sigInfo("sigBroken", 1700000300),
			sigInfo("sigMissing", 1700000200),
			sigInfo("sigGood", 1700000100),
		},
		txs: map[string]*solana.ParsedTransaction{
			"sigGood": memoTx(t, "senderA", protocol.EncodeExit(1, 3, models.ReasonManual), 1700000100),
		},
		txErr: map[string]error{"sigBroken": errors.New("timeout")},
	}
	win := cache.NewWindow(15*time.Second, nil)
	metrics := newFakeMetrics()
	s := newTestScanner(ledger, win, metrics, t)

	msgs := s.ReadMessages(context.Background(), 10)
	if len(msgs) != 1 || msgs[0].Signature != "sigGood" {
		t.Fatalf("expected one surviving message, got %+v", msgs)
	}
	if metrics.errors["tx_fetch"] != 1 {
		t.Fatalf("errors = %v", metrics.errors)
	}
}

func TestReadMessagesStopsAtLimit(t *testing.T) {
	raw := protocol.EncodeExit(1, 1, models.ReasonManual)
	ledger := &fakeLedger{txs: map[string]*solana.ParsedTransaction{}}
	for i := 0; i < 6; i++ {
		sig := string(rune('a' + i))
		ledger.sigs = append(ledger.sigs, sigInfo(sig, int64(1700000000+i)))
		ledger.txs[sig] = memoTx(t, "sender", raw, int64(1700000000+i))
	}
	win := cache.NewWindow(15*time.Second, nil)
	s := newTestScanner(ledger, win, newFakeMetrics(), t)

	msgs := s.ReadMessages(context.Background(), 4)
	if len(msgs) != 4 {
		t.Fatalf("expected limit-sized window, got %d", len(msgs))
	}
}
