package agent

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"testing"
	"time"

	"ChumRoom/internal/domain/models"
	"ChumRoom/internal/protocol"
	"ChumRoom/pkg/logger"
	"ChumRoom/pkg/solana"
)

var testRoom = solana.MustPublicKey("chumAA7QjpFzpEtZ2XezM8onHrt8of4w35p3VMS4C6T")

type fakeLedger struct {
	sent         int
	balance      uint64
	balanceCalls int
}

func (f *fakeLedger) GetSignaturesForAddress(context.Context, solana.PublicKey, int) ([]solana.SignatureInfo, error) {
	return nil, nil
}
func (f *fakeLedger) GetTransaction(context.Context, string) (*solana.ParsedTransaction, error) {
	return nil, nil
}
func (f *fakeLedger) GetLatestBlockhash(context.Context) (string, error) {
	return "So11111111111111111111111111111111111111112", nil
}
func (f *fakeLedger) SendTransaction(context.Context, string) (string, error) {
	f.sent++
	return "sig", nil
}
func (f *fakeLedger) GetBalance(context.Context, solana.PublicKey) (uint64, error) {
	f.balanceCalls++
	return f.balance, nil
}
func (f *fakeLedger) Health(context.Context) error                                { return nil }

type nopMetrics struct {
	posted map[string]int
}

func (m *nopMetrics) RecordScan(time.Duration, int) {}
func (m *nopMetrics) RecordMessage(string) {}
func (m *nopMetrics) RecordError(string) {}
func (m *nopMetrics) RecordCacheResult(string) {}
func (m *nopMetrics) RecordPosted(_, msgType string) {
	if m.posted == nil {
		m.posted = map[string]int{}
	}
	m.posted[msgType]++
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testKey() solana.PrivateKey {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 7
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed))
}

func newTestPoster(t *testing.T, ledger *fakeLedger, metrics *nopMetrics) *Poster {
	return NewPoster(ledger, testKey(), testRoom, "KAREN-BOT", metrics, testLogger(t))
}

func TestPosterSubmitsAndCounts(t *testing.T) {
	ledger := &fakeLedger{}
	metrics := &nopMetrics{}
	p := newTestPoster(t, ledger, metrics)

	mint := solana.MustPublicKey("So11111111111111111111111111111111111111112")
	sig, err := p.Post(context.Background(), protocol.EncodeRally(2, 300, mint, models.DirectionBuy, 1000, 1500))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if sig != "sig" || ledger.sent != 1 {
		t.Fatalf("sig=%q sent=%d", sig, ledger.sent)
	}
	if metrics.posted["RALLY"] != 1 {
		t.Fatalf("posted = %v", metrics.posted)
	}
}

func TestVolumeTickAlwaysPostsAlpha(t *testing.T) {
	ledger := &fakeLedger{}
	metrics := &nopMetrics{}
	a := NewVolumeAgent(newTestPoster(t, ledger, metrics), 1, 42, testLogger(t))

	for i := 0; i < 10; i++ {
		a.Tick(context.Background())
	}
	if metrics.posted["ALPHA"] != 10 {
		t.Fatalf("every tick must post an alpha, got %v", metrics.posted)
	}
	if a.nextRally-200 != uint16(metrics.posted["RALLY"]) {
		t.Fatalf("rally ids must advance once per rally: next=%d posted=%v", a.nextRally, metrics.posted)
	}
}

func TestWhaleTickAlwaysPostsWhaleAlpha(t *testing.T) {
	ledger := &fakeLedger{}
	metrics := &nopMetrics{}
	a := NewWhaleAgent(newTestPoster(t, ledger, metrics), 1, 42, 500, testLogger(t))

	for i := 0; i < 10; i++ {
		a.Tick(context.Background())
	}
	if metrics.posted["ALPHA"] != 10 {
		t.Fatalf("every tick must post a whale alpha, got %v", metrics.posted)
	}
	if metrics.posted["SIGNAL"] > 10 {
		t.Fatalf("at most one follow-up signal per tick, got %v", metrics.posted)
	}
	if metrics.posted["RALLY"] != 0 || metrics.posted["EXIT"] != 0 || metrics.posted["RESULT"] != 0 {
		t.Fatalf("whale posts alphas and signals only, got %v", metrics.posted)
	}
}

func TestWhaleRunChecksBalanceOnStartup(t *testing.T) {
	ledger := &fakeLedger{balance: 2 * 1_000_000_000}
	a := NewWhaleAgent(newTestPoster(t, ledger, &nopMetrics{}), 1, 42, 500, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Run(ctx, time.Hour)
	if ledger.balanceCalls != 1 {
		t.Fatalf("balance must be checked once at startup, got %d calls", ledger.balanceCalls)
	}
}

func TestMomentumClosesOldestRallyEveryThirdTick(t *testing.T) {
	ledger := &fakeLedger{}
	metrics := &nopMetrics{}
	a := NewMomentumAgent(newTestPoster(t, ledger, metrics), 2, 42, testLogger(t))
	a.TrackRally(300)
	a.TrackRally(301)

	for i := 0; i < 3; i++ {
		a.Tick(context.Background())
	}
	if metrics.posted["EXIT"] != 1 || metrics.posted["RESULT"] != 1 {
		t.Fatalf("third tick must exit with a result, got %v", metrics.posted)
	}
	if got := a.Tracked(); len(got) != 1 || got[0] != 301 {
		t.Fatalf("oldest rally must close first, tracked = %v", got)
	}
	if metrics.posted["SIGNAL"] != 3 {
		t.Fatalf("every tick must post a signal, got %v", metrics.posted)
	}
}

func TestMomentumNoExitWithoutTrackedRallies(t *testing.T) {
	metrics := &nopMetrics{}
	a := NewMomentumAgent(newTestPoster(t, &fakeLedger{}, metrics), 2, 1, testLogger(t))
	for i := 0; i < 6; i++ {
		a.Tick(context.Background())
	}
	if metrics.posted["EXIT"] != 0 {
		t.Fatalf("no exits expected, got %v", metrics.posted)
	}
}

func TestObserveWindowTracksAndUntracks(t *testing.T) {
	a := NewMomentumAgent(newTestPoster(t, &fakeLedger{}, &nopMetrics{}), 2, 1, testLogger(t))
	// Newest first: exit for 5 precedes its announcement, so replaying
	// oldest-to-newest leaves only rally 6 open.
	a.ObserveWindow([]*models.ProtocolMessage{
		{Payload: &models.ExitPayload{RallyID: 5}},
		{Payload: &models.RallyPayload{RallyID: 6}},
		{Payload: &models.RallyPayload{RallyID: 5}},
	})
	if got := a.Tracked(); len(got) != 1 || got[0] != 6 {
		t.Fatalf("tracked = %v", got)
	}
}

func TestRallyFeedHandle(t *testing.T) {
	a := NewMomentumAgent(newTestPoster(t, &fakeLedger{}, &nopMetrics{}), 2, 1, testLogger(t))
	feed := NewRallyFeed(a, "room.messages")

	mint := solana.MustPublicKey("So11111111111111111111111111111111111111112")
	raw := protocol.EncodeRally(1, 210, mint, models.DirectionBuy, 1000, 1500)
	msg, ok := protocol.Decode(raw)
	if !ok {
		t.Fatalf("fixture must decode")
	}
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if err := feed.Handle(context.Background(), b); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := feed.Handle(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("garbage must be skipped, got %v", err)
	}
	if got := a.Tracked(); len(got) != 1 || got[0] != 210 {
		t.Fatalf("tracked = %v", got)
	}
}
