package agent

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"ChumRoom/internal/domain/models"
	"ChumRoom/internal/protocol"
	"ChumRoom/pkg/logger"
)

// MomentumAgent posts trend signals and manages rally lifecycles: it
// tracks rallies other agents announce and periodically closes the
// oldest one with an EXIT followed by a RESULT.
type MomentumAgent struct {
	poster  *Poster
	agentID uint16
	rng     *rand.Rand
	logger  *logger.Logger

	mu      sync.Mutex
	tracked []uint16 // open rally ids, oldest first
	ticks   int
}

// NewMomentumAgent creates the momentum behavior.
func NewMomentumAgent(poster *Poster, agentID uint16, seed int64, log *logger.Logger) *MomentumAgent {
	return &MomentumAgent{
		poster:  poster,
		agentID: agentID,
		rng:     rand.New(rand.NewSource(seed)),
		logger:  log,
	}
}

// Run ticks until ctx ends.
func (a *MomentumAgent) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Tick(ctx)
		}
	}
}

// Tick posts one round of messages.
func (a *MomentumAgent) Tick(ctx context.Context) {
	token := randomToken(a.rng)

	conf := uint8(55 + a.rng.Intn(41))
	dir := models.DirectionSell
	if a.rng.Intn(100) < 55 {
		dir = models.DirectionBuy
	}
	if _, err := a.poster.Post(ctx, protocol.EncodeSignal(a.agentID, token.Mint, dir, &conf)); err != nil {
		a.logger.Warn("signal post failed", logger.Error(err))
	}

	a.mu.Lock()
	a.ticks++
	closeRally := a.ticks%3 == 0 && len(a.tracked) > 0
	var rallyID uint16
	if closeRally {
		rallyID = a.tracked[0]
		a.tracked = a.tracked[1:]
	}
	a.mu.Unlock()
	if !closeRally {
		return
	}

	reason := []models.ExitReason{
		models.ReasonTargetHit, models.ReasonStopLoss, models.ReasonManual,
	}[a.rng.Intn(3)]
	if _, err := a.poster.Post(ctx, protocol.EncodeExit(a.agentID, rallyID, reason)); err != nil {
		a.logger.Warn("exit post failed", logger.Error(err))
		return
	}

	outcome := models.OutcomeWin
	switch reason {
	case models.ReasonStopLoss:
		outcome = models.OutcomeLoss
	case models.ReasonManual:
		if a.rng.Intn(2) == 1 {
			outcome = models.OutcomeLoss
		}
	}
	pnl := uint64(50_000 + a.rng.Int63n(5_000_000-50_000))
	if _, err := a.poster.Post(ctx, protocol.EncodeResult(a.agentID, rallyID, outcome, pnl)); err != nil {
		a.logger.Warn("result post failed", logger.Error(err))
	}
}

// TrackRally registers an open rally for later closing. Duplicates and
// already-tracked ids are ignored.
func (a *MomentumAgent) TrackRally(id uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range a.tracked {
		if t == id {
			return
		}
	}
	a.tracked = append(a.tracked, id)
}

// Untrack drops a rally id, used when another agent exits it first.
func (a *MomentumAgent) Untrack(id uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, t := range a.tracked {
		if t == id {
			a.tracked = append(a.tracked[:i], a.tracked[i+1:]...)
			return
		}
	}
}

// Tracked returns the open rally ids, oldest first.
func (a *MomentumAgent) Tracked() []uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]uint16, len(a.tracked))
	copy(out, a.tracked)
	return out
}

// ObserveWindow feeds a scanned message window into rally tracking, the
// fallback when no Kafka feed is configured.
func (a *MomentumAgent) ObserveWindow(msgs []*models.ProtocolMessage) {
	for i := len(msgs) - 1; i >= 0; i-- { // window is newest first
		a.observe(msgs[i])
	}
}

func (a *MomentumAgent) observe(m *models.ProtocolMessage) {
	switch p := m.Payload.(type) {
	case *models.RallyPayload:
		a.TrackRally(p.RallyID)
	case *models.ExitPayload:
		a.Untrack(p.RallyID)
	}
}

// RallyFeed adapts the momentum agent to the Kafka consumer: it replays
// the published message stream into rally tracking.
type RallyFeed struct {
	agent *MomentumAgent
	topic string
}

// NewRallyFeed creates a Kafka handler feeding the agent.
func NewRallyFeed(agent *MomentumAgent, topic string) *RallyFeed {
	return &RallyFeed{agent: agent, topic: topic}
}

func (f *RallyFeed) Topic() string { return f.topic }

func (f *RallyFeed) Handle(_ context.Context, value []byte) error {
	var envelope struct {
		RawHex string `json:"rawHex"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		return nil // not a message frame, skip
	}
	raw, err := hex.DecodeString(envelope.RawHex)
	if err != nil {
		return nil
	}
	if msg, ok := protocol.Decode(raw); ok {
		f.agent.observe(msg)
	}
	return nil
}
