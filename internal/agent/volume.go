package agent

import (
	"context"
	"math/rand"
	"time"

	"ChumRoom/internal/domain/models"
	"ChumRoom/internal/protocol"
	"ChumRoom/pkg/logger"
)

// VolumeAgent posts alpha chatter about tokens it "watches": an ALPHA
// every tick, a SIGNAL half the time, and occasionally opens a RALLY.
type VolumeAgent struct {
	poster  *Poster
	agentID uint16
	rng     *rand.Rand
	logger  *logger.Logger

	nextRally uint16
}

// NewVolumeAgent creates the volume behavior. Rally ids count up from a
// per-agent base so concurrent agents do not collide in practice.
func NewVolumeAgent(poster *Poster, agentID uint16, seed int64, log *logger.Logger) *VolumeAgent {
	return &VolumeAgent{
		poster:    poster,
		agentID:   agentID,
		rng:       rand.New(rand.NewSource(seed)),
		logger:    log,
		nextRally: 200,
	}
}

// Run ticks until ctx ends.
func (a *VolumeAgent) Run(ctx context.Context, interval time.Duration) {
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
func (a *VolumeAgent) Tick(ctx context.Context) {
	token := randomToken(a.rng)

	subtype := models.AlphaDexListing
	if a.rng.Intn(2) == 0 {
		subtype = models.AlphaSocialSurge
	}
	amount := uint64(a.rng.Int63n(1_000_000_000_000))
	if _, err := a.poster.Post(ctx, protocol.EncodeAlpha(a.agentID, subtype, token.Mint, &amount)); err != nil {
		a.logger.Warn("alpha post failed", logger.Error(err))
	}

	if a.rng.Intn(100) < 50 {
		conf := uint8(60 + a.rng.Intn(31))
		dir := models.DirectionBuy
		if a.rng.Intn(2) == 1 {
			dir = models.DirectionSell
		}
		if _, err := a.poster.Post(ctx, protocol.EncodeSignal(a.agentID, token.Mint, dir, &conf)); err != nil {
			a.logger.Warn("signal post failed", logger.Error(err))
		}
	}

	if a.rng.Intn(100) < 20 {
		entry := uint64(100_000 + a.rng.Int63n(100_000_000-100_000))
		dir := models.DirectionBuy
		target := entry + entry/2
		if a.rng.Intn(2) == 1 {
			dir = models.DirectionSell
			target = entry - entry/3
		}
		id := a.nextRally
		a.nextRally++
		if _, err := a.poster.Post(ctx, protocol.EncodeRally(a.agentID, id, token.Mint, dir, entry, target)); err != nil {
			a.logger.Warn("rally post failed", logger.Error(err))
		}
	}
}
