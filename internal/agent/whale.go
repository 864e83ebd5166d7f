package agent

import (
	"context"
	"math/rand"
	"time"

	"ChumRoom/internal/domain/models"
	"ChumRoom/internal/protocol"
	"ChumRoom/pkg/logger"
)

const lamportsPerSol = 1_000_000_000

// WhaleAgent posts large-movement alerts: an ALPHA WHALE_MOVE every tick
// for a random known token, with a follow-up SIGNAL 40% of the time.
type WhaleAgent struct {
	poster  *Poster
	agentID uint16
	minSol  int64
	rng     *rand.Rand
	logger  *logger.Logger
}

// NewWhaleAgent creates the whale behavior. minSol is the smallest move
// it reports, in whole SOL; amounts range up to ten times that.
func NewWhaleAgent(poster *Poster, agentID uint16, seed, minSol int64, log *logger.Logger) *WhaleAgent {
	if minSol <= 0 {
		minSol = 500
	}
	return &WhaleAgent{
		poster:  poster,
		agentID: agentID,
		minSol:  minSol,
		rng:     rand.New(rand.NewSource(seed)),
		logger:  log,
	}
}

// Run logs the signer balance once, then ticks until ctx ends.
func (a *WhaleAgent) Run(ctx context.Context, interval time.Duration) {
	if bal, err := a.poster.Balance(ctx); err != nil {
		a.logger.Warn("balance check failed", logger.Error(err))
	} else {
		a.logger.Info("agent funded", logger.Uint64("lamports", bal))
	}

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
func (a *WhaleAgent) Tick(ctx context.Context) {
	token := randomToken(a.rng)

	sol := a.minSol + a.rng.Int63n(a.minSol*9+1)
	amount := uint64(sol) * lamportsPerSol
	if _, err := a.poster.Post(ctx, protocol.EncodeAlpha(a.agentID, models.AlphaWhaleMove, token.Mint, &amount)); err != nil {
		a.logger.Warn("alpha post failed", logger.Error(err))
	}

	if a.rng.Intn(100) < 40 {
		conf := uint8(70 + a.rng.Intn(26))
		dir := models.DirectionSell
		if a.rng.Intn(100) < 70 {
			dir = models.DirectionBuy
		}
		if _, err := a.poster.Post(ctx, protocol.EncodeSignal(a.agentID, token.Mint, dir, &conf)); err != nil {
			a.logger.Warn("signal post failed", logger.Error(err))
		}
	}
}
