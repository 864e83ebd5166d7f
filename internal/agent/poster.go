package agent

import (
	"context"
	"fmt"

	"ChumRoom/internal/domain/repository"
	"ChumRoom/internal/protocol"
	"ChumRoom/internal/service/memo"
	"ChumRoom/pkg/logger"
	"ChumRoom/pkg/solana"
)

// Poster signs and submits protocol messages to the room address. One
// poster per agent key; behaviors share it for every message they emit.
type Poster struct {
	ledger  repository.LedgerClient
	key     solana.PrivateKey
	room    solana.PublicKey
	name    string
	metrics repository.Metrics
	logger  *logger.Logger
}

// NewPoster creates a poster for the given agent key.
func NewPoster(ledger repository.LedgerClient, key solana.PrivateKey, room solana.PublicKey,
	name string, metrics repository.Metrics, log *logger.Logger) *Poster {
	return &Poster{ledger: ledger, key: key, room: room, name: name, metrics: metrics, logger: log}
}

// Balance returns the signer account balance in lamports.
func (p *Poster) Balance(ctx context.Context) (uint64, error) {
	return p.ledger.GetBalance(ctx, p.key.PublicKey())
}

// Post wraps raw protocol bytes in a memo transaction and submits it.
func (p *Poster) Post(ctx context.Context, raw []byte) (string, error) {
	blockhash, err := p.ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("blockhash: %w", err)
	}

	ixs := memo.NoteInstructions(p.key.PublicKey(), p.room, raw)
	txBase64, err := solana.BuildTransaction(p.key, blockhash, ixs...)
	if err != nil {
		return "", fmt.Errorf("build tx: %w", err)
	}

	sig, err := p.ledger.SendTransaction(ctx, txBase64)
	if err != nil {
		return "", fmt.Errorf("send tx: %w", err)
	}

	msgType := "UNKNOWN"
	if m, ok := protocol.Decode(raw); ok {
		msgType = m.MsgTypeName
	}
	p.metrics.RecordPosted(p.name, msgType)
	p.logger.Info("posted message",
		logger.String("agent", p.name),
		logger.String("msgType", msgType),
		logger.String("signature", sig))
	return sig, nil
}
