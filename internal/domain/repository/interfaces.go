package repository

import (
	"context"
	"time"

	"ChumRoom/internal/domain/models"
	"ChumRoom/pkg/solana"
)

// LedgerClient is the read/write surface of the ledger the room protocol
// consumes: signature listing, transaction fetch, and submission.
type LedgerClient interface {
	GetSignaturesForAddress(ctx context.Context, addr solana.PublicKey, limit int) ([]solana.SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string) (*solana.ParsedTransaction, error)
	GetLatestBlockhash(ctx context.Context) (string, error)
	SendTransaction(ctx context.Context, txBase64 string) (string, error)
	GetBalance(ctx context.Context, addr solana.PublicKey) (uint64, error)
	Health(ctx context.Context) error
}

// WindowCache holds the last decoded scan window as an immutable snapshot.
type WindowCache interface {
	Fresh() ([]*models.ProtocolMessage, bool)
	Stale() []*models.ProtocolMessage
	Replace(msgs []*models.ProtocolMessage)
	Age() (time.Duration, bool)
	Len() int
}

// Publisher fans freshly decoded messages out to downstream consumers.
type Publisher interface {
	PublishBatch(ctx context.Context, msgs []*models.ProtocolMessage) error
	Close() error
}

// Archive appends decoded messages to long-term storage, best effort.
type Archive interface {
	StoreBatch(ctx context.Context, msgs []*models.ProtocolMessage) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational counters for scans and decoding.
type Metrics interface {
	RecordScan(duration time.Duration, decoded int)
	RecordMessage(msgType string)
	RecordError(kind string)
	RecordCacheResult(result string)
	RecordPosted(agent, msgType string)
}
