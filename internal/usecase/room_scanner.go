package usecase

import (
	"context"
	"fmt"
	"time"

	"ChumRoom/internal/domain/models"
	"ChumRoom/internal/domain/repository"
	"ChumRoom/internal/service/memo"
	"ChumRoom/internal/service/ratelimit"
	"ChumRoom/pkg/logger"
	"ChumRoom/pkg/solana"
)

const (
	// DefaultLimit is the window size used when the caller does not ask
	// for a specific one.
	DefaultLimit = 50

	// MaxSignatureFetch caps how many signatures one scan may list.
	MaxSignatureFetch = 100

	throttleKey  = "tx_fetch"
	throttlePoll = 20 * time.Millisecond
)

// RoomScanner turns the room address's recent transaction history into a
// window of decoded protocol messages. Every read goes through the window
// cache: a fresh snapshot short-circuits the scan, a failed scan falls
// back to the last good snapshot, and a reader never sees an error, only
// a possibly empty window.
type RoomScanner struct {
	ledger  repository.LedgerClient
	cache   repository.WindowCache
	pub     repository.Publisher
	archive repository.Archive
	metrics repository.Metrics
	limiter *ratelimit.Limiter
	logger  *logger.Logger

	room     solana.PublicKey
	rpcBurst float64
	rpcRate  float64
}

// ScannerOption configures RoomScanner.
type ScannerOption func(*RoomScanner)

// WithPublisher attaches a best-effort fan-out sink for decoded batches.
func WithPublisher(pub repository.Publisher) ScannerOption {
	return func(s *RoomScanner) { s.pub = pub }
}

// WithArchive attaches a best-effort long-term store for decoded batches.
func WithArchive(archive repository.Archive) ScannerOption {
	return func(s *RoomScanner) { s.archive = archive }
}

// WithFetchRate throttles transaction fetches to roughly rate per second
// with the given burst.
func WithFetchRate(burst, rate float64) ScannerOption {
	return func(s *RoomScanner) {
		s.rpcBurst = burst
		s.rpcRate = rate
	}
}

// NewRoomScanner creates a scanner for the given room address.
func NewRoomScanner(
	ledger repository.LedgerClient,
	cache repository.WindowCache,
	metrics repository.Metrics,
	log *logger.Logger,
	room solana.PublicKey,
	opts ...ScannerOption,
) *RoomScanner {
	s := &RoomScanner{
		ledger:   ledger,
		cache:    cache,
		metrics:  metrics,
		limiter:  ratelimit.New(),
		logger:   log,
		room:     room,
		rpcBurst: 10,
		rpcRate:  10,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadMessages returns up to limit decoded messages, newest first. Scan
// failures are absorbed: the caller gets the last good window, or an
// empty one when no scan ever succeeded.
func (s *RoomScanner) ReadMessages(ctx context.Context, limit int) []*models.ProtocolMessage {
	if limit <= 0 {
		limit = DefaultLimit
	}

	if msgs, ok := s.cache.Fresh(); ok {
		s.metrics.RecordCacheResult("hit")
		return trim(msgs, limit)
	}

	msgs, err := s.scan(ctx, limit)
	if err != nil {
		s.logger.Error("room scan failed, serving stale window", logger.Error(err))
		s.metrics.RecordError("scan")
		s.metrics.RecordCacheResult("stale")
		stale := trim(s.cache.Stale(), limit)
		if stale == nil {
			stale = []*models.ProtocolMessage{}
		}
		return stale
	}

	s.metrics.RecordCacheResult("miss")
	s.cache.Replace(msgs)
	s.fanout(ctx, msgs)
	return trim(msgs, limit)
}

// Refresh rescans unconditionally and replaces the cached window on
// success. Used by the log watcher when new room activity is observed.
func (s *RoomScanner) Refresh(ctx context.Context) {
	msgs, err := s.scan(ctx, DefaultLimit)
	if err != nil {
		s.logger.Warn("room refresh failed", logger.Error(err))
		s.metrics.RecordError("refresh")
		return
	}
	s.cache.Replace(msgs)
	s.fanout(ctx, msgs)
}

// Health reports reachability of the ledger plus the cache state.
func (s *RoomScanner) Health(ctx context.Context) *models.RoomHealth {
	h := &models.RoomHealth{CachedLen: s.cache.Len()}
	if age, ok := s.cache.Age(); ok {
		h.CacheAge = int64(age.Seconds())
	} else {
		h.CacheAge = -1
	}
	if err := s.ledger.Health(ctx); err != nil {
		s.logger.Warn("ledger health check failed", logger.Error(err))
	} else {
		h.LedgerOK = true
	}
	return h
}

// scan lists recent signatures and decodes the protocol messages behind
// them. A single bad transaction is skipped, never fails the whole scan.
func (s *RoomScanner) scan(ctx context.Context, limit int) ([]*models.ProtocolMessage, error) {
	start := time.Now()

	fetch := limit * 2
	if fetch > MaxSignatureFetch {
		fetch = MaxSignatureFetch
	}
	sigs, err := s.ledger.GetSignaturesForAddress(ctx, s.room, fetch)
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}

	msgs := make([]*models.ProtocolMessage, 0, limit)
	for i := range sigs {
		if len(msgs) >= limit {
			break
		}
		sig := &sigs[i]
		if sig.Failed() {
			continue
		}
		if err := s.throttle(ctx); err != nil {
			return nil, err
		}

		tx, err := s.ledger.GetTransaction(ctx, sig.Signature)
		if err != nil {
			s.logger.Warn("transaction fetch failed",
				logger.String("signature", sig.Signature), logger.Error(err))
			s.metrics.RecordError("tx_fetch")
			continue
		}
		if tx == nil || tx.Meta.Failed() {
			continue
		}

		msg, ok := memo.Extract(tx)
		if !ok {
			continue
		}
		msg.Signature = sig.Signature
		msg.BlockTime = sig.Time()
		if msg.BlockTime == 0 && tx.BlockTime != nil {
			msg.BlockTime = *tx.BlockTime
		}
		s.metrics.RecordMessage(msg.MsgTypeName)
		msgs = append(msgs, msg)
	}

	s.metrics.RecordScan(time.Since(start), len(msgs))
	return msgs, nil
}

func (s *RoomScanner) throttle(ctx context.Context) error {
	for !s.limiter.Allow(throttleKey, s.rpcBurst, s.rpcRate) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(throttlePoll):
		}
	}
	return nil
}

// fanout hands the freshly decoded window to the optional downstream
// sinks. Failures are logged and dropped; reads must not depend on them.
func (s *RoomScanner) fanout(ctx context.Context, msgs []*models.ProtocolMessage) {
	if len(msgs) == 0 {
		return
	}
	if s.pub != nil {
		if err := s.pub.PublishBatch(ctx, msgs); err != nil {
			s.logger.Warn("publish batch failed", logger.Error(err))
			s.metrics.RecordError("publish")
		}
	}
	if s.archive != nil {
		if err := s.archive.StoreBatch(ctx, msgs); err != nil {
			s.logger.Warn("archive batch failed", logger.Error(err))
			s.metrics.RecordError("archive")
		}
	}
}

func trim(msgs []*models.ProtocolMessage, limit int) []*models.ProtocolMessage {
	if len(msgs) > limit {
		return msgs[:limit]
	}
	return msgs
}
