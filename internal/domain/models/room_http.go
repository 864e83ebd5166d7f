package models

// Requests for room HTTP endpoints. Defined in domain for consistency and reuse.

type RoomMessagesRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=100"`
}

type RoomStatsRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=100"`
}

// RoomHealth reports ledger reachability and cache freshness for /health.
type RoomHealth struct {
	LedgerOK  bool  `json:"ledgerOk"`
	CacheAge  int64 `json:"cacheAgeSeconds"`
	CachedLen int   `json:"cachedMessages"`
}
