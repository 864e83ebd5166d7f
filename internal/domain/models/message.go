package models

import "fmt"

// MsgType is the 1-byte message type tag carried in the protocol header.
type MsgType uint8

const (
	MsgAlpha  MsgType = 0x01
	MsgSignal MsgType = 0x02
	MsgRally  MsgType = 0x03
	MsgExit   MsgType = 0x04
	MsgResult MsgType = 0x05
)

// String returns the canonical display name for the type tag.
func (t MsgType) String() string {
	switch t {
	case MsgAlpha:
		return "ALPHA"
	case MsgSignal:
		return "SIGNAL"
	case MsgRally:
		return "RALLY"
	case MsgExit:
		return "EXIT"
	case MsgResult:
		return "RESULT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// AlphaSubtype is the 1-byte subtype tag of ALPHA messages.
type AlphaSubtype uint8

const (
	AlphaWhaleMove   AlphaSubtype = 0x01
	AlphaDexListing  AlphaSubtype = 0x02
	AlphaSocialSurge AlphaSubtype = 0x03
)

func (s AlphaSubtype) String() string {
	switch s {
	case AlphaWhaleMove:
		return "WHALE_MOVE"
	case AlphaDexListing:
		return "DEX_LISTING"
	case AlphaSocialSurge:
		return "SOCIAL_SURGE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

func (s AlphaSubtype) MarshalJSON() ([]byte, error) { return marshalEnum(s.String()) }

// Direction is a trade direction. The zero value means "not present"
// (a truncated payload ended before the direction byte).
type Direction uint8

const (
	DirectionBuy  Direction = 0x01
	DirectionSell Direction = 0x02
)

func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "BUY"
	case DirectionSell:
		return "SELL"
	default:
		return ""
	}
}

func (d Direction) MarshalJSON() ([]byte, error) { return marshalEnum(d.String()) }

// ExitReason is the 1-byte reason tag of EXIT messages. Zero means the
// reason byte was not present on the wire.
type ExitReason uint8

const (
	ReasonTargetHit ExitReason = 0x01
	ReasonStopLoss  ExitReason = 0x02
	ReasonManual    ExitReason = 0x03
)

func (r ExitReason) String() string {
	switch r {
	case ReasonTargetHit:
		return "TARGET_HIT"
	case ReasonStopLoss:
		return "STOP_LOSS"
	case ReasonManual:
		return "MANUAL"
	default:
		return ""
	}
}

func (r ExitReason) MarshalJSON() ([]byte, error) { return marshalEnum(r.String()) }

// Outcome is the 1-byte outcome tag of RESULT messages. Zero means not present.
type Outcome uint8

const (
	OutcomeWin  Outcome = 0x01
	OutcomeLoss Outcome = 0x02
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "WIN"
	case OutcomeLoss:
		return "LOSS"
	default:
		return ""
	}
}

func (o Outcome) MarshalJSON() ([]byte, error) { return marshalEnum(o.String()) }

func marshalEnum(s string) ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(`"` + s + `"`), nil
}

// Payload is the per-type variant of a decoded protocol message. The
// concrete type is fully determined by ProtocolMessage.MsgType; trailing
// fields may be zero when the wire payload was truncated.
type Payload interface {
	payload()
}

// AlphaPayload is a market-intelligence broadcast.
type AlphaPayload struct {
	Subtype   AlphaSubtype `json:"subtype"`
	TokenMint string       `json:"tokenMint,omitempty"`
	Amount    *uint64      `json:"amount,omitempty"`
}

// SignalPayload is a directional trade signal.
type SignalPayload struct {
	TokenMint  string    `json:"tokenMint,omitempty"`
	Direction  Direction `json:"direction,omitempty"`
	Confidence *uint8    `json:"confidence,omitempty"`
}

// RallyPayload announces a trade call with entry and target prices.
type RallyPayload struct {
	RallyID     uint16    `json:"rallyId"`
	TokenMint   string    `json:"tokenMint,omitempty"`
	Action      Direction `json:"action,omitempty"`
	EntryPrice  uint64    `json:"entryPrice"`
	TargetPrice uint64    `json:"targetPrice"`
}

// ExitPayload closes a previously announced rally.
type ExitPayload struct {
	RallyID uint16     `json:"rallyId"`
	Reason  ExitReason `json:"reason,omitempty"`
}

// ResultPayload reports the realized outcome of a closed rally. Pnl is the
// unsigned magnitude in lamports; the sign is implied by Outcome.
type ResultPayload struct {
	RallyID uint16  `json:"rallyId"`
	Outcome Outcome `json:"outcome,omitempty"`
	Pnl     uint64  `json:"pnlLamports"`
}

func (*AlphaPayload) payload()  {}
func (*SignalPayload) payload() {}
func (*RallyPayload) payload()  {}
func (*ExitPayload) payload()   {}
func (*ResultPayload) payload() {}

// ProtocolMessage is a single decoded room message together with its
// carrier-transaction context.
type ProtocolMessage struct {
	Signature   string  `json:"signature"`
	Sender      string  `json:"sender"`
	BlockTime   int64   `json:"blockTime"`
	MsgType     MsgType `json:"msgType"`
	MsgTypeName string  `json:"msgTypeName"`
	AgentID     uint16  `json:"agentId"`
	AgentName   string  `json:"agentName"`
	Payload     Payload `json:"decoded"`
	RawHex      string  `json:"rawHex"`

	// Raw keeps the undecoded bytes for diagnostics; not serialized.
	Raw []byte `json:"-"`
}

// RallyInfo is a currently-open trade call derived from a scan window.
type RallyInfo struct {
	RallyID     uint16    `json:"rallyId"`
	TokenMint   string    `json:"tokenMint"`
	Action      Direction `json:"action"`
	EntryPrice  uint64    `json:"entryPrice"`
	TargetPrice uint64    `json:"targetPrice"`
}

// AgentInfo is per-sender activity within a scan window.
type AgentInfo struct {
	Address      string `json:"address"`
	MessageCount int    `json:"messageCount"`
	LastSeen     int64  `json:"lastSeen"`
}

// RoomStats aggregates a scan window. It is recomputed from scratch on
// every call and never mutated incrementally.
type RoomStats struct {
	TotalMessages int         `json:"totalMessages"`
	UniqueAgents  int         `json:"uniqueAgents"`
	ActiveRallies []RallyInfo `json:"activeRallies"`
	AgentList     []AgentInfo `json:"agentList"`
}
