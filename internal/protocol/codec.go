// Package protocol implements the chum room binary wire format: a 5-byte
// header (2 magic bytes, 1 type tag, 2 agent-id bytes) followed by a
// type-specific payload, big-endian throughout. Decoding is deliberately
// truncation tolerant: a payload shorter than the full layout yields a
// partially-populated variant so that fields appended to the format later
// never break older readers.
package protocol

import (
	"encoding/binary"
	"encoding/hex"

	"ChumRoom/internal/domain/models"
	"ChumRoom/pkg/solana"
)

// Magic identifies protocol memos ("CH").
var Magic = [2]byte{0x43, 0x48}

// HeaderLen is the minimum length of a protocol message.
const HeaderLen = 5

// Decode parses raw memo bytes into a ProtocolMessage. The second return
// is false when the bytes are not a protocol message at all (too short or
// wrong magic); carrier context (signature, sender, block time) is left for
// the caller to fill in.
func Decode(data []byte) (*models.ProtocolMessage, bool) {
	if len(data) < HeaderLen {
		return nil, false
	}
	if data[0] != Magic[0] || data[1] != Magic[1] {
		return nil, false
	}

	msgType := models.MsgType(data[2])
	agentID := binary.BigEndian.Uint16(data[3:5])
	msg := &models.ProtocolMessage{
		MsgType:     msgType,
		MsgTypeName: msgType.String(),
		AgentID:     agentID,
		AgentName:   models.AgentLabel(agentID),
		RawHex:      hex.EncodeToString(data),
		Raw:         append([]byte(nil), data...),
	}

	payload := data[HeaderLen:]
	switch msgType {
	case models.MsgAlpha:
		msg.Payload = decodeAlpha(payload)
	case models.MsgSignal:
		msg.Payload = decodeSignal(payload)
	case models.MsgRally:
		msg.Payload = decodeRally(payload)
	case models.MsgExit:
		msg.Payload = decodeExit(payload)
	case models.MsgResult:
		msg.Payload = decodeResult(payload)
	default:
		// Unknown type tag: header still decodes, payload stays opaque.
	}
	return msg, true
}

func decodeAlpha(p []byte) *models.AlphaPayload {
	a := &models.AlphaPayload{}
	if len(p) < 1 {
		return a
	}
	a.Subtype = models.AlphaSubtype(p[0])
	if len(p) >= 33 {
		a.TokenMint = solana.RenderAddress(p[1:33])
	}
	if len(p) >= 41 {
		v := binary.BigEndian.Uint64(p[33:41])
		a.Amount = &v
	}
	return a
}

func decodeSignal(p []byte) *models.SignalPayload {
	s := &models.SignalPayload{}
	if len(p) < 33 {
		return s
	}
	s.TokenMint = solana.RenderAddress(p[0:32])
	s.Direction = directionFromByte(p[32])
	if len(p) >= 34 {
		conf := p[33]
		s.Confidence = &conf
	}
	return s
}

func decodeRally(p []byte) *models.RallyPayload {
	r := &models.RallyPayload{}
	if len(p) < 2 {
		return r
	}
	r.RallyID = binary.BigEndian.Uint16(p[0:2])
	if len(p) >= 34 {
		r.TokenMint = solana.RenderAddress(p[2:34])
	}
	if len(p) >= 35 {
		r.Action = directionFromByte(p[34])
	}
	if len(p) >= 43 {
		r.EntryPrice = binary.BigEndian.Uint64(p[35:43])
	}
	if len(p) >= 51 {
		r.TargetPrice = binary.BigEndian.Uint64(p[43:51])
	}
	return r
}

func decodeExit(p []byte) *models.ExitPayload {
	e := &models.ExitPayload{}
	if len(p) < 2 {
		return e
	}
	e.RallyID = binary.BigEndian.Uint16(p[0:2])
	if len(p) >= 3 {
		switch p[2] {
		case 0x01:
			e.Reason = models.ReasonTargetHit
		case 0x02:
			e.Reason = models.ReasonStopLoss
		default:
			e.Reason = models.ReasonManual
		}
	}
	return e
}

func decodeResult(p []byte) *models.ResultPayload {
	r := &models.ResultPayload{}
	if len(p) < 2 {
		return r
	}
	r.RallyID = binary.BigEndian.Uint16(p[0:2])
	if len(p) >= 3 {
		if p[2] == 0x01 {
			r.Outcome = models.OutcomeWin
		} else {
			r.Outcome = models.OutcomeLoss
		}
	}
	if len(p) >= 11 {
		r.Pnl = binary.BigEndian.Uint64(p[3:11])
	}
	return r
}

func directionFromByte(b byte) models.Direction {
	if b == 0x01 {
		return models.DirectionBuy
	}
	return models.DirectionSell
}
