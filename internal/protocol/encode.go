package protocol

import (
	"encoding/binary"

	"ChumRoom/internal/domain/models"
	"ChumRoom/pkg/solana"
)

// Builders for each message type. Each produces bytes that Decode maps back
// to an equal logical payload.

func header(t models.MsgType, agentID uint16) []byte {
	b := make([]byte, 0, HeaderLen)
	b = append(b, Magic[0], Magic[1], byte(t))
	return binary.BigEndian.AppendUint16(b, agentID)
}

func directionByte(d models.Direction) byte {
	if d == models.DirectionBuy {
		return 0x01
	}
	return 0x02
}

// EncodeAlpha builds an ALPHA message. A nil amount omits the trailing
// 8-byte field entirely, which decodes back to "no amount".
func EncodeAlpha(agentID uint16, subtype models.AlphaSubtype, mint solana.PublicKey, amount *uint64) []byte {
	b := header(models.MsgAlpha, agentID)
	b = append(b, byte(subtype))
	b = append(b, mint[:]...)
	if amount != nil {
		b = binary.BigEndian.AppendUint64(b, *amount)
	}
	return b
}

// EncodeSignal builds a SIGNAL message. A nil confidence omits the byte.
func EncodeSignal(agentID uint16, mint solana.PublicKey, direction models.Direction, confidence *uint8) []byte {
	b := header(models.MsgSignal, agentID)
	b = append(b, mint[:]...)
	b = append(b, directionByte(direction))
	if confidence != nil {
		b = append(b, *confidence)
	}
	return b
}

// EncodeRally builds a RALLY message announcing a trade call.
func EncodeRally(agentID, rallyID uint16, mint solana.PublicKey, action models.Direction, entryPrice, targetPrice uint64) []byte {
	b := header(models.MsgRally, agentID)
	b = binary.BigEndian.AppendUint16(b, rallyID)
	b = append(b, mint[:]...)
	b = append(b, directionByte(action))
	b = binary.BigEndian.AppendUint64(b, entryPrice)
	b = binary.BigEndian.AppendUint64(b, targetPrice)
	return b
}

// EncodeExit builds an EXIT message closing a rally.
func EncodeExit(agentID, rallyID uint16, reason models.ExitReason) []byte {
	b := header(models.MsgExit, agentID)
	b = binary.BigEndian.AppendUint16(b, rallyID)
	switch reason {
	case models.ReasonTargetHit, models.ReasonStopLoss:
		b = append(b, byte(reason))
	default:
		b = append(b, byte(models.ReasonManual))
	}
	return b
}

// EncodeResult builds a RESULT message. Pnl is the unsigned magnitude; the
// sign is implied by outcome and never goes on the wire.
func EncodeResult(agentID, rallyID uint16, outcome models.Outcome, pnl uint64) []byte {
	b := header(models.MsgResult, agentID)
	b = binary.BigEndian.AppendUint16(b, rallyID)
	if outcome == models.OutcomeWin {
		b = append(b, 0x01)
	} else {
		b = append(b, 0x02)
	}
	return binary.BigEndian.AppendUint64(b, pnl)
}
