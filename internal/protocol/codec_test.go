package protocol

import (
	"bytes"
	"testing"

	"ChumRoom/internal/domain/models"
	"ChumRoom/pkg/solana"
)

var testMint = solana.MustPublicKey("So11111111111111111111111111111111111111112")

func u64(v uint64) *uint64 { return &v }
func u8(v uint8) *uint8    { return &v }

func decodeOK(t *testing.T, data []byte) *models.ProtocolMessage {
	t.Helper()
	msg, ok := Decode(data)
	if !ok {
		t.Fatalf("expected decodable message, got rejection for %x", data)
	}
	return msg
}

func TestAlphaRoundTrip(t *testing.T) {
	data := EncodeAlpha(1, models.AlphaWhaleMove, testMint, u64(500_000_000_000))
	msg := decodeOK(t, data)

	if msg.MsgType != models.MsgAlpha || msg.MsgTypeName != "ALPHA" {
		t.Fatalf("type = %s", msg.MsgTypeName)
	}
	if msg.AgentID != 1 || msg.AgentName != "CHUM-PRIME" {
		t.Fatalf("agent = %d %s", msg.AgentID, msg.AgentName)
	}
	p, ok := msg.Payload.(*models.AlphaPayload)
	if !ok {
		t.Fatalf("payload type %T", msg.Payload)
	}
	if p.Subtype != models.AlphaWhaleMove || p.Subtype.String() != "WHALE_MOVE" {
		t.Fatalf("subtype = %v", p.Subtype)
	}
	if p.TokenMint != testMint.String() {
		t.Fatalf("mint = %s", p.TokenMint)
	}
	if p.Amount == nil || *p.Amount != 500_000_000_000 {
		t.Fatalf("amount = %v", p.Amount)
	}
}

func TestAlphaWithoutAmount(t *testing.T) {
	data := EncodeAlpha(2, models.AlphaDexListing, testMint, nil)
	p := decodeOK(t, data).Payload.(*models.AlphaPayload)
	if p.Amount != nil {
		t.Fatalf("expected absent amount, got %d", *p.Amount)
	}
	if p.TokenMint != testMint.String() {
		t.Fatalf("mint = %s", p.TokenMint)
	}
}

func TestSignalRoundTrip(t *testing.T) {
	data := EncodeSignal(3, testMint, models.DirectionBuy, u8(87))
	p := decodeOK(t, data).Payload.(*models.SignalPayload)
	if p.Direction != models.DirectionBuy {
		t.Fatalf("direction = %v", p.Direction)
	}
	if p.Confidence == nil || *p.Confidence != 87 {
		t.Fatalf("confidence = %v", p.Confidence)
	}

	data = EncodeSignal(3, testMint, models.DirectionSell, nil)
	p = decodeOK(t, data).Payload.(*models.SignalPayload)
	if p.Direction != models.DirectionSell {
		t.Fatalf("direction = %v", p.Direction)
	}
	if p.Confidence != nil {
		t.Fatalf("expected absent confidence")
	}
}

func TestRallyRoundTrip(t *testing.T) {
	data := EncodeRally(2, 201, testMint, models.DirectionBuy, 900_000, 1_350_000)
	p := decodeOK(t, data).Payload.(*models.RallyPayload)
	if p.RallyID != 201 || p.Action != models.DirectionBuy {
		t.Fatalf("rally = %+v", p)
	}
	if p.EntryPrice != 900_000 || p.TargetPrice != 1_350_000 {
		t.Fatalf("prices = %d %d", p.EntryPrice, p.TargetPrice)
	}
	if p.TokenMint != testMint.String() {
		t.Fatalf("mint = %s", p.TokenMint)
	}
}

func TestExitRoundTrip(t *testing.T) {
	for _, reason := range []models.ExitReason{models.ReasonTargetHit, models.ReasonStopLoss, models.ReasonManual} {
		p := decodeOK(t, EncodeExit(3, 7, reason)).Payload.(*models.ExitPayload)
		if p.RallyID != 7 || p.Reason != reason {
			t.Fatalf("exit = %+v, want reason %v", p, reason)
		}
	}
}

func TestResultRoundTrip(t *testing.T) {
	p := decodeOK(t, EncodeResult(3, 7, models.OutcomeWin, 450_000)).Payload.(*models.ResultPayload)
	if p.RallyID != 7 || p.Outcome != models.OutcomeWin || p.Pnl != 450_000 {
		t.Fatalf("result = %+v", p)
	}

	// Full unsigned 64-bit range must survive the wire.
	huge := uint64(1)<<63 + 12345
	p = decodeOK(t, EncodeResult(3, 8, models.OutcomeLoss, huge)).Payload.(*models.ResultPayload)
	if p.Pnl != huge {
		t.Fatalf("pnl = %d, want %d", p.Pnl, huge)
	}
}

func TestMagicRejection(t *testing.T) {
	data := EncodeSignal(1, testMint, models.DirectionBuy, nil)
	data[0] = 0x58
	if _, ok := Decode(data); ok {
		t.Fatalf("wrong magic must be rejected")
	}
	if _, ok := Decode([]byte{0x43, 0x48, 0x01}); ok {
		t.Fatalf("below-minimum length must be rejected")
	}
	if _, ok := Decode(nil); ok {
		t.Fatalf("empty input must be rejected")
	}
}

func TestRallyTruncationTolerance(t *testing.T) {
	full := EncodeRally(2, 100, testMint, models.DirectionSell, 900_000, 1_350_000)
	p := decodeOK(t, full[:len(full)-8]).Payload.(*models.RallyPayload)
	if p.RallyID != 100 || p.Action != models.DirectionSell || p.EntryPrice != 900_000 {
		t.Fatalf("truncated rally = %+v", p)
	}
	if p.TargetPrice != 0 {
		t.Fatalf("missing target must decode to zero, got %d", p.TargetPrice)
	}

	// Header-only payloads decode to empty variants, never errors.
	p = decodeOK(t, full[:HeaderLen]).Payload.(*models.RallyPayload)
	if p.RallyID != 0 || p.TokenMint != "" {
		t.Fatalf("empty rally = %+v", p)
	}
}

func TestUnknownTypeKeepsHeader(t *testing.T) {
	msg := decodeOK(t, []byte{0x43, 0x48, 0x7e, 0x00, 0x09, 0xff})
	if msg.Payload != nil {
		t.Fatalf("unknown type must leave payload opaque")
	}
	if msg.AgentID != 9 || msg.AgentName != "AGENT-9" {
		t.Fatalf("agent = %d %s", msg.AgentID, msg.AgentName)
	}
	if msg.MsgTypeName != "UNKNOWN(126)" {
		t.Fatalf("type name = %s", msg.MsgTypeName)
	}
}

func TestRawBytesPreserved(t *testing.T) {
	data := EncodeExit(1, 42, models.ReasonStopLoss)
	msg := decodeOK(t, data)
	if !bytes.Equal(msg.Raw, data) {
		t.Fatalf("raw bytes not preserved")
	}
	if msg.RawHex == "" || msg.RawHex[:4] != "4348" {
		t.Fatalf("raw hex = %s", msg.RawHex)
	}
}
