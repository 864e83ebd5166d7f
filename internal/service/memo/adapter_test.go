package memo

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"

	"ChumRoom/internal/domain/models"
	"ChumRoom/internal/protocol"
	"ChumRoom/pkg/solana"
)

var (
	testMint   = solana.MustPublicKey("So11111111111111111111111111111111111111112")
	testSender = "7nYabs9dUhvxYwdTnrWVBL9MYviKSfrEbdWCUbcarqKv"
)

func parsedTx(t *testing.T, sender string, instructions []map[string]any) *solana.ParsedTransaction {
	t.Helper()
	blob := map[string]any{
		"meta": map[string]any{"err": nil},
		"transaction": map[string]any{
			"message": map[string]any{
				"accountKeys":  []map[string]any{{"pubkey": sender, "signer": true, "writable": true}},
				"instructions": instructions,
			},
		},
	}
	b, err := json.Marshal(blob)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	var tx solana.ParsedTransaction
	if err := json.Unmarshal(b, &tx); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return &tx
}

func memoIx(fields map[string]any) map[string]any {
	ix := map[string]any{"programId": solana.MemoProgramID.String()}
	for k, v := range fields {
		ix[k] = v
	}
	return ix
}

func TestExtractHexParsedMemo(t *testing.T) {
	conf := uint8(80)
	raw := protocol.EncodeSignal(2, testMint, models.DirectionBuy, &conf)
	tx := parsedTx(t, testSender, []map[string]any{
		memoIx(map[string]any{"parsed": hex.EncodeToString(raw)}),
	})

	msg, ok := Extract(tx)
	if !ok {
		t.Fatalf("expected extraction")
	}
	if msg.Sender != testSender {
		t.Fatalf("sender = %s", msg.Sender)
	}
	p := msg.Payload.(*models.SignalPayload)
	if p.Direction != models.DirectionBuy || p.Confidence == nil || *p.Confidence != 80 {
		t.Fatalf("payload = %+v", p)
	}
}

func TestExtractRawTextMemo(t *testing.T) {
	// A memo whose parsed string is the protocol bytes themselves: not
	// valid hex ('H' is no hex digit), so the UTF-8 strategy applies.
	raw := protocol.EncodeExit(1, 7, models.ReasonManual)
	tx := parsedTx(t, testSender, []map[string]any{
		memoIx(map[string]any{"parsed": string(raw)}),
	})

	msg, ok := Extract(tx)
	if !ok {
		t.Fatalf("expected extraction")
	}
	p := msg.Payload.(*models.ExitPayload)
	if p.RallyID != 7 || p.Reason != models.ReasonManual {
		t.Fatalf("payload = %+v", p)
	}
}

func TestExtractBase64DataMemo(t *testing.T) {
	raw := protocol.EncodeRally(2, 200, testMint, models.DirectionSell, 100, 200)
	tx := parsedTx(t, testSender, []map[string]any{
		memoIx(map[string]any{"data": base64.StdEncoding.EncodeToString(raw)}),
	})

	msg, ok := Extract(tx)
	if !ok {
		t.Fatalf("expected extraction")
	}
	if msg.Payload.(*models.RallyPayload).RallyID != 200 {
		t.Fatalf("payload = %+v", msg.Payload)
	}
}

func TestExtractSkipsUndecodable(t *testing.T) {
	raw := protocol.EncodeExit(1, 9, models.ReasonStopLoss)
	tx := parsedTx(t, testSender, []map[string]any{
		// Wrong program: ignored even though the payload would decode.
		{"programId": solana.SystemProgramID.String(), "parsed": hex.EncodeToString(raw)},
		// Memo that is not a protocol message.
		memoIx(map[string]any{"parsed": "gm everyone"}),
		// Memo with broken base64 data.
		memoIx(map[string]any{"data": "!!!not-base64!!!"}),
		// The real one, after all the noise.
		memoIx(map[string]any{"parsed": hex.EncodeToString(raw)}),
	})

	msg, ok := Extract(tx)
	if !ok {
		t.Fatalf("expected extraction despite noise instructions")
	}
	if msg.Payload.(*models.ExitPayload).RallyID != 9 {
		t.Fatalf("payload = %+v", msg.Payload)
	}
}

func TestExtractNoMemo(t *testing.T) {
	tx := parsedTx(t, testSender, []map[string]any{
		{"programId": solana.SystemProgramID.String(), "data": "AAAA"},
	})
	if _, ok := Extract(tx); ok {
		t.Fatalf("expected no extraction")
	}
}

func TestNoteInstructionsRoundTrip(t *testing.T) {
	sender := testMint // any valid key works here
	room := solana.MustPublicKey("chumAA7QjpFzpEtZ2XezM8onHrt8of4w35p3VMS4C6T")
	raw := protocol.EncodeAlpha(2, models.AlphaSocialSurge, testMint, nil)

	ixs := NoteInstructions(sender, room, raw)
	if len(ixs) != 2 {
		t.Fatalf("expected memo + reference transfer, got %d instructions", len(ixs))
	}
	if ixs[0].ProgramID != solana.MemoProgramID {
		t.Fatalf("first instruction must be the memo")
	}

	// The memo carries hex text that normalizes back to the same bytes.
	decoded, err := hex.DecodeString(string(ixs[0].Data))
	if err != nil {
		t.Fatalf("memo data is not hex: %v", err)
	}
	msg, ok := protocol.Decode(decoded)
	if !ok {
		t.Fatalf("memo bytes must decode")
	}
	if msg.Payload.(*models.AlphaPayload).Subtype != models.AlphaSocialSurge {
		t.Fatalf("payload = %+v", msg.Payload)
	}

	if ixs[1].ProgramID != solana.SystemProgramID {
		t.Fatalf("second instruction must be the system transfer")
	}
	if ixs[1].Accounts[1].PublicKey != room {
		t.Fatalf("transfer must reference the room address")
	}
}
