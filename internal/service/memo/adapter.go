// Package memo maps protocol bytes to and from the carrier transaction.
//
// Producer side: protocol bytes are hex-encoded into a memo instruction
// (the memo field carries text, not arbitrary binary) and paired with a
// zero-lamport transfer to the room address so the transaction shows up in
// the room's address-scoped history.
//
// Consumer side: the RPC surfaces memo payloads in several shapes depending
// on how it parsed the instruction; an ordered list of normalization
// strategies turns whichever shape arrived back into raw bytes.
package memo

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"

	"ChumRoom/internal/domain/models"
	"ChumRoom/internal/protocol"
	"ChumRoom/pkg/solana"
)

// NoteInstructions wraps raw protocol bytes as the instruction pair posted
// to the ledger: the hex-encoded memo plus the room reference transfer.
func NoteInstructions(sender, room solana.PublicKey, raw []byte) []solana.Instruction {
	return []solana.Instruction{
		solana.MemoInstruction(sender, []byte(hex.EncodeToString(raw))),
		solana.TransferInstruction(sender, room, 0),
	}
}

// normalizer attempts to turn one RPC instruction shape into raw bytes,
// returning false when the shape does not apply.
type normalizer func(ix *solana.ParsedInstruction) ([]byte, bool)

var normalizers = []normalizer{
	fromParsedHex,
	fromParsedText,
	fromBase64Data,
}

// fromParsedHex handles a parsed memo string that is itself hex-encoded
// protocol bytes (the shape our own producer writes).
func fromParsedHex(ix *solana.ParsedInstruction) ([]byte, bool) {
	s, ok := parsedString(ix)
	if !ok {
		return nil, false
	}
	cleaned := strings.Join(strings.Fields(s), "")
	if cleaned == "" || len(cleaned)%2 != 0 {
		return nil, false
	}
	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, false
	}
	return raw, true
}

// fromParsedText falls back to the parsed memo string's UTF-8 bytes.
func fromParsedText(ix *solana.ParsedInstruction) ([]byte, bool) {
	s, ok := parsedString(ix)
	if !ok {
		return nil, false
	}
	return []byte(s), true
}

// fromBase64Data handles unparsed instruction data surfaced as base64.
func fromBase64Data(ix *solana.ParsedInstruction) ([]byte, bool) {
	if ix.Data == "" {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(ix.Data)
	if err != nil {
		return nil, false
	}
	return raw, true
}

func parsedString(ix *solana.ParsedInstruction) (string, bool) {
	if len(ix.Parsed) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(ix.Parsed, &s); err != nil {
		return "", false
	}
	return s, true
}

// Normalize runs the strategies in order and returns the byte sequence
// from the first one that applies.
func Normalize(ix *solana.ParsedInstruction) ([]byte, bool) {
	for _, n := range normalizers {
		if raw, ok := n(ix); ok {
			return raw, true
		}
	}
	return nil, false
}

// Extract scans a fetched transaction's instructions for a protocol memo
// and returns the first one that decodes. A transaction is expected to
// carry at most one protocol note; instructions that fail every decode
// attempt are skipped, never fatal.
func Extract(tx *solana.ParsedTransaction) (*models.ProtocolMessage, bool) {
	memoProgram := solana.MemoProgramID.String()
	for i := range tx.Transaction.Message.Instructions {
		ix := &tx.Transaction.Message.Instructions[i]
		if ix.ProgramID != memoProgram {
			continue
		}
		raw, ok := Normalize(ix)
		if !ok {
			continue
		}
		msg, ok := protocol.Decode(raw)
		if !ok {
			continue
		}
		msg.Sender = tx.FeePayer()
		return msg, true
	}
	return nil, false
}
