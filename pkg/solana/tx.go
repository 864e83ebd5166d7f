package solana

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// AccountMeta describes how an instruction touches an account.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation inside a transaction.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// TransferInstruction builds a system-program lamport transfer. A
// zero-lamport transfer is valid and is used purely as an address reference.
func TransferInstruction(from, to PublicKey, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 2) // transfer discriminant
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{PublicKey: from, IsSigner: true, IsWritable: true},
			{PublicKey: to, IsWritable: true},
		},
		Data: data,
	}
}

// MemoInstruction builds a memo-program note carrying opaque data.
func MemoInstruction(signer PublicKey, data []byte) Instruction {
	return Instruction{
		ProgramID: MemoProgramID,
		Accounts: []AccountMeta{
			{PublicKey: signer, IsSigner: true, IsWritable: true},
		},
		Data: data,
	}
}

// BuildTransaction assembles, signs, and base64-serializes a single-signer
// legacy transaction ready for SendTransaction.
func BuildTransaction(signer PrivateKey, recentBlockhash string, ixs ...Instruction) (string, error) {
	payer := signer.PublicKey()
	keys, header := compileAccounts(payer, ixs)

	blockhash, err := base58.Decode(recentBlockhash)
	if err != nil {
		return "", fmt.Errorf("decode blockhash: %w", err)
	}
	if len(blockhash) != 32 {
		return "", fmt.Errorf("blockhash must be 32 bytes, got %d", len(blockhash))
	}

	index := make(map[PublicKey]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}

	var msg bytes.Buffer
	msg.Write(header[:])
	writeShortvecLen(&msg, len(keys))
	for _, k := range keys {
		msg.Write(k[:])
	}
	msg.Write(blockhash)
	writeShortvecLen(&msg, len(ixs))
	for _, ix := range ixs {
		msg.WriteByte(byte(index[ix.ProgramID]))
		writeShortvecLen(&msg, len(ix.Accounts))
		for _, a := range ix.Accounts {
			msg.WriteByte(byte(index[a.PublicKey]))
		}
		writeShortvecLen(&msg, len(ix.Data))
		msg.Write(ix.Data)
	}

	sig := signer.Sign(msg.Bytes())

	var tx bytes.Buffer
	writeShortvecLen(&tx, 1)
	tx.Write(sig)
	tx.Write(msg.Bytes())
	return base64.StdEncoding.EncodeToString(tx.Bytes()), nil
}

// compileAccounts orders the account list per the message layout: writable
// signers, readonly signers, writable non-signers, then readonly
// non-signers (program ids land here). Returns the 3-byte header.
func compileAccounts(payer PublicKey, ixs []Instruction) ([]PublicKey, [3]byte) {
	type flags struct{ signer, writable bool }
	metas := map[PublicKey]*flags{
		payer: {signer: true, writable: true},
	}
	order := []PublicKey{payer}

	touch := func(pk PublicKey, signer, writable bool) {
		f, ok := metas[pk]
		if !ok {
			f = &flags{}
			metas[pk] = f
			order = append(order, pk)
		}
		f.signer = f.signer || signer
		f.writable = f.writable || writable
	}
	for _, ix := range ixs {
		for _, a := range ix.Accounts {
			touch(a.PublicKey, a.IsSigner, a.IsWritable)
		}
		touch(ix.ProgramID, false, false)
	}

	var keys []PublicKey
	appendClass := func(signer, writable bool) int {
		n := 0
		for _, pk := range order {
			f := metas[pk]
			if f.signer == signer && f.writable == writable {
				keys = append(keys, pk)
				n++
			}
		}
		return n
	}
	signedWritable := appendClass(true, true)
	signedReadonly := appendClass(true, false)
	appendClass(false, true)
	unsignedReadonly := appendClass(false, false)

	var header [3]byte
	header[0] = byte(signedWritable + signedReadonly)
	header[1] = byte(signedReadonly)
	header[2] = byte(unsignedReadonly)
	return keys, header
}

// writeShortvecLen writes a compact-u16 length prefix.
func writeShortvecLen(buf *bytes.Buffer, n int) {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}
