package solana

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size of an ed25519 account address.
const PublicKeyLength = 32

// PublicKey is a 32-byte ledger account address.
type PublicKey [PublicKeyLength]byte

// SystemProgramID is the native system program (all-zero key).
var SystemProgramID = PublicKey{}

// MemoProgramID is the SPL memo program carrying opaque note data.
var MemoProgramID = MustPublicKey("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

// PublicKeyFromBase58 parses a base58-encoded address.
func PublicKeyFromBase58(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode base58: %w", err)
	}
	if len(b) != PublicKeyLength {
		return pk, fmt.Errorf("public key must be %d bytes, got %d", PublicKeyLength, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// MustPublicKey parses a base58 address and panics on failure. For constants.
func MustPublicKey(s string) PublicKey {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PublicKeyFromBytes copies raw bytes into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeyLength {
		return pk, fmt.Errorf("public key must be %d bytes, got %d", PublicKeyLength, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

func (p PublicKey) String() string { return base58.Encode(p[:]) }

func (p PublicKey) Bytes() []byte { return append([]byte(nil), p[:]...) }

func (p PublicKey) IsZero() bool { return p == PublicKey{} }

// RenderAddress renders raw key bytes as a base58 address when they form a
// structurally valid identifier, falling back to hex. Never fails.
func RenderAddress(b []byte) string {
	if len(b) == PublicKeyLength {
		return base58.Encode(b)
	}
	return hex.EncodeToString(b)
}

// PrivateKey is an ed25519 signing key for a ledger account.
type PrivateKey ed25519.PrivateKey

// PrivateKeyFromBase58 parses a base58-encoded secret key. Both the 64-byte
// expanded form (the common wallet export) and a 32-byte seed are accepted.
func PrivateKeyFromBase58(s string) (PrivateKey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode base58: %w", err)
	}
	switch len(b) {
	case ed25519.PrivateKeySize:
		return PrivateKey(b), nil
	case ed25519.SeedSize:
		return PrivateKey(ed25519.NewKeyFromSeed(b)), nil
	default:
		return nil, fmt.Errorf("secret key must be %d or %d bytes, got %d",
			ed25519.PrivateKeySize, ed25519.SeedSize, len(b))
	}
}

// PublicKey returns the address for this signing key.
func (k PrivateKey) PublicKey() PublicKey {
	pub := ed25519.PrivateKey(k).Public().(ed25519.PublicKey)
	var pk PublicKey
	copy(pk[:], pub)
	return pk
}

// Sign signs msg with the key.
func (k PrivateKey) Sign(msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(k), msg)
}
