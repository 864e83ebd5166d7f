package agent

import (
	"math/rand"

	"ChumRoom/pkg/solana"
)

// Token is one entry of the static mint table agents pick from.
type Token struct {
	Symbol string
	Mint   solana.PublicKey
}

var knownTokens = []Token{
	{"SOL", solana.MustPublicKey("So11111111111111111111111111111111111111112")},
	{"USDC", solana.MustPublicKey("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")},
	{"BONK", solana.MustPublicKey("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")},
	{"JUP", solana.MustPublicKey("JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN")},
	{"MSOL", solana.MustPublicKey("mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So")},
	{"RAY", solana.MustPublicKey("4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R")},
	{"ORCA", solana.MustPublicKey("orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE")},
	{"WIF", solana.MustPublicKey("EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm")},
	{"CHUM", solana.MustPublicKey("AXCAxuwc2UFFuavpWHVDSXFKM4U9E76ZARZ1Gc2Cpump")},
}

// Tokens returns the static mint table.
func Tokens() []Token { return knownTokens }

func randomToken(rng *rand.Rand) Token {
	return knownTokens[rng.Intn(len(knownTokens))]
}
