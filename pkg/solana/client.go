package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	xhttp "ChumRoom/pkg/http"
)

// ClientOption configures Client.
type ClientOption func(*Client)

// Client is a minimal JSON-RPC client for the ledger read/write operations
// the room protocol needs: signature listing, transaction fetch, blockhash,
// balance, and transaction submission.
type Client struct {
	endpoint   string
	commitment string
	http       *xhttp.Client
	reqID      atomic.Int64
}

// NewClient creates a ledger RPC client.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   endpoint,
		commitment: "confirmed",
		http:       xhttp.NewClient(xhttp.WithTimeout(20 * time.Second)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithCommitment sets the confirmation level used on queries.
func WithCommitment(commitment string) ClientOption {
	return func(c *Client) { c.commitment = commitment }
}

// WithHTTPTimeout sets the per-request timeout.
func WithHTTPTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.http = xhttp.NewClient(xhttp.WithTimeout(timeout)) }
}

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	req := rpcRequest{
		Jsonrpc: "2.0",
		ID:      c.reqID.Add(1),
		Method:  method,
		Params:  params,
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.endpoint,
		Body:   req,
	}, &envelope)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("%s: %w", method, envelope.Error)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// SignatureInfo is one entry of a getSignaturesForAddress response.
type SignatureInfo struct {
	Signature string          `json:"signature"`
	Slot      uint64          `json:"slot"`
	Err       json.RawMessage `json:"err"`
	BlockTime *int64          `json:"blockTime"`
}

// Failed reports whether the transaction errored on-ledger.
func (s *SignatureInfo) Failed() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

// Time returns the block time in unix seconds, zero when unset.
func (s *SignatureInfo) Time() int64 {
	if s.BlockTime == nil {
		return 0
	}
	return *s.BlockTime
}

// GetSignaturesForAddress lists the most recent transaction signatures
// touching addr, newest first.
func (c *Client) GetSignaturesForAddress(ctx context.Context, addr PublicKey, limit int) ([]SignatureInfo, error) {
	var sigs []SignatureInfo
	err := c.call(ctx, "getSignaturesForAddress", []any{
		addr.String(),
		map[string]any{"limit": limit, "commitment": c.commitment},
	}, &sigs)
	if err != nil {
		return nil, err
	}
	return sigs, nil
}

// TransactionMeta carries the on-ledger execution status.
type TransactionMeta struct {
	Err json.RawMessage `json:"err"`
}

// Failed reports whether the transaction errored on-ledger.
func (m *TransactionMeta) Failed() bool {
	return m != nil && len(m.Err) > 0 && string(m.Err) != "null"
}

// AccountKey is one entry of a jsonParsed account key list.
type AccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

// ParsedInstruction is one instruction of a jsonParsed transaction. The RPC
// surfaces instruction data in one of several shapes: programs it knows how
// to parse get a "parsed" field (string or object), everything else gets
// base58/base64 "data".
type ParsedInstruction struct {
	ProgramID string          `json:"programId"`
	Parsed    json.RawMessage `json:"parsed"`
	Data      string          `json:"data"`
}

// ParsedTransaction is a getTransaction response with jsonParsed encoding.
type ParsedTransaction struct {
	Meta        *TransactionMeta `json:"meta"`
	BlockTime   *int64           `json:"blockTime"`
	Transaction struct {
		Message struct {
			AccountKeys  []AccountKey        `json:"accountKeys"`
			Instructions []ParsedInstruction `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

// FeePayer returns the first account key, which by convention funded and
// signed the transaction.
func (tx *ParsedTransaction) FeePayer() string {
	if len(tx.Transaction.Message.AccountKeys) == 0 {
		return "unknown"
	}
	return tx.Transaction.Message.AccountKeys[0].Pubkey
}

// GetTransaction fetches a confirmed transaction by signature. A (nil, nil)
// return means the ledger does not know the signature (yet).
func (c *Client) GetTransaction(ctx context.Context, signature string) (*ParsedTransaction, error) {
	var raw json.RawMessage
	err := c.call(ctx, "getTransaction", []any{
		signature,
		map[string]any{
			"encoding":                       "jsonParsed",
			"commitment":                     c.commitment,
			"maxSupportedTransactionVersion": 0,
		},
	}, &raw)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var tx ParsedTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("getTransaction: decode: %w", err)
	}
	return &tx, nil
}

// GetLatestBlockhash returns a recent blockhash for transaction assembly.
func (c *Client) GetLatestBlockhash(ctx context.Context) (string, error) {
	var res struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	err := c.call(ctx, "getLatestBlockhash", []any{
		map[string]any{"commitment": c.commitment},
	}, &res)
	if err != nil {
		return "", err
	}
	return res.Value.Blockhash, nil
}

// GetBalance returns the lamport balance of addr.
func (c *Client) GetBalance(ctx context.Context, addr PublicKey) (uint64, error) {
	var res struct {
		Value uint64 `json:"value"`
	}
	err := c.call(ctx, "getBalance", []any{
		addr.String(),
		map[string]any{"commitment": c.commitment},
	}, &res)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// SendTransaction submits a base64-serialized signed transaction and
// returns its signature.
func (c *Client) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	var sig string
	err := c.call(ctx, "sendTransaction", []any{
		txBase64,
		map[string]any{"encoding": "base64"},
	}, &sig)
	if err != nil {
		return "", err
	}
	return sig, nil
}

// Health pings the RPC endpoint.
func (c *Client) Health(ctx context.Context) error {
	var status string
	if err := c.call(ctx, "getHealth", []any{}, &status); err != nil {
		return err
	}
	if status != "ok" {
		return fmt.Errorf("rpc health: %s", status)
	}
	return nil
}
