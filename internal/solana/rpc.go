package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
)

// Commitment selects how finalized the queried state must be.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// RPCError is a JSON-RPC error object returned by the cluster.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Blockhash is a recent blockhash together with the last block height at
// which a transaction using it is still valid.
type Blockhash struct {
	Hash                 PublicKey
	LastValidBlockHeight uint64
}

// AccountInfo is a raw account snapshot.
type AccountInfo struct {
	Owner    PublicKey
	Lamports uint64
	Data     []byte
}

// SimulationResult carries the outcome of simulateTransaction. Err is nil
// when the simulated execution succeeded.
type SimulationResult struct {
	Err  json.RawMessage
	Logs []string
}

// Failed reports whether the simulation returned a non-empty error value.
func (r SimulationResult) Failed() bool {
	return len(r.Err) > 0 && string(r.Err) != "null"
}

// SignatureStatus is one entry from getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

// Client is a JSON-RPC client for a single Solana RPC endpoint. It is safe
// for concurrent use and holds no mutable cluster state.
type Client struct {
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Uint64
}

// NewClient creates a Client for the given HTTP RPC endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Endpoint returns the configured RPC URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// call performs one JSON-RPC round-trip and unmarshals result into out.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("solana/rpc: marshal %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("solana/rpc: build %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("solana/rpc: %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("solana/rpc: read %s response: %w", method, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("solana/rpc: %s: HTTP %d: %s", method, httpResp.StatusCode, string(body))
	}

	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("solana/rpc: decode %s response: %w", method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("solana/rpc: %s: %w", method, resp.Error)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("solana/rpc: decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetLatestBlockhash fetches a recent blockhash at the given commitment.
func (c *Client) GetLatestBlockhash(ctx context.Context, commitment Commitment) (Blockhash, error) {
	var result struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	params := []any{map[string]any{"commitment": string(commitment)}}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return Blockhash{}, err
	}
	hash, err := PublicKeyFromBase58(result.Value.Blockhash)
	if err != nil {
		return Blockhash{}, err
	}
	return Blockhash{Hash: hash, LastValidBlockHeight: result.Value.LastValidBlockHeight}, nil
}

// GetBlockHeight returns the current block height at the given commitment.
func (c *Client) GetBlockHeight(ctx context.Context, commitment Commitment) (uint64, error) {
	var height uint64
	params := []any{map[string]any{"commitment": string(commitment)}}
	if err := c.call(ctx, "getBlockHeight", params, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// SimulateTransaction runs the serialized transaction against the cluster
// without broadcasting it. It never has on-chain side effects.
func (c *Client) SimulateTransaction(ctx context.Context, tx *Transaction) (SimulationResult, error) {
	wire, err := tx.Serialize()
	if err != nil {
		return SimulationResult{}, err
	}

	var result struct {
		Value struct {
			Err  json.RawMessage `json:"err"`
			Logs []string        `json:"logs"`
		} `json:"value"`
	}
	params := []any{
		base64.StdEncoding.EncodeToString(wire),
		map[string]any{
			"encoding":   "base64",
			"commitment": string(CommitmentProcessed),
		},
	}
	if err := c.call(ctx, "simulateTransaction", params, &result); err != nil {
		return SimulationResult{}, err
	}
	return SimulationResult{Err: result.Value.Err, Logs: result.Value.Logs}, nil
}

// SendTransaction broadcasts the serialized, signed transaction and returns
// its signature.
func (c *Client) SendTransaction(ctx context.Context, tx *Transaction) (Signature, error) {
	wire, err := tx.Serialize()
	if err != nil {
		return Signature{}, err
	}

	var sigStr string
	params := []any{
		base64.StdEncoding.EncodeToString(wire),
		map[string]any{
			"encoding":            "base64",
			"skipPreflight":       false,
			"preflightCommitment": string(CommitmentProcessed),
			"maxRetries":          3,
		},
	}
	if err := c.call(ctx, "sendTransaction", params, &sigStr); err != nil {
		return Signature{}, err
	}

	raw, err := decodeBase58Signature(sigStr)
	if err != nil {
		return Signature{}, err
	}
	return raw, nil
}

// GetSignatureStatus returns the status of one transaction signature, or nil
// when the cluster has not seen it.
func (c *Client) GetSignatureStatus(ctx context.Context, sig Signature) (*SignatureStatus, error) {
	var result struct {
		Value []*SignatureStatus `json:"value"`
	}
	params := []any{
		[]string{sig.String()},
		map[string]any{"searchTransactionHistory": false},
	}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}
	if len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}

type accountValue struct {
	Owner    string   `json:"owner"`
	Lamports uint64   `json:"lamports"`
	Data     []string `json:"data"` // [payload, encoding]
}

func (v *accountValue) decode() (*AccountInfo, error) {
	owner, err := PublicKeyFromBase58(v.Owner)
	if err != nil {
		return nil, err
	}
	var data []byte
	if len(v.Data) >= 1 && v.Data[0] != "" {
		data, err = base64.StdEncoding.DecodeString(v.Data[0])
		if err != nil {
			return nil, fmt.Errorf("solana/rpc: decode account data: %w", err)
		}
	}
	return &AccountInfo{Owner: owner, Lamports: v.Lamports, Data: data}, nil
}

// GetAccountInfo fetches one account. A nil result with nil error means the
// account does not exist.
func (c *Client) GetAccountInfo(ctx context.Context, pk PublicKey) (*AccountInfo, error) {
	var result struct {
		Value *accountValue `json:"value"`
	}
	params := []any{
		pk.String(),
		map[string]any{"encoding": "base64", "commitment": string(CommitmentConfirmed)},
	}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}
	return result.Value.decode()
}

// GetMultipleAccounts fetches a batch of accounts in one round-trip. The
// returned slice matches the input order; missing accounts are nil.
func (c *Client) GetMultipleAccounts(ctx context.Context, pks ...PublicKey) ([]*AccountInfo, error) {
	addrs := make([]string, len(pks))
	for i, pk := range pks {
		addrs[i] = pk.String()
	}

	var result struct {
		Value []*accountValue `json:"value"`
	}
	params := []any{
		addrs,
		map[string]any{"encoding": "base64", "commitment": string(CommitmentConfirmed)},
	}
	if err := c.call(ctx, "getMultipleAccounts", params, &result); err != nil {
		return nil, err
	}

	out := make([]*AccountInfo, len(result.Value))
	for i, v := range result.Value {
		if v == nil {
			continue
		}
		info, err := v.decode()
		if err != nil {
			return nil, err
		}
		out[i] = info
	}
	return out, nil
}

// GetBalance returns an account's lamport balance. Non-existent accounts
// report zero.
func (c *Client) GetBalance(ctx context.Context, pk PublicKey) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	params := []any{
		pk.String(),
		map[string]any{"commitment": string(CommitmentConfirmed)},
	}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetTokenAccountBalance returns a token account's balance in base units.
// The RPC reports the amount as a decimal string; it is parsed as an
// integer to preserve full 64-bit precision.
func (c *Client) GetTokenAccountBalance(ctx context.Context, pk PublicKey) (uint64, error) {
	var result struct {
		Value struct {
			Amount string `json:"amount"`
		} `json:"value"`
	}
	params := []any{
		pk.String(),
		map[string]any{"commitment": string(CommitmentConfirmed)},
	}
	if err := c.call(ctx, "getTokenAccountBalance", params, &result); err != nil {
		return 0, err
	}
	amount, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("solana/rpc: parse token amount %q: %w", result.Value.Amount, err)
	}
	return amount, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt floor in
// lamports for an account of the given data size.
func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, dataLen int) (uint64, error) {
	var lamports uint64
	if err := c.call(ctx, "getMinimumBalanceForRentExemption", []any{dataLen}, &lamports); err != nil {
		return 0, err
	}
	return lamports, nil
}

func decodeBase58Signature(s string) (Signature, error) {
	var sig Signature
	raw, err := base58.Decode(s)
	if err != nil {
		return sig, fmt.Errorf("solana/rpc: decode signature %q: %w", s, err)
	}
	if len(raw) != len(sig) {
		return sig, fmt.Errorf("solana/rpc: expected %d signature bytes, got %d", len(sig), len(raw))
	}
	copy(sig[:], raw)
	return sig, nil
}
