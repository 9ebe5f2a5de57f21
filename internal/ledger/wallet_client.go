package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// WalletClient talks JSON-RPC 2.0 to a wallet bridge exposing the adapter
// methods executeTransaction, transactionStatus, requestRecords and
// requestTransactionHistory.
type WalletClient struct {
	mu         sync.RWMutex
	rpcURL     string
	httpClient *http.Client
	allowed    map[string]bool
}

// WalletConfig holds client configuration.
type WalletConfig struct {
	RPCURL string
	// AllowedPrograms lists the programs whose records may be decrypted.
	// Empty means no restriction.
	AllowedPrograms []string
	Timeout         time.Duration
}

// NewWalletClient creates a new wallet bridge client.
func NewWalletClient(cfg WalletConfig) (*WalletClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("wallet RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	allowed := make(map[string]bool, len(cfg.AllowedPrograms))
	for _, p := range cfg.AllowedPrograms {
		allowed[p] = true
	}

	return &WalletClient{
		rpcURL: cfg.RPCURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		allowed: allowed,
	}, nil
}

var _ Wallet = (*WalletClient)(nil)

// =============================================================================
// JSON-RPC plumbing
// =============================================================================

// RPCRequest is a JSON-RPC 2.0 request.
type RPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      string      `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      string          `json:"id"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call makes an RPC call to the wallet bridge.
func (c *WalletClient) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      uuid.NewString(),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.mu.RLock()
	url := c.rpcURL
	c.mu.RUnlock()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("wallet bridge returned status %d", resp.StatusCode)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// =============================================================================
// Wallet capability
// =============================================================================

// Submit asks the wallet to build, prove and broadcast a transaction.
func (c *WalletClient) Submit(ctx context.Context, req TransactionRequest) (SubmitResult, error) {
	params := map[string]interface{}{
		"program":  req.Program,
		"function": req.Function,
		"inputs":   req.Inputs,
	}
	if req.Fee != nil {
		params["fee"] = req.Fee.Amount
		params["privateFee"] = req.Fee.Private
	}

	result, err := c.Call(ctx, "executeTransaction", params)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{TransactionID: gjson.GetBytes(result, "transactionId").String()}, nil
}

// Status queries the status of a previously submitted transaction.
func (c *WalletClient) Status(ctx context.Context, transactionID string) (StatusResponse, error) {
	result, err := c.Call(ctx, "transactionStatus", map[string]interface{}{"transactionId": transactionID})
	if err != nil {
		return StatusResponse{}, err
	}

	// Some adapters answer with a bare status string.
	parsed := gjson.ParseBytes(result)
	if parsed.Type == gjson.String {
		return StatusResponse{Status: TxStatus(parsed.String())}, nil
	}
	return StatusResponse{
		Status:        TxStatus(parsed.Get("status").String()),
		TransactionID: parsed.Get("transactionId").String(),
		Error:         parsed.Get("error").String(),
	}, nil
}

// Records lists the caller's records for program.
func (c *WalletClient) Records(ctx context.Context, program string, includePlaintext bool) ([]Record, error) {
	if len(c.allowed) > 0 && !c.allowed[program] {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotWhitelisted, program)
	}

	result, err := c.Call(ctx, "requestRecords", map[string]interface{}{
		"program":          program,
		"includePlaintext": includePlaintext,
	})
	if err != nil {
		return nil, err
	}

	records, err := DecodeRecords(result)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Program == "" {
			records[i].Program = program
		}
	}
	return records, nil
}

var _ HistoryReader = (*WalletClient)(nil)

// History returns the wallet's transaction history for program.
func (c *WalletClient) History(ctx context.Context, program string) ([]HistoryEntry, error) {
	result, err := c.Call(ctx, "requestTransactionHistory", map[string]interface{}{"program": program})
	if err != nil {
		return nil, err
	}

	list := gjson.GetBytes(result, "transactions")
	if !list.Exists() {
		list = gjson.ParseBytes(result)
	}

	var entries []HistoryEntry
	if err := json.Unmarshal([]byte(list.Raw), &entries); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return entries, nil
}
