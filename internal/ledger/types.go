// Package ledger defines the contracts the core consumes from the Aleo wallet
// adapter and the explorer API, and provides HTTP clients for both.
package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/R3E-Network/zkfactor/internal/codec"
)

// CreditsProgram is the native program holding private balances.
const CreditsProgram = "credits.aleo"

var (
	// ErrMappingNotFound is returned when a mapping has no value for a key.
	ErrMappingNotFound = errors.New("mapping value not found")
	// ErrProgramNotWhitelisted is returned when records are requested for a
	// program the wallet is not allowed to decrypt.
	ErrProgramNotWhitelisted = errors.New("program not whitelisted for record decryption")
	// ErrTransactionNotFound is returned when the explorer does not know a
	// transaction id, including ones not yet included in a block.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Record is a spendable private record as returned by the wallet.
// Records are immutable: Spent only changes by ledger consensus, so callers
// re-query instead of flipping it locally.
type Record struct {
	ID         string            `json:"id,omitempty"`
	Owner      string            `json:"owner"`
	Program    string            `json:"program_id"`
	RecordName string            `json:"record_name"`
	Fields     map[string]string `json:"data"`
	Plaintext  string            `json:"plaintext"`
	Spent      bool              `json:"spent"`
	Commitment string            `json:"commitment,omitempty"`
}

// Field returns the literal for name, consulting the decoded field map first
// and the plaintext blob second. "" means unknown.
func (r Record) Field(name string) string {
	if v, ok := r.Fields[name]; ok && v != "" {
		return codec.StripVisibility(strings.TrimSpace(v))
	}
	return codec.ExtractField(r.Plaintext, name)
}

// Key returns the record's natural key: the commitment when known, else the id.
func (r Record) Key() string {
	if r.Commitment != "" {
		return r.Commitment
	}
	return r.ID
}

// Fee describes the optional fee of a transaction, in microcredits.
type Fee struct {
	Amount  uint64 `json:"amount"`
	Private bool   `json:"private"`
}

// TransactionRequest is one program call. Inputs must already be fully
// encoded literals in the function's declared parameter order.
type TransactionRequest struct {
	Program  string   `json:"program"`
	Function string   `json:"function"`
	Inputs   []string `json:"inputs"`
	Fee      *Fee     `json:"fee,omitempty"`
}

// SubmitResult is returned by a successful broadcast.
type SubmitResult struct {
	TransactionID string `json:"transactionId"`
}

// TxStatus is the status string reported by the wallet.
type TxStatus string

const (
	TxPending  TxStatus = "pending"
	TxAccepted TxStatus = "accepted"
	TxFailed   TxStatus = "failed"
	TxRejected TxStatus = "rejected"
)

// StatusResponse is the wallet's answer to a status query.
type StatusResponse struct {
	Status        TxStatus `json:"status"`
	TransactionID string   `json:"transactionId,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Normalized returns the lower-cased, trimmed status.
func (s StatusResponse) Normalized() TxStatus {
	return TxStatus(strings.ToLower(strings.TrimSpace(string(s.Status))))
}

// HistoryEntry is one row of the wallet's transaction history for a program.
type HistoryEntry struct {
	TransactionID string `json:"transactionId"`
	Function      string `json:"function"`
	Status        string `json:"status"`
	Timestamp     int64  `json:"timestamp"`
}

// Wallet is the capability the core consumes from the wallet adapter.
type Wallet interface {
	Submit(ctx context.Context, req TransactionRequest) (SubmitResult, error)
	Status(ctx context.Context, transactionID string) (StatusResponse, error)
	Records(ctx context.Context, program string, includePlaintext bool) ([]Record, error)
}

// MappingReader reads public on-chain mappings.
type MappingReader interface {
	Mapping(ctx context.Context, program, mapping, key string) (string, error)
}

// HistoryReader is implemented by wallets that expose their own transaction
// history.
type HistoryReader interface {
	History(ctx context.Context, program string) ([]HistoryEntry, error)
}

// Transition is one program call inside a confirmed transaction.
type Transition struct {
	ID       string `json:"id"`
	Program  string `json:"program"`
	Function string `json:"function"`
}

// TransactionInfo is the explorer's public view of a confirmed transaction.
type TransactionInfo struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Transitions []Transition `json:"transitions"`
	// FeeTransition is the fee payment, when the transaction carries one.
	FeeTransition *Transition `json:"fee_transition,omitempty"`
}

// ChainReader reads public chain state.
type ChainReader interface {
	LatestHeight(ctx context.Context) (uint64, error)
	Transaction(ctx context.Context, id string) (TransactionInfo, error)
}
