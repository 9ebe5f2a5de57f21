// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/zkfactor/internal/ledger"
)

// MockWallet is a test implementation of ledger.Wallet. Submitted requests
// get sequential ids ("at1tx1", "at1tx2", ...). Status replies come from a
// per-id script; once a script is exhausted its last reply repeats, and ids
// without a script report DefaultStatus.
type MockWallet struct {
	mu sync.Mutex

	records     map[string][]ledger.Record
	recordCalls map[string]int
	submitted   []ledger.TransactionRequest
	scripts     map[string][]ledger.StatusResponse
	nextID      int
	history     map[string][]ledger.HistoryEntry

	DefaultStatus ledger.TxStatus
	// BeforeSubmit, when set, runs at the start of Submit with its context.
	BeforeSubmit func(ctx context.Context) error
	SubmitErr     error
	StatusErr     error
	RecordsErr    error
}

var (
	_ ledger.Wallet        = (*MockWallet)(nil)
	_ ledger.HistoryReader = (*MockWallet)(nil)
)

// NewMockWallet creates a wallet whose transactions are accepted on the
// first poll.
func NewMockWallet() *MockWallet {
	return &MockWallet{
		records:       make(map[string][]ledger.Record),
		recordCalls:   make(map[string]int),
		scripts:       make(map[string][]ledger.StatusResponse),
		history:       make(map[string][]ledger.HistoryEntry),
		DefaultStatus: ledger.TxAccepted,
	}
}

// SetRecords replaces the records listed for program.
func (m *MockWallet) SetRecords(program string, recs ...ledger.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[program] = append([]ledger.Record(nil), recs...)
}

// ScriptStatus queues status replies for transaction id.
func (m *MockWallet) ScriptStatus(id string, replies ...ledger.StatusResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[id] = append(m.scripts[id], replies...)
}

// Submit records req and returns the next sequential id.
func (m *MockWallet) Submit(ctx context.Context, req ledger.TransactionRequest) (ledger.SubmitResult, error) {
	if m.BeforeSubmit != nil {
		if err := m.BeforeSubmit(ctx); err != nil {
			return ledger.SubmitResult{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return ledger.SubmitResult{}, m.SubmitErr
	}
	req.Inputs = append([]string(nil), req.Inputs...)
	m.submitted = append(m.submitted, req)
	m.nextID++
	return ledger.SubmitResult{TransactionID: fmt.Sprintf("at1tx%d", m.nextID)}, nil
}

// Status returns the next scripted reply for id.
func (m *MockWallet) Status(_ context.Context, id string) (ledger.StatusResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatusErr != nil {
		return ledger.StatusResponse{}, m.StatusErr
	}
	script := m.scripts[id]
	if len(script) == 0 {
		return ledger.StatusResponse{Status: m.DefaultStatus}, nil
	}
	resp := script[0]
	if len(script) > 1 {
		m.scripts[id] = script[1:]
	}
	return resp, nil
}

// Records returns the records set for program.
func (m *MockWallet) Records(_ context.Context, program string, _ bool) ([]ledger.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCalls[program]++
	if m.RecordsErr != nil {
		return nil, m.RecordsErr
	}
	return append([]ledger.Record(nil), m.records[program]...), nil
}

// SetHistory replaces the wallet-side history listed for program.
func (m *MockWallet) SetHistory(program string, entries ...ledger.HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[program] = append([]ledger.HistoryEntry(nil), entries...)
}

// History returns the history set for program.
func (m *MockWallet) History(_ context.Context, program string) ([]ledger.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordsErr != nil {
		return nil, m.RecordsErr
	}
	return append([]ledger.HistoryEntry(nil), m.history[program]...), nil
}

// Submitted returns every request submitted so far.
func (m *MockWallet) Submitted() []ledger.TransactionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ledger.TransactionRequest(nil), m.submitted...)
}

// RecordCalls returns how often program's records were listed.
func (m *MockWallet) RecordCalls(program string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordCalls[program]
}

// MockMappingReader is a test implementation of ledger.MappingReader keyed by
// "program/mapping/key".
type MockMappingReader struct {
	values *MemoryStore[string, string]
	Err    error
}

var _ ledger.MappingReader = (*MockMappingReader)(nil)

// NewMockMappingReader creates an empty mapping reader.
func NewMockMappingReader() *MockMappingReader {
	return &MockMappingReader{values: NewMemoryStore[string, string]()}
}

// Put sets a mapping value.
func (m *MockMappingReader) Put(program, mapping, key, value string) {
	m.values.Set(program+"/"+mapping+"/"+key, value)
}

// Mapping returns the stored value or ledger.ErrMappingNotFound.
func (m *MockMappingReader) Mapping(_ context.Context, program, mapping, key string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	v, ok := m.values.Get(program + "/" + mapping + "/" + key)
	if !ok {
		return "", ledger.ErrMappingNotFound
	}
	return v, nil
}

// MockChain is a test implementation of ledger.ChainReader.
type MockChain struct {
	Height       uint64
	Transactions *MemoryStore[string, ledger.TransactionInfo]
	Err          error
}

var _ ledger.ChainReader = (*MockChain)(nil)

// NewMockChain creates a chain at height with no transactions.
func NewMockChain(height uint64) *MockChain {
	return &MockChain{Height: height, Transactions: NewMemoryStore[string, ledger.TransactionInfo]()}
}

// LatestHeight returns Height.
func (m *MockChain) LatestHeight(context.Context) (uint64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Height, nil
}

// Transaction returns the stored transaction or ledger.ErrTransactionNotFound.
func (m *MockChain) Transaction(_ context.Context, id string) (ledger.TransactionInfo, error) {
	if m.Err != nil {
		return ledger.TransactionInfo{}, m.Err
	}
	info, ok := m.Transactions.Get(id)
	if !ok {
		return ledger.TransactionInfo{}, ledger.ErrTransactionNotFound
	}
	return info, nil
}

// MemoryStore is a generic in-memory store for testing.
type MemoryStore[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore[K comparable, V any]() *MemoryStore[K, V] {
	return &MemoryStore[K, V]{items: make(map[K]V)}
}

// Set stores an item.
func (s *MemoryStore[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// Get retrieves an item.
func (s *MemoryStore[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Count returns the number of items.
func (s *MemoryStore[K, V]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// GenerateID generates a new UUID string.
func GenerateID() string {
	return uuid.NewString()
}

// Now returns the current UTC time.
func Now() time.Time {
	return time.Now().UTC()
}

// Address returns a syntactically valid Aleo address whose body repeats c,
// which must be a bech32 character.
func Address(c byte) string {
	b := make([]byte, 58)
	for i := range b {
		b[i] = c
	}
	return "aleo1" + string(b)
}
