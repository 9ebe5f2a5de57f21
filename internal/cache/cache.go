// Package cache stores wallet record listings and factor status lookups
// between refreshes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/R3E-Network/zkfactor/internal/ledger"
)

// Store is a byte-oriented key/value cache with expiry. A miss is reported
// as ok == false with a nil error.
type Store interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// DefaultTTL bounds how long a cached listing is served without a refresh.
const DefaultTTL = 5 * time.Minute

// RecordsKey is the cache key of a program's record listing.
func RecordsKey(program string) string { return "records:" + program }

// FactorKey is the cache key of an address's factor status.
func FactorKey(address string) string { return "factor:" + address }

// Records is a typed view over a Store for record listings.
type Records struct {
	store Store
	ttl   time.Duration
}

// NewRecords wraps store. A non-positive ttl uses DefaultTTL.
func NewRecords(store Store, ttl time.Duration) *Records {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Records{store: store, ttl: ttl}
}

// Get returns the cached listing for program.
func (r *Records) Get(ctx context.Context, program string) ([]ledger.Record, bool, error) {
	raw, ok, err := r.store.Get(ctx, RecordsKey(program))
	if err != nil || !ok {
		return nil, false, err
	}
	var recs []ledger.Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		// A corrupt entry is a miss; the next refresh overwrites it.
		return nil, false, nil
	}
	return recs, true, nil
}

// Put caches the listing for program.
func (r *Records) Put(ctx context.Context, program string, recs []ledger.Record) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	return r.store.Set(ctx, RecordsKey(program), raw, r.ttl)
}

// Invalidate drops the listings of the given programs.
func (r *Records) Invalidate(ctx context.Context, programs ...string) error {
	keys := make([]string, 0, len(programs))
	for _, p := range programs {
		keys = append(keys, RecordsKey(p))
	}
	return r.store.Delete(ctx, keys...)
}

// Store returns the underlying store.
func (r *Records) Store() Store { return r.store }
