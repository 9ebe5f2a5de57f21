// Package records selects funding records and decodes the typed record kinds
// of the factoring program.
package records

import (
	"errors"
	"fmt"

	"github.com/R3E-Network/zkfactor/internal/codec"
	"github.com/R3E-Network/zkfactor/internal/ledger"
)

// ErrInsufficientFunds is matched (errors.Is) by *InsufficientFundsError.
var ErrInsufficientFunds = errors.New("insufficient funds")

// InsufficientFundsError reports that no unspent record covers Required.
// Largest is the biggest decodable unspent balance seen (0 if none).
type InsufficientFundsError struct {
	Required   uint64
	Largest    uint64
	Candidates int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %d microcredits, largest record holds %d (%d candidates)",
		e.Required, e.Largest, e.Candidates)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// Selector picks one funding record of a given kind.
type Selector struct {
	RecordName  string
	AmountField string
}

// CreditsSelector selects private credits records by their microcredits.
var CreditsSelector = Selector{RecordName: CreditsRecord, AmountField: "microcredits"}

// SelectFunding picks the first unspent credits record holding at least
// required microcredits. See Selector.Select.
func SelectFunding(recs []ledger.Record, required uint64) (ledger.Record, error) {
	return CreditsSelector.Select(recs, required)
}

// Select returns the first record, in input order, that is unspent, of the
// selector's kind, and whose decoded amount is >= required. The input is
// never reordered, so ties go to the earlier record. Records whose amount is
// missing or malformed are skipped rather than read as zero.
func (s Selector) Select(recs []ledger.Record, required uint64) (ledger.Record, error) {
	var (
		largest    uint64
		candidates int
	)
	for _, r := range recs {
		if r.Spent {
			continue
		}
		if s.RecordName != "" && r.RecordName != "" && r.RecordName != s.RecordName {
			continue
		}
		lit := r.Field(s.AmountField)
		if lit == "" {
			continue
		}
		amount, err := codec.DecodeU64(lit)
		if err != nil {
			continue
		}
		candidates++
		if amount >= required {
			return r, nil
		}
		if amount > largest {
			largest = amount
		}
	}
	return ledger.Record{}, &InsufficientFundsError{Required: required, Largest: largest, Candidates: candidates}
}

// FilterKind returns the records of the given kind, preserving order.
func FilterKind(recs []ledger.Record, kind string) []ledger.Record {
	out := make([]ledger.Record, 0, len(recs))
	for _, r := range recs {
		if r.RecordName == kind {
			out = append(out, r)
		}
	}
	return out
}

// Unspent returns the unspent records, preserving order.
func Unspent(recs []ledger.Record) []ledger.Record {
	out := make([]ledger.Record, 0, len(recs))
	for _, r := range recs {
		if !r.Spent {
			out = append(out, r)
		}
	}
	return out
}
