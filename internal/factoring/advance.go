// Package factoring implements the invoice factoring operations: minting,
// factoring and settling invoices, and registering as a factor.
//
// Every operation validates and encodes its inputs, selects funding where
// needed, and hands one transaction to the lifecycle coordinator. Validation
// and funding errors are returned before anything reaches the wallet.
package factoring

import (
	"fmt"
	"math/bits"

	"github.com/R3E-Network/zkfactor/internal/codec"
)

// Advance rate bounds, in basis points.
const (
	BasisPoints    = 10000
	MinAdvanceRate = 5000
	MaxAdvanceRate = 9900
)

// AdvanceAmount returns floor(amount * rateBps / 10000). The product is
// computed in 128 bits so no amount overflows. Rates above 10000 bps are
// rejected because the result could exceed the invoice amount.
func AdvanceAmount(amount uint64, rateBps uint16) (uint64, error) {
	if rateBps > BasisPoints {
		return 0, &codec.EncodingError{
			Value:  fmt.Sprintf("%d", rateBps),
			Reason: "basis points must be at most 10000",
		}
	}
	hi, lo := bits.Mul64(amount, uint64(rateBps))
	q, _ := bits.Div64(hi, lo, BasisPoints)
	return q, nil
}

// ValidateAdvanceRate checks that bps lies in [5000, 9900].
func ValidateAdvanceRate(bps uint16) error {
	if bps < MinAdvanceRate || bps > MaxAdvanceRate {
		return &codec.EncodingError{
			Value:  fmt.Sprintf("%d", bps),
			Reason: fmt.Sprintf("advance rate must be between %d and %d basis points", MinAdvanceRate, MaxAdvanceRate),
		}
	}
	return nil
}

// ValidateRegistration checks a factor's advertised rate range.
func ValidateRegistration(minBps, maxBps uint16) error {
	if err := ValidateAdvanceRate(minBps); err != nil {
		return fmt.Errorf("min rate: %w", err)
	}
	if err := ValidateAdvanceRate(maxBps); err != nil {
		return fmt.Errorf("max rate: %w", err)
	}
	if minBps > maxBps {
		return &codec.EncodingError{
			Value:  fmt.Sprintf("%d-%d", minBps, maxBps),
			Reason: "min rate must not exceed max rate",
		}
	}
	return nil
}
