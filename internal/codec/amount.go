package codec

import (
	"math"
	"strconv"
	"strings"
)

// MicrocreditsPerCredit is the number of microcredits in one Aleo credit.
const MicrocreditsPerCredit = 1_000_000

const creditDecimals = 6

// ParseDecimalAmount converts a human-entered credit amount such as "42.5"
// into microcredits. Signs, exponents and more than six decimals are rejected.
func ParseDecimalAmount(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && hasDot {
		whole = "0"
	}
	if !isDigits(whole) || (hasDot && frac != "" && !isDigits(frac)) {
		return 0, encodingErr(s, "not a non-negative decimal amount")
	}
	if len(frac) > creditDecimals {
		return 0, encodingErr(s, "more than %d decimal places", creditDecimals)
	}

	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil || w > math.MaxUint64/MicrocreditsPerCredit {
		return 0, encodingErr(s, "amount too large")
	}

	frac += strings.Repeat("0", creditDecimals-len(frac))
	f, _ := strconv.ParseUint(frac, 10, 64)

	total := w*MicrocreditsPerCredit + f
	if total < w*MicrocreditsPerCredit {
		return 0, encodingErr(s, "amount too large")
	}
	return total, nil
}

// FormatCredits renders microcredits as a decimal credit amount with six
// decimals.
func FormatCredits(micro uint64) string {
	whole := micro / MicrocreditsPerCredit
	frac := micro % MicrocreditsPerCredit
	f := strconv.FormatUint(frac, 10)
	return strconv.FormatUint(whole, 10) + "." + strings.Repeat("0", creditDecimals-len(f)) + f
}
