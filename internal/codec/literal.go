// Package codec converts between Go values and the Aleo ledger's textual
// literal and record-plaintext formats, and derives the deterministic
// identifiers stored on chain.
package codec

import (
	"math/big"
	"strconv"
	"strings"
)

// Visibility annotations that may trail a literal inside record plaintext.
const (
	VisibilityPrivate = ".private"
	VisibilityPublic  = ".public"
)

// FieldSuffix is the type suffix of a field-element literal.
const FieldSuffix = "field"

// FieldModulus is the order of the Aleo base field. Field literals are
// always strictly smaller.
var FieldModulus, _ = new(big.Int).SetString(
	"8444461749428370424248824938781546531375899335154063827935233455917409239041", 10)

// supportedWidths lists the unsigned integer widths the ledger knows.
var supportedWidths = []int{8, 16, 32, 64, 128}

func isSupportedWidth(bits int) bool {
	for _, w := range supportedWidths {
		if w == bits {
			return true
		}
	}
	return false
}

// EncodeUnsigned renders value with its width suffix, e.g. 5000000u64.
func EncodeUnsigned(value *big.Int, bitWidth int) (string, error) {
	if value == nil {
		return "", encodingErr("", "missing value")
	}
	if !isSupportedWidth(bitWidth) {
		return "", encodingErr(value.String(), "unsupported width u%d", bitWidth)
	}
	if value.Sign() < 0 {
		return "", encodingErr(value.String(), "negative value")
	}
	if value.BitLen() > bitWidth {
		return "", encodingErr(value.String(), "exceeds u%d range", bitWidth)
	}
	return value.String() + "u" + strconv.Itoa(bitWidth), nil
}

// EncodeUnsignedString parses a decimal string and renders it like
// EncodeUnsigned. Fractions and signs are rejected.
func EncodeUnsignedString(value string, bitWidth int) (string, error) {
	value = strings.TrimSpace(value)
	if !isDigits(value) {
		return "", encodingErr(value, "not a non-negative integer")
	}
	n, _ := new(big.Int).SetString(value, 10)
	return EncodeUnsigned(n, bitWidth)
}

// EncodeU64 renders v as a u64 literal.
func EncodeU64(v uint64) string {
	return strconv.FormatUint(v, 10) + "u64"
}

// EncodeU16 renders v as a u16 literal.
func EncodeU16(v uint16) string {
	return strconv.FormatUint(uint64(v), 10) + "u16"
}

// DecodeUnsigned parses an unsigned literal such as "42u64" or
// "42u64.private" and returns its value and declared width.
func DecodeUnsigned(literal string) (*big.Int, int, error) {
	lit := StripVisibility(strings.TrimSpace(literal))
	idx := strings.LastIndexByte(lit, 'u')
	if idx <= 0 || idx == len(lit)-1 {
		return nil, 0, decodingErr(literal, "missing width suffix")
	}

	digits, suffix := lit[:idx], lit[idx+1:]
	bits, err := strconv.Atoi(suffix)
	if err != nil || !isSupportedWidth(bits) {
		return nil, 0, decodingErr(literal, "unknown width suffix u%s", suffix)
	}
	if !isDigits(digits) {
		return nil, 0, decodingErr(literal, "malformed digits")
	}

	n, _ := new(big.Int).SetString(digits, 10)
	if n.BitLen() > bits {
		return nil, 0, decodingErr(literal, "value exceeds u%d range", bits)
	}
	return n, bits, nil
}

// DecodeU64 parses an unsigned literal of any width into a uint64.
func DecodeU64(literal string) (uint64, error) {
	n, _, err := DecodeUnsigned(literal)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, decodingErr(literal, "value does not fit in 64 bits")
	}
	return n.Uint64(), nil
}

// DecodeU16 parses an unsigned literal into a uint16.
func DecodeU16(literal string) (uint16, error) {
	v, err := DecodeU64(literal)
	if err != nil {
		return 0, err
	}
	if v > 0xFFFF {
		return 0, decodingErr(literal, "value does not fit in 16 bits")
	}
	return uint16(v), nil
}

// EncodeField renders value as a field literal. The value must be below
// FieldModulus.
func EncodeField(value *big.Int) (string, error) {
	if value == nil {
		return "", encodingErr("", "missing value")
	}
	if value.Sign() < 0 || value.Cmp(FieldModulus) >= 0 {
		return "", encodingErr(value.String(), "outside the field")
	}
	return value.String() + FieldSuffix, nil
}

// DecodeField parses a field literal such as "123field.private".
func DecodeField(literal string) (*big.Int, error) {
	lit := StripVisibility(strings.TrimSpace(literal))
	digits, ok := strings.CutSuffix(lit, FieldSuffix)
	if !ok {
		return nil, decodingErr(literal, "missing field suffix")
	}
	if !isDigits(digits) {
		return nil, decodingErr(literal, "malformed digits")
	}
	n, _ := new(big.Int).SetString(digits, 10)
	if n.Cmp(FieldModulus) >= 0 {
		return nil, decodingErr(literal, "value outside the field")
	}
	return n, nil
}

// EncodeBool renders b as a boolean literal.
func EncodeBool(b bool) string {
	return strconv.FormatBool(b)
}

// DecodeBool parses "true" or "false" with an optional visibility annotation.
func DecodeBool(literal string) (bool, error) {
	switch StripVisibility(strings.TrimSpace(literal)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, decodingErr(literal, "not a boolean")
	}
}

// StripVisibility removes a trailing .private or .public annotation.
func StripVisibility(literal string) string {
	if s, ok := strings.CutSuffix(literal, VisibilityPrivate); ok {
		return s
	}
	if s, ok := strings.CutSuffix(literal, VisibilityPublic); ok {
		return s
	}
	return literal
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
