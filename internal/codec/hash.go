package codec

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2s"
)

// canonicalDomain separates canonical hashes from any other digest computed
// over the same bytes.
const canonicalDomain = "zkfactor/canonical/v1"

// canonicalDelimiter joins the parts of a canonical tuple.
const canonicalDelimiter = ":"

// metadataBytes is how many leading bytes PackMetadata keeps (one u128).
const metadataBytes = 16

// CanonicalHash derives a field literal from an ordered tuple. The result is
// a pure function of parts: no seed, no clock. Parts may be strings, integers,
// *big.Int or fmt.Stringer values.
func CanonicalHash(parts ...interface{}) string {
	rendered := make([]string, len(parts))
	for i, p := range parts {
		rendered[i] = renderPart(p)
	}
	joined := strings.Join(rendered, canonicalDelimiter)

	h, _ := blake2s.New256(nil)
	h.Write([]byte(canonicalDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(joined))

	n := new(big.Int).SetBytes(h.Sum(nil))
	n.Mod(n, FieldModulus)
	return n.String() + FieldSuffix
}

// PackMetadata packs the leading 16 bytes of text into a u128 literal. Bytes
// beyond the first 16 are dropped, so the text cannot be recovered in general.
func PackMetadata(text string) string {
	b := []byte(text)
	if len(b) > metadataBytes {
		b = b[:metadataBytes]
	}
	return new(big.Int).SetBytes(b).String() + "u128"
}

// UnpackMetadata reverses PackMetadata for texts of at most 16 bytes without
// leading NUL bytes. It is meant for display only.
func UnpackMetadata(literal string) (string, error) {
	n, bits, err := DecodeUnsigned(literal)
	if err != nil {
		return "", err
	}
	if bits != 128 {
		return "", decodingErr(literal, "metadata must be u128")
	}
	return string(n.Bytes()), nil
}

func renderPart(p interface{}) string {
	switch v := p.(type) {
	case string:
		return v
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case *big.Int:
		if v == nil {
			return ""
		}
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
