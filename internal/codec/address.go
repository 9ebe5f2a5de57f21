package codec

import "strings"

const (
	addressPrefix = "aleo1"
	addressLength = 63
	bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
)

// EncodeAddress validates an Aleo address and returns it trimmed. Only the
// shape is checked: prefix, length and bech32 alphabet.
func EncodeAddress(addr string) (string, error) {
	a := strings.TrimSpace(addr)
	if !IsAddress(a) {
		return "", encodingErr(addr, "invalid Aleo address format")
	}
	return a, nil
}

// IsAddress reports whether s looks like an Aleo address.
func IsAddress(s string) bool {
	if len(s) != addressLength || !strings.HasPrefix(s, addressPrefix) {
		return false
	}
	for _, c := range s[len(addressPrefix):] {
		if !strings.ContainsRune(bech32Charset, c) {
			return false
		}
	}
	return true
}

// DecodeAddress parses an address literal, stripping its visibility.
func DecodeAddress(literal string) (string, error) {
	a := StripVisibility(strings.TrimSpace(literal))
	if !IsAddress(a) {
		return "", decodingErr(literal, "not an Aleo address")
	}
	return a, nil
}
