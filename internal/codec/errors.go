package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoding is matched (errors.Is) by every *EncodingError.
	ErrEncoding = errors.New("encoding error")
	// ErrDecoding is matched (errors.Is) by every *DecodingError.
	ErrDecoding = errors.New("decoding error")
)

// EncodingError reports user input that cannot be rendered as a ledger literal.
// It is raised before anything is submitted.
type EncodingError struct {
	Value  string
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("encode: %s", e.Reason)
	}
	return fmt.Sprintf("encode %q: %s", e.Value, e.Reason)
}

func (e *EncodingError) Unwrap() error { return ErrEncoding }

// DecodingError reports a literal or record field that could not be parsed.
type DecodingError struct {
	Field   string
	Literal string
	Reason  string
}

func (e *DecodingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("decode field %s (%q): %s", e.Field, e.Literal, e.Reason)
	}
	return fmt.Sprintf("decode %q: %s", e.Literal, e.Reason)
}

func (e *DecodingError) Unwrap() error { return ErrDecoding }

func encodingErr(value, format string, args ...interface{}) error {
	return &EncodingError{Value: value, Reason: fmt.Sprintf(format, args...)}
}

func decodingErr(literal, format string, args ...interface{}) error {
	return &DecodingError{Literal: literal, Reason: fmt.Sprintf(format, args...)}
}
