package records

import (
	"time"

	"github.com/R3E-Network/zkfactor/internal/codec"
	"github.com/R3E-Network/zkfactor/internal/ledger"
)

// Record kinds of the factoring program and the credits program.
const (
	InvoiceRecord         = "Invoice"
	FactoredInvoiceRecord = "FactoredInvoice"
	CreditsRecord         = "credits"
)

// Invoice is a decoded Invoice record.
type Invoice struct {
	Owner       string    `json:"owner"`
	Debtor      string    `json:"debtor"`
	Amount      uint64    `json:"amount"`
	DueDate     time.Time `json:"due_date"`
	InvoiceHash string    `json:"invoice_hash"`
	Nonce       string    `json:"nonce,omitempty"`
	Metadata    string    `json:"metadata,omitempty"`
	Spent       bool      `json:"spent"`

	Record ledger.Record `json:"-"`
}

// FactoredInvoice is a decoded FactoredInvoice record.
type FactoredInvoice struct {
	Owner            string    `json:"owner"`
	OriginalCreditor string    `json:"original_creditor"`
	Debtor           string    `json:"debtor"`
	Amount           uint64    `json:"amount"`
	AdvanceAmount    uint64    `json:"advance_amount"`
	AdvanceRate      uint16    `json:"advance_rate"`
	DueDate          time.Time `json:"due_date"`
	InvoiceHash      string    `json:"invoice_hash"`
	Recourse         bool      `json:"recourse"`
	Spent            bool      `json:"spent"`

	Record ledger.Record `json:"-"`
}

// Credits is a decoded credits record.
type Credits struct {
	Owner        string `json:"owner"`
	Microcredits uint64 `json:"microcredits"`
	Spent        bool   `json:"spent"`

	Record ledger.Record `json:"-"`
}

// fieldReader decodes required and optional fields of one record and keeps
// the first error.
type fieldReader struct {
	rec ledger.Record
	err error
}

func (f *fieldReader) literal(name string, required bool) string {
	if f.err != nil {
		return ""
	}
	lit := f.rec.Field(name)
	if lit == "" && required {
		f.err = &codec.DecodingError{Field: name, Reason: "required field missing"}
	}
	return lit
}

func (f *fieldReader) fail(name string, err error) {
	if f.err == nil && err != nil {
		f.err = &codec.DecodingError{Field: name, Literal: f.rec.Field(name), Reason: err.Error()}
	}
}

func (f *fieldReader) address(name string) string {
	lit := f.literal(name, true)
	if lit == "" {
		return ""
	}
	a, err := codec.DecodeAddress(lit)
	f.fail(name, err)
	return a
}

func (f *fieldReader) u64(name string) uint64 {
	lit := f.literal(name, true)
	if lit == "" {
		return 0
	}
	v, err := codec.DecodeU64(lit)
	f.fail(name, err)
	return v
}

func (f *fieldReader) u16(name string) uint16 {
	lit := f.literal(name, true)
	if lit == "" {
		return 0
	}
	v, err := codec.DecodeU16(lit)
	f.fail(name, err)
	return v
}

func (f *fieldReader) field(name string, required bool) string {
	lit := f.literal(name, required)
	if lit == "" {
		return ""
	}
	_, err := codec.DecodeField(lit)
	f.fail(name, err)
	return lit
}

func (f *fieldReader) unixTime(name string) time.Time {
	secs := f.u64(name)
	if f.err != nil {
		return time.Time{}
	}
	return time.Unix(int64(secs), 0).UTC()
}

func (f *fieldReader) optionalBool(name string) bool {
	lit := f.literal(name, false)
	if lit == "" {
		return false
	}
	b, err := codec.DecodeBool(lit)
	f.fail(name, err)
	return b
}

func (f *fieldReader) owner() string {
	if f.rec.Owner != "" {
		return codec.StripVisibility(f.rec.Owner)
	}
	return f.address("owner")
}

// DecodeInvoice decodes an Invoice record. nonce and metadata are optional.
func DecodeInvoice(rec ledger.Record) (Invoice, error) {
	f := &fieldReader{rec: rec}
	inv := Invoice{
		Owner:       f.owner(),
		Debtor:      f.address("debtor"),
		Amount:      f.u64("amount"),
		DueDate:     f.unixTime("due_date"),
		InvoiceHash: f.field("invoice_hash", true),
		Nonce:       f.literal("nonce", false),
		Metadata:    f.literal("metadata", false),
		Spent:       rec.Spent,
		Record:      rec,
	}
	if f.err != nil {
		return Invoice{}, f.err
	}
	return inv, nil
}

// DecodeFactoredInvoice decodes a FactoredInvoice record. recourse is optional.
func DecodeFactoredInvoice(rec ledger.Record) (FactoredInvoice, error) {
	f := &fieldReader{rec: rec}
	fi := FactoredInvoice{
		Owner:            f.owner(),
		OriginalCreditor: f.address("original_creditor"),
		Debtor:           f.address("debtor"),
		Amount:           f.u64("amount"),
		AdvanceAmount:    f.u64("advance_amount"),
		AdvanceRate:      f.u16("advance_rate"),
		DueDate:          f.unixTime("due_date"),
		InvoiceHash:      f.field("invoice_hash", true),
		Recourse:         f.optionalBool("recourse"),
		Spent:            rec.Spent,
		Record:           rec,
	}
	if f.err != nil {
		return FactoredInvoice{}, f.err
	}
	return fi, nil
}

// DecodeCredits decodes a credits record.
func DecodeCredits(rec ledger.Record) (Credits, error) {
	f := &fieldReader{rec: rec}
	c := Credits{
		Owner:        f.owner(),
		Microcredits: f.u64("microcredits"),
		Spent:        rec.Spent,
		Record:       rec,
	}
	if f.err != nil {
		return Credits{}, f.err
	}
	return c, nil
}

// DecodeInvoices decodes every Invoice record in recs, skipping other kinds.
// Malformed records are returned in skipped rather than failing the listing.
func DecodeInvoices(recs []ledger.Record) (out []Invoice, skipped []error) {
	for _, r := range FilterKind(recs, InvoiceRecord) {
		inv, err := DecodeInvoice(r)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		out = append(out, inv)
	}
	return out, skipped
}

// DecodeFactoredInvoices decodes every FactoredInvoice record in recs.
func DecodeFactoredInvoices(recs []ledger.Record) (out []FactoredInvoice, skipped []error) {
	for _, r := range FilterKind(recs, FactoredInvoiceRecord) {
		fi, err := DecodeFactoredInvoice(r)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		out = append(out, fi)
	}
	return out, skipped
}
