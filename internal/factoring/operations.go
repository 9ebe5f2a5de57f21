package factoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/zkfactor/internal/codec"
	"github.com/R3E-Network/zkfactor/internal/ledger"
	"github.com/R3E-Network/zkfactor/internal/records"
	"github.com/R3E-Network/zkfactor/internal/txlifecycle"
)

// CreateInvoiceInput describes a new invoice. Amount is in microcredits.
type CreateInvoiceInput struct {
	Number  string    `json:"invoice_number"`
	Debtor  string    `json:"debtor"`
	Amount  uint64    `json:"amount"`
	DueDate time.Time `json:"due_date"`
}

// FactorInvoiceInput sells an invoice to a factor at AdvanceRate basis points.
type FactorInvoiceInput struct {
	InvoiceHash string `json:"invoice_hash"`
	Creditor    string `json:"creditor"`
	AdvanceRate uint16 `json:"advance_rate"`
}

// InvoiceHash derives the invoice's on-chain identifier.
func InvoiceHash(number, debtor string, amount uint64) string {
	return codec.CanonicalHash(number, debtor, amount)
}

// CreateInvoice mints an Invoice record for the given debtor.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (txlifecycle.Outcome, error) {
	number := strings.TrimSpace(in.Number)
	if number == "" {
		return txlifecycle.Outcome{}, &codec.EncodingError{Reason: "invoice number is required"}
	}
	debtor, err := codec.EncodeAddress(in.Debtor)
	if err != nil {
		return txlifecycle.Outcome{}, fmt.Errorf("debtor: %w", err)
	}
	if in.Amount == 0 {
		return txlifecycle.Outcome{}, &codec.EncodingError{Value: "0", Reason: "amount must be positive"}
	}
	if !in.DueDate.After(s.now()) {
		return txlifecycle.Outcome{}, &codec.EncodingError{
			Value:  in.DueDate.Format(time.RFC3339),
			Reason: "due date must be in the future",
		}
	}

	hash := InvoiceHash(number, debtor, in.Amount)
	if err := s.checkInvoiceUnique(ctx, hash); err != nil {
		return txlifecycle.Outcome{}, err
	}

	inputs := []string{
		debtor,
		codec.EncodeU64(in.Amount),
		codec.EncodeU64(uint64(in.DueDate.Unix())),
		hash,
		codec.PackMetadata(number),
	}
	return s.execute(ctx, FnMintInvoice, inputs)
}

// checkInvoiceUnique rejects a hash the wallet already holds. A listing
// failure does not block minting.
func (s *Service) checkInvoiceUnique(ctx context.Context, hash string) error {
	recs, err := s.Records(ctx, s.cfg.ProgramID, false)
	if err != nil {
		s.log.WithError(err).Warn("skip duplicate invoice check")
		return nil
	}
	for _, r := range records.Unspent(records.FilterKind(recs, records.InvoiceRecord)) {
		if r.Field("invoice_hash") == hash {
			return fmt.Errorf("%w: %s", ErrInvoiceExists, hash)
		}
	}
	return nil
}

// FactorInvoice sells an unspent invoice, paying the advance from a credits
// record large enough to cover it.
func (s *Service) FactorInvoice(ctx context.Context, in FactorInvoiceInput) (txlifecycle.Outcome, error) {
	if err := ValidateAdvanceRate(in.AdvanceRate); err != nil {
		return txlifecycle.Outcome{}, err
	}
	creditor, err := codec.EncodeAddress(in.Creditor)
	if err != nil {
		return txlifecycle.Outcome{}, fmt.Errorf("creditor: %w", err)
	}
	hash, err := normalizeHash(in.InvoiceHash)
	if err != nil {
		return txlifecycle.Outcome{}, err
	}

	inv, err := s.findInvoice(ctx, hash)
	if err != nil {
		return txlifecycle.Outcome{}, err
	}
	advance, err := AdvanceAmount(inv.Amount, in.AdvanceRate)
	if err != nil {
		return txlifecycle.Outcome{}, err
	}
	funding, err := s.selectCredits(ctx, advance)
	if err != nil {
		return txlifecycle.Outcome{}, err
	}

	inputs := []string{
		inv.Record.Plaintext,
		funding.Plaintext,
		creditor,
		codec.EncodeU16(in.AdvanceRate),
		codec.EncodeU64(advance),
	}
	return s.execute(ctx, FnFactorInvoice, inputs)
}

// SettleInvoice pays a factored invoice's face amount and retires it.
func (s *Service) SettleInvoice(ctx context.Context, invoiceHash string) (txlifecycle.Outcome, error) {
	hash, err := normalizeHash(invoiceHash)
	if err != nil {
		return txlifecycle.Outcome{}, err
	}
	fi, err := s.findFactoredInvoice(ctx, hash)
	if err != nil {
		return txlifecycle.Outcome{}, err
	}
	funding, err := s.selectCredits(ctx, fi.Amount)
	if err != nil {
		return txlifecycle.Outcome{}, err
	}
	return s.execute(ctx, FnSettleInvoice, []string{fi.Record.Plaintext, funding.Plaintext})
}

// RegisterFactor advertises the caller as a factor accepting rates in
// [minBps, maxBps].
func (s *Service) RegisterFactor(ctx context.Context, minBps, maxBps uint16) (txlifecycle.Outcome, error) {
	if err := ValidateRegistration(minBps, maxBps); err != nil {
		return txlifecycle.Outcome{}, err
	}
	return s.execute(ctx, FnRegisterFactor, []string{codec.EncodeU16(minBps), codec.EncodeU16(maxBps)})
}

// DeregisterFactor withdraws the caller from the factor network.
func (s *Service) DeregisterFactor(ctx context.Context) (txlifecycle.Outcome, error) {
	return s.execute(ctx, FnDeregisterFactor, []string{})
}

func (s *Service) findInvoice(ctx context.Context, hash string) (records.Invoice, error) {
	recs, err := s.Records(ctx, s.cfg.ProgramID, false)
	if err != nil {
		return records.Invoice{}, err
	}
	for _, r := range records.Unspent(records.FilterKind(recs, records.InvoiceRecord)) {
		if r.Field("invoice_hash") != hash {
			continue
		}
		inv, err := records.DecodeInvoice(r)
		if err != nil {
			return records.Invoice{}, fmt.Errorf("invoice %s: %w", hash, err)
		}
		if inv.Record.Plaintext == "" {
			return records.Invoice{}, fmt.Errorf("invoice %s: %w", hash, ErrPlaintextMissing)
		}
		return inv, nil
	}
	return records.Invoice{}, fmt.Errorf("%w: %s", ErrInvoiceNotFound, hash)
}

func (s *Service) findFactoredInvoice(ctx context.Context, hash string) (records.FactoredInvoice, error) {
	recs, err := s.Records(ctx, s.cfg.ProgramID, false)
	if err != nil {
		return records.FactoredInvoice{}, err
	}
	for _, r := range records.Unspent(records.FilterKind(recs, records.FactoredInvoiceRecord)) {
		if r.Field("invoice_hash") != hash {
			continue
		}
		fi, err := records.DecodeFactoredInvoice(r)
		if err != nil {
			return records.FactoredInvoice{}, fmt.Errorf("factored invoice %s: %w", hash, err)
		}
		if fi.Record.Plaintext == "" {
			return records.FactoredInvoice{}, fmt.Errorf("factored invoice %s: %w", hash, ErrPlaintextMissing)
		}
		return fi, nil
	}
	return records.FactoredInvoice{}, fmt.Errorf("%w: %s", ErrInvoiceNotFound, hash)
}

// selectCredits picks a funding record. The credits listing is always
// re-read so a record spent by an earlier transaction is not offered again.
func (s *Service) selectCredits(ctx context.Context, required uint64) (ledger.Record, error) {
	recs, err := s.Records(ctx, ledger.CreditsProgram, true)
	if err != nil {
		return ledger.Record{}, err
	}
	withPlaintext := make([]ledger.Record, 0, len(recs))
	for _, r := range recs {
		if r.Plaintext != "" {
			withPlaintext = append(withPlaintext, r)
		}
	}
	rec, err := records.SelectFunding(withPlaintext, required)
	if err != nil {
		return ledger.Record{}, err
	}
	return rec, nil
}

// normalizeHash accepts a field literal with or without its suffix.
func normalizeHash(raw string) (string, error) {
	h := codec.StripVisibility(strings.TrimSpace(raw))
	if h == "" {
		return "", &codec.EncodingError{Reason: "invoice hash is required"}
	}
	if !strings.HasSuffix(h, codec.FieldSuffix) {
		h += codec.FieldSuffix
	}
	if _, err := codec.DecodeField(h); err != nil {
		return "", &codec.EncodingError{Value: raw, Reason: "invalid invoice hash"}
	}
	return h, nil
}

// IsValidationError reports whether err was raised before submission
// because of bad input.
func IsValidationError(err error) bool {
	return errors.Is(err, codec.ErrEncoding)
}
