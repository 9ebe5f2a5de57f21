package factoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/R3E-Network/zkfactor/internal/codec"
	"github.com/R3E-Network/zkfactor/internal/ledger"
	"github.com/R3E-Network/zkfactor/internal/records"
	"github.com/R3E-Network/zkfactor/internal/storage"
	"github.com/R3E-Network/zkfactor/internal/txlifecycle"
)

// Progress texts shown while a transaction is in flight.
const (
	MsgGeneratingProof = "Generating proof…"
	MsgBroadcasting    = "Broadcasting…"
)

var successMessages = map[string]string{
	FnMintInvoice:      "Invoice created successfully!",
	FnFactorInvoice:    "Invoice factored successfully!",
	FnSettleInvoice:    "Invoice settled successfully!",
	FnRegisterFactor:   "Registered as factor!",
	FnDeregisterFactor: "Deregistered from factor network!",
}

// ProgressMessage is the single user-facing line for an outcome.
func ProgressMessage(o txlifecycle.Outcome) string {
	switch o.Status {
	case txlifecycle.StatusSubmitting:
		return MsgGeneratingProof
	case txlifecycle.StatusPending:
		return MsgBroadcasting
	case txlifecycle.StatusAccepted:
		if msg, ok := successMessages[o.Function]; ok {
			return msg
		}
		return "Transaction accepted"
	case txlifecycle.StatusFailed, txlifecycle.StatusTimeout:
		return FriendlyError(o.Function, o)
	}
	return ""
}

// FriendlyError rewrites known ledger rejection texts.
func FriendlyError(function string, o txlifecycle.Outcome) string {
	msg := o.Error
	lower := strings.ToLower(msg)
	switch {
	case msg == "":
		return ""
	case strings.Contains(lower, "already settled"):
		return "Invoice already settled"
	case function == FnRegisterFactor && (strings.Contains(lower, "already") || strings.Contains(lower, "active")):
		return "Already registered as factor"
	}
	return msg
}

// FriendlyMessage renders an error returned before submission.
func FriendlyMessage(function string, err error) string {
	var ife *records.InsufficientFundsError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ife):
		switch function {
		case FnSettleInvoice:
			return fmt.Sprintf("Insufficient balance for settlement: need %s credits", codec.FormatCredits(ife.Required))
		case FnFactorInvoice:
			return fmt.Sprintf("Insufficient balance for advance: need %s credits", codec.FormatCredits(ife.Required))
		}
		return fmt.Sprintf("Insufficient balance: need %s credits", codec.FormatCredits(ife.Required))
	case errors.Is(err, ErrInvoiceExists):
		return "Invoice already exists"
	case errors.Is(err, ErrInvoiceNotFound):
		return "Invoice not found"
	}
	return err.Error()
}

// Retryable reports whether the same request may be retried unchanged.
// Validation and funding failures need different input; transport failures
// and timeouts do not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if IsValidationError(err) || errors.Is(err, records.ErrInsufficientFunds) {
		return false
	}
	return txlifecycle.Retryable(err)
}

// Error codes reported by the API and the CLI.
const (
	CodeInvalidInput      = "invalid_input"
	CodeInsufficientFunds = "insufficient_funds"
	CodeInvoiceExists     = "invoice_exists"
	CodeNotFound          = "not_found"
	CodeNotWhitelisted    = "program_not_whitelisted"
	CodeUnavailable       = "unavailable"
	CodeInternal          = "internal"
)

// ErrorCode classifies err for callers outside the process.
func ErrorCode(err error) string {
	switch {
	case IsValidationError(err), errors.Is(err, txlifecycle.ErrInvalidRequest):
		return CodeInvalidInput
	case errors.Is(err, records.ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ErrInvoiceExists):
		return CodeInvoiceExists
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, storage.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ledger.ErrProgramNotWhitelisted):
		return CodeNotWhitelisted
	case errors.Is(err, txlifecycle.ErrClosed):
		return CodeUnavailable
	}
	return CodeInternal
}
