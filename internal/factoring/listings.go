package factoring

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/R3E-Network/zkfactor/internal/records"
)

// Sort keys for listings.
const (
	SortByDueDate = "due_date"
	SortByAmount  = "amount"
)

// ListOptions filters and orders a listing.
type ListOptions struct {
	Refresh bool
	// Search matches debtor or invoice hash, case-insensitively.
	Search string
	SortBy string
	Desc   bool
	// IncludeSpent keeps spent records in the listing.
	IncludeSpent bool
}

// ListInvoices returns the wallet's Invoice records.
func (s *Service) ListInvoices(ctx context.Context, opts ListOptions) ([]records.Invoice, error) {
	recs, err := s.Records(ctx, s.cfg.ProgramID, opts.Refresh)
	if err != nil {
		return nil, err
	}
	invoices, skipped := records.DecodeInvoices(recs)
	s.logSkipped(records.InvoiceRecord, skipped)

	out := make([]records.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if (opts.IncludeSpent || !inv.Spent) && matches(opts.Search, inv.Debtor, inv.InvoiceHash) {
			out = append(out, inv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(opts, out[i].Amount, out[j].Amount, out[i].DueDate, out[j].DueDate)
	})
	return out, nil
}

// ListFactoredInvoices returns the wallet's FactoredInvoice records.
func (s *Service) ListFactoredInvoices(ctx context.Context, opts ListOptions) ([]records.FactoredInvoice, error) {
	recs, err := s.Records(ctx, s.cfg.ProgramID, opts.Refresh)
	if err != nil {
		return nil, err
	}
	factored, skipped := records.DecodeFactoredInvoices(recs)
	s.logSkipped(records.FactoredInvoiceRecord, skipped)

	out := make([]records.FactoredInvoice, 0, len(factored))
	for _, fi := range factored {
		if (opts.IncludeSpent || !fi.Spent) && matches(opts.Search, fi.Debtor, fi.InvoiceHash) {
			out = append(out, fi)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(opts, out[i].Amount, out[j].Amount, out[i].DueDate, out[j].DueDate)
	})
	return out, nil
}

func (s *Service) logSkipped(kind string, skipped []error) {
	for _, err := range skipped {
		s.log.WithError(err).WithField("kind", kind).Warn("skipping undecodable record")
	}
}

func matches(query string, values ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

func less(opts ListOptions, amountA, amountB uint64, dueA, dueB time.Time) bool {
	var cmp int
	if opts.SortBy == SortByAmount {
		cmp = compareUint(amountA, amountB)
	} else {
		cmp = dueA.Compare(dueB)
	}
	if opts.Desc {
		return cmp > 0
	}
	return cmp < 0
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// NewInvoiceNumber returns "INV-<year>-<base36 millis>" for now.
func NewInvoiceNumber(now time.Time) string {
	return "INV-" + strconv.Itoa(now.Year()) + "-" + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
}
