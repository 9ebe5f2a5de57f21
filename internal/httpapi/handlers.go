package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/zkfactor/internal/codec"
	"github.com/R3E-Network/zkfactor/internal/factoring"
	"github.com/R3E-Network/zkfactor/internal/httputil"
	"github.com/R3E-Network/zkfactor/internal/storage"
	"github.com/R3E-Network/zkfactor/internal/txlifecycle"
)

const maxWait = 2 * time.Minute

// TxResponse is returned by every operation that submits a transaction.
type TxResponse struct {
	Outcome       txlifecycle.Outcome `json:"outcome"`
	Message       string              `json:"message,omitempty"`
	Retryable     bool                `json:"retryable"`
	InvoiceNumber string              `json:"invoice_number,omitempty"`
	InvoiceHash   string              `json:"invoice_hash,omitempty"`
}

func newTxResponse(o txlifecycle.Outcome) TxResponse {
	return TxResponse{
		Outcome:   o,
		Message:   factoring.ProgressMessage(o),
		Retryable: txlifecycle.Retryable(o.Err()),
	}
}

type createInvoiceRequest struct {
	InvoiceNumber string    `json:"invoice_number"`
	Debtor        string    `json:"debtor"`
	Amount        uint64    `json:"amount"`
	AmountCredits string    `json:"amount_credits"`
	DueDate       time.Time `json:"due_date"`
}

type factorInvoiceRequest struct {
	Creditor    string `json:"creditor"`
	AdvanceRate uint16 `json:"advance_rate"`
}

type registerFactorRequest struct {
	MinAdvanceRate uint16 `json:"min_advance_rate"`
	MaxAdvanceRate uint16 `json:"max_advance_rate"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	coord := s.svc.Coordinator()
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"program":     s.svc.ProgramID(),
		"tx_status":   coord.Outcome().Status,
		"pollers":     coord.ActivePollers(),
		"subscribers": s.hub.Subscribers(),
	})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, s.svc.Coordinator().Outcome)
}

func listOptions(r *http.Request) factoring.ListOptions {
	q := r.URL.Query()
	return factoring.ListOptions{
		Refresh:      queryBool(q.Get("refresh")),
		Search:       q.Get("search"),
		SortBy:       q.Get("sort"),
		Desc:         queryBool(q.Get("desc")),
		IncludeSpent: queryBool(q.Get("include_spent")),
	}
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.ListInvoices(r.Context(), listOptions(r))
	if err != nil {
		s.writeError(w, "", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleListFactored(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.ListFactoredInvoices(r.Context(), listOptions(r))
	if err != nil {
		s.writeError(w, "", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	amount := req.Amount
	if req.AmountCredits != "" {
		parsed, err := codec.ParseDecimalAmount(req.AmountCredits)
		if err != nil {
			s.writeError(w, factoring.FnMintInvoice, err)
			return
		}
		amount = parsed
	}
	number := strings.TrimSpace(req.InvoiceNumber)
	if number == "" {
		number = factoring.NewInvoiceNumber(time.Now())
	}

	o, err := s.svc.CreateInvoice(r.Context(), factoring.CreateInvoiceInput{
		Number:  number,
		Debtor:  req.Debtor,
		Amount:  amount,
		DueDate: req.DueDate,
	})
	if err != nil {
		s.writeError(w, factoring.FnMintInvoice, err)
		return
	}
	resp := newTxResponse(o)
	resp.InvoiceNumber = number
	if debtor, err := codec.EncodeAddress(req.Debtor); err == nil {
		resp.InvoiceHash = factoring.InvoiceHash(number, debtor, amount)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFactorInvoice(w http.ResponseWriter, r *http.Request) {
	var req factorInvoiceRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	hash := mux.Vars(r)["hash"]
	o, err := s.svc.FactorInvoice(r.Context(), factoring.FactorInvoiceInput{
		InvoiceHash: hash,
		Creditor:    req.Creditor,
		AdvanceRate: req.AdvanceRate,
	})
	if err != nil {
		s.writeError(w, factoring.FnFactorInvoice, err)
		return
	}
	resp := newTxResponse(o)
	resp.InvoiceHash = hash
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSettleInvoice(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	o, err := s.svc.SettleInvoice(r.Context(), hash)
	if err != nil {
		s.writeError(w, factoring.FnSettleInvoice, err)
		return
	}
	resp := newTxResponse(o)
	resp.InvoiceHash = hash
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterFactor(w http.ResponseWriter, r *http.Request) {
	var req registerFactorRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	o, err := s.svc.RegisterFactor(r.Context(), req.MinAdvanceRate, req.MaxAdvanceRate)
	if err != nil {
		s.writeError(w, factoring.FnRegisterFactor, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newTxResponse(o))
}

func (s *Server) handleDeregisterFactor(w http.ResponseWriter, r *http.Request) {
	o, err := s.svc.DeregisterFactor(r.Context())
	if err != nil {
		s.writeError(w, factoring.FnDeregisterFactor, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newTxResponse(o))
}

func (s *Server) handleFactorStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.FactorStatus(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		s.writeError(w, "", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (s *Server) handleTxStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, newTxResponse(s.svc.Coordinator().Outcome()))
}

// handleTxWait long-polls until the current transaction settles. The wait is
// bounded by ?timeout= (a Go duration, default and cap two minutes).
func (s *Server) handleTxWait(w http.ResponseWriter, r *http.Request) {
	timeout := maxWait
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			httputil.BadRequest(w, "invalid timeout")
			return
		}
		if d < timeout {
			timeout = d
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	o, err := s.svc.Coordinator().Wait(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, "", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newTxResponse(o))
}

func (s *Server) handleTxReset(w http.ResponseWriter, r *http.Request) {
	s.svc.Coordinator().Reset()
	httputil.WriteJSON(w, http.StatusOK, newTxResponse(s.svc.Coordinator().Outcome()))
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	hist := s.svc.History()
	if hist == nil {
		httputil.WriteJSON(w, http.StatusOK, []storage.HistoryEntry{})
		return
	}
	q := r.URL.Query()
	filter := storage.ListFilter{Program: q.Get("program"), Status: q.Get("status")}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = n
	}
	entries, err := hist.ListEntries(r.Context(), filter)
	if err != nil {
		s.writeError(w, "", err)
		return
	}
	if entries == nil {
		entries = []storage.HistoryEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	hist := s.svc.History()
	if hist == nil {
		httputil.NotFound(w, "history is not enabled")
		return
	}
	entry, err := hist.GetEntry(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, "", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var err error
	if s.syncer != nil {
		err = s.syncer.RunOnce(r.Context())
	} else {
		err = s.svc.RefreshRecords(r.Context())
	}
	if err != nil {
		s.writeError(w, "", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}
