package factoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/R3E-Network/zkfactor/internal/cache"
	"github.com/R3E-Network/zkfactor/internal/ledger"
	"github.com/R3E-Network/zkfactor/internal/storage"
	"github.com/R3E-Network/zkfactor/internal/txlifecycle"
	"github.com/R3E-Network/zkfactor/pkg/logger"
)

// Program functions.
const (
	FnMintInvoice      = "mint_invoice"
	FnFactorInvoice    = "factor_invoice"
	FnSettleInvoice    = "settle_invoice"
	FnRegisterFactor   = "register_factor"
	FnDeregisterFactor = "deregister_factor"
)

// ActiveFactorsMapping is the public mapping of registered factors.
const ActiveFactorsMapping = "active_factors"

var (
	// ErrInvoiceExists is returned when an unspent invoice with the same hash
	// is already held by the wallet.
	ErrInvoiceExists = errors.New("invoice already exists")
	// ErrInvoiceNotFound is returned when no unspent record carries the hash.
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrPlaintextMissing is returned when a record to be spent was listed
	// without its plaintext.
	ErrPlaintextMissing = errors.New("record plaintext unavailable")
)

// Config holds the service's static settings.
type Config struct {
	ProgramID string
	CacheTTL  time.Duration
	// Fee, when set, is attached to every transaction.
	Fee *ledger.Fee
}

// Deps are the collaborators of a Service. Cache and History are optional.
type Deps struct {
	Wallet      ledger.Wallet
	Mappings    ledger.MappingReader
	Coordinator *txlifecycle.Coordinator
	Cache       cache.Store
	History     storage.HistoryStore
	Logger      *logger.Logger
}

// Service runs the factoring operations for one wallet.
type Service struct {
	cfg      Config
	wallet   ledger.Wallet
	mappings ledger.MappingReader
	coord    *txlifecycle.Coordinator
	records  *cache.Records
	history  storage.HistoryStore
	log      *logger.Logger
	now      func() time.Time

	mu         sync.Mutex
	factorKeys map[string]struct{}
}

// NewService wires a Service and registers its transition hook on the
// coordinator.
func NewService(cfg Config, deps Deps) (*Service, error) {
	if strings.TrimSpace(cfg.ProgramID) == "" {
		return nil, errors.New("program id is required")
	}
	if deps.Wallet == nil {
		return nil, errors.New("wallet is required")
	}
	if deps.Coordinator == nil {
		return nil, errors.New("coordinator is required")
	}
	store := deps.Cache
	if store == nil {
		store = cache.NewMemory()
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}

	s := &Service{
		cfg:        cfg,
		wallet:     deps.Wallet,
		mappings:   deps.Mappings,
		coord:      deps.Coordinator,
		records:    cache.NewRecords(store, cfg.CacheTTL),
		history:    deps.History,
		log:        log.WithField("component", "factoring"),
		now:        time.Now,
		factorKeys: make(map[string]struct{}),
	}
	s.coord.OnTransition(s.onTransition)
	return s, nil
}

// ProgramID returns the factoring program id.
func (s *Service) ProgramID() string { return s.cfg.ProgramID }

// Coordinator exposes the lifecycle coordinator for status queries.
func (s *Service) Coordinator() *txlifecycle.Coordinator { return s.coord }

// History returns the history store, or nil when none is configured.
func (s *Service) History() storage.HistoryStore { return s.history }

// WhitelistedPrograms are the programs whose records may be listed.
func (s *Service) WhitelistedPrograms() []string {
	return []string{s.cfg.ProgramID, ledger.CreditsProgram}
}

func (s *Service) execute(ctx context.Context, function string, inputs []string) (txlifecycle.Outcome, error) {
	req := ledger.TransactionRequest{
		Program:  s.cfg.ProgramID,
		Function: function,
		Inputs:   inputs,
		Fee:      s.cfg.Fee,
	}
	s.log.WithFields(map[string]interface{}{"function": function, "inputs": len(inputs)}).Debug("executing")
	return s.coord.Execute(ctx, req)
}

// onTransition keeps caches and history in step with terminal outcomes.
// Records are never marked spent locally: after acceptance the listings are
// dropped so the next read re-queries the wallet.
func (s *Service) onTransition(_, next txlifecycle.Outcome) {
	if !next.Status.Terminal() || next.Program != s.cfg.ProgramID {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if next.Status == txlifecycle.StatusAccepted {
		if err := s.records.Invalidate(ctx, s.cfg.ProgramID, ledger.CreditsProgram); err != nil {
			s.log.WithError(err).Warn("invalidate record cache")
		}
		if next.Function == FnRegisterFactor || next.Function == FnDeregisterFactor {
			s.invalidateFactorStatus(ctx)
		}
	}

	if s.history == nil {
		return
	}
	entry := storage.HistoryEntry{
		Generation:  int64(next.Generation),
		Program:     next.Program,
		Function:    next.Function,
		LocalID:     next.LocalID,
		ConfirmedID: next.ConfirmedID,
		Status:      string(next.Status),
		Error:       next.Error,
		StartedAt:   next.StartedAt,
		FinishedAt:  next.UpdatedAt,
	}
	if next.Kind != nil {
		entry.ErrorKind = next.Kind.Error()
	}
	if _, err := s.history.RecordOutcome(ctx, entry); err != nil {
		s.log.WithError(err).Warn("record transaction history")
	}
}

func (s *Service) invalidateFactorStatus(ctx context.Context) {
	s.mu.Lock()
	keys := make([]string, 0, len(s.factorKeys))
	for k := range s.factorKeys {
		keys = append(keys, k)
	}
	s.factorKeys = make(map[string]struct{})
	s.mu.Unlock()

	if err := s.records.Store().Delete(ctx, keys...); err != nil {
		s.log.WithError(err).Warn("invalidate factor status cache")
	}
}

// Records returns the wallet's records for program, served from cache unless
// refresh is set. Programs outside the whitelist are refused.
func (s *Service) Records(ctx context.Context, program string, refresh bool) ([]ledger.Record, error) {
	if !s.allowed(program) {
		return nil, fmt.Errorf("%w: %s", ledger.ErrProgramNotWhitelisted, program)
	}
	if !refresh {
		recs, ok, err := s.records.Get(ctx, program)
		if err != nil {
			s.log.WithError(err).Warn("read record cache")
		} else if ok {
			return recs, nil
		}
	}

	recs, err := s.wallet.Records(ctx, program, true)
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", program, err)
	}
	if err := s.records.Put(ctx, program, recs); err != nil {
		s.log.WithError(err).Warn("write record cache")
	}
	return recs, nil
}

// RefreshRecords re-reads every whitelisted program's records into the cache.
func (s *Service) RefreshRecords(ctx context.Context) error {
	var errs []error
	for _, p := range s.WhitelistedPrograms() {
		if _, err := s.Records(ctx, p, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) allowed(program string) bool {
	for _, p := range s.WhitelistedPrograms() {
		if p == program {
			return true
		}
	}
	return false
}
