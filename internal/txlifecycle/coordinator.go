// Package txlifecycle drives a single submitted transaction from broadcast to
// a terminal state by polling the wallet for its status.
//
// A Coordinator owns at most one live transaction. Every Execute starts a new
// generation; submission results and poll responses belonging to an older
// generation are discarded, so a superseded transaction can never overwrite
// the state of its successor.
package txlifecycle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/R3E-Network/zkfactor/internal/ledger"
	"github.com/R3E-Network/zkfactor/pkg/logger"
)

const (
	// DefaultPollInterval is the delay between status polls.
	DefaultPollInterval = 3 * time.Second
	// DefaultMaxAttempts bounds polling to five minutes at the default interval.
	DefaultMaxAttempts = 100
	// DefaultSubmitTimeout bounds one submission, proof generation included.
	DefaultSubmitTimeout = 2 * time.Minute
)

// Config controls polling.
type Config struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	// MaxAttempts is the number of status polls after which a pending
	// transaction times out. 0 polls forever.
	MaxAttempts int `yaml:"max_attempts"`
	// SubmitTimeout bounds the wallet's submit call. The caller's
	// cancellation does not reach it.
	SubmitTimeout time.Duration `yaml:"submit_timeout"`
}

// DefaultConfig returns a 3s interval with a 100 poll budget.
func DefaultConfig() Config {
	return Config{PollInterval: DefaultPollInterval, MaxAttempts: DefaultMaxAttempts, SubmitTimeout: DefaultSubmitTimeout}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.metrics = r
		}
	}
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

type transition struct {
	prev, next Outcome
}

// Coordinator is the transaction lifecycle state machine.
type Coordinator struct {
	wallet  ledger.Wallet
	cfg     Config
	log     *logger.Logger
	metrics Recorder
	now     func() time.Time

	mu         sync.Mutex
	state      Outcome
	generation uint64
	closed     bool
	stopLoop   context.CancelFunc
	changed    chan struct{}
	hooks      []Hook
	queue      []transition

	// notifyMu serialises hook delivery so hooks observe transitions in order.
	notifyMu sync.Mutex

	pollers atomic.Int32
}

// New creates an idle coordinator. Non-positive PollInterval and
// SubmitTimeout fall back to their defaults; negative MaxAttempts is treated
// as 0.
func New(wallet ledger.Wallet, cfg Config, opts ...Option) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultSubmitTimeout
	}
	c := &Coordinator{
		wallet:  wallet,
		cfg:     cfg,
		log:     logger.NewNop(),
		metrics: nopRecorder{},
		now:     time.Now,
		state:   Outcome{Status: StatusIdle},
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnTransition registers a hook called after every status change.
func (c *Coordinator) OnTransition(h Hook) {
	if h == nil {
		return
	}
	c.mu.Lock()
	c.hooks = append(c.hooks, h)
	c.mu.Unlock()
}

// Outcome returns a snapshot of the current state.
func (c *Coordinator) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActivePollers returns the number of running poll loops. It is at most one
// once superseded loops have observed their cancellation.
func (c *Coordinator) ActivePollers() int {
	return int(c.pollers.Load())
}

// Execute submits req and drives it through its lifecycle. It returns after
// the submission and the first status poll; polling then continues in the
// background until a terminal state, Reset, a new Execute or Close.
//
// Broadcast and polling failures are reported through the returned Outcome,
// never as an error. The error is ErrClosed or ErrInvalidRequest only.
func (c *Coordinator) Execute(ctx context.Context, req ledger.TransactionRequest) (Outcome, error) {
	if strings.TrimSpace(req.Program) == "" || strings.TrimSpace(req.Function) == "" {
		return c.Outcome(), ErrInvalidRequest
	}
	req.Inputs = append([]string(nil), req.Inputs...)
	if req.Fee != nil {
		fee := *req.Fee
		req.Fee = &fee
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Outcome{}, ErrClosed
	}
	c.cancelLoopLocked()
	c.generation++
	gen := c.generation
	now := c.now()
	c.setLocked(Outcome{
		Generation: gen,
		Status:     StatusSubmitting,
		Program:    req.Program,
		Function:   req.Function,
		StartedAt:  now,
		UpdatedAt:  now,
	})
	c.mu.Unlock()
	c.flush()

	log := c.log.WithFields(map[string]interface{}{
		"generation": gen,
		"program":    req.Program,
		"function":   req.Function,
	})
	log.Debug("submitting transaction")

	// Once handed to the wallet a submission runs to completion: aborting the
	// call cannot recall a transaction the wallet may already broadcast.
	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.SubmitTimeout)
	res, err := c.wallet.Submit(submitCtx, req)
	expired := submitCtx.Err() != nil
	cancel()
	switch {
	case err != nil && (expired || isTimeout(err)):
		log.WithError(err).Warn("transaction submission outcome unknown")
		c.update(gen, func(o *Outcome) { c.failLocked(o, ErrSubmissionUnknown, msgSubmitUnknown+": "+err.Error()) })
		return c.Outcome(), nil
	case err != nil:
		log.WithError(err).Warn("transaction submission failed")
		c.update(gen, func(o *Outcome) { c.failLocked(o, ErrSubmission, err.Error()) })
		return c.Outcome(), nil
	case strings.TrimSpace(res.TransactionID) == "":
		log.Warn("wallet returned no transaction id")
		c.update(gen, func(o *Outcome) { c.failLocked(o, ErrSubmission, msgNoTransactionID) })
		return c.Outcome(), nil
	}

	id := strings.TrimSpace(res.TransactionID)
	if _, ok := c.update(gen, func(o *Outcome) {
		o.Status = StatusPending
		o.LocalID = id
	}); !ok {
		return c.Outcome(), nil
	}
	log.WithField("tx_id", id).Info("transaction broadcast")

	if done := c.poll(ctx, gen, id); !done {
		c.startLoop(gen, id)
	}
	return c.Outcome(), nil
}

// Wait blocks until the generation current at the time of the call reaches a
// terminal state or is superseded by Reset or Execute.
func (c *Coordinator) Wait(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	gen := c.state.Generation
	c.mu.Unlock()

	for {
		c.mu.Lock()
		snap, closed, ch := c.state, c.closed, c.changed
		c.mu.Unlock()

		if closed {
			return snap, ErrClosed
		}
		if snap.Generation != gen || snap.Status == StatusIdle || snap.Status.Terminal() {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ch:
		}
	}
}

// Reset stops polling and returns the coordinator to idle. The broadcast
// transaction, if any, is not cancelled on the ledger.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancelLoopLocked()
	c.generation++
	c.setLocked(Outcome{Generation: c.generation, Status: StatusIdle, UpdatedAt: c.now()})
	c.mu.Unlock()
	c.flush()
}

// Close tears the coordinator down. After Close no state changes and no hook
// runs for a transition that had not already happened.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancelLoopLocked()
	close(c.changed)
	c.changed = make(chan struct{})
}

// startLoop launches the background poller for gen unless gen was already
// superseded.
func (c *Coordinator) startLoop(gen uint64, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation || c.state.Status.Terminal() {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.stopLoop = cancel
	c.pollers.Add(1)
	go c.pollLoop(ctx, gen, id)
}

func (c *Coordinator) pollLoop(ctx context.Context, gen uint64, id string) {
	defer c.pollers.Add(-1)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.poll(ctx, gen, id) {
				return
			}
		}
	}
}

// poll performs one status query and applies it. It returns true when
// polling for gen must stop: a terminal state was reached or gen is stale.
func (c *Coordinator) poll(ctx context.Context, gen uint64, id string) bool {
	resp, err := c.wallet.Status(ctx, id)
	c.metrics.Poll()

	if err != nil && ctx.Err() != nil {
		// Cancelled by the caller or by Reset/Close; not a status failure.
		return !c.current(gen)
	}

	stop := true
	out, applied := c.update(gen, func(o *Outcome) {
		o.Attempts++
		if err != nil {
			c.failLocked(o, ErrStatusCheck, msgStatusCheck+": "+err.Error())
			return
		}
		switch classify(resp) {
		case StatusAccepted:
			o.Status = StatusAccepted
			o.ConfirmedID = strings.TrimSpace(resp.TransactionID)
			if o.ConfirmedID == "" {
				o.ConfirmedID = o.LocalID
			}
		case StatusFailed:
			reason := strings.TrimSpace(resp.Error)
			if reason == "" {
				reason = string(resp.Status)
			}
			c.failLocked(o, ErrRejected, reason)
		default:
			if c.cfg.MaxAttempts > 0 && o.Attempts >= c.cfg.MaxAttempts {
				o.Status = StatusTimeout
				o.Kind = ErrTimeout
				o.Error = msgTimedOut
				return
			}
			stop = false
		}
	})
	if !applied {
		return true
	}
	if stop {
		entry := c.log.WithFields(map[string]interface{}{"generation": gen, "tx_id": id, "status": out.Status})
		if out.Kind != nil {
			entry.WithField("reason", out.Error).Warn("transaction finished unsuccessfully")
		} else {
			entry.Info("transaction accepted")
		}
	}
	return stop
}

// isTimeout reports whether err is a deadline or a transport timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// classify maps a wallet status onto accepted, failed or pending. Unknown and
// empty statuses are inconclusive.
func classify(resp ledger.StatusResponse) Status {
	switch resp.Normalized() {
	case ledger.TxAccepted, "finalized", "completed":
		return StatusAccepted
	case ledger.TxFailed, ledger.TxRejected, "aborted":
		return StatusFailed
	}
	return StatusPending
}

func (c *Coordinator) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && gen == c.generation
}

// update applies fn to the state if gen is current and the coordinator is
// open, publishing a transition when the status changed. It returns the new
// state and whether fn was applied.
func (c *Coordinator) update(gen uint64, fn func(*Outcome)) (Outcome, bool) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return Outcome{}, false
	}
	next := c.state
	fn(&next)
	next.UpdatedAt = c.now()
	c.setLocked(next)
	c.mu.Unlock()
	c.flush()
	return next, true
}

func (c *Coordinator) failLocked(o *Outcome, kind error, msg string) {
	o.Status = StatusFailed
	o.Kind = kind
	o.Error = msg
}

// setLocked stores next, wakes waiters and queues a transition for hooks when
// the status changed.
func (c *Coordinator) setLocked(next Outcome) {
	prev := c.state
	c.state = next
	close(c.changed)
	c.changed = make(chan struct{})

	if prev.Status == next.Status && (prev.Generation == next.Generation || next.Status == StatusIdle) {
		return
	}
	c.metrics.Transition(string(next.Status))
	if next.Status.Terminal() && !next.StartedAt.IsZero() {
		c.metrics.Finished(string(next.Status), next.UpdatedAt.Sub(next.StartedAt))
	}
	c.queue = append(c.queue, transition{prev: prev, next: next})
}

func (c *Coordinator) cancelLoopLocked() {
	if c.stopLoop != nil {
		c.stopLoop()
		c.stopLoop = nil
	}
}

// flush delivers queued transitions to hooks in order.
func (c *Coordinator) flush() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		t := c.queue[0]
		c.queue = c.queue[1:]
		hooks := append([]Hook(nil), c.hooks...)
		c.mu.Unlock()

		for _, h := range hooks {
			h(t.prev, t.next)
		}
	}
}
