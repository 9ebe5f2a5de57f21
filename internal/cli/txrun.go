package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/zkfactor/internal/factoring"
	"github.com/R3E-Network/zkfactor/internal/txlifecycle"
)

// TxOptions are the flags shared by every command that submits a
// transaction.
type TxOptions struct {
	NoWait  bool
	Timeout time.Duration
}

func (t *TxOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&t.NoWait, "no-wait", false, "return once the transaction is broadcast")
	cmd.Flags().DurationVar(&t.Timeout, "timeout", 10*time.Minute, "how long to wait for a terminal status")
}

// TxResult is the output of a transaction command.
type TxResult struct {
	Outcome       txlifecycle.Outcome `json:"outcome"`
	Message       string              `json:"message"`
	ExplorerURL   string              `json:"explorer_url,omitempty"`
	InvoiceNumber string              `json:"invoice_number,omitempty"`
	InvoiceHash   string              `json:"invoice_hash,omitempty"`
}

type txCall struct {
	function string
	exec     func(ctx context.Context, app *App) (txlifecycle.Outcome, error)
	decorate func(*TxResult)
}

// runTransaction executes call, follows it to a terminal state unless
// --no-wait is set, and prints the result. A failed, rejected or timed-out
// transaction exits with ExitFailure.
func runTransaction(cmd *cobra.Command, opts *RootOptions, txo *TxOptions, call txCall) error {
	ctx := cmd.Context()
	app, err := opts.load(ctx, false)
	if err != nil {
		return err
	}
	defer app.Close()

	out := opts.formatter(cmd)
	var sp *Spinner
	if !out.JSON() {
		sp = NewSpinner(cmd.ErrOrStderr(), call.function)
		app.Coordinator.OnTransition(func(_, next txlifecycle.Outcome) {
			if !next.Status.Terminal() {
				sp.SetSuffix(factoring.ProgressMessage(next))
			}
		})
		sp.Start()
	}
	stop := func() {
		if sp != nil {
			sp.Stop()
		}
	}

	start := time.Now()
	o, err := call.exec(ctx, app)
	if err != nil {
		stop()
		_ = out.Error(factoring.ErrorCode(err), factoring.FriendlyMessage(call.function, err), factoring.Retryable(err))
		return reported(ExitCommandError, call.function, err)
	}

	if !txo.NoWait && !o.Status.Terminal() {
		wctx, cancel := context.WithTimeout(ctx, txo.Timeout)
		o, err = app.Coordinator.Wait(wctx)
		cancel()
		if err != nil && wctx.Err() == nil {
			stop()
			return WrapExitError(ExitCommandError, "wait for transaction", err)
		}
	}
	stop()

	res := TxResult{Outcome: o, Message: factoring.ProgressMessage(o)}
	if id := o.TransactionID(); id != "" {
		res.ExplorerURL = strings.TrimRight(app.Config.ExplorerURL, "/") + "/transaction/" + id
	}
	if call.decorate != nil {
		call.decorate(&res)
	}

	if err := out.Success(res, func(w io.Writer) { printTxResult(w, res, time.Since(start)) }); err != nil {
		return err
	}
	if o.Kind != nil {
		return reported(ExitFailure, call.function, o.Err())
	}
	return nil
}

func printTxResult(w io.Writer, res TxResult, elapsed time.Duration) {
	o := res.Outcome
	colorize := isTerminal(w)
	switch {
	case o.Status == txlifecycle.StatusAccepted:
		fmt.Fprintf(w, "%s %s (%s)\n", mark("✓", ColorGreen, colorize), res.Message, formatDuration(elapsed))
	case o.Kind != nil:
		fmt.Fprintf(w, "%s %s\n", mark("✗", ColorRed, colorize), res.Message)
	default:
		fmt.Fprintf(w, "%s still %s after %s\n", mark("⚠", ColorYellow, colorize), o.Status, formatDuration(elapsed))
	}
	if id := o.TransactionID(); id != "" {
		fmt.Fprintf(w, "  transaction: %s\n", id)
	}
	if res.InvoiceNumber != "" {
		fmt.Fprintf(w, "  invoice:     %s\n", res.InvoiceNumber)
	}
	if res.InvoiceHash != "" {
		fmt.Fprintf(w, "  hash:        %s\n", res.InvoiceHash)
	}
	if res.ExplorerURL != "" {
		fmt.Fprintf(w, "  explorer:    %s\n", res.ExplorerURL)
	}
}
