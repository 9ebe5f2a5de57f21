package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/zkfactor/internal/factoring"
	"github.com/R3E-Network/zkfactor/internal/ledger"
	"github.com/R3E-Network/zkfactor/internal/storage"
)

// NewTxCommand groups transaction queries.
func NewTxCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Inspect transactions",
	}
	cmd.AddCommand(newTxStatusCommand(opts))
	cmd.AddCommand(newTxShowCommand(opts))
	cmd.AddCommand(newTxHistoryCommand(opts))
	return cmd
}

// TxStatusResult is the output of tx status.
type TxStatusResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	ConfirmedID   string `json:"confirmed_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

func newTxStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <transaction-id>",
		Short: "Ask the wallet for a transaction's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := opts.load(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			out := opts.formatter(cmd)
			resp, err := app.Wallet.Status(ctx, args[0])
			if err != nil {
				_ = out.Error(factoring.CodeInternal, err.Error(), true)
				return reported(ExitCommandError, "tx status", err)
			}
			res := TxStatusResult{
				TransactionID: args[0],
				Status:        string(resp.Normalized()),
				ConfirmedID:   resp.TransactionID,
				Error:         resp.Error,
			}
			return out.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %s\n", res.TransactionID, res.Status)
				if res.ConfirmedID != "" && res.ConfirmedID != res.TransactionID {
					fmt.Fprintf(w, "  confirmed as %s\n", res.ConfirmedID)
				}
				if res.Error != "" {
					fmt.Fprintf(w, "  error: %s\n", res.Error)
				}
			})
		},
	}
}

func newTxShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <transaction-id>",
		Short: "Show a confirmed transaction as the explorer sees it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := opts.load(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			out := opts.formatter(cmd)
			if app.Chain == nil {
				_ = out.Error(factoring.CodeUnavailable, "no explorer configured", false)
				return reported(ExitCommandError, "tx show", errors.New("no explorer configured"))
			}
			info, err := app.Chain.Transaction(ctx, args[0])
			if err != nil {
				code := factoring.CodeUnavailable
				if errors.Is(err, ledger.ErrTransactionNotFound) {
					code = factoring.CodeNotFound
				}
				_ = out.Error(code, err.Error(), code == factoring.CodeUnavailable)
				return reported(ExitCommandError, "tx show", err)
			}
			return out.Success(info, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s)\n", info.ID, info.Type)
				for _, t := range info.Transitions {
					fmt.Fprintf(w, "  %s/%s  %s\n", t.Program, t.Function, t.ID)
				}
				if info.FeeTransition != nil {
					fmt.Fprintf(w, "  fee: %s/%s\n", info.FeeTransition.Program, info.FeeTransition.Function)
				}
				if app.Config.ExplorerURL != "" {
					fmt.Fprintf(w, "  %s/transaction/%s\n", app.Config.ExplorerURL, info.ID)
				}
			})
		},
	}
}

func newTxHistoryCommand(opts *RootOptions) *cobra.Command {
	filter := storage.ListFilter{}
	var fromWallet bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished transactions recorded by this deployment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := opts.load(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			out := opts.formatter(cmd)
			if fromWallet {
				return walletHistory(cmd, app, out, filter.Program)
			}
			entries, err := app.History.ListEntries(ctx, filter)
			if err != nil {
				_ = out.Error(factoring.ErrorCode(err), err.Error(), false)
				return reported(ExitCommandError, "tx history", err)
			}
			if entries == nil {
				entries = []storage.HistoryEntry{}
			}
			return out.Success(entries, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "FINISHED\tFUNCTION\tSTATUS\tTRANSACTION\tERROR")
				for _, e := range entries {
					id := e.ConfirmedID
					if id == "" {
						id = e.LocalID
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.FinishedAt.Format("2006-01-02 15:04:05"),
						e.Function, e.Status, id, e.Error)
				}
				_ = tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&filter.Program, "program", "", "only this program")
	cmd.Flags().StringVar(&filter.Status, "status", "", "only this terminal status")
	cmd.Flags().IntVar(&filter.Limit, "limit", storage.DefaultListLimit, "maximum entries")
	cmd.Flags().BoolVar(&fromWallet, "wallet", false, "ask the wallet for its own history instead")
	return cmd
}

// walletHistory lists the wallet's own history for program, defaulting to
// the configured program.
func walletHistory(cmd *cobra.Command, app *App, out *OutputFormatter, program string) error {
	reader, ok := app.Wallet.(ledger.HistoryReader)
	if !ok {
		err := errors.New("wallet does not expose transaction history")
		_ = out.Error(factoring.CodeUnavailable, err.Error(), false)
		return reported(ExitCommandError, "tx history", err)
	}
	if program == "" {
		program = app.Service.ProgramID()
	}
	entries, err := reader.History(cmd.Context(), program)
	if err != nil {
		_ = out.Error(factoring.CodeUnavailable, err.Error(), true)
		return reported(ExitCommandError, "tx history", err)
	}
	if entries == nil {
		entries = []ledger.HistoryEntry{}
	}
	return out.Success(entries, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tFUNCTION\tSTATUS\tTRANSACTION")
		for _, e := range entries {
			when := "-"
			if e.Timestamp > 0 {
				when = time.Unix(e.Timestamp, 0).UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", when, e.Function, e.Status, e.TransactionID)
		}
		_ = tw.Flush()
	})
}
