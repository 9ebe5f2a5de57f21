package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/zkfactor/internal/codec"
	"github.com/R3E-Network/zkfactor/internal/factoring"
	"github.com/R3E-Network/zkfactor/internal/txlifecycle"
)

// NewInvoiceCommand groups the invoice operations.
func NewInvoiceCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Create, factor, settle and list invoices",
	}
	cmd.AddCommand(newInvoiceCreateCommand(opts))
	cmd.AddCommand(newInvoiceFactorCommand(opts))
	cmd.AddCommand(newInvoiceSettleCommand(opts))
	cmd.AddCommand(newInvoiceListCommand(opts))
	return cmd
}

type invoiceCreateOptions struct {
	TxOptions
	Number string
	Debtor string
	Amount string
	Due    string
}

func newInvoiceCreateCommand(opts *RootOptions) *cobra.Command {
	o := &invoiceCreateOptions{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Mint a new invoice record",
		Example: `  zkfactor invoice create --debtor aleo1... --amount 1250.5 --due 2026-12-31
  zkfactor invoice create --number INV-7 --debtor aleo1... --amount 10 --due 2026-11-01T12:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := codec.ParseDecimalAmount(o.Amount)
			if err != nil {
				return WrapExitError(ExitCommandError, "--amount", err)
			}
			due, err := parseDueDate(o.Due)
			if err != nil {
				return WrapExitError(ExitCommandError, "--due", err)
			}
			number := strings.TrimSpace(o.Number)
			if number == "" {
				number = factoring.NewInvoiceNumber(time.Now())
			}

			return runTransaction(cmd, opts, &o.TxOptions, txCall{
				function: factoring.FnMintInvoice,
				exec: func(ctx context.Context, app *App) (txlifecycle.Outcome, error) {
					return app.Service.CreateInvoice(ctx, factoring.CreateInvoiceInput{
						Number:  number,
						Debtor:  o.Debtor,
						Amount:  amount,
						DueDate: due,
					})
				},
				decorate: func(r *TxResult) {
					r.InvoiceNumber = number
					r.InvoiceHash = factoring.InvoiceHash(number, strings.TrimSpace(o.Debtor), amount)
				},
			})
		},
	}
	cmd.Flags().StringVar(&o.Number, "number", "", "invoice number (generated when empty)")
	cmd.Flags().StringVar(&o.Debtor, "debtor", "", "debtor Aleo address")
	cmd.Flags().StringVar(&o.Amount, "amount", "", "face amount in credits, up to six decimals")
	cmd.Flags().StringVar(&o.Due, "due", "", "due date (YYYY-MM-DD or RFC 3339)")
	_ = cmd.MarkFlagRequired("debtor")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("due")
	o.bind(cmd)
	return cmd
}

// parseDueDate accepts a calendar date, taken as midnight UTC, or an RFC 3339
// timestamp.
func parseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", raw)
	}
	return t, nil
}

type invoiceFactorOptions struct {
	TxOptions
	Creditor string
	Rate     uint16
}

func newInvoiceFactorCommand(opts *RootOptions) *cobra.Command {
	o := &invoiceFactorOptions{}
	cmd := &cobra.Command{
		Use:   "factor <invoice-hash>",
		Short: "Sell an invoice to a factor for an advance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransaction(cmd, opts, &o.TxOptions, txCall{
				function: factoring.FnFactorInvoice,
				exec: func(ctx context.Context, app *App) (txlifecycle.Outcome, error) {
					return app.Service.FactorInvoice(ctx, factoring.FactorInvoiceInput{
						InvoiceHash: args[0],
						Creditor:    o.Creditor,
						AdvanceRate: o.Rate,
					})
				},
				decorate: func(r *TxResult) { r.InvoiceHash = args[0] },
			})
		},
	}
	cmd.Flags().StringVar(&o.Creditor, "creditor", "", "original creditor Aleo address")
	cmd.Flags().Uint16Var(&o.Rate, "rate", 9000, "advance rate in basis points (5000-9900)")
	_ = cmd.MarkFlagRequired("creditor")
	o.bind(cmd)
	return cmd
}

func newInvoiceSettleCommand(opts *RootOptions) *cobra.Command {
	o := &TxOptions{}
	cmd := &cobra.Command{
		Use:   "settle <invoice-hash>",
		Short: "Pay a factored invoice's face amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransaction(cmd, opts, o, txCall{
				function: factoring.FnSettleInvoice,
				exec: func(ctx context.Context, app *App) (txlifecycle.Outcome, error) {
					return app.Service.SettleInvoice(ctx, args[0])
				},
				decorate: func(r *TxResult) { r.InvoiceHash = args[0] },
			})
		},
	}
	o.bind(cmd)
	return cmd
}

type invoiceListOptions struct {
	Factored bool
	List     factoring.ListOptions
}

func newInvoiceListCommand(opts *RootOptions) *cobra.Command {
	o := &invoiceListOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the wallet's invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch o.List.SortBy {
			case "", factoring.SortByDueDate, factoring.SortByAmount:
			default:
				return fmt.Errorf("invalid --sort %q: must be %s or %s", o.List.SortBy, factoring.SortByDueDate, factoring.SortByAmount)
			}
			ctx := cmd.Context()
			app, err := opts.load(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			out := opts.formatter(cmd)
			if o.Factored {
				list, err := app.Service.ListFactoredInvoices(ctx, o.List)
				if err != nil {
					return listError(out, err)
				}
				return out.Success(list, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "HASH\tDEBTOR\tAMOUNT\tADVANCE\tRATE\tDUE\tSPENT")
					for _, fi := range list {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%t\n", fi.InvoiceHash, shortAddress(fi.Debtor),
							codec.FormatCredits(fi.Amount), codec.FormatCredits(fi.AdvanceAmount), fi.AdvanceRate,
							fi.DueDate.Format("2006-01-02"), fi.Spent)
					}
					_ = tw.Flush()
				})
			}

			list, err := app.Service.ListInvoices(ctx, o.List)
			if err != nil {
				return listError(out, err)
			}
			return out.Success(list, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "HASH\tDEBTOR\tAMOUNT\tDUE\tSPENT")
				for _, inv := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", inv.InvoiceHash, shortAddress(inv.Debtor),
						codec.FormatCredits(inv.Amount), inv.DueDate.Format("2006-01-02"), inv.Spent)
				}
				_ = tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&o.Factored, "factored", false, "list factored invoices held by this wallet")
	cmd.Flags().BoolVar(&o.List.Refresh, "refresh", false, "bypass the record cache")
	cmd.Flags().StringVar(&o.List.Search, "search", "", "filter by debtor or hash")
	cmd.Flags().StringVar(&o.List.SortBy, "sort", factoring.SortByDueDate, "sort key (due_date|amount)")
	cmd.Flags().BoolVar(&o.List.Desc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&o.List.IncludeSpent, "all", false, "include spent records")
	return cmd
}

func listError(out *OutputFormatter, err error) error {
	_ = out.Error(factoring.ErrorCode(err), factoring.FriendlyMessage("", err), factoring.Retryable(err))
	return reported(ExitCommandError, "list", err)
}

// shortAddress abbreviates an address for tables: aleo1abcd…wxyz.
func shortAddress(addr string) string {
	if len(addr) <= 16 {
		return addr
	}
	return addr[:9] + "…" + addr[len(addr)-4:]
}
