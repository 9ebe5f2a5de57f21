package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/zkfactor/internal/factoring"
	"github.com/R3E-Network/zkfactor/internal/txlifecycle"
)

// NewFactorCommand groups factor network membership operations.
func NewFactorCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "factor",
		Short: "Manage factor registration",
	}
	cmd.AddCommand(newFactorRegisterCommand(opts))
	cmd.AddCommand(newFactorDeregisterCommand(opts))
	cmd.AddCommand(newFactorStatusCommand(opts))
	return cmd
}

type factorRegisterOptions struct {
	TxOptions
	Min uint16
	Max uint16
}

func newFactorRegisterCommand(opts *RootOptions) *cobra.Command {
	o := &factorRegisterOptions{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register this wallet as a factor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransaction(cmd, opts, &o.TxOptions, txCall{
				function: factoring.FnRegisterFactor,
				exec: func(ctx context.Context, app *App) (txlifecycle.Outcome, error) {
					return app.Service.RegisterFactor(ctx, o.Min, o.Max)
				},
			})
		},
	}
	cmd.Flags().Uint16Var(&o.Min, "min-rate", factoring.MinAdvanceRate, "lowest advance rate accepted, in basis points")
	cmd.Flags().Uint16Var(&o.Max, "max-rate", factoring.MaxAdvanceRate, "highest advance rate accepted, in basis points")
	o.bind(cmd)
	return cmd
}

func newFactorDeregisterCommand(opts *RootOptions) *cobra.Command {
	o := &TxOptions{}
	cmd := &cobra.Command{
		Use:   "deregister",
		Short: "Withdraw this wallet from the factor network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransaction(cmd, opts, o, txCall{
				function: factoring.FnDeregisterFactor,
				exec: func(ctx context.Context, app *App) (txlifecycle.Outcome, error) {
					return app.Service.DeregisterFactor(ctx)
				},
			})
		},
	}
	o.bind(cmd)
	return cmd
}

func newFactorStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <address>",
		Short: "Show an address's entry in the active factors mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := opts.load(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			out := opts.formatter(cmd)
			st, err := app.Service.FactorStatus(ctx, args[0])
			if err != nil {
				_ = out.Error(factoring.ErrorCode(err), factoring.FriendlyMessage("", err), factoring.Retryable(err))
				return reported(ExitCommandError, "factor status", err)
			}
			return out.Success(st, func(w io.Writer) {
				if !st.Registered {
					fmt.Fprintf(w, "%s is not registered as a factor\n", st.Address)
					return
				}
				state := "inactive"
				if st.IsActive {
					state = "active"
				}
				fmt.Fprintf(w, "%s is an %s factor\n", st.Address, state)
				fmt.Fprintf(w, "  advance rate: %.2f%% - %.2f%%\n",
					float64(st.MinAdvanceRate)/100, float64(st.MaxAdvanceRate)/100)
			})
		},
	}
}
