package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// StatusResult describes the deployment a command would run against.
type StatusResult struct {
	Network     string   `json:"network"`
	ProgramID   string   `json:"program_id"`
	APIEndpoint string   `json:"api_endpoint"`
	WalletURL   string   `json:"wallet_url"`
	ExplorerURL string   `json:"explorer_url"`
	Programs    []string `json:"whitelisted_programs"`
	Height      uint64   `json:"latest_height,omitempty"`
	HeightError string   `json:"height_error,omitempty"`
}

// NewStatusCommand prints the effective configuration and the chain height.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configured network and the latest block height",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := opts.load(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			cfg := app.Config
			res := StatusResult{
				Network:     cfg.Network,
				ProgramID:   cfg.ProgramID,
				APIEndpoint: cfg.APIEndpoint,
				WalletURL:   cfg.WalletURL,
				ExplorerURL: cfg.ExplorerURL,
				Programs:    app.Service.WhitelistedPrograms(),
			}
			if app.Chain != nil {
				if h, err := app.Chain.LatestHeight(ctx); err != nil {
					res.HeightError = err.Error()
				} else {
					res.Height = h
				}
			}

			return opts.formatter(cmd).Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "network:   %s\n", res.Network)
				fmt.Fprintf(w, "program:   %s\n", res.ProgramID)
				fmt.Fprintf(w, "api:       %s\n", res.APIEndpoint)
				fmt.Fprintf(w, "wallet:    %s\n", res.WalletURL)
				fmt.Fprintf(w, "explorer:  %s\n", res.ExplorerURL)
				switch {
				case res.HeightError != "":
					fmt.Fprintf(w, "height:    unavailable (%s)\n", res.HeightError)
				case app.Chain != nil:
					fmt.Fprintf(w, "height:    %d\n", res.Height)
				}
			})
		},
	}
}
