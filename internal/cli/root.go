// Package cli implements the zkfactor command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/zkfactor/internal/config"
	"github.com/R3E-Network/zkfactor/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	EnvFile    string
	Format     string // "json" | "text"
	LogLevel   string

	// NewApp builds the App commands run against. Tests replace it.
	NewApp AppFactory
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command with the default App factory.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{NewApp: NewApp})
}

// NewRootCommandWith creates the root command around opts.
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	if opts.NewApp == nil {
		opts.NewApp = NewApp
	}

	cmd := &cobra.Command{
		Use:   "zkfactor",
		Short: "Private invoice factoring on Aleo",
		Long: `zkfactor mints, factors and settles invoices as private Aleo records
through a wallet bridge, and serves the same operations over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load if present")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewInvoiceCommand(opts))
	cmd.AddCommand(NewFactorCommand(opts))
	cmd.AddCommand(NewTxCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewCompletionCommand())

	return cmd
}

// load reads configuration and builds the App. Callers must Close it.
// One-shot commands keep stdout for their result and log to stderr.
func (o *RootOptions) load(ctx context.Context, serving bool) (*App, error) {
	cfg, err := config.Load(o.ConfigPath, o.EnvFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load configuration", err)
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if !serving && (cfg.Logging.Output == "" || cfg.Logging.Output == "stdout") {
		cfg.Logging.Output = "stderr"
	}
	log := logger.New(cfg.Logging).WithField("service", "zkfactor")

	app, err := o.NewApp(ctx, cfg, log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "initialise", err)
	}
	return app, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
