package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/zkfactor/internal/factoring"
	"github.com/R3E-Network/zkfactor/internal/httpapi"
	"github.com/R3E-Network/zkfactor/internal/walletsync"
)

const shutdownTimeout = 30 * time.Second

type serveOptions struct {
	Addr string
}

// NewServeCommand runs the HTTP API and the periodic wallet sync.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, the transaction stream and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts, o)
		},
	}
	cmd.Flags().StringVar(&o.Addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

func serve(ctx context.Context, opts *RootOptions, o *serveOptions) error {
	app, err := opts.load(ctx, true)
	if err != nil {
		return err
	}
	defer app.Close()
	log := app.Log

	var apiOpts []httpapi.Option
	apiOpts = append(apiOpts,
		httpapi.WithLogger(log),
		httpapi.WithCORS(app.Config.HTTP.AllowedOrigins),
		httpapi.WithRateLimit(app.Config.HTTP.RateLimit, app.Config.HTTP.RateBurst),
	)

	var sched *walletsync.Scheduler
	if !app.Config.Sync.Disabled {
		sched, err = walletsync.New(app.Service, walletsync.Config{Schedule: app.Config.Sync.Schedule}, log)
		if err != nil {
			return WrapExitError(ExitCommandError, "wallet sync", err)
		}
		apiOpts = append(apiOpts, httpapi.WithSyncer(sched))
	}

	api := httpapi.New(app.Service, apiOpts...)
	defer api.Close()

	addr := app.Config.HTTP.Addr
	if o.Addr != "" {
		addr = o.Addr
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	if sched != nil {
		if err := sched.Start(); err != nil {
			return err
		}
		go func() {
			if err := sched.RunOnce(ctx); err != nil {
				log.WithError(err).Warn("initial wallet sync failed")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":    addr,
			"program": app.Service.ProgramID(),
			"network": app.Config.Network,
		}).Info("zkfactor API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	api.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.WithError(err).Warn("wallet sync shutdown")
		}
	}
	log.Info("stopped")
	return nil
}

// NewSyncCommand refreshes the cached wallet records once.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh cached wallet records now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := opts.load(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			out := opts.formatter(cmd)
			counts := make(map[string]int)
			for _, program := range app.Service.WhitelistedPrograms() {
				recs, err := app.Service.Records(ctx, program, true)
				if err != nil {
					_ = out.Error(factoring.ErrorCode(err), err.Error(), factoring.Retryable(err))
					return reported(ExitCommandError, "sync", err)
				}
				counts[program] = len(recs)
			}
			return out.Success(counts, func(w io.Writer) {
				for _, program := range app.Service.WhitelistedPrograms() {
					fmt.Fprintf(w, "%s: %d records\n", program, counts[program])
				}
			})
		},
	}
}
