package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/httpapi"
)

const (
	shutdownTimeout = 10 * time.Second

	logMsgServiceStarting = "patientlists service starting"
	logMsgServiceStarted  = "patientlists service listening"
	logMsgServiceStopping = "patientlists service shutting down"
	logMsgServiceStopped  = "patientlists service stopped"
	logAttrAddr           = "addr"
	logAttrDriver         = "driver"
	logAttrDemo           = "demo"
)

func (a *app) serveCmd() *Command {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address (default from PATIENTLISTS_HTTP_ADDR)")
	demo := fs.Bool("demo", false, "serve in-memory demo data instead of Postgres")
	telemetry := fs.Bool("otel", false, "report logs, metrics and traces to the global OpenTelemetry providers")

	return &Command{
		Flags: fs,
		Usage: "serve [--addr <addr>] [--demo] [--otel]",
		Short: "Serve the HTTP API",
		Long:  "Serve the patient list HTTP API until interrupted.",
		Exec: func(ctx context.Context, _ *IO, _ []string) error {
			listenAddr := *addr
			if listenAddr == "" {
				listenAddr = a.cfg.HTTPAddr
			}

			return a.serve(ctx, listenAddr, backendOptions{demo: *demo, telemetry: *telemetry})
		},
	}
}

func (a *app) serve(ctx context.Context, addr string, opts backendOptions) error {
	a.logger.InfoContext(ctx, logMsgServiceStarting, logAttrAddr, addr, logAttrDriver, a.cfg.DBDriver, logAttrDemo, opts.demo)

	b, err := a.openBackend(ctx, opts)
	if err != nil {
		return err
	}
	defer b.close()

	server := httpapi.NewServer(httpapi.NewHandler(b.lists, b.resolver, a.logger))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(addr)
	}()

	a.logger.InfoContext(ctx, logMsgServiceStarted, logAttrAddr, addr)

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	case <-ctx.Done():
	}

	a.logger.Info(logMsgServiceStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	a.logger.Info(logMsgServiceStopped)

	return nil
}
