package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hubenschmidt/go-docrag/config"
	"github.com/hubenschmidt/go-docrag/server"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	return cmd
}

func runServer(parent context.Context, cfg *config.AppConfig) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Service:        a.service,
		Completer:      a.completer,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxFileSize:    cfg.Server.MaxFileSize,
		UploadDir:      cfg.Server.UploadDir,
	})
	if err != nil {
		a.Close(context.Background())
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[http] Listening on http://localhost%s", cfg.Addr())
		errCh <- httpSrv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Printf("[http] Shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[http] shutdown: %v", err)
	}

	if err := a.Close(shutdownCtx); err != nil {
		log.Printf("[store] WARN: final save failed: %v", err)
	}

	if errors.Is(serveErr, http.ErrServerClosed) {
		return nil
	}
	return serveErr
}
