package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"news_hub/internal/fetcher"
	"news_hub/internal/logger"
	"news_hub/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	Long: `Запускает HTTP сервер: POST /mcp, GET /ws, страницу состояния,
/health и /metrics. В фоне чистит просроченные записи кэша.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer logger.Log.Info("Application stopped")

	go fetcher.StartPolling(ctx, a.fetcher, a.registry.All(), a.cfg.SweepInterval(), a.cfg.Cache.Warm)

	srv := server.NewServer(a.dispatcher, a.registry, a.cfg.Server.Name, a.cfg.Server.Version)
	httpServer := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infof("Starting HTTP server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down...")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctxShutdown)
}
