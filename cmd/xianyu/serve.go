package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CangTianYi/CS3331/internal/api"
	"github.com/CangTianYi/CS3331/internal/config"
	"github.com/CangTianYi/CS3331/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringP(config.KeyAddr, "a", "", "listen address (default: :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := a.settings.JWTSecret(ctx)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	// Clear out uploads left behind by items deleted while the server was down.
	n, err := a.images.Sweep(func() (map[string]bool, error) {
		return a.items.ImagePaths(ctx)
	})
	if err != nil {
		slog.Error("failed to sweep uploads", "error", err)
	} else if n > 0 {
		slog.Info("orphaned images removed", "count", n)
	}

	handler := api.NewRouter(api.Deps{
		Auth:      a.auth,
		Admin:     a.admin,
		Market:    a.market,
		JWTSecret: jwtSecret,
		TokenTTL:  cfg.TokenTTL,
		Metrics:   metrics.New(metrics.DefaultPrefix),
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}
