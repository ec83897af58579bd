package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-gateway/internal/server"
	"github.com/Veraticus/spice-gateway/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction gateway over HTTP",
		Long: `Serve the gateway as a JSON API:

  POST   /api/v1/parse/finance          {"text": "...", "user_id": "..."}
  POST   /api/v1/parse/task             {"text": "..."}
  POST   /api/v1/receipts/scan          {"image_base64": "...", "mime_type": "image/png"}
  GET    /api/v1/health
  GET    /api/v1/stats
  DELETE /api/v1/cache
  POST   /api/v1/circuit-breaker/reset`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default: server.addr)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if app.memory != nil {
		app.memory.StartSweeper(app.cfg.Cache.SweepInterval)
	}
	go sweepExpired(ctx, app.db, app.cfg.Cache.SweepInterval)

	srv := server.New(app.gateway, server.Config{
		ReadTimeout:  app.cfg.Server.ReadTimeout,
		WriteTimeout: app.cfg.Server.WriteTimeout,
		BodyLimit:    app.cfg.Server.BodyLimit,
	}, slog.Default())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(app.cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	slog.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// sweepExpired deletes expired database entries until ctx is canceled.
func sweepExpired(ctx context.Context, db *storage.SQLiteStorage, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := db.PurgeExpired(ctx)
			if err != nil {
				slog.Warn("failed to purge expired entries", "error", err)
				continue
			}
			if purged > 0 {
				slog.Debug("purged expired entries", "count", purged)
			}
		}
	}
}
