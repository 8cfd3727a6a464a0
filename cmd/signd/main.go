// Command signd serves live signing sessions over websockets.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/synapz-learn/signavatar/internal/config"
	"github.com/synapz-learn/signavatar/internal/content"
	"github.com/synapz-learn/signavatar/internal/gloss"
	"github.com/synapz-learn/signavatar/internal/history"
	"github.com/synapz-learn/signavatar/internal/server"
)

func main() {
	os.Exit(runMain(os.Stderr))
}

func runMain(stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "signd: %v\n", err)
		return 1
	}
	logger := cfg.NewLogger(stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		fmt.Fprintf(stderr, "signd: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	table, err := content.LoadTable(cfg.TablePath)
	if err != nil {
		return err
	}
	rig := content.LoadRig(cfg.ModelPath, logger)

	store, err := openHistory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(table, rig,
		server.WithLogger(logger),
		server.WithGlosser(newGlosser(ctx, cfg, logger)),
		server.WithHistory(store),
		server.WithPlayback(cfg.StepSize, cfg.Hold),
		server.WithTickRate(cfg.TickRate),
		server.WithResetOnPreempt(cfg.ResetOnPreempt),
		server.WithMaxTextBytes(cfg.MaxTextBytes),
		server.WithKeepalive(cfg.WSPingInterval, cfg.WSWriteTimeout),
	)
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()
	logger.Info("signd listening", "addr", cfg.Addr, "words", len(table.Words()), "letters", len(table.Letters()))

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	srv.Close()

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("signd stopped")
	return nil
}

// newGlosser uses Gemini when a key is configured and falls back to upper-casing otherwise.
func newGlosser(ctx context.Context, cfg config.Config, logger *slog.Logger) gloss.Glosser {
	if cfg.GeminiAPIKey == "" {
		logger.Info("gloss model disabled, GEMINI_API_KEY not set")
		return gloss.Passthrough{}
	}
	g, err := gloss.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GlossModel)
	if err != nil {
		logger.Warn("gloss model unavailable", "error", err)
		return gloss.Passthrough{}
	}
	logger.Info("gloss model enabled", "model", g.Model())
	return gloss.WithFallback(g, gloss.Passthrough{}, logger)
}

func openHistory(ctx context.Context, cfg config.Config, logger *slog.Logger) (history.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("history kept in memory, SIGN_DATABASE_URL not set")
		return history.NewMemory(history.MaxLimit), nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	store, err := history.OpenPostgres(connectCtx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}
