package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Beto0829/Barber-ticket/internal/completion"
	"github.com/Beto0829/Barber-ticket/internal/httpapi"
	"github.com/Beto0829/Barber-ticket/internal/hub"
	"github.com/Beto0829/Barber-ticket/internal/session"
	"github.com/Beto0829/Barber-ticket/internal/telemetry"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and realtime board",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	shutdownTelemetry := telemetry.Setup("barberq", logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	sessions, closeSessions, err := newSessionManager(ctx, a)
	if err != nil {
		return err
	}
	// Deferred so the store outlives server.Shutdown below.
	defer closeSessions()
	authorizeSession := func(ctx context.Context, sessionID string) error {
		_, err := sessions.Validate(ctx, sessionID)
		return err
	}

	h := hub.New(logger.Named("hub"))
	workflow := completion.New(a.queue, a.ledger, completion.Options{
		Publisher: h,
		Logger:    logger.Named("completion"),
	})
	handler := httpapi.NewHandler(a.queue, workflow, a.ledger, sessions, httpapi.Options{
		Publisher: h,
		Logger:    logger.Named("httpapi"),
	})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:       a.cfg.RateLimitPerMinute,
		IPBurst:           a.cfg.RateLimitBurst,
		SessionPerMinute:  a.cfg.SessionRateLimitPerMinute,
		SessionBurst:      a.cfg.SessionRateLimitBurst,
		TrustForwardedFor: a.cfg.TrustProxy,
	})

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.AuthMiddleware(sessions, limiter.SessionMiddleware(handler.Routes())))
	mux.Handle("/realtime/", h.NewHandler("/realtime", hub.HandlerOptions{
		Authorize: authorizeSession,
		Board: func(ctx context.Context) (interface{}, error) {
			return a.queue.Board(ctx)
		},
	}))

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(logger.Named("http"), limiter.Middleware(mux)), "barberq")
	server := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go h.RunRevalidation(ctx, a.cfg.SessionSweepInterval, authorizeSession)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Prune(30 * time.Minute)
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("barberq listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	return nil
}

// newSessionManager uses Redis when REDIS_ADDR is set and an in-memory store
// with a background sweep otherwise. The returned func releases the store and
// must run after the HTTP server has drained.
func newSessionManager(ctx context.Context, a *app) (*session.Manager, func(), error) {
	pinHash, err := adminPINHash(a.cfg.AdminPIN, a.cfg.AdminPINHash)
	if err != nil {
		return nil, nil, err
	}

	closeStore := func() {}
	var store session.Store
	if a.cfg.RedisAddr != "" {
		client, err := session.DialRedis(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		closeStore = func() {
			if err := client.Close(); err != nil {
				a.logger.Warn("close redis client", zap.Error(err))
			}
		}
		store = session.NewRedisStore(client)
		a.logger.Info("session store ready", zap.String("backend", "redis"))
	} else {
		memoryStore := session.NewMemoryStore()
		go memoryStore.RunSweeper(ctx, a.cfg.SessionSweepInterval, a.logger.Named("session"))
		store = memoryStore
		a.logger.Info("session store ready", zap.String("backend", "memory"))
	}

	manager, err := session.NewManager(store, pinHash, session.Options{
		TTL:    a.cfg.SessionTTL,
		Logger: a.logger.Named("session"),
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return manager, closeStore, nil
}

func adminPINHash(pin, hash string) ([]byte, error) {
	if hash != "" {
		return []byte(hash), nil
	}
	if pin == "" {
		return nil, errors.New("ADMIN_PIN or ADMIN_PIN_HASH is required")
	}
	if !session.ValidPIN(pin) {
		return nil, fmt.Errorf("ADMIN_PIN: %w", session.ErrPINFormat)
	}
	return session.HashPIN(pin)
}
