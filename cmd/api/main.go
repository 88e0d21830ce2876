// Package main は会員サイトのHTTPサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/yourusername/members-portal/internal/account"
	"github.com/yourusername/members-portal/internal/auth"
	"github.com/yourusername/members-portal/internal/config"
	"github.com/yourusername/members-portal/internal/logging"
	"github.com/yourusername/members-portal/internal/metrics"
	"github.com/yourusername/members-portal/internal/password"
	"github.com/yourusername/members-portal/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(start())
}

// start は設定の読み込みからサーバー停止までを行い、終了コードを返します。
// os.Exit は main でのみ呼びます。
func start() int {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	logger, err := logging.New(cfg.GinMode, cfg.LogLevel)
	if err != nil {
		log.Printf("Failed to build logger: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return exitCode(logger, run(ctx, cfg, logger))
}

// exitCode は停止理由をログに残してバッファを書き出し、終了コードを返します。
func exitCode(logger *zap.Logger, err error) int {
	code := 0
	if err != nil {
		logger.Error("server stopped", zap.Error(err))
		code = 1
	}
	_ = logger.Sync()
	return code
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	deps, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	store, err := session.NewStore(deps.sessions, cfg.SessionSecret, cfg.SessionEncryptionSecret)
	if err != nil {
		return err
	}
	cookieOptions := session.CookieOptions(cfg.GinMode == gin.ReleaseMode)
	store.Options(cookieOptions)

	hasher, err := password.NewHasher(password.Options{
		Algorithm:   password.Algorithm(cfg.PasswordHashAlgorithm),
		Concurrency: cfg.HashConcurrency,
		Observe:     m.ObserveHash,
	})
	if err != nil {
		return err
	}

	identifier, err := account.ParseIdentifier(cfg.LoginIdentifier)
	if err != nil {
		return err
	}
	flow, err := auth.NewFlow(deps.accounts, hasher, session.NewManager(cookieOptions), auth.Options{
		LoginIdentifier:          identifier,
		AutoLoginOnRegister:      cfg.AutoLoginOnRegister,
		RevealNotFoundDistinctly: cfg.RevealNotFoundDistinctly,
		Metrics:                  m,
	}, logger)
	if err != nil {
		return err
	}

	router := newRouter(cfg, logger, store, flow, registry)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("mode", cfg.GinMode),
			zap.String("sessionBackend", cfg.SessionBackend),
			zap.String("credentialBackend", cfg.CredentialBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
