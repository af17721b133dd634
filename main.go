package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/config"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/oidc"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/sessions"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/tokens"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/logger"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/metrics"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/middleware"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("config loaded: driver=%s redis=%v oidc=%v minio=%v", cfg.Database.Driver, cfg.Redis.Host != "", cfg.OIDC.Issuer != "", cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open storage: %v", err)
	}

	verifier := middleware.ChainVerifier{tokens.NewVerifier(cfg)}
	fed, err := oidc.New(ctx, cfg.OIDC)
	if err != nil {
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	} else if fed != nil {
		if _, insecure := fed.(*oidc.InsecureVerifier); insecure {
			logger.Warn("enabling insecure OIDC verifier (ALLOW_INSECURE_TOKEN=true)")
		}
		verifier = append(verifier, fed)
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	var scheduler *cron.Cron
	if b.purger != nil {
		scheduler = cron.New()
		if _, err := scheduler.AddJob("@every 10m", sessions.NewPurgeJob(b.purger)); err != nil {
			logger.Fatalf("schedule session purge: %v", err)
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      newRouter(cfg, b, verifier),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting workout API on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Errorf("server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	b.Close(shutdownCtx)
	logger.Info("stopped")
}
