package main

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/workoutlog/workoutlog/backend/go-services/handlers"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/config"
	workouthandler "github.com/workoutlog/workoutlog/backend/go-services/internal/workout/handler"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/middleware"
)

var startTime = time.Now()

// newRouter wires middleware and every route onto a fresh engine.
func newRouter(cfg *config.Config, b *backend, verifier middleware.Verifier) *gin.Engine {
	r := gin.New()
	r.Use(
		// promhttp compresses on its own
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
		middleware.RequestID(),
		middleware.AccessLog(),
		gin.Recovery(),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)
	limit := rateLimiter(cfg, b)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "Health Check Complete")
	})
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readyHandler(b))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	// authenticated callers are limited per principal, so the limiter runs last
	protected := []gin.HandlerFunc{
		middleware.AuthMiddleware(verifier),
		middleware.PrincipalMiddleware(b.users.ResolvePrincipal),
	}
	protected = append(protected, limit...)
	handlers.NewAuthHandler(cfg, b.users, b.sessions).WithPublic(limit...).Register(r, protected...)
	workouthandler.RegisterRoutes(r, b.workouts, protected...)
	return r
}

// rateLimiter returns the configured limiter as a chain of zero or one handlers.
// One instance is shared by the anonymous auth routes (keyed by IP) and every
// protected route (keyed by principal).
func rateLimiter(cfg *config.Config, b *backend) []gin.HandlerFunc {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	if cfg.RateLimit.UseRedis && b.redis != nil {
		win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		return []gin.HandlerFunc{middleware.RedisRateLimitMiddleware(b.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)}
	}
	return []gin.HandlerFunc{middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)}
}

// readyHandler returns 200 only when every configured dependency answers.
func readyHandler(b *backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		names := make([]string, 0, len(b.checks))
		for name := range b.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		ready := true
		deps := map[string]bool{}
		for _, name := range names {
			err := b.checks[name](ctx)
			deps[name] = err == nil
			if err != nil {
				ready = false
			}
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	}
}
