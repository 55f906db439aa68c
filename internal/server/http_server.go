package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oggyb/destined/internal/app"
	"github.com/oggyb/destined/internal/auth"
)

// NewRouter builds the gin engine: ops endpoints, then every registrar's
// routes under /api.
func NewRouter(appCtx *app.AppContext, verifier auth.Verifier, gatherer prometheus.Gatherer, registrars ...RouteRegistrar) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), Prometheus(appCtx.Metrics), AccessLog(appCtx.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		if err := ping(c.Request.Context(), appCtx); err != nil {
			appCtx.Logger.Warn("health check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	public := r.Group("/")
	protected := r.Group("/api", auth.RequireAuth(verifier))
	for _, reg := range registrars {
		reg.RegisterRoutes(public, protected)
	}
	return r
}

// StartHTTPServer serves handler until ctx is done, then shuts down gracefully.
func StartHTTPServer(ctx context.Context, appCtx *app.AppContext, handler http.Handler) error {
	cfg := appCtx.Config
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		appCtx.Logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	appCtx.Logger.Info("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

func ping(ctx context.Context, appCtx *app.AppContext) error {
	sqlDB, err := appCtx.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if appCtx.RedisCache != nil {
		if err := appCtx.RedisCache.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
