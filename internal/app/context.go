package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/destined/internal/cache"
	"github.com/oggyb/destined/internal/config"
	"github.com/oggyb/destined/internal/metrics"
)

// AppContext holds shared dependencies (config, DB, Redis, logger, metrics).
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, m *metrics.Metrics) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Metrics:    m,
	}
}
