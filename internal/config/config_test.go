package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("MYSQL_DSN", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("SOCKET_PING_INTERVAL", "")
	t.Setenv("MATCH_SCAN_BATCH_SIZE", "")

	cfg := New()

	assert.Equal(t, "root:root@tcp(localhost:3306)/destined?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DB.DSN)
	assert.Equal(t, 25*time.Second, cfg.Socket.PingInterval)
	assert.Equal(t, 200, cfg.Match.ScanBatchSize)
	assert.Equal(t, time.Hour, cfg.Redis.LikeTTL)
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("MYSQL_DSN", "u:p@tcp(db:3306)/x")
	t.Setenv("APP_ENV", "development")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("LOG_SOURCE", "yes")

	cfg := New()

	assert.Equal(t, "u:p@tcp(db:3306)/x", cfg.DB.DSN)
	assert.Equal(t, "development", cfg.App.ENV)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 15*time.Minute, cfg.Auth.JWTTTL)
	assert.True(t, cfg.Log.Source)
}

func TestNew_BadValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")
	t.Setenv("SOCKET_PONG_TIMEOUT", "-5s")

	cfg := New()

	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 20*time.Second, cfg.Socket.PongTimeout)
}
