package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App    AppConfig
	Log    LogConfig
	DB     DBConfig
	Redis  RedisConfig
	HTTP   HTTPConfig
	GRPC   GRPCConfig
	Auth   AuthConfig
	Socket SocketConfig
	Match  MatchConfig
}

type AppConfig struct {
	ENV  string
	Name string
}

type LogConfig struct {
	Level     string
	Format    string
	Component string
	Source    bool
}

type DBConfig struct {
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	LogSQL   bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LikeTTL  time.Duration
}

type HTTPConfig struct {
	Host            string
	Port            string
	ShutdownTimeout time.Duration
}

type GRPCConfig struct {
	Host string
	Port string
}

// AuthConfig holds the shared secret used to verify bearer credentials.
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration
}

type SocketConfig struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	SendBuffer     int
	MaxMessageSize int64
}

type MatchConfig struct {
	ScanBatchSize int
}

func New() *Config {
	cfg := &Config{}

	// App
	cfg.App.ENV = getEnvDefault("APP_ENV", "production")
	cfg.App.Name = getEnvDefault("APP_NAME", "destined")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "destined_server")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.LogSQL = isTruthy(os.Getenv("DB_LOG_SQL"))
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "destined")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.LikeTTL = getEnvDuration("REDIS_LIKE_TTL", time.Hour)

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")
	cfg.HTTP.ShutdownTimeout = getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Auth
	cfg.Auth.JWTSecret = getEnvDefault("JWT_SECRET", "change-me")
	cfg.Auth.JWTIssuer = getEnvDefault("JWT_ISSUER", "destined")
	cfg.Auth.JWTTTL = getEnvDuration("JWT_TTL", 24*time.Hour)

	// Socket
	cfg.Socket.PingInterval = getEnvDuration("SOCKET_PING_INTERVAL", 25*time.Second)
	cfg.Socket.PongTimeout = getEnvDuration("SOCKET_PONG_TIMEOUT", 20*time.Second)
	cfg.Socket.SendBuffer = getEnvInt("SOCKET_SEND_BUFFER", 32)
	cfg.Socket.MaxMessageSize = int64(getEnvInt("SOCKET_MAX_MESSAGE_BYTES", 64*1024))

	// Profile matching
	cfg.Match.ScanBatchSize = getEnvInt("MATCH_SCAN_BATCH_SIZE", 200)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v, err := strconv.Atoi(getEnvDefault(k, "")); err == nil {
		return v
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnvDefault(k, "")); err == nil && d > 0 {
		return d
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
