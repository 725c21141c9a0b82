package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/housedesk-backend/internal/observability"
	"github.com/yungbote/housedesk-backend/internal/platform/envutil"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

const defaultJWTSecret = "defaultsecret"

type Config struct {
	LogMode string
	Port    string
	// Debug enables demo login and password-less staff login.
	Debug bool

	DBDriver   string
	SQLitePath string

	JWTSecretKey     string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	TelegramBotToken string
	InitDataMaxAge   time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration
	LockWait      time.Duration

	CORSOrigins []string
	MetricsAddr string

	ServiceName string
	Environment string
	Version     string
	Tracing     observability.TracingConfig
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		LogMode: envutil.String("LOG_MODE", "development"),
		Port:    envutil.String("PORT", "8080"),
		Debug:   envutil.Bool("APP_DEBUG", false),

		DBDriver:   strings.ToLower(envutil.String("DB_DRIVER", "postgres")),
		SQLitePath: envutil.String("SQLITE_PATH", "housedesk.db"),

		JWTSecretKey:     envutil.String("JWT_SECRET_KEY", defaultJWTSecret),
		AccessTokenTTL:   time.Duration(envutil.Int("ACCESS_TOKEN_TTL", 3600)) * time.Second,
		RefreshTokenTTL:  time.Duration(envutil.Int("REFRESH_TOKEN_TTL", 30*86400)) * time.Second,
		TelegramBotToken: envutil.String("TELEGRAM_BOT_TOKEN", ""),
		InitDataMaxAge:   envutil.Duration("TELEGRAM_INIT_DATA_MAX_AGE", 24*time.Hour),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),
		LockTTL:       envutil.Duration("LOCK_TTL", 10*time.Second),
		LockWait:      envutil.Duration("LOCK_WAIT", 5*time.Second),

		CORSOrigins: envutil.List("CORS_ORIGINS", nil),
		MetricsAddr: envutil.String("METRICS_ADDR", ":9090"),

		ServiceName: envutil.String("OTEL_SERVICE_NAME", "housedesk-api"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
	}
	cfg.Tracing = observability.TracingFromEnv(cfg.ServiceName, cfg.Environment, cfg.Version)
	if log != nil {
		log.Info("config loaded",
			"db_driver", cfg.DBDriver,
			"port", cfg.Port,
			"debug", cfg.Debug,
			"redis", cfg.RedisAddr != "",
			"telegram", cfg.TelegramBotToken != "",
			"tracing", cfg.Tracing.Enabled,
		)
	}
	return cfg
}

// Validate rejects settings that are only acceptable in debug mode.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if !c.Debug && (c.JWTSecretKey == "" || c.JWTSecretKey == defaultJWTSecret) {
		return fmt.Errorf("JWT_SECRET_KEY must be set outside debug mode")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	return nil
}
