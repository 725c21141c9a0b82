package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/data/aggregates"
	"github.com/yungbote/housedesk-backend/internal/data/repos"
	domainagg "github.com/yungbote/housedesk-backend/internal/domain/aggregates"
	"github.com/yungbote/housedesk-backend/internal/observability"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
	"github.com/yungbote/housedesk-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	Requests  services.RequestService
	Directory services.DirectoryService
	Lifecycle domainagg.RequestLifecycle
	Locker    aggregates.Locker
}

// newLocker picks the Redis lock when a client is configured so replicas
// serialize on the same request; otherwise an in-process keyed mutex.
func newLocker(log *logger.Logger, cfg Config, clients Clients) aggregates.Locker {
	if clients.Redis != nil {
		log.Info("Using Redis request locks", "ttl", cfg.LockTTL, "wait", cfg.LockWait)
		return aggregates.NewRedisLocker(clients.Redis, aggregates.RedisLockerConfig{
			TTL:  cfg.LockTTL,
			Wait: cfg.LockWait,
		})
	}
	return aggregates.NewKeyedLocker(cfg.LockWait)
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, set repos.Set, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	locker := newLocker(log, cfg, clients)
	lifecycle := aggregates.NewRequestLifecycle(aggregates.RequestLifecycleDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		},
		Requests: set.Requests,
		History:  set.History,
		Locker:   locker,
	})
	auth := services.NewAuthService(db, log, set.Users, set.Tokens, services.AuthConfig{
		JWTSecretKey:     cfg.JWTSecretKey,
		AccessTTL:        cfg.AccessTokenTTL,
		RefreshTTL:       cfg.RefreshTokenTTL,
		TelegramBotToken: cfg.TelegramBotToken,
		InitDataMaxAge:   cfg.InitDataMaxAge,
		Debug:            cfg.Debug,
	})
	return Services{
		Auth:      auth,
		Requests:  services.NewRequestService(db, log, set, lifecycle, locker),
		Directory: services.NewDirectoryService(db, log, set),
		Lifecycle: lifecycle,
		Locker:    locker,
	}
}
