package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/http"
	httpH "github.com/yungbote/housedesk-backend/internal/http/handlers"
	httpMW "github.com/yungbote/housedesk-backend/internal/http/middleware"
	"github.com/yungbote/housedesk-backend/internal/observability"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Auth       *httpH.AuthHandler
	User       *httpH.UserHandler
	Request    *httpH.RequestHandler
	SuperAdmin *httpH.SuperAdminHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(db),
		Auth:       httpH.NewAuthHandler(services.Auth),
		User:       httpH.NewUserHandler(services.Directory),
		Request:    httpH.NewRequestHandler(services.Requests),
		SuperAdmin: httpH.NewSuperAdminHandler(services.Directory, services.Requests),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	serviceName := ""
	if cfg.Tracing.Enabled {
		serviceName = cfg.ServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		CORSOrigins:       cfg.CORSOrigins,
		ServiceName:       serviceName,
		HealthHandler:     handlers.Health,
		AuthHandler:       handlers.Auth,
		AuthMiddleware:    middleware.Auth,
		UserHandler:       handlers.User,
		RequestHandler:    handlers.Request,
		SuperAdminHandler: handlers.SuperAdmin,
	})
}
