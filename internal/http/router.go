package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	httpH "github.com/yungbote/housedesk-backend/internal/http/handlers"
	httpMW "github.com/yungbote/housedesk-backend/internal/http/middleware"
	"github.com/yungbote/housedesk-backend/internal/observability"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	// ServiceName enables otelgin spans when non-empty.
	ServiceName string

	AuthHandler       *httpH.AuthHandler
	AuthMiddleware    *httpMW.AuthMiddleware
	UserHandler       *httpH.UserHandler
	RequestHandler    *httpH.RequestHandler
	SuperAdminHandler *httpH.SuperAdminHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/telegram", cfg.AuthHandler.Telegram)
			api.POST("/auth/demo", cfg.AuthHandler.Demo)
			api.POST("/auth/admin-login", cfg.AuthHandler.AdminLogin)
			api.POST("/auth/refresh", cfg.AuthHandler.Refresh)
		}
		// Reference data (public)
		if cfg.RequestHandler != nil {
			api.GET("/requests/categories", cfg.RequestHandler.Categories)
			api.GET("/requests/statuses", cfg.RequestHandler.Statuses)
		}
	}

	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		if cfg.AuthHandler != nil {
			protected.POST("/auth/logout", cfg.AuthHandler.Logout)
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.PATCH("/me", cfg.UserHandler.UpdateMe)
			protected.GET("/houses", cfg.UserHandler.ListHouses)
		}

		// Requests
		if cfg.RequestHandler != nil {
			protected.POST("/requests", cfg.RequestHandler.Create)
			protected.GET("/requests", cfg.RequestHandler.List)
			protected.GET("/requests/:id", cfg.RequestHandler.Get)
			protected.PATCH("/requests/:id", cfg.RequestHandler.Update)
			protected.POST("/requests/:id/status", cfg.RequestHandler.Transition)
		}
	}

	if cfg.SuperAdminHandler != nil {
		admin := protected.Group("/superadmin")
		if cfg.AuthMiddleware != nil {
			admin.Use(cfg.AuthMiddleware.RequireRole(requests.RoleSuperAdmin))
		}
		h := cfg.SuperAdminHandler
		admin.GET("/stats", h.Stats)
		admin.POST("/requests/:id/cancel", h.CancelRequest)

		admin.GET("/companies", h.ListCompanies)
		admin.POST("/companies", h.CreateCompany)
		admin.PATCH("/companies/:id", h.UpdateCompany)
		admin.DELETE("/companies/:id", h.DeleteCompany)

		if cfg.UserHandler != nil {
			admin.GET("/houses", cfg.UserHandler.ListHouses)
		}
		admin.POST("/houses", h.CreateHouse)
		admin.PATCH("/houses/:id", h.UpdateHouse)
		admin.DELETE("/houses/:id", h.DeleteHouse)

		admin.GET("/users", h.ListUsers)
		admin.PATCH("/users/:id", h.UpdateUser)
		admin.DELETE("/users/:id", h.DeleteUser)
	}

	return r
}
