package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/lexi-backend/internal/http/handlers"
	httpMW "github.com/yungbote/lexi-backend/internal/http/middleware"
	"github.com/yungbote/lexi-backend/internal/observability"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

const serviceName = "lexi-api"

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	AllowedOrigins []string
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	DocumentHandler *httpH.DocumentHandler
	ChatHandler     *httpH.ChatHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Observe(cfg.Log, cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	protected := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Documents
		if cfg.DocumentHandler != nil {
			protected.POST("/documents", cfg.DocumentHandler.Upload)
			protected.PUT("/documents/:id", cfg.DocumentHandler.Update)
			protected.DELETE("/documents/:id", cfg.DocumentHandler.Delete)
			protected.GET("/documents/:id/text", cfg.DocumentHandler.Text)
			protected.GET("/matters/:id/documents", cfg.DocumentHandler.ListByMatter)
		}

		// Chat
		if cfg.ChatHandler != nil {
			protected.POST("/chat", cfg.ChatHandler.Turn)
			protected.POST("/chat/sessions", cfg.ChatHandler.CreateSession)
			protected.GET("/chat/sessions", cfg.ChatHandler.ListSessions)
			protected.PATCH("/chat/sessions/:id", cfg.ChatHandler.RenameSession)
			protected.DELETE("/chat/sessions/:id", cfg.ChatHandler.DeleteSession)
			protected.GET("/chat/sessions/:id/messages", cfg.ChatHandler.Messages)
		}
	}

	return r
}
