package app

import (
	"github.com/yungbote/lexi-backend/internal/data/repos"
	lexihttp "github.com/yungbote/lexi-backend/internal/http"
	httpH "github.com/yungbote/lexi-backend/internal/http/handlers"
	httpMW "github.com/yungbote/lexi-backend/internal/http/middleware"
	"github.com/yungbote/lexi-backend/internal/observability"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, reposet repos.Repos, services Services, clients Clients, metrics *observability.Metrics) *lexihttp.Server {
	log.Info("Wiring HTTP server...")
	return lexihttp.NewServer(lexihttp.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		AllowedOrigins:  cfg.AllowedOrigins,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, []byte(cfg.JWTSecretKey), reposet.Principals),
		HealthHandler:   httpH.NewHealthHandler(clients.Health),
		DocumentHandler: httpH.NewDocumentHandler(services.Documents),
		ChatHandler:     httpH.NewChatHandler(services.Chat, services.History),
	})
}
