// Package https_server builds the gin engine with the middleware chain
// and the chat routes.
package https_server

import (
	"time"

	"clinic_chat_server/internal/config"
	"clinic_chat_server/internal/handler"
	"clinic_chat_server/internal/infrastructure/logger"
	"clinic_chat_server/internal/infrastructure/middleware"
	"clinic_chat_server/internal/router"
	"clinic_chat_server/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Init returns the configured engine.
// Middleware order:
//  1. zap request logging and panic recovery
//  2. prometheus request metrics
//  3. CORS, then the optional HTTPS redirect
//  4. per-group JWT auth and impersonation, registered by the router
func Init(conf *config.Config, svc *service.Services, handlers *handler.Handlers) *gin.Engine {
	if conf.MainConfig.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))
	engine.Use(middleware.Metrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.ImpersonateHeader}
	corsConfig.MaxAge = 12 * time.Hour
	engine.Use(cors.New(corsConfig))

	// usually nginx terminates TLS; enable when the server faces clients directly
	if conf.MainConfig.TLS {
		engine.Use(middleware.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port, conf.MainConfig.Mode == "dev"))
	}

	rt := router.NewRouter(
		handlers,
		middleware.JWTAuth(svc.Repos.User),
		middleware.Impersonation(svc.Perms, svc.Repos.User),
	)
	rt.RegisterRoutes(engine)
	return engine
}
