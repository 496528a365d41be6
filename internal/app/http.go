package app

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/waxal-backend/internal/config"
	apphttp "github.com/yungbote/waxal-backend/internal/http"
	httpH "github.com/yungbote/waxal-backend/internal/http/handlers"
	httpMW "github.com/yungbote/waxal-backend/internal/http/middleware"
	"github.com/yungbote/waxal-backend/internal/modules/collection"
	"github.com/yungbote/waxal-backend/internal/observability"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

type Middleware struct {
	WebhookAuth gin.HandlerFunc
	AdminAuth   *httpMW.AdminAuth
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Webhook     *httpH.WebhookHandler
	Participant *httpH.ParticipantHandler
}

func wireHandlers(log *logger.Logger, metrics *observability.Metrics, workflow collection.Usecases, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(),
		Webhook:     httpH.NewWebhookHandler(log, workflow, clients.Dedupe, metrics),
		Participant: httpH.NewParticipantHandler(log, workflow),
	}
}

func wireMiddleware(log *logger.Logger, cfg *config.Config) Middleware {
	log.Info("Wiring middleware...")
	var mw Middleware
	if cfg.Twilio.ValidateSignature {
		mw.WebhookAuth = httpMW.TwilioSignature(log, cfg.Twilio.AuthToken, cfg.Twilio.PublicURL)
	} else {
		log.Warn("Twilio signature validation is off")
	}
	if strings.TrimSpace(cfg.Admin.JWTSecret) != "" {
		mw.AdminAuth = httpMW.NewAdminAuth(log, cfg.Admin.JWTSecret, cfg.Admin.JWTIssuer)
	} else {
		log.Info("ADMIN_JWT_SECRET not set; operator API disabled")
	}
	return mw
}

func wireServer(log *logger.Logger, cfg *config.Config, metrics *observability.Metrics, workflow collection.Usecases, clients Clients) *apphttp.Server {
	handlers := wireHandlers(log, metrics, workflow, clients)
	middleware := wireMiddleware(log, cfg)
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.App.Name
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:                log,
		Metrics:            metrics,
		ServiceName:        serviceName,
		CORSOrigins:        httpMW.SplitOrigins(cfg.CORS.AllowedOrigins),
		TurnTimeout:        cfg.Server.TurnTimeout,
		WebhookAuth:        middleware.WebhookAuth,
		AdminAuth:          middleware.AdminAuth,
		WebhookHandler:     handlers.Webhook,
		ParticipantHandler: handlers.Participant,
		HealthHandler:      handlers.Health,
	}, apphttp.ServerConfig{
		Addr:         cfg.Server.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
}
