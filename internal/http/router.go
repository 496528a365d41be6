package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/waxal-backend/internal/http/handlers"
	httpMW "github.com/yungbote/waxal-backend/internal/http/middleware"
	"github.com/yungbote/waxal-backend/internal/observability"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string
	TurnTimeout time.Duration

	// WebhookAuth verifies Twilio signatures; nil leaves the webhook open.
	WebhookAuth gin.HandlerFunc
	AdminAuth   *httpMW.AdminAuth

	WebhookHandler     *httpH.WebhookHandler
	ParticipantHandler *httpH.ParticipantHandler
	HealthHandler      *httpH.HealthHandler
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

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Twilio
	if cfg.WebhookHandler != nil {
		twilio := r.Group("/twilio")
		twilio.Use(httpMW.AttachRequestContext(cfg.TurnTimeout))
		if cfg.WebhookAuth != nil {
			twilio.Use(cfg.WebhookAuth)
		}
		twilio.POST("/whatsapp", cfg.WebhookHandler.WhatsApp)
	}

	// Operator API
	if cfg.AdminAuth != nil && cfg.ParticipantHandler != nil {
		api := r.Group("/api")
		api.Use(httpMW.CORS(cfg.CORSOrigins))
		api.Use(cfg.AdminAuth.RequireAdmin())
		api.GET("/participants/:phone", cfg.ParticipantHandler.GetParticipant)
	}

	return r
}
