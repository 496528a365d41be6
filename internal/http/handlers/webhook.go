package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/waxal-backend/internal/clients/redis"
	"github.com/yungbote/waxal-backend/internal/http/response"
	"github.com/yungbote/waxal-backend/internal/modules/collection"
	"github.com/yungbote/waxal-backend/internal/observability"
	"github.com/yungbote/waxal-backend/internal/platform/ctxutil"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

type EventHandler interface {
	HandleEvent(ctx context.Context, ev collection.InboundEvent)
}

// WebhookHandler receives Twilio WhatsApp deliveries. It always answers 200
// with empty TwiML; outbound messages go through the REST API instead.
type WebhookHandler struct {
	log      *logger.Logger
	workflow EventHandler
	dedupe   redis.Deduper
	metrics  *observability.Metrics
}

func NewWebhookHandler(log *logger.Logger, workflow EventHandler, dedupe redis.Deduper, metrics *observability.Metrics) *WebhookHandler {
	return &WebhookHandler{
		log:      log.With("handler", "WebhookHandler"),
		workflow: workflow,
		dedupe:   dedupe,
		metrics:  metrics,
	}
}

func (h *WebhookHandler) WhatsApp(c *gin.Context) {
	defer response.RespondTwiML(c)

	ev := collection.InboundEvent{
		SenderID:  c.PostForm("From"),
		Text:      c.PostForm("Body"),
		MediaURL:  strings.TrimSpace(c.PostForm("MediaUrl0")),
		MessageID: strings.TrimSpace(c.PostForm("MessageSid")),
	}
	ctx := c.Request.Context()
	if td := ctxutil.GetTraceData(ctx); td != nil {
		td.MessageSID = ev.MessageID
	}

	if ev.MessageID != "" && h.dedupe != nil {
		first, err := h.dedupe.FirstSeen(ctx, ev.MessageID)
		if err != nil {
			h.log.Warn("Dedupe check failed; handling anyway", append(ctxutil.LogFields(ctx), "error", err)...)
		} else if !first {
			h.log.Info("Dropping duplicate delivery", ctxutil.LogFields(ctx)...)
			h.metrics.IncDuplicate()
			return
		}
	}
	h.workflow.HandleEvent(ctx, ev)
}
