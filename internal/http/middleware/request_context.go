package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/waxal-backend/internal/platform/ctxutil"
)

// AttachRequestContext detaches the request context from the client
// connection and bounds it by timeout. A webhook turn keeps running when
// Twilio gives up on the request; adapter calls inherit the deadline.
func AttachRequestContext(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctxutil.Detached(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
