package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/waxal-backend/internal/clients/twilio"
	"github.com/yungbote/waxal-backend/internal/http/response"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

// TwilioSignature rejects webhook calls whose X-Twilio-Signature does not
// match authToken. publicURL is the base URL Twilio was configured with; the
// request URI is appended to it.
func TwilioSignature(log *logger.Logger, authToken, publicURL string) gin.HandlerFunc {
	mwLog := log.With("Middleware", "TwilioSignature")
	base := strings.TrimRight(strings.TrimSpace(publicURL), "/")
	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			response.AbortError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
		fullURL := base + c.Request.URL.RequestURI()
		sig := c.GetHeader(twilio.SignatureHeader)
		if !twilio.ValidateSignature(authToken, fullURL, c.Request.PostForm, sig) {
			mwLog.Warn("Rejected webhook with bad signature", "path", c.Request.URL.Path, "has_signature", sig != "")
			response.AbortError(c, http.StatusForbidden, "invalid_signature", errors.New("invalid twilio signature"))
			return
		}
		c.Next()
	}
}
