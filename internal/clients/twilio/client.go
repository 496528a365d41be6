package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/waxal-backend/internal/platform/httpx"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

type Client interface {
	SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error)
	// FetchMedia downloads an inbound attachment. The caller closes the body.
	FetchMedia(ctx context.Context, mediaURL string) (*Media, error)
}

type Config struct {
	AccountSID                 string
	AuthToken                  string
	APIKey                     string
	APIKeySecret               string
	BaseURL                    string
	DefaultMessagingServiceSID string
	DefaultStatusCallbackURL   string
	Timeout                    time.Duration
	MaxRetries                 int
	// MaxMediaBytes caps FetchMedia bodies; 0 means 16 MiB.
	MaxMediaBytes int64
}

const defaultMaxMediaBytes = 16 << 20

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	cfg.AccountSID = strings.TrimSpace(cfg.AccountSID)
	if cfg.AccountSID == "" {
		return nil, fmt.Errorf("missing twilio account sid")
	}

	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.APIKeySecret = strings.TrimSpace(cfg.APIKeySecret)
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	if cfg.APIKey != "" {
		if cfg.APIKeySecret == "" {
			return nil, fmt.Errorf("missing twilio api key secret (required when api key is set)")
		}
	} else if cfg.AuthToken == "" {
		return nil, fmt.Errorf("missing twilio auth token (or provide api key + secret)")
	}

	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.twilio.com/2010-04-01"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxMediaBytes <= 0 {
		cfg.MaxMediaBytes = defaultMaxMediaBytes
	}

	return &client{
		log:        log.With("client", "TwilioClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	// initialBackoff is shortened in tests.
	initialBackoff time.Duration
}

type SendMessageRequest struct {
	To                  string
	From                string
	MessagingServiceSID string
	Body                string
	MediaURLs           []string
	StatusCallbackURL   string
}

type Message struct {
	SID                 string  `json:"sid,omitempty"`
	AccountSID          string  `json:"account_sid,omitempty"`
	To                  string  `json:"to,omitempty"`
	From                string  `json:"from,omitempty"`
	Body                string  `json:"body,omitempty"`
	MessagingServiceSID string  `json:"messaging_service_sid,omitempty"`
	Status              string  `json:"status,omitempty"`
	NumMedia            string  `json:"num_media,omitempty"`
	ErrorCode           *int    `json:"error_code,omitempty"`
	ErrorMessage        *string `json:"error_message,omitempty"`
	DateCreated         string  `json:"date_created,omitempty"`
	URI                 string  `json:"uri,omitempty"`
}

type Media struct {
	Body        io.ReadCloser
	ContentType string
}

func (c *client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("twilio client unavailable")
	}

	req.To = strings.TrimSpace(req.To)
	req.From = strings.TrimSpace(req.From)
	req.MessagingServiceSID = strings.TrimSpace(req.MessagingServiceSID)
	req.Body = strings.TrimSpace(req.Body)
	req.StatusCallbackURL = strings.TrimSpace(req.StatusCallbackURL)

	if req.To == "" {
		return nil, fmt.Errorf("twilio: To required")
	}
	if req.MessagingServiceSID == "" {
		req.MessagingServiceSID = strings.TrimSpace(c.cfg.DefaultMessagingServiceSID)
	}
	if req.StatusCallbackURL == "" {
		req.StatusCallbackURL = strings.TrimSpace(c.cfg.DefaultStatusCallbackURL)
	}
	if req.From == "" && req.MessagingServiceSID == "" {
		return nil, fmt.Errorf("twilio: sender required (From or MessagingServiceSID)")
	}

	hasMedia := false
	for _, u := range req.MediaURLs {
		if strings.TrimSpace(u) != "" {
			hasMedia = true
			break
		}
	}
	if req.Body == "" && !hasMedia {
		return nil, fmt.Errorf("twilio: content required (Body or MediaURLs)")
	}

	form := url.Values{}
	form.Set("To", req.To)
	if req.From != "" {
		form.Set("From", req.From)
	}
	if req.MessagingServiceSID != "" {
		form.Set("MessagingServiceSid", req.MessagingServiceSID)
	}
	if req.Body != "" {
		form.Set("Body", req.Body)
	}
	for _, mu := range req.MediaURLs {
		mu = strings.TrimSpace(mu)
		if mu == "" {
			continue
		}
		form.Add("MediaUrl", mu)
	}
	if req.StatusCallbackURL != "" {
		form.Set("StatusCallback", req.StatusCallbackURL)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSID)
	return httpx.Retry(ctx, c.retryPolicy(endpoint), func(ctx context.Context) (*Message, *http.Response, error) {
		return doFormOnce[Message](c, ctx, http.MethodPost, endpoint, form)
	})
}

// FetchMedia only attaches credentials when the media lives on the Twilio
// API host; redirects to the CDN are followed without them.
func (c *client) FetchMedia(ctx context.Context, mediaURL string) (*Media, error) {
	mediaURL = strings.TrimSpace(mediaURL)
	u, err := url.Parse(mediaURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, fmt.Errorf("twilio: invalid media url %q", mediaURL)
	}
	withAuth := c.isTwilioHost(u.Host)

	return httpx.Retry(ctx, c.retryPolicy(mediaURL), func(ctx context.Context) (*Media, *http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
		if err != nil {
			return nil, nil, err
		}
		if withAuth {
			req.SetBasicAuth(c.basicAuth())
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, resp, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
			return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		}
		if resp.ContentLength > c.cfg.MaxMediaBytes {
			_ = resp.Body.Close()
			return nil, resp, fmt.Errorf("%w: %d bytes", ErrMediaTooLarge, resp.ContentLength)
		}
		return &Media{
			Body:        &cappedBody{r: resp.Body, remaining: c.cfg.MaxMediaBytes},
			ContentType: resp.Header.Get("Content-Type"),
		}, resp, nil
	})
}

// ErrMediaTooLarge is returned when an attachment exceeds MaxMediaBytes.
var ErrMediaTooLarge = errors.New("twilio: media exceeds size limit")

// cappedBody fails the read that crosses the cap instead of ending the
// stream early, so an oversized file is never mistaken for a short one.
type cappedBody struct {
	r         io.ReadCloser
	remaining int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, ErrMediaTooLarge
	}
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.r.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, ErrMediaTooLarge
	}
	return n, err
}

func (b *cappedBody) Close() error { return b.r.Close() }

func (c *client) isTwilioHost(host string) bool {
	host = strings.ToLower(host)
	if base, err := url.Parse(c.cfg.BaseURL); err == nil && strings.EqualFold(base.Host, host) {
		return true
	}
	h := host
	if i := strings.LastIndex(h, ":"); i >= 0 {
		h = h[:i]
	}
	return h == "twilio.com" || strings.HasSuffix(h, ".twilio.com")
}

func (c *client) retryPolicy(target string) httpx.RetryPolicy {
	return httpx.RetryPolicy{
		MaxRetries: c.cfg.MaxRetries,
		Initial:    c.initialBackoff,
		Max:        10 * time.Second,
		OnRetry: func(attempt int, sleep time.Duration, err error) {
			c.log.Warn("Twilio request retrying",
				"url", target,
				"attempt", attempt,
				"max_retries", c.cfg.MaxRetries,
				"sleep", sleep.String(),
				"error", err.Error(),
			)
		},
	}
}

// ---------- HTTP helpers ----------

type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

type HTTPError struct {
	StatusCode int
	Body       string
	APIError   *apiError
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "twilio: <nil error>"
	}
	if e.APIError != nil && strings.TrimSpace(e.APIError.Message) != "" {
		if e.APIError.Code != 0 {
			return fmt.Sprintf("twilio http %d: %s (code=%d)", e.StatusCode, e.APIError.Message, e.APIError.Code)
		}
		return fmt.Sprintf("twilio http %d: %s", e.StatusCode, e.APIError.Message)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 4000 {
		msg = msg[:4000] + "..."
	}
	return fmt.Sprintf("twilio http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) basicAuth() (user, pass string) {
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey, c.cfg.APIKeySecret
	}
	return c.cfg.AccountSID, c.cfg.AuthToken
}

func doFormOnce[T any](c *client, ctx context.Context, method, urlStr string, form url.Values) (*T, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.basicAuth())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resp, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && strings.TrimSpace(ae.Message) != "" {
			return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), APIError: &ae}
		}
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out T
	if len(raw) == 0 {
		return &out, resp, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp, fmt.Errorf("twilio decode error: %w; raw=%s", err, string(raw))
	}
	return &out, resp, nil
}
