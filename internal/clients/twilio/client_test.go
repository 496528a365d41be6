package twilio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/waxal-backend/internal/platform/logger"
	"github.com/yungbote/waxal-backend/internal/platform/vars"
)

func newTestClient(t *testing.T, baseURL string, retries int) *client {
	t.Helper()
	c, err := New(logger.NewNop(), Config{
		AccountSID: "AC123",
		AuthToken:  "secret",
		BaseURL:    baseURL,
		MaxRetries: retries,
	})
	require.NoError(t, err)
	cl := c.(*client)
	cl.initialBackoff = time.Millisecond
	return cl
}

func TestNewValidatesCredentials(t *testing.T) {
	_, err := New(logger.NewNop(), Config{})
	assert.Error(t, err)
	_, err = New(logger.NewNop(), Config{AccountSID: "AC1"})
	assert.Error(t, err)
	_, err = New(logger.NewNop(), Config{AccountSID: "AC1", APIKey: "SK1"})
	assert.Error(t, err)
	_, err = New(logger.NewNop(), Config{AccountSID: "AC1", APIKey: "SK1", APIKeySecret: "s"})
	assert.NoError(t, err)
}

func TestSendMessagePostsForm(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	msg, err := c.SendMessage(context.Background(), SendMessageRequest{
		To:        "whatsapp:+15550001",
		From:      "whatsapp:+15559999",
		Body:      "1/3",
		MediaURLs: []string{"https://m/1.jpg", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "SM1", msg.SID)
	assert.Equal(t, "whatsapp:+15550001", got.Get("To"))
	assert.Equal(t, "whatsapp:+15559999", got.Get("From"))
	assert.Equal(t, "1/3", got.Get("Body"))
	assert.Equal(t, []string{"https://m/1.jpg"}, got["MediaUrl"])
}

func TestSendMessageRequiresContent(t *testing.T) {
	c := newTestClient(t, "http://unused", 0)
	_, err := c.SendMessage(context.Background(), SendMessageRequest{To: "x", From: "y"})
	assert.Error(t, err)
	_, err = c.SendMessage(context.Background(), SendMessageRequest{Body: "hi", From: "y"})
	assert.Error(t, err)
}

func TestSendMessageRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"sid":"SM2"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	msg, err := c.SendMessage(context.Background(), SendMessageRequest{To: "a", From: "b", Body: "c"})
	require.NoError(t, err)
	assert.Equal(t, "SM2", msg.SID)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestSendMessageDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.SendMessage(context.Background(), SendMessageRequest{To: "a", From: "b", Body: "c"})
	require.Error(t, err)
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, 400, herr.HTTPStatusCode())
	assert.Contains(t, err.Error(), "code=21211")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchMediaUsesAuthOnTwilioHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.True(t, ok)
		w.Header().Set("Content-Type", "audio/ogg")
		_, _ = w.Write([]byte("OggS-data"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	media, err := c.FetchMedia(context.Background(), srv.URL+"/Accounts/AC123/Messages/MM1/Media/ME1")
	require.NoError(t, err)
	defer media.Body.Close()
	body, err := io.ReadAll(media.Body)
	require.NoError(t, err)
	assert.Equal(t, "OggS-data", string(body))
	assert.Equal(t, "audio/ogg", media.ContentType)
}

func TestFetchMediaSkipsAuthElsewhere(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
		_, _ = w.Write([]byte(strings.Repeat("a", 10)))
	}))
	defer srv.Close()

	c, err := New(logger.NewNop(), Config{AccountSID: "AC1", AuthToken: "t", MaxMediaBytes: 10})
	require.NoError(t, err)
	media, err := c.FetchMedia(context.Background(), srv.URL+"/file.ogg")
	require.NoError(t, err)
	defer media.Body.Close()
	body, err := io.ReadAll(media.Body)
	require.NoError(t, err)
	assert.Len(t, body, 10)
}

func TestFetchMediaRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Chunked, so the size is only known while reading.
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	c, err := New(logger.NewNop(), Config{AccountSID: "AC1", AuthToken: "t", MaxMediaBytes: 10})
	require.NoError(t, err)
	media, err := c.FetchMedia(context.Background(), srv.URL+"/file.ogg")
	require.NoError(t, err)
	defer media.Body.Close()
	_, err = io.ReadAll(media.Body)
	assert.ErrorIs(t, err, ErrMediaTooLarge)
}

func TestFetchMediaRejectsDeclaredOversize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	c, err := New(logger.NewNop(), Config{AccountSID: "AC1", AuthToken: "t", MaxMediaBytes: 10})
	require.NoError(t, err)
	_, err = c.FetchMedia(context.Background(), srv.URL+"/file.ogg")
	assert.ErrorIs(t, err, ErrMediaTooLarge)
}

func TestFetchMediaRejectsBadURL(t *testing.T) {
	c := newTestClient(t, "http://unused", 0)
	_, err := c.FetchMedia(context.Background(), "ftp://x/y")
	assert.Error(t, err)
}

type recordingClient struct {
	reqs []SendMessageRequest
	err  error
}

func (r *recordingClient) SendMessage(_ context.Context, req SendMessageRequest) (*Message, error) {
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return nil, r.err
	}
	return &Message{SID: "SM"}, nil
}

func (r *recordingClient) FetchMedia(context.Context, string) (*Media, error) { return nil, nil }

func TestMessengerAddressesWhatsApp(t *testing.T) {
	rc := &recordingClient{}
	v := vars.NewMap(map[string]string{SenderVar: "+1 555 9999"})
	m := NewMessenger(rc, v, logger.NewNop())

	require.NoError(t, m.Send(context.Background(), "15550001", "", "https://m/consent.ogg"))
	require.Len(t, rc.reqs, 1)
	assert.Equal(t, "whatsapp:+15550001", rc.reqs[0].To)
	assert.Equal(t, "whatsapp:+15559999", rc.reqs[0].From)
	assert.Equal(t, []string{"https://m/consent.ogg"}, rc.reqs[0].MediaURLs)

	require.NoError(t, m.Send(context.Background(), "15550001", "hello", ""))
	assert.Nil(t, rc.reqs[1].MediaURLs)
}

func TestMessengerMissingSender(t *testing.T) {
	m := NewMessenger(&recordingClient{}, vars.NewMap(nil), logger.NewNop())
	err := m.Send(context.Background(), "1", "hi", "")
	assert.ErrorIs(t, err, vars.ErrMissingConfig)
}

func TestSignatureRoundTrip(t *testing.T) {
	params := url.Values{"From": {"whatsapp:+15550001"}, "Body": {"hi"}, "MessageSid": {"SM1"}}
	full := "https://example.com/twilio/whatsapp"
	sig := ComputeSignature("token", full, params)

	assert.True(t, ValidateSignature("token", full, params, sig))
	assert.False(t, ValidateSignature("other", full, params, sig))
	assert.False(t, ValidateSignature("token", full+"?x=1", params, sig))

	tampered := url.Values{"From": {"whatsapp:+15550002"}, "Body": {"hi"}, "MessageSid": {"SM1"}}
	assert.False(t, ValidateSignature("token", full, tampered, sig))
	assert.False(t, ValidateSignature("token", full, params, ""))
}
