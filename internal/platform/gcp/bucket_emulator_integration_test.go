package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

func TestBucketServiceEmulatorUploadRoundTrip(t *testing.T) {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("WAXAL_RUN_GCS_EMULATOR_INTEGRATION")), "true") {
		t.Skip("set WAXAL_RUN_GCS_EMULATOR_INTEGRATION=true to run emulator integration tests")
	}

	emulatorHost := strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST"))
	if emulatorHost == "" {
		emulatorHost = "http://127.0.0.1:4443"
	}
	emulatorHost = strings.TrimRight(emulatorHost, "/")

	if !isEmulatorReachable(t, emulatorHost) {
		t.Skipf("storage emulator not reachable at %s", emulatorHost)
	}

	bucketName := fmt.Sprintf("waxal-it-%d", time.Now().UnixNano())
	createBucketIfMissing(t, emulatorHost, bucketName)

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	defer log.Sync()

	ctx := context.Background()
	bucket, err := NewBucketService(ctx, log, BucketConfig{
		Bucket:  bucketName,
		Storage: ObjectStorageConfig{Mode: ObjectStorageModeGCSEmulator, EmulatorHost: emulatorHost},
	})
	if err != nil {
		t.Fatalf("NewBucketService: %v", err)
	}

	publicURL, err := bucket.Upload(ctx, strings.NewReader("OggS-voice"), "prompt-1/participant-1", "audio/ogg")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.Contains(publicURL, "prompt-1%2Fparticipant-1") {
		t.Fatalf("public url should address the uploaded key: %s", publicURL)
	}

	body, err := downloadWithRetry(ctx, bucket, "prompt-1/participant-1", 5*time.Second)
	if err != nil {
		t.Fatalf("downloadWithRetry: %v", err)
	}
	if string(body) != "OggS-voice" {
		t.Fatalf("download body: want=%q got=%q", "OggS-voice", string(body))
	}
}

func isEmulatorReachable(t *testing.T, emulatorHost string) bool {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(emulatorHost + "/storage/v1/b?project=local-dev")
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 500
}

func createBucketIfMissing(t *testing.T, emulatorHost string, bucket string) {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"name": bucket})
	if err != nil {
		t.Fatalf("json.Marshal(bucket): %v", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(
		http.MethodPost,
		emulatorHost+"/storage/v1/b?project=local-dev",
		bytes.NewReader(payload),
	)
	if err != nil {
		t.Fatalf("http.NewRequest(create bucket): %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("create bucket %q: %v", bucket, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusConflict {
		return
	}
	b, _ := io.ReadAll(resp.Body)
	t.Fatalf("create bucket %q failed: status=%d body=%s", bucket, resp.StatusCode, strings.TrimSpace(string(b)))
}

func downloadWithRetry(ctx context.Context, bucket BucketService, key string, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		rc, err := bucket.Download(ctx, key)
		if err == nil {
			body, readErr := io.ReadAll(rc)
			_ = rc.Close()
			if readErr == nil {
				return body, nil
			}
			lastErr = readErr
		} else {
			lastErr = err
		}
		if time.Now().After(deadline) {
			return nil, lastErr
		}
		time.Sleep(100 * time.Millisecond)
	}
}
