package localmedia

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

// Inspector is the glue around ffprobe used to measure voice notes.
//
// REQUIRED BINARY in the runtime image: ffprobe (ffmpeg package).
type Inspector interface {
	AssertReady(ctx context.Context) error
	// MeasureDuration returns the stream length in seconds, or 0 when it
	// cannot be determined.
	MeasureDuration(ctx context.Context, r io.Reader) float64
}

type Options struct {
	FFprobePath string
	WorkRoot    string
	Timeout     time.Duration
	// MaxBytes bounds how much of the stream is staged to disk.
	MaxBytes int64
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

type inspector struct {
	log         *logger.Logger
	ffprobePath string
	workRoot    string
	timeout     time.Duration
	maxBytes    int64
	run         runFunc
}

func New(log *logger.Logger, opts Options) Inspector {
	if strings.TrimSpace(opts.FFprobePath) == "" {
		opts.FFprobePath = "ffprobe"
	}
	if strings.TrimSpace(opts.WorkRoot) == "" {
		opts.WorkRoot = filepath.Join(os.TempDir(), "waxal-media")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 32 << 20
	}
	return &inspector{
		log:         log.With("service", "AudioInspector"),
		ffprobePath: opts.FFprobePath,
		workRoot:    opts.WorkRoot,
		timeout:     opts.Timeout,
		maxBytes:    opts.MaxBytes,
		run:         execCombined,
	}
}

func execCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (m *inspector) AssertReady(ctx context.Context) error {
	if _, err := exec.LookPath(m.ffprobePath); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", m.ffprobePath, err)
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

func (m *inspector) MeasureDuration(ctx context.Context, r io.Reader) float64 {
	path, cleanup, err := m.writeTempFile(r)
	if err != nil {
		m.log.Warn("Could not stage audio for probing", "error", err)
		return 0
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	out, err := m.run(ctx, m.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		m.log.Warn("ffprobe failed", "error", err, "out", strings.TrimSpace(string(out)))
		return 0
	}
	seconds, err := parseDuration(out)
	if err != nil {
		m.log.Warn("ffprobe returned no duration", "out", strings.TrimSpace(string(out)))
		return 0
	}
	return seconds
}

// writeTempFile stages at most maxBytes of r; the caller runs cleanup.
func (m *inspector) writeTempFile(r io.Reader) (string, func(), error) {
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir workRoot: %w", err)
	}
	f, err := os.CreateTemp(m.workRoot, "voice-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	n, err := io.Copy(f, io.LimitReader(r, m.maxBytes))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("write temp file: %w", err)
	}
	if n == 0 {
		cleanup()
		return "", func() {}, fmt.Errorf("empty audio stream")
	}
	return f.Name(), cleanup, nil
}

func parseDuration(out []byte) (float64, error) {
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil || v < 0 {
			continue
		}
		return v, nil
	}
	return 0, fmt.Errorf("no duration in ffprobe output")
}
