package localmedia

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

func newTestInspector(t *testing.T, run runFunc) *inspector {
	t.Helper()
	in := New(logger.NewNop(), Options{WorkRoot: t.TempDir()}).(*inspector)
	in.run = run
	return in
}

func TestMeasureDurationParsesProbeOutput(t *testing.T) {
	var probed string
	in := newTestInspector(t, func(_ context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "ffprobe", name)
		probed = args[len(args)-1]
		data, err := os.ReadFile(probed)
		require.NoError(t, err)
		assert.Equal(t, "OggS-bytes", string(data))
		return []byte("4.520000\n"), nil
	})

	got := in.MeasureDuration(context.Background(), strings.NewReader("OggS-bytes"))
	assert.InDelta(t, 4.52, got, 1e-9)

	_, err := os.Stat(probed)
	assert.True(t, os.IsNotExist(err), "staged file must be removed")
}

func TestMeasureDurationUnknownIsZero(t *testing.T) {
	cases := map[string]runFunc{
		"probe error": func(context.Context, string, ...string) ([]byte, error) {
			return []byte("Invalid data found"), errors.New("exit status 1")
		},
		"no duration": func(context.Context, string, ...string) ([]byte, error) {
			return []byte("N/A\n"), nil
		},
	}
	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			in := newTestInspector(t, run)
			assert.Zero(t, in.MeasureDuration(context.Background(), strings.NewReader("junk")))
		})
	}
}

func TestMeasureDurationEmptyStream(t *testing.T) {
	called := false
	in := newTestInspector(t, func(context.Context, string, ...string) ([]byte, error) {
		called = true
		return []byte("1.0"), nil
	})
	assert.Zero(t, in.MeasureDuration(context.Background(), strings.NewReader("")))
	assert.False(t, called)
}

func TestParseDuration(t *testing.T) {
	v, err := parseDuration([]byte("\n12.5\n"))
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	_, err = parseDuration([]byte("-1\n"))
	assert.Error(t, err)
}
