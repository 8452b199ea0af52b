package gonumplot

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/speechonset/pkg/audio"
	"github.com/xaionaro-go/speechonset/pkg/onsetdetection"
)

func TestConfigValidation(t *testing.T) {
	t.Run("NoOutputPath", func(t *testing.T) {
		_, err := New(DefaultConfig(""))
		assert.Error(t, err)
	})
	t.Run("BadSize", func(t *testing.T) {
		cfg := DefaultConfig("out.png")
		cfg.Width = 0
		_, err := New(cfg)
		assert.Error(t, err)
	})
}

func TestRenderWaveform(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "waveform.png")

	r, err := New(DefaultConfig(path))
	require.NoError(t, err)
	defer r.Close()

	samples := make([]float64, 16000)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/16000)
	}
	onsets := onsetdetection.Onsets{
		200 * time.Millisecond,
		600 * time.Millisecond,
	}

	require.NoError(t, r.RenderWaveform(ctx, audio.NewBuffer(samples, 16000), onsets))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRenderWaveformNoOnsets(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "silent.png")

	r, err := New(DefaultConfig(path))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.RenderWaveform(ctx, audio.NewBuffer(make([]float64, 8000), 8000), nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRenderWaveformEmptyBuffer(t *testing.T) {
	ctx := context.Background()
	r, err := New(DefaultConfig(filepath.Join(t.TempDir(), "never.png")))
	require.NoError(t, err)
	defer r.Close()

	assert.Error(t, r.RenderWaveform(ctx, audio.NewBuffer(nil, 16000), nil))
}
