package spectralgate

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/speechonset/pkg/audio"
)

func rmsOf(samples []float64) float64 {
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func TestConfigValidation(t *testing.T) {
	t.Run("ReductionOutOfRange", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Reduction = 1.5
		_, err := New(cfg)
		assert.Error(t, err)
	})
	t.Run("NegativeThreshold", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.NoiseStdThreshold = -1
		_, err := New(cfg)
		assert.Error(t, err)
	})
	t.Run("BadWindow", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.WindowSize = 1000
		_, err := New(cfg)
		assert.Error(t, err)
	})
}

func TestReduceNoiseSilenceStaysSilent(t *testing.T) {
	ctx := context.Background()
	g, err := New(DefaultConfig())
	require.NoError(t, err)
	defer g.Close()

	input := audio.NewBuffer(make([]float64, 16000), 16000)
	output, err := g.ReduceNoise(ctx, input)
	require.NoError(t, err)
	require.Equal(t, input.Len(), output.Len())
	assert.Equal(t, input.SampleRate, output.SampleRate)
	assert.InDelta(t, 0, rmsOf(output.Samples), 1e-9)
}

func TestReduceNoiseAttenuatesHiss(t *testing.T) {
	ctx := context.Background()
	g, err := New(DefaultConfig())
	require.NoError(t, err)
	defer g.Close()

	const sampleRate = 16000
	rng := rand.New(rand.NewSource(1))
	samples := make([]float64, 2*sampleRate)
	// Steady hiss everywhere, a loud tone burst in the second half.
	for i := range samples {
		samples[i] = 0.01 * (2*rng.Float64() - 1)
	}
	for i := sampleRate; i < 2*sampleRate; i++ {
		samples[i] += 0.8 * math.Sin(2*math.Pi*440*float64(i)/sampleRate)
	}

	input := audio.NewBuffer(samples, sampleRate)
	output, err := g.ReduceNoise(ctx, input)
	require.NoError(t, err)
	require.Equal(t, input.Len(), output.Len())

	// The hiss-only region must come out substantially quieter.
	hissBefore := rmsOf(input.Samples[1024 : sampleRate-1024])
	hissAfter := rmsOf(output.Samples[1024 : sampleRate-1024])
	assert.Less(t, hissAfter, 0.5*hissBefore)

	// The tone burst must survive.
	toneAfter := rmsOf(output.Samples[sampleRate+1024 : 2*sampleRate-1024])
	assert.Greater(t, toneAfter, 0.3)
}

func TestReduceNoisePreservesIntermittentTone(t *testing.T) {
	ctx := context.Background()
	g, err := New(DefaultConfig())
	require.NoError(t, err)
	defer g.Close()

	const sampleRate = 16000
	rng := rand.New(rand.NewSource(3))
	samples := make([]float64, 2*sampleRate)
	for i := range samples {
		samples[i] = 0.005 * (2*rng.Float64() - 1)
	}
	// The tone occupies only a quarter of the recording; its band is
	// noise-only most of the time, which must not gate the tone away.
	toneStart, toneEnd := sampleRate/2, sampleRate
	for i := toneStart; i < toneEnd; i++ {
		samples[i] += 0.6 * math.Sin(2*math.Pi*880*float64(i)/sampleRate)
	}

	input := audio.NewBuffer(samples, sampleRate)
	output, err := g.ReduceNoise(ctx, input)
	require.NoError(t, err)

	toneBefore := rmsOf(input.Samples[toneStart+1024 : toneEnd-1024])
	toneAfter := rmsOf(output.Samples[toneStart+1024 : toneEnd-1024])
	assert.Greater(t, toneAfter, 0.5*toneBefore)
}

func TestReduceNoiseIsDeterministic(t *testing.T) {
	ctx := context.Background()
	g, err := New(DefaultConfig())
	require.NoError(t, err)
	defer g.Close()

	rng := rand.New(rand.NewSource(42))
	samples := make([]float64, 8000)
	for i := range samples {
		samples[i] = 0.1 * (2*rng.Float64() - 1)
	}
	input := audio.NewBuffer(samples, 16000)

	first, err := g.ReduceNoise(ctx, input.Clone())
	require.NoError(t, err)
	second, err := g.ReduceNoise(ctx, input.Clone())
	require.NoError(t, err)
	assert.Equal(t, first.Samples, second.Samples)
}

func TestReduceNoiseEmptyBuffer(t *testing.T) {
	ctx := context.Background()
	g, err := New(DefaultConfig())
	require.NoError(t, err)
	defer g.Close()

	_, err = g.ReduceNoise(ctx, audio.NewBuffer(nil, 16000))
	assert.Error(t, err)
}
