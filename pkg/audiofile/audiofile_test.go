package audiofile

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/speechonset/pkg/audio"
)

func writeTestWAV(t *testing.T, path string, channels int, sampleRate int, frames [][]int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	data := make([]int, 0, len(frames)*channels)
	for _, frame := range frames {
		require.Len(t, frame, channels)
		data = append(data, frame...)
	}
	require.NoError(t, enc.Write(&gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestLoadMono(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mono.wav")

	frames := make([][]int, 1600)
	for i := range frames {
		v := int(math.Round(0.5 * math.MaxInt16 * math.Sin(2*math.Pi*440*float64(i)/16000)))
		frames[i] = []int{v}
	}
	writeTestWAV(t, path, 1, 16000, frames)

	buf, err := Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, audio.SampleRate(16000), buf.SampleRate)
	assert.Equal(t, len(frames), buf.Len())
	assert.InDelta(t, 0.5*math.MaxInt16*math.Sin(2*math.Pi*440/16000)/math.MaxInt16, buf.Samples[1], 0.001)
	for _, v := range buf.Samples {
		assert.LessOrEqual(t, math.Abs(v), 1.0)
	}
}

func TestLoadDownmixesToMono(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stereo.wav")

	// Left and right cancel each other out, except for one frame.
	frames := make([][]int, 100)
	for i := range frames {
		frames[i] = []int{10000, -10000}
	}
	frames[50] = []int{10000, 10000}
	writeTestWAV(t, path, 2, 44100, frames)

	buf, err := Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, audio.SampleRate(44100), buf.SampleRate)
	require.Equal(t, len(frames), buf.Len())
	assert.InDelta(t, 0, buf.Samples[0], 0.001)
	assert.InDelta(t, float64(10000)/(1<<15), buf.Samples[50], 0.001)
}

func TestLoadNonExistentFile(t *testing.T) {
	ctx := context.Background()

	buf, err := Load(ctx, filepath.Join(t.TempDir(), "does-not-exist.wav"))
	require.Error(t, err)
	assert.Nil(t, buf)

	var fileReadErr *FileReadError
	require.ErrorAs(t, err, &fileReadErr)
	assert.NotEmpty(t, fileReadErr.Path)
}

func TestLoadGarbage(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("this is not audio at all"), 0640))

	_, err := Load(ctx, path)
	var fileReadErr *FileReadError
	require.ErrorAs(t, err, &fileReadErr)
}

func TestLoadTruncatedWAV(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "truncated.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF\x00\x00\x00\x00WAVE"), 0640))

	_, err := Load(ctx, path)
	var fileReadErr *FileReadError
	require.ErrorAs(t, err, &fileReadErr)
}

func TestSaveWAVRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "roundtrip.wav")

	samples := make([]float64, 800)
	for i := range samples {
		samples[i] = 0.25 * math.Sin(2*math.Pi*200*float64(i)/8000)
	}
	orig := audio.NewBuffer(samples, 8000)
	require.NoError(t, SaveWAV(ctx, path, orig))

	loaded, err := Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, orig.SampleRate, loaded.SampleRate)
	require.Equal(t, orig.Len(), loaded.Len())
	for i := range samples {
		assert.InDelta(t, samples[i], loaded.Samples[i], 0.001)
	}
}
