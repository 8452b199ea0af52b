package audiofile

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/xaionaro-go/speechonset/pkg/audio"
)

// SaveWAV writes the buffer as a 16-bit mono PCM WAV file. Samples are
// expected in the [-1, 1] range; values outside of it are clipped.
func SaveWAV(
	ctx context.Context,
	path string,
	buf *audio.Buffer,
) (_err error) {
	logger.Tracef(ctx, "SaveWAV('%s', len:%d)", path, buf.Len())
	defer func() { logger.Tracef(ctx, "/SaveWAV('%s'): %v", path, _err) }()

	pcm := audio.EncodingPCM{PCMFormat: audio.PCMFormatS16LE, SampleRate: buf.SampleRate}
	logger.Debugf(ctx, "writing ~%d bytes of %v PCM to '%s'", pcm.BytesForDuration(buf.Duration()), pcm.PCMFormat, path)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create '%s': %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, int(buf.SampleRate), 16, 1, 1)
	data := make([]int, buf.Len())
	for idx, v := range buf.Samples {
		v = math.Max(-1, math.Min(1, v))
		data[idx] = int(math.Round(v * math.MaxInt16))
	}
	err = enc.Write(&gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: 1,
			SampleRate:  int(buf.SampleRate),
		},
		Data:           data,
		SourceBitDepth: 16,
	})
	if err != nil {
		return fmt.Errorf("unable to write the PCM content: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("unable to finalize the WAV file: %w", err)
	}
	return nil
}
