// Package audiofile decodes audio files into in-memory sample buffers.
//
// Multi-channel input is collapsed to mono by averaging the channels of
// each frame, so that the analysis packages only ever deal with a single
// channel. Samples are normalized to the [-1, 1] range.
package audiofile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/jfreymuth/oggvorbis"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/speechonset/pkg/audio"
)

// FileReadError is returned when an input file cannot be opened or decoded.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("unable to read audio file '%s': %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error {
	return e.Err
}

var (
	magicRIFF = []byte("RIFF")
	magicOggS = []byte("OggS")
)

// Load reads the file at the given path and decodes it into a mono Buffer.
// WAV and Ogg/Vorbis containers are supported.
func Load(
	ctx context.Context,
	path string,
) (_ret *audio.Buffer, _err error) {
	logger.Tracef(ctx, "Load('%s')", path)
	defer func() { logger.Tracef(ctx, "/Load('%s'): %v", path, _err) }()

	f, err := os.Open(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}
	defer f.Close()

	rc := datacounter.NewReaderCounter(f)
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: fmt.Errorf("unable to read the content: %w", err)}
	}
	logger.Debugf(ctx, "read %d bytes from '%s'", rc.Count(), path)

	var buf *audio.Buffer
	switch {
	case bytes.HasPrefix(raw, magicRIFF):
		buf, err = decodeWAV(raw)
	case bytes.HasPrefix(raw, magicOggS):
		buf, err = decodeVorbis(raw)
	default:
		err = fmt.Errorf("unrecognized container format (expected WAV or Ogg/Vorbis)")
	}
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}

	logger.Debugf(ctx, "decoded %d samples at %dHz from '%s'", buf.Len(), buf.SampleRate, path)
	return buf, nil
}

func decodeWAV(raw []byte) (*audio.Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(raw))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("unable to decode the PCM content: %w", err)
	}
	if pcm.Format == nil || pcm.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("the WAV header does not define a positive sample rate")
	}

	bitDepth := pcm.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	return downmix(pcm, bitDepth)
}

func downmix(pcm *gaudio.IntBuffer, bitDepth int) (*audio.Buffer, error) {
	channels := pcm.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("the WAV header does not define a positive amount of channels")
	}
	if len(pcm.Data)%channels != 0 {
		return nil, fmt.Errorf("the amount of samples (%d) is not a multiple of the amount of channels (%d)", len(pcm.Data), channels)
	}

	norm := float64(int64(1) << (bitDepth - 1))
	frames := len(pcm.Data) / channels
	samples := make([]float64, frames)
	for frame := 0; frame < frames; frame++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			v := float64(pcm.Data[frame*channels+ch])
			if bitDepth == 8 {
				// 8-bit WAV is unsigned.
				v -= 128
			}
			sum += v / norm
		}
		samples[frame] = sum / float64(channels)
	}

	return audio.NewBuffer(samples, audio.SampleRate(pcm.Format.SampleRate)), nil
}

func decodeVorbis(raw []byte) (*audio.Buffer, error) {
	data, format, err := oggvorbis.ReadAll(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unable to decode the vorbis content: %w", err)
	}
	if format.Channels <= 0 {
		return nil, fmt.Errorf("the vorbis header does not define a positive amount of channels")
	}

	channels := format.Channels
	frames := len(data) / channels
	samples := make([]float64, frames)
	for frame := 0; frame < frames; frame++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(data[frame*channels+ch])
		}
		samples[frame] = sum / float64(channels)
	}

	return audio.NewBuffer(samples, audio.SampleRate(format.SampleRate)), nil
}
