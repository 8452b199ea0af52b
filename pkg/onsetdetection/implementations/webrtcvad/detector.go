//go:build fvad
// +build fvad

// Package webrtcvad implements speech-onset detection backed by the
// WebRTC voice activity detector (via libfvad). An onset is the first
// frame of a run of consecutive voiced frames.
package webrtcvad

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/josharian/fvad"
	"github.com/xaionaro-go/speechonset/pkg/audio"
	"github.com/xaionaro-go/speechonset/pkg/onsetdetection"
)

const (
	// frameDuration is a frame length libfvad accepts (10, 20 or 30ms).
	frameDuration = 20 * time.Millisecond

	// minVoicedFrames is the amount of consecutive voiced frames needed
	// before a run is reported as an onset.
	minVoicedFrames = 3
)

type Detector struct {
	Mode int
}

var _ onsetdetection.Detector = (*Detector)(nil)

// New returns a detector with the given libfvad aggressiveness mode
// (0 = least aggressive about filtering out non-speech, 3 = most).
func New(mode int) (*Detector, error) {
	if mode < 0 || mode > 3 {
		return nil, fmt.Errorf("mode must be within [0, 3]: got %d", mode)
	}
	return &Detector{Mode: mode}, nil
}

func (d *Detector) Close() error {
	return nil
}

func (d *Detector) Encoding(
	ctx context.Context,
) (audio.Encoding, error) {
	return audio.EncodingPCM{PCMFormat: audio.PCMFormatS16LE}, nil
}

func (d *Detector) Channels(
	ctx context.Context,
) (audio.Channel, error) {
	return 1, nil
}

func (d *Detector) DetectOnsets(
	ctx context.Context,
	input *audio.Buffer,
) (_ret onsetdetection.Onsets, _err error) {
	logger.Tracef(ctx, "DetectOnsets, len:%d", input.Len())
	defer func() { logger.Tracef(ctx, "/DetectOnsets, len:%d: %v", input.Len(), _err) }()

	if input.Len() == 0 {
		return nil, fmt.Errorf("the input buffer is empty")
	}

	vad := fvad.NewDetector()
	defer vad.Close()
	if err := vad.SetMode(d.Mode); err != nil {
		return nil, fmt.Errorf("unable to set mode %d: %w", d.Mode, err)
	}
	if err := vad.SetSampleRate(int(input.SampleRate)); err != nil {
		return nil, fmt.Errorf("sample rate %d is not supported by libfvad: %w", input.SampleRate, err)
	}

	// libfvad consumes s16le, so the frame size follows from the wire
	// encoding rather than from the float64 buffer.
	enc := audio.EncodingPCM{PCMFormat: audio.PCMFormatS16LE, SampleRate: input.SampleRate}
	frameSize := int(enc.BytesForDuration(frameDuration) / enc.BytesPerSample())
	frame := make([]int16, frameSize)

	var onsets onsetdetection.Onsets
	voicedRun := 0
	for offset := 0; offset+frameSize <= input.Len(); offset += frameSize {
		for idx := range frame {
			v := math.Max(-1, math.Min(1, input.Samples[offset+idx]))
			frame[idx] = int16(math.Round(v * math.MaxInt16))
		}
		voiced, err := vad.Process(frame)
		if err != nil {
			return nil, fmt.Errorf("unable to process the frame at offset %d: %w", offset, err)
		}

		if !voiced {
			voicedRun = 0
			continue
		}
		voicedRun++
		if voicedRun == minVoicedFrames {
			onsets = append(onsets, input.TimeAt(offset-(minVoicedFrames-1)*frameSize))
		}
	}

	return onsets, nil
}
