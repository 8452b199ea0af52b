// Package energy implements onset detection based on frame RMS energy
// with hysteresis: an onset is reported when the energy of consecutive
// frames rises above the start threshold after having been below the
// stop threshold. The hysteresis gap avoids flickering around a single
// threshold.
package energy

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/speechonset/pkg/audio"
	"github.com/xaionaro-go/speechonset/pkg/onsetdetection"
)

type Config struct {
	// FrameDuration is the length of the analysis frame.
	FrameDuration time.Duration

	// StartThreshold is the RMS level at which an event starts.
	StartThreshold float64

	// StopThreshold is the RMS level below which the current event is
	// considered over; must not exceed StartThreshold.
	StopThreshold float64
}

func DefaultConfig() Config {
	return Config{
		FrameDuration:  20 * time.Millisecond,
		StartThreshold: 0.05,
		StopThreshold:  0.02,
	}
}

type Detector struct {
	Config Config
}

var _ onsetdetection.Detector = (*Detector)(nil)

func New(cfg Config) (*Detector, error) {
	if cfg.FrameDuration <= 0 {
		return nil, fmt.Errorf("frame duration must be positive: got %v", cfg.FrameDuration)
	}
	if cfg.StartThreshold <= 0 {
		return nil, fmt.Errorf("start threshold must be positive: got %v", cfg.StartThreshold)
	}
	if cfg.StopThreshold > cfg.StartThreshold {
		return nil, fmt.Errorf("stop threshold (%v) must not exceed the start threshold (%v)", cfg.StopThreshold, cfg.StartThreshold)
	}
	return &Detector{Config: cfg}, nil
}

func (d *Detector) Close() error {
	return nil
}

func (d *Detector) Encoding(
	ctx context.Context,
) (audio.Encoding, error) {
	return audio.EncodingPCM{PCMFormat: audio.PCMFormatFloat64LE}, nil
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
	if input.SampleRate == 0 {
		return nil, fmt.Errorf("the input buffer does not define a sample rate")
	}

	frameSize := input.SampleIdxAt(d.Config.FrameDuration)
	if frameSize < 1 {
		frameSize = 1
	}

	var onsets onsetdetection.Onsets
	inEvent := false
	for offset := 0; offset < input.Len(); offset += frameSize {
		end := offset + frameSize
		if end > input.Len() {
			end = input.Len()
		}
		level := rms(input.Samples[offset:end])

		switch {
		case !inEvent && level >= d.Config.StartThreshold:
			inEvent = true
			onsets = append(onsets, input.TimeAt(offset))
		case inEvent && level < d.Config.StopThreshold:
			inEvent = false
		}
	}

	logger.Debugf(ctx, "detected %d onsets with frame size %d", len(onsets), frameSize)
	return onsets, nil
}

func rms(samples []float64) float64 {
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
