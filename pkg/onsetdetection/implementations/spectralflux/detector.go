// Package spectralflux implements onset detection based on the spectral
// flux of the signal.
//
// The algorithm works as follows:
//
// 1. Windowing: the signal is cut into overlapping Hann-windowed frames,
// centered so that frame t describes the signal around sample t*hop.
//
// 2. Onset envelope: each frame is transformed with a forward FFT and the
// half-wave-rectified increase of the magnitude spectrum relative to the
// previous frame is averaged over all frequency bins. A rising envelope
// means new spectral energy appeared, which is what an acoustic onset is.
//
// 3. Peak picking: the normalized envelope is scanned with a sliding
// window; a frame is an onset when it is the local maximum of its
// neighborhood, rises at least Delta above the local mean, and is not
// within Wait of the previously accepted onset.
package spectralflux

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/brettbuddin/fourier"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/mjibson/go-dsp/window"
	"github.com/xaionaro-go/speechonset/pkg/audio"
	"github.com/xaionaro-go/speechonset/pkg/onsetdetection"
)

type Config struct {
	// WindowSize is the FFT frame length in samples; must be a power of
	// two.
	WindowSize int

	// HopSize is the distance between consecutive frame centers in
	// samples.
	HopSize int

	// PreMax and PostMax bound the neighborhood within which an onset
	// candidate must be the maximum of the envelope.
	PreMax  time.Duration
	PostMax time.Duration

	// PreAvg and PostAvg bound the neighborhood over which the local
	// mean of the envelope is taken.
	PreAvg  time.Duration
	PostAvg time.Duration

	// Delta is how far (in units of the normalized envelope) a candidate
	// must rise above the local mean.
	Delta float64

	// Wait is the minimum distance between two consecutive onsets.
	Wait time.Duration
}

func DefaultConfig() Config {
	return Config{
		WindowSize: 2048,
		HopSize:    512,
		PreMax:     30 * time.Millisecond,
		PostMax:    0,
		PreAvg:     100 * time.Millisecond,
		PostAvg:    100 * time.Millisecond,
		Delta:      0.07,
		Wait:       30 * time.Millisecond,
	}
}

type Detector struct {
	Config Config
	window []float64
}

var _ onsetdetection.Detector = (*Detector)(nil)

func New(cfg Config) (*Detector, error) {
	if cfg.WindowSize < 16 || cfg.WindowSize&(cfg.WindowSize-1) != 0 {
		return nil, fmt.Errorf("window size must be a power of two not less than 16: got %d", cfg.WindowSize)
	}
	if cfg.HopSize <= 0 || cfg.HopSize > cfg.WindowSize {
		return nil, fmt.Errorf("hop size must be within (0, %d]: got %d", cfg.WindowSize, cfg.HopSize)
	}
	if cfg.Delta <= 0 {
		return nil, fmt.Errorf("delta must be positive: got %v", cfg.Delta)
	}
	for _, knob := range []struct {
		name  string
		value time.Duration
	}{
		{"pre-max", cfg.PreMax},
		{"post-max", cfg.PostMax},
		{"pre-avg", cfg.PreAvg},
		{"post-avg", cfg.PostAvg},
		{"wait", cfg.Wait},
	} {
		if knob.value < 0 {
			return nil, fmt.Errorf("the %s window must not be negative: got %v", knob.name, knob.value)
		}
	}
	return &Detector{
		Config: cfg,
		window: window.Hann(cfg.WindowSize),
	}, nil
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

	envelope, err := d.onsetEnvelope(input.Samples)
	if err != nil {
		return nil, fmt.Errorf("unable to compute the onset envelope: %w", err)
	}
	normalize(envelope)

	framesPerSecond := float64(input.SampleRate) / float64(d.Config.HopSize)
	peaks := pickPeaks(envelope, peakPickingWindows{
		preMax:  durationToFrames(d.Config.PreMax, framesPerSecond),
		postMax: durationToFrames(d.Config.PostMax, framesPerSecond),
		preAvg:  durationToFrames(d.Config.PreAvg, framesPerSecond),
		postAvg: durationToFrames(d.Config.PostAvg, framesPerSecond),
		delta:   d.Config.Delta,
		wait:    durationToFrames(d.Config.Wait, framesPerSecond),
	})

	onsets := make(onsetdetection.Onsets, 0, len(peaks))
	for _, frameIdx := range peaks {
		offset := input.TimeAt(frameIdx * d.Config.HopSize)
		if offset >= input.Duration() {
			continue
		}
		onsets = append(onsets, offset)
	}
	logger.Debugf(ctx, "detected %d onsets in %d envelope frames", len(onsets), len(envelope))
	return onsets, nil
}

// onsetEnvelope returns the half-wave-rectified spectral flux per frame,
// averaged over frequency bins. Frame t is centered at sample t*hop.
func (d *Detector) onsetEnvelope(samples []float64) ([]float64, error) {
	winSize := d.Config.WindowSize
	hop := d.Config.HopSize
	numBins := winSize/2 + 1
	numFrames := 1 + len(samples)/hop

	prev := make([]float64, numBins)
	coeffs := make([]complex128, winSize)
	envelope := make([]float64, numFrames)

	for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
		center := frameIdx * hop
		start := center - winSize/2
		for idx := 0; idx < winSize; idx++ {
			pos := start + idx
			if pos < 0 || pos >= len(samples) {
				coeffs[idx] = 0
				continue
			}
			coeffs[idx] = complex(samples[pos]*d.window[idx], 0)
		}

		if err := fourier.Forward(coeffs); err != nil {
			return nil, fmt.Errorf("forward FFT of frame %d failed: %w", frameIdx, err)
		}

		var flux float64
		for bin := 0; bin < numBins; bin++ {
			mag := math.Hypot(real(coeffs[bin]), imag(coeffs[bin]))
			if diff := mag - prev[bin]; diff > 0 && frameIdx > 0 {
				flux += diff
			}
			prev[bin] = mag
		}
		envelope[frameIdx] = flux / float64(numBins)
	}
	return envelope, nil
}

func normalize(envelope []float64) {
	var lo, hi float64
	lo = math.Inf(1)
	hi = math.Inf(-1)
	for _, v := range envelope {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi <= lo {
		return
	}
	for idx := range envelope {
		envelope[idx] = (envelope[idx] - lo) / (hi - lo)
	}
}

func durationToFrames(d time.Duration, framesPerSecond float64) int {
	return int(math.Round(d.Seconds() * framesPerSecond))
}

type peakPickingWindows struct {
	preMax  int
	postMax int
	preAvg  int
	postAvg int
	delta   float64
	wait    int
}

// pickPeaks returns the indices of the envelope values that are local
// maxima of their [i-preMax, i+postMax] neighborhood, exceed the mean of
// their [i-preAvg, i+postAvg] neighborhood by delta, and are at least
// wait+1 frames after the previously accepted peak.
func pickPeaks(envelope []float64, w peakPickingWindows) []int {
	var peaks []int
	lastPeak := -1
	for i := range envelope {
		if lastPeak >= 0 && i-lastPeak <= w.wait {
			continue
		}
		if envelope[i] < windowMax(envelope, i-w.preMax, i+w.postMax) {
			continue
		}
		if envelope[i] < windowMean(envelope, i-w.preAvg, i+w.postAvg)+w.delta {
			continue
		}
		peaks = append(peaks, i)
		lastPeak = i
	}
	return peaks
}

func windowMax(envelope []float64, lo, hi int) float64 {
	lo = max(lo, 0)
	hi = min(hi, len(envelope)-1)
	result := math.Inf(-1)
	for i := lo; i <= hi; i++ {
		result = math.Max(result, envelope[i])
	}
	return result
}

func windowMean(envelope []float64, lo, hi int) float64 {
	lo = max(lo, 0)
	hi = min(hi, len(envelope)-1)
	var sum float64
	for i := lo; i <= hi; i++ {
		sum += envelope[i]
	}
	return sum / float64(hi-lo+1)
}
