// Package spectralgate implements stationary spectral gating noise
// reduction.
//
// The algorithm estimates a noise floor for every frequency band from the
// quietest frames of the signal's own spectrogram (mean plus a multiple of
// the standard deviation over the lower half of the band's magnitudes, in
// decibels), builds a time-frequency mask of the bins that rise above
// their band's threshold, smooths the mask to avoid musical-noise
// artifacts, and attenuates everything below it before transforming back
// to the time domain. Taking the statistics over the quietest frames only
// keeps the estimate a NOISE floor: a foreground that is present in a band
// part of the time does not raise the threshold of that band.
package spectralgate

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/speechonset/pkg/audio"
	"github.com/xaionaro-go/speechonset/pkg/noisereduction"
	"github.com/xaionaro-go/speechonset/pkg/stft"
)

const (
	// dbFloor keeps the logarithm defined for all-zero bins.
	dbFloor = 1e-12
)

type Config struct {
	// WindowSize is the STFT window length in samples; must be a power
	// of two.
	WindowSize int

	// HopSize is the STFT hop length in samples.
	HopSize int

	// NoiseStdThreshold is the amount of standard deviations above the
	// per-band noise-floor estimate at which a bin is considered signal
	// rather than noise. The estimate is taken over the quietest half of
	// the frames, so the multiplier is relative to the spread of the
	// noise alone.
	NoiseStdThreshold float64

	// Reduction is the proportion (0..1) by which noise bins are
	// attenuated. 1 removes them entirely.
	Reduction float64

	// MaskSmoothFrames and MaskSmoothBins are the radii (in frames and
	// frequency bins) of the box filter applied to the mask.
	MaskSmoothFrames int
	MaskSmoothBins   int
}

func DefaultConfig() Config {
	return Config{
		WindowSize:        2048,
		HopSize:           512,
		NoiseStdThreshold: 4.0,
		Reduction:         1.0,
		MaskSmoothFrames:  2,
		MaskSmoothBins:    2,
	}
}

type SpectralGate struct {
	Config Config
	STFT   *stft.STFT
}

var _ noisereduction.Reducer = (*SpectralGate)(nil)

func New(cfg Config) (*SpectralGate, error) {
	if cfg.Reduction < 0 || cfg.Reduction > 1 {
		return nil, fmt.Errorf("reduction proportion must be within [0, 1]: got %v", cfg.Reduction)
	}
	if cfg.NoiseStdThreshold < 0 {
		return nil, fmt.Errorf("noise threshold must not be negative: got %v", cfg.NoiseStdThreshold)
	}
	s, err := stft.New(cfg.WindowSize, cfg.HopSize)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the STFT: %w", err)
	}
	return &SpectralGate{
		Config: cfg,
		STFT:   s,
	}, nil
}

func (g *SpectralGate) Close() error {
	return nil
}

func (g *SpectralGate) Encoding(
	ctx context.Context,
) (audio.Encoding, error) {
	return audio.EncodingPCM{PCMFormat: audio.PCMFormatFloat64LE}, nil
}

func (g *SpectralGate) Channels(
	ctx context.Context,
) (audio.Channel, error) {
	return 1, nil
}

func (g *SpectralGate) ReduceNoise(
	ctx context.Context,
	input *audio.Buffer,
) (_ret *audio.Buffer, _err error) {
	logger.Tracef(ctx, "ReduceNoise, len:%d", input.Len())
	defer func() { logger.Tracef(ctx, "/ReduceNoise, len:%d: %v", input.Len(), _err) }()

	if input.Len() == 0 {
		return nil, fmt.Errorf("the input buffer is empty")
	}
	if input.SampleRate == 0 {
		return nil, fmt.Errorf("the input buffer does not define a sample rate")
	}

	coeffs := g.STFT.Forward(input.Samples)
	numFrames := len(coeffs)
	numBins := g.STFT.NumBins()

	// Magnitudes in dB, per frame and bin.
	db := make([][]float64, numFrames)
	for frameIdx, frameCoeffs := range coeffs {
		db[frameIdx] = make([]float64, numBins)
		for bin, c := range frameCoeffs {
			mag := math.Hypot(real(c), imag(c))
			db[frameIdx][bin] = 20 * math.Log10(mag+dbFloor)
		}
	}

	// Stationary noise floor per band: mean + k*std over the quietest
	// half of the frames, so intermittent foreground content in a band
	// does not inflate that band's own threshold.
	threshold := make([]float64, numBins)
	band := make([]float64, numFrames)
	quiet := max(1, numFrames/2)
	for bin := 0; bin < numBins; bin++ {
		for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
			band[frameIdx] = db[frameIdx][bin]
		}
		sort.Float64s(band)

		var sum float64
		for _, v := range band[:quiet] {
			sum += v
		}
		mean := sum / float64(quiet)

		var variance float64
		for _, v := range band[:quiet] {
			d := v - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(quiet))

		threshold[bin] = mean + g.Config.NoiseStdThreshold*std
	}

	mask := make([][]float64, numFrames)
	for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
		mask[frameIdx] = make([]float64, numBins)
		for bin := 0; bin < numBins; bin++ {
			if db[frameIdx][bin] > threshold[bin] {
				mask[frameIdx][bin] = 1
			}
		}
	}
	mask = smoothMask(mask, g.Config.MaskSmoothFrames, g.Config.MaskSmoothBins)

	keepFloor := 1 - g.Config.Reduction
	for frameIdx, frameCoeffs := range coeffs {
		for bin := range frameCoeffs {
			gain := keepFloor + g.Config.Reduction*mask[frameIdx][bin]
			frameCoeffs[bin] *= complex(gain, 0)
		}
	}

	samples, err := g.STFT.Inverse(coeffs, input.Len())
	if err != nil {
		return nil, fmt.Errorf("unable to reconstruct the signal: %w", err)
	}

	return audio.NewBuffer(samples, input.SampleRate), nil
}

// smoothMask applies a separable box average with the given radii over
// the time (frames) and frequency (bins) axes.
func smoothMask(mask [][]float64, frameRadius, binRadius int) [][]float64 {
	if frameRadius <= 0 && binRadius <= 0 {
		return mask
	}
	numFrames := len(mask)
	if numFrames == 0 {
		return mask
	}
	numBins := len(mask[0])

	if frameRadius > 0 {
		smoothed := make([][]float64, numFrames)
		for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
			smoothed[frameIdx] = make([]float64, numBins)
			lo := max(0, frameIdx-frameRadius)
			hi := min(numFrames-1, frameIdx+frameRadius)
			for bin := 0; bin < numBins; bin++ {
				var sum float64
				for idx := lo; idx <= hi; idx++ {
					sum += mask[idx][bin]
				}
				smoothed[frameIdx][bin] = sum / float64(hi-lo+1)
			}
		}
		mask = smoothed
	}

	if binRadius > 0 {
		smoothed := make([][]float64, numFrames)
		for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
			smoothed[frameIdx] = make([]float64, numBins)
			for bin := 0; bin < numBins; bin++ {
				lo := max(0, bin-binRadius)
				hi := min(numBins-1, bin+binRadius)
				var sum float64
				for idx := lo; idx <= hi; idx++ {
					sum += mask[frameIdx][idx]
				}
				smoothed[frameIdx][bin] = sum / float64(hi-lo+1)
			}
		}
		mask = smoothed
	}

	return mask
}
