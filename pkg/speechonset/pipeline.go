// Package speechonset detects the onsets of acoustic events (speech
// sounds, clicks, notes) in an audio file, for example to measure
// speech-production latencies against tools like praat.
//
// The pipeline is linear and synchronous: load the file, reduce the
// background noise, detect onsets over the denoised signal, optionally
// render the denoised waveform with onset markers. Detection always
// operates on the denoised signal, never on the raw input.
package speechonset

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/speechonset/pkg/audio"
	"github.com/xaionaro-go/speechonset/pkg/audiofile"
	"github.com/xaionaro-go/speechonset/pkg/noisereduction"
	"github.com/xaionaro-go/speechonset/pkg/noisereduction/implementations/spectralgate"
	"github.com/xaionaro-go/speechonset/pkg/onsetdetection"
	"github.com/xaionaro-go/speechonset/pkg/onsetdetection/implementations/spectralflux"
	"github.com/xaionaro-go/speechonset/pkg/waveplot"
)

type Config struct {
	// MinOnsetTime discards any onset detected earlier than this offset,
	// to filter out false positives from artifacts at the very beginning
	// of a recording. Default: 0 (keep everything).
	MinOnsetTime time.Duration

	// MaxOnsets truncates the result to the first MaxOnsets onsets.
	// Default: 0 (no limit).
	MaxOnsets int

	// NoiseReduction configures the spectral gating stage.
	NoiseReduction spectralgate.Config

	// OnsetDetection configures the spectral flux stage.
	OnsetDetection spectralflux.Config
}

func DefaultConfig() Config {
	return Config{
		MinOnsetTime:   0,
		MaxOnsets:      0,
		NoiseReduction: spectralgate.DefaultConfig(),
		OnsetDetection: spectralflux.DefaultConfig(),
	}
}

// Pipeline owns its collaborators: Close closes all of them.
//
// Renderer is optional; when nil no visualization is produced. Rendering
// never alters the detected onsets.
type Pipeline struct {
	Reducer  noisereduction.Reducer
	Detector onsetdetection.Detector
	Renderer waveplot.Renderer

	MinOnsetTime time.Duration
	MaxOnsets    int
}

// New assembles the default pipeline: spectral gating noise reduction
// followed by spectral flux onset detection, without a renderer. Set
// Renderer on the result to also get a visualization.
func New(cfg Config) (*Pipeline, error) {
	reducer, err := spectralgate.New(cfg.NoiseReduction)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the noise reduction: %w", err)
	}
	detector, err := spectralflux.New(cfg.OnsetDetection)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the onset detection: %w", err)
	}
	if cfg.MinOnsetTime < 0 {
		return nil, fmt.Errorf("the minimal onset time must not be negative: got %v", cfg.MinOnsetTime)
	}
	if cfg.MaxOnsets < 0 {
		return nil, fmt.Errorf("the maximal amount of onsets must not be negative: got %d", cfg.MaxOnsets)
	}
	return &Pipeline{
		Reducer:      reducer,
		Detector:     detector,
		MinOnsetTime: cfg.MinOnsetTime,
		MaxOnsets:    cfg.MaxOnsets,
	}, nil
}

func (p *Pipeline) Close() error {
	var mErr *multierror.Error
	if p.Reducer != nil {
		mErr = multierror.Append(mErr, p.Reducer.Close())
	}
	if p.Detector != nil {
		mErr = multierror.Append(mErr, p.Detector.Close())
	}
	if p.Renderer != nil {
		mErr = multierror.Append(mErr, p.Renderer.Close())
	}
	return mErr.ErrorOrNil()
}

// DetectFile loads the audio file at the given path and returns the
// detected onsets as offsets from the beginning of the recording. It
// either returns the complete result or the first error; there are no
// retries and no partial results.
func (p *Pipeline) DetectFile(
	ctx context.Context,
	path string,
) (_ret onsetdetection.Onsets, _err error) {
	logger.Tracef(ctx, "DetectFile('%s')", path)
	defer func() { logger.Tracef(ctx, "/DetectFile('%s'): %v %v", path, _ret, _err) }()

	input, err := audiofile.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return p.DetectBuffer(ctx, input)
}

// DetectBuffer runs the denoise → detect → render stages over an
// already-loaded buffer.
func (p *Pipeline) DetectBuffer(
	ctx context.Context,
	input *audio.Buffer,
) (_ret onsetdetection.Onsets, _err error) {
	logger.Tracef(ctx, "DetectBuffer, len:%d", input.Len())
	defer func() { logger.Tracef(ctx, "/DetectBuffer, len:%d: %v %v", input.Len(), _ret, _err) }()

	if err := p.checkAnalyzer(ctx, StageNoiseReduction, p.Reducer, input); err != nil {
		return nil, err
	}
	if err := p.checkAnalyzer(ctx, StageOnsetDetection, p.Detector, input); err != nil {
		return nil, err
	}

	denoised, err := p.Reducer.ReduceNoise(ctx, input)
	if err != nil {
		return nil, &ProcessingError{Stage: StageNoiseReduction, Err: err}
	}

	onsets, err := p.Detector.DetectOnsets(ctx, denoised)
	if err != nil {
		return nil, &ProcessingError{Stage: StageOnsetDetection, Err: err}
	}
	onsets = p.filter(ctx, onsets)

	if p.Renderer != nil {
		if err := p.Renderer.RenderWaveform(ctx, denoised, onsets); err != nil {
			return nil, &ProcessingError{Stage: StageRendering, Err: err}
		}
	}

	return onsets, nil
}

// checkAnalyzer verifies that a collaborator is able to consume the
// buffer: everything downstream of the loader is mono, so the analyzer
// must expect a single channel of PCM, and an analyzer pinned to a fixed
// sample rate must match the buffer's.
func (p *Pipeline) checkAnalyzer(
	ctx context.Context,
	stage string,
	analyzer audio.AbstractAnalyzer,
	input *audio.Buffer,
) error {
	channels, err := analyzer.Channels(ctx)
	if err != nil {
		return &ProcessingError{Stage: stage, Err: fmt.Errorf("unable to get the amount of channels: %w", err)}
	}
	if channels != 1 {
		return &ProcessingError{Stage: stage, Err: fmt.Errorf("expected a mono analyzer, got %d channels", channels)}
	}

	enc, err := analyzer.Encoding(ctx)
	if err != nil {
		return &ProcessingError{Stage: stage, Err: fmt.Errorf("unable to get the encoding: %w", err)}
	}
	encPCM, ok := enc.(audio.EncodingPCM)
	if !ok {
		return &ProcessingError{Stage: stage, Err: fmt.Errorf("expected a PCM encoding, got %T", enc)}
	}
	if encPCM.SampleRate != 0 && encPCM.SampleRate != input.SampleRate {
		return &ProcessingError{Stage: stage, Err: fmt.Errorf("the analyzer requires sample rate %d, the buffer has %d", encPCM.SampleRate, input.SampleRate)}
	}
	logger.Debugf(ctx, "the '%s' stage consumes %d channel(s) of %v", stage, channels, encPCM)
	return nil
}

func (p *Pipeline) filter(
	ctx context.Context,
	onsets onsetdetection.Onsets,
) onsetdetection.Onsets {
	result := make(onsetdetection.Onsets, 0, len(onsets))
	for _, onset := range onsets {
		if onset < p.MinOnsetTime {
			continue
		}
		result = append(result, onset)
	}
	if p.MaxOnsets > 0 && len(result) > p.MaxOnsets {
		result = result[:p.MaxOnsets]
	}
	if len(result) != len(onsets) {
		logger.Debugf(ctx, "filtered the onsets from %d down to %d", len(onsets), len(result))
	}
	return result
}
