// Package stft implements the short-time Fourier transform used by the
// spectral analysis packages: the signal is cut into overlapping
// Hann-windowed frames, each frame is transformed independently, and the
// inverse transform reconstructs the signal by weighted overlap-add.
package stft

import (
	"fmt"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// minWindowSize keeps the frequency resolution meaningful; anything
	// shorter cannot carry a useful spectrum for audio material.
	minWindowSize = 16
)

type STFT struct {
	WindowSize int
	HopSize    int

	window []float64
	fft    *fourier.FFT
}

func New(windowSize, hopSize int) (*STFT, error) {
	if windowSize < minWindowSize || windowSize&(windowSize-1) != 0 {
		return nil, fmt.Errorf("window size must be a power of two not less than %d: got %d", minWindowSize, windowSize)
	}
	if hopSize <= 0 || hopSize > windowSize {
		return nil, fmt.Errorf("hop size must be within (0, %d]: got %d", windowSize, hopSize)
	}
	return &STFT{
		WindowSize: windowSize,
		HopSize:    hopSize,
		window:     window.Hann(windowSize),
		fft:        fourier.NewFFT(windowSize),
	}, nil
}

// NumBins returns the amount of frequency bins of each frame's spectrum.
func (s *STFT) NumBins() int {
	return s.WindowSize/2 + 1
}

// NumFrames returns the amount of frames produced for a signal of the
// given length.
func (s *STFT) NumFrames(numSamples int) int {
	if numSamples <= 0 {
		return 0
	}
	return (numSamples-1)/s.HopSize + 1
}

// Window returns a copy of the analysis window.
func (s *STFT) Window() []float64 {
	w := make([]float64, len(s.window))
	copy(w, s.window)
	return w
}

// Frames cuts the signal into Hann-windowed frames of WindowSize samples
// every HopSize samples. Frame t is centered at sample t*HopSize, so the
// signal is implicitly zero-padded by half a window at both ends and every
// real sample lands near the center of at least one window.
func (s *STFT) Frames(samples []float64) [][]float64 {
	numFrames := s.NumFrames(len(samples))
	frames := make([][]float64, numFrames)
	for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
		frame := make([]float64, s.WindowSize)
		start := frameIdx*s.HopSize - s.WindowSize/2
		for idx := range frame {
			pos := start + idx
			if pos < 0 || pos >= len(samples) {
				continue
			}
			frame[idx] = samples[pos] * s.window[idx]
		}
		frames[frameIdx] = frame
	}
	return frames
}

// Forward transforms the signal into a spectrogram: one slice of
// WindowSize/2+1 complex coefficients per frame.
func (s *STFT) Forward(samples []float64) [][]complex128 {
	frames := s.Frames(samples)
	coeffs := make([][]complex128, len(frames))
	for frameIdx, frame := range frames {
		coeffs[frameIdx] = s.fft.Coefficients(nil, frame)
	}
	return coeffs
}

// Inverse reconstructs a signal of numSamples samples from a spectrogram
// produced by Forward, using weighted overlap-add: each reconstructed
// frame is weighted by the synthesis window and the result is divided by
// the accumulated squared window.
func (s *STFT) Inverse(coeffs [][]complex128, numSamples int) ([]float64, error) {
	result := make([]float64, numSamples)
	weight := make([]float64, numSamples)

	invN := 1.0 / float64(s.WindowSize)
	for frameIdx, frameCoeffs := range coeffs {
		if len(frameCoeffs) != s.NumBins() {
			return nil, fmt.Errorf("frame %d has %d bins, expected %d", frameIdx, len(frameCoeffs), s.NumBins())
		}

		// gonum's Sequence is the unnormalized inverse of Coefficients,
		// hence the 1/N factor.
		frame := s.fft.Sequence(nil, frameCoeffs)

		start := frameIdx*s.HopSize - s.WindowSize/2
		for idx := range frame {
			pos := start + idx
			if pos < 0 {
				continue
			}
			if pos >= numSamples {
				break
			}
			result[pos] += frame[idx] * invN * s.window[idx]
			weight[pos] += s.window[idx] * s.window[idx]
		}
	}

	for idx := range result {
		if weight[idx] > 1e-8 {
			result[idx] /= weight[idx]
		}
	}
	return result, nil
}
