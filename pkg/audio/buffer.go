package audio

import (
	"time"
)

// Buffer is an in-memory mono PCM signal: an ordered sequence of samples
// together with the rate they were captured at. It is treated as immutable
// after construction; analyzers that transform a signal return a new Buffer.
type Buffer struct {
	Samples    []float64
	SampleRate SampleRate
}

func NewBuffer(samples []float64, sampleRate SampleRate) *Buffer {
	return &Buffer{
		Samples:    samples,
		SampleRate: sampleRate,
	}
}

func (b *Buffer) Len() int {
	return len(b.Samples)
}

// Duration returns the length of the signal in wall-clock terms.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(uint64(time.Second) * uint64(len(b.Samples)) / uint64(b.SampleRate))
}

// TimeAt converts a sample index into an offset from the beginning of
// the signal.
func (b *Buffer) TimeAt(sampleIdx int) time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(uint64(time.Second) * uint64(sampleIdx) / uint64(b.SampleRate))
}

// SampleIdxAt converts an offset from the beginning of the signal into
// a sample index. The result may be out of range for offsets outside
// of the signal.
func (b *Buffer) SampleIdxAt(offset time.Duration) int {
	return int(uint64(offset) * uint64(b.SampleRate) / uint64(time.Second))
}

// Clone returns a deep copy, so that the copy could be modified without
// affecting the original.
func (b *Buffer) Clone() *Buffer {
	samples := make([]float64, len(b.Samples))
	copy(samples, b.Samples)
	return &Buffer{
		Samples:    samples,
		SampleRate: b.SampleRate,
	}
}
