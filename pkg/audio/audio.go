package audio

import (
	"fmt"
	"time"
)

type SampleRate uint32

type Channel uint16

type PCMFormat int

const (
	PCMFormatUndefined = PCMFormat(iota)
	PCMFormatU8
	PCMFormatS16LE
	PCMFormatS24LE
	PCMFormatS32LE
	PCMFormatFloat32LE
	PCMFormatFloat64LE
)

// Size returns the amount of bytes a single sample occupies.
func (f PCMFormat) Size() uint {
	switch f {
	case PCMFormatU8:
		return 1
	case PCMFormatS16LE:
		return 2
	case PCMFormatS24LE:
		return 3
	case PCMFormatS32LE:
		return 4
	case PCMFormatFloat32LE:
		return 4
	case PCMFormatFloat64LE:
		return 8
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

func (f PCMFormat) String() string {
	switch f {
	case PCMFormatUndefined:
		return "undefined"
	case PCMFormatU8:
		return "u8"
	case PCMFormatS16LE:
		return "s16le"
	case PCMFormatS24LE:
		return "s24le"
	case PCMFormatS32LE:
		return "s32le"
	case PCMFormatFloat32LE:
		return "f32le"
	case PCMFormatFloat64LE:
		return "f64le"
	default:
		return fmt.Sprintf("unknown_format_%d", int(f))
	}
}

type Encoding interface {
	BytesPerSample() uint64
	BytesForDuration(time.Duration) uint64
}

type EncodingPCM struct {
	PCMFormat  PCMFormat
	SampleRate SampleRate
}

var _ Encoding = EncodingPCM{}

func (enc EncodingPCM) BytesPerSample() uint64 {
	return uint64(enc.PCMFormat.Size())
}

func (enc EncodingPCM) BytesForDuration(d time.Duration) uint64 {
	samples := uint64(d) * uint64(enc.SampleRate) / uint64(time.Second)
	return samples * enc.BytesPerSample()
}
