package noisereduction

import (
	"context"

	"github.com/xaionaro-go/speechonset/pkg/audio"
)

// Dummy is a passthrough Reducer.
type Dummy struct{}

var _ Reducer = Dummy{}

func NewDummy() Dummy {
	return Dummy{}
}

func (Dummy) Close() error {
	return nil
}

func (Dummy) Encoding(context.Context) (audio.Encoding, error) {
	return audio.EncodingPCM{PCMFormat: audio.PCMFormatFloat64LE}, nil
}

func (Dummy) Channels(context.Context) (audio.Channel, error) {
	return 1, nil
}

func (Dummy) ReduceNoise(_ context.Context, input *audio.Buffer) (*audio.Buffer, error) {
	return input, nil
}
