package onsetdetection

import (
	"context"

	"github.com/xaionaro-go/speechonset/pkg/audio"
)

// Dummy is a Detector that never detects anything.
type Dummy struct{}

var _ Detector = Dummy{}

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

func (Dummy) DetectOnsets(context.Context, *audio.Buffer) (Onsets, error) {
	return nil, nil
}
