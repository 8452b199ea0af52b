package waveplot

import (
	"context"

	"github.com/xaionaro-go/speechonset/pkg/audio"
	"github.com/xaionaro-go/speechonset/pkg/onsetdetection"
)

// Dummy is a Renderer that renders nothing.
type Dummy struct{}

var _ Renderer = Dummy{}

func NewDummy() Dummy {
	return Dummy{}
}

func (Dummy) Close() error {
	return nil
}

func (Dummy) RenderWaveform(context.Context, *audio.Buffer, onsetdetection.Onsets) error {
	return nil
}
