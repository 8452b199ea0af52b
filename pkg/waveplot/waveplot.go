package waveplot

import (
	"context"
	"io"

	"github.com/xaionaro-go/speechonset/pkg/audio"
	"github.com/xaionaro-go/speechonset/pkg/onsetdetection"
)

// Renderer turns a signal and its detected onsets into a visual
// artifact (a file on disk, an interactive window, ...).
type Renderer interface {
	io.Closer

	RenderWaveform(ctx context.Context, input *audio.Buffer, onsets onsetdetection.Onsets) error
}

/* for easier copy&paste:

func () Close() error {
}

func () RenderWaveform(
	ctx context.Context,
	input *audio.Buffer,
	onsets onsetdetection.Onsets,
) error {
}

*/
