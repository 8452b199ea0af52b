package noisereduction

import (
	"context"

	"github.com/xaionaro-go/speechonset/pkg/audio"
)

// Reducer attenuates steady background noise while preserving the
// foreground signal. The returned buffer always has the same length and
// sample rate as the input.
type Reducer interface {
	audio.AbstractAnalyzer

	ReduceNoise(ctx context.Context, input *audio.Buffer) (*audio.Buffer, error)
}

/* for easier copy&paste:

func () Close() error {
}

func () Encoding(
	ctx context.Context,
) (audio.Encoding, error) {
}

func () Channels(
	ctx context.Context,
) (audio.Channel, error) {
}

func () ReduceNoise(
	ctx context.Context,
	input *audio.Buffer,
) (*audio.Buffer, error) {
}

*/
