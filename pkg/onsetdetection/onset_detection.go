package onsetdetection

import (
	"context"
	"time"

	"github.com/xaionaro-go/speechonset/pkg/audio"
)

// Onsets are the detected starts of discrete acoustic events, expressed
// as offsets from the beginning of the buffer. An implementation always
// returns them sorted non-decreasing, each within [0, buffer duration).
type Onsets []time.Duration

// Detector finds acoustic event onsets in a signal.
type Detector interface {
	audio.AbstractAnalyzer

	DetectOnsets(ctx context.Context, input *audio.Buffer) (Onsets, error)
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

func () DetectOnsets(
	ctx context.Context,
	input *audio.Buffer,
) (onsetdetection.Onsets, error) {
}

*/
