//go:build !fvad
// +build !fvad

package webrtcvad

import (
	"fmt"

	"github.com/xaionaro-go/speechonset/pkg/onsetdetection"
)

type Detector = onsetdetection.Dummy

func New(mode int) (*Detector, error) {
	return nil, fmt.Errorf("built without tag 'fvad'")
}
