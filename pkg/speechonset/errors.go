package speechonset

import (
	"fmt"
)

// Stages of the pipeline, used in ProcessingError.
const (
	StageNoiseReduction = "noise-reduction"
	StageOnsetDetection = "onset-detection"
	StageRendering      = "rendering"
)

// ProcessingError is returned when one of the analysis collaborators
// fails after the input was loaded successfully. Load failures are
// reported as *audiofile.FileReadError instead.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("the %s stage failed: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
