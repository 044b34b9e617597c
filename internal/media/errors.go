package media

import "fmt"

// AcquisitionError indicates the source could not be resolved or downloaded.
// It is stage-fatal for the owning job.
type AcquisitionError struct {
	Source string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire source %s: %v", e.Source, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// ExtractionError indicates audio extraction failed. Stage-fatal.
type ExtractionError struct {
	Media string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract audio from %s: %v", e.Media, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// RenderError indicates clip rendering failed. Fatal for the single clip
// being rendered, not for the job.
type RenderError struct {
	Output string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render %s: %v", e.Output, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
