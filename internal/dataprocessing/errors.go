package dataprocessing

import "fmt"

// ProcessingError is a fatal parse or reshape failure. It always wraps
// the underlying cause and is never partially applied: the request that
// triggered it produces no output and no store write.
type ProcessingError struct {
	Stage string // "normalize", "merge", "flatten"
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingError marks the type for HTTP status classification.
func (e *ProcessingError) ProcessingError() {}

func newProcessingError(stage string, format string, args ...interface{}) *ProcessingError {
	return &ProcessingError{Stage: stage, Err: fmt.Errorf(format, args...)}
}
