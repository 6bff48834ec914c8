package store

import "fmt"

// StoreError wraps any document-store failure. It is a soft, retryable
// class of failure: callers report it and decide whether to retry, the
// pipeline never retries on its own.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// StoreError marks the type for HTTP status classification.
func (e *StoreError) StoreError() {}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
