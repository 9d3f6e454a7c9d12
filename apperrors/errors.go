package apperrors

import "errors"

// Error taxonomy for ingestion requests. Input, NotFound and Persistence
// failures abort the whole request; Upstream failures are contained to the
// frame in flight by the caller.

// InputError marks a request with a missing or invalid required field.
type InputError struct{ Err error }

func (e *InputError) Error() string { return e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

// Input wraps err as an InputError.
func Input(err error) error {
	if err == nil {
		return nil
	}
	return &InputError{Err: err}
}

// NotFoundError marks a referenced resource (property, image) that does not
// resolve.
type NotFoundError struct{ Err error }

func (e *NotFoundError) Error() string { return e.Err.Error() }
func (e *NotFoundError) Unwrap() error { return e.Err }

// NotFound wraps err as a NotFoundError.
func NotFound(err error) error {
	if err == nil {
		return nil
	}
	return &NotFoundError{Err: err}
}

// UpstreamError marks an analysis-service call that returned non-success or
// timed out. It fails only the frame in flight, never the batch.
type UpstreamError struct{ Err error }

func (e *UpstreamError) Error() string { return e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps err as an UpstreamError.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Err: err}
}

// PersistenceError marks a failed store write.
type PersistenceError struct{ Err error }

func (e *PersistenceError) Error() string { return e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Err: err}
}

func IsInput(err error) bool {
	var target *InputError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}
