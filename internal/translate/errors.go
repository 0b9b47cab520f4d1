package translate

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse marks a backend reply with no usable content. It is not
// retryable; the chunk degrades to its original text.
var ErrEmptyResponse = errors.New("translation backend returned empty response")

// BackendError wraps a failed backend call with its HTTP status so retry
// classification does not depend on the backend SDK.
type BackendError struct {
	Status int
	Err    error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("translation backend: status %d: %v", e.Status, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsRateLimit reports whether err is a rate-limit response.
func IsRateLimit(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Status == 429
}

// IsTransient reports whether err is a transient API fault worth retrying.
func IsTransient(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Status >= 500
}
