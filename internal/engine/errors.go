package engine

import (
	"errors"
	"fmt"
)

// ErrNotFound marks an engine-side object that does not exist. Delete
// paths treat it as success; stop and restart treat it as a failure.
var ErrNotFound = errors.New("not found")

// APIError wraps an engine control-plane failure. These look transient
// from the outside, so the create retry policy is allowed to retry them.
type APIError struct {
	Op  string
	Err error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("engine %s failed: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
