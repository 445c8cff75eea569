package nscache

import (
	"errors"
	"fmt"
)

var ErrNilProducer = errors.New("nscache: nil producer")

// VersionError reports a namespace version key holding something other than a
// base-10 unsigned integer. The in-memory version stays unset, so the next call
// reads the key again.
type VersionError struct {
	Namespace string
	Key       string
	Raw       []byte
	Err       error
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("nscache: namespace %q: invalid version %q under %q: %v",
		e.Namespace, e.Raw, e.Key, e.Err)
}

func (e *VersionError) Unwrap() error { return e.Err }

// DecodeError reports a stored entry the codec could not decode.
type DecodeError struct {
	StorageKey string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("nscache: decode %q: %v", e.StorageKey, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
