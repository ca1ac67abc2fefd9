package cache

import "fmt"

// Error is returned when the backing store cannot be read or written, or when a
// value cannot be encoded or decoded. It is never fatal to the caller.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, key string, err error) *Error {
	return &Error{Op: op, Key: key, Err: err}
}
