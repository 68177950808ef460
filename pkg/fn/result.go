// Package fn holds the Result type and the context-aware stages the event
// pipeline is composed from.
package fn

import (
	"errors"
	"fmt"
)

// Result carries either a value or the error that prevented it.
type Result[T any] struct {
	val T
	err error
}

// Ok wraps a value.
func Ok[T any](v T) Result[T] { return Result[T]{val: v} }

// Err wraps a failure. A nil err is treated as a failure with no cause.
func Err[T any](err error) Result[T] {
	if err == nil {
		err = errNoCause
	}
	return Result[T]{err: err}
}

// Errf is Err with a formatted message.
func Errf[T any](format string, args ...any) Result[T] {
	return Err[T](fmt.Errorf(format, args...))
}

var errNoCause = errors.New("fn: failed without cause")

// IsOk reports whether r holds a value.
func (r Result[T]) IsOk() bool { return r.err == nil }

// IsErr reports whether r holds a failure.
func (r Result[T]) IsErr() bool { return r.err != nil }

// Unwrap returns the value and error as a pair.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }

// UnwrapOr returns the value, or fallback on failure.
func (r Result[T]) UnwrapOr(fallback T) T {
	if r.err != nil {
		return fallback
	}
	return r.val
}

// FromPair turns a (value, error) return into a Result.
func FromPair[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}
