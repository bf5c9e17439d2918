package piston_control

import "fmt"

// Status tells which variant a Result currently holds.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of one asynchronous operation: not started, in
// progress, succeeded with a value, or failed with a message and optional code.
type Result[T any] struct {
	status  Status
	value   T
	message string
	code    int // HTTP status or 0 when absent
}

func Idle[T any]() Result[T] { return Result[T]{status: StatusIdle} }

func Loading[T any]() Result[T] { return Result[T]{status: StatusLoading} }

func Success[T any](v T) Result[T] { return Result[T]{status: StatusSuccess, value: v} }

// Failure builds an Error result. code 0 means "no code".
func Failure[T any](message string, code int) Result[T] {
	return Result[T]{status: StatusError, message: message, code: code}
}

func (r Result[T]) Status() Status { return r.status }

func (r Result[T]) IsIdle() bool    { return r.status == StatusIdle }
func (r Result[T]) IsLoading() bool { return r.status == StatusLoading }
func (r Result[T]) IsSuccess() bool { return r.status == StatusSuccess }
func (r Result[T]) IsError() bool   { return r.status == StatusError }

// Value returns the success value; ok is false for every other variant.
func (r Result[T]) Value() (T, bool) {
	if r.status != StatusSuccess {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Message is the human-readable error text (empty unless IsError).
func (r Result[T]) Message() string { return r.message }

// Code is the numeric error code, 0 when absent.
func (r Result[T]) Code() int { return r.code }

// Match dispatches on the variant. Every branch must be provided.
func (r Result[T]) Match(idle func(), loading func(), success func(T), failure func(message string, code int)) {
	switch r.status {
	case StatusIdle:
		idle()
	case StatusLoading:
		loading()
	case StatusSuccess:
		success(r.value)
	case StatusError:
		failure(r.message, r.code)
	}
}

func (r Result[T]) String() string {
	switch r.status {
	case StatusSuccess:
		return fmt.Sprintf("success(%v)", r.value)
	case StatusError:
		if r.code != 0 {
			return fmt.Sprintf("error(%d: %s)", r.code, r.message)
		}
		return fmt.Sprintf("error(%s)", r.message)
	default:
		return r.status.String()
	}
}

// MapResult reshapes a success value, passing every other variant through.
func MapResult[T, U any](r Result[T], f func(T) U) Result[U] {
	switch r.status {
	case StatusSuccess:
		return Success(f(r.value))
	case StatusError:
		return Failure[U](r.message, r.code)
	case StatusLoading:
		return Loading[U]()
	default:
		return Idle[U]()
	}
}
