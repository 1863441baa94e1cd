package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNetwork  Kind = "network_failure"
	KindAuth     Kind = "auth_failure"
	KindNotFound Kind = "not_found"
	KindConflict Kind = "conflict_ignored"
	KindInvalid  Kind = "invalid"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrNetwork         = &Error{Kind: KindNetwork}
	ErrAuth            = &Error{Kind: KindAuth}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflictIgnored = &Error{Kind: KindConflict}
	ErrInvalid         = &Error{Kind: KindInvalid}
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Network(msg string, err error) *Error { return New(KindNetwork, msg, err) }
func Auth(msg string) *Error { return New(KindAuth, msg, nil) }
func NotFound(msg string) *Error { return New(KindNotFound, msg, nil) }
func Conflict(msg string) *Error { return New(KindConflict, msg, nil) }
func Invalid(msg string) *Error { return New(KindInvalid, msg, nil) }

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether the caller may try the operation again.
func Retryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}
