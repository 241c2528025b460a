package types

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures of the data sources.
type ErrorKind string

const (
	KindConfig   ErrorKind = "config"
	KindAuth     ErrorKind = "auth"
	KindNotFound ErrorKind = "not_found"
	KindNetwork  ErrorKind = "network"
	KindDecode   ErrorKind = "decode"
)

// Sentinels for use with errors.Is. Every *Error matches the sentinel of its
// kind.
var (
	ErrConfig   = errors.New("config error")
	ErrAuth     = errors.New("auth error")
	ErrNotFound = errors.New("not found")
	ErrNetwork  = errors.New("network error")
	ErrDecode   = errors.New("decode error")
)

var kindSentinels = map[ErrorKind]error{
	KindConfig:   ErrConfig,
	KindAuth:     ErrAuth,
	KindNotFound: ErrNotFound,
	KindNetwork:  ErrNetwork,
	KindDecode:   ErrDecode,
}

// Error is the error type returned by the price and climate sources.
type Error struct {
	Kind ErrorKind
	// Op is the operation that failed, e.g. "verisure.login".
	Op      string
	Message string
	Err     error
}

// NewError returns an *Error. err may be nil.
func NewError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the first *Error in err's chain or an empty kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
