package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorKind classifies failures on the relay and registration paths.
type ErrorKind int

const (
	UnexpectedFailure ErrorKind = iota
	InvalidEndpoint
	NetworkFailure
	ChannelNotFound
)

// String returns the log label of the kind
func (k ErrorKind) String() string {
	switch k {
	case InvalidEndpoint:
		return "invalid_endpoint"
	case NetworkFailure:
		return "network_failure"
	case ChannelNotFound:
		return "channel_not_found"
	default:
		return "unexpected_failure"
	}
}

var (
	ErrInvalidEndpoint = errors.New("invalid webhook")
	ErrChannelNotFound = errors.New("channel not found")
)

// Error carries a kind alongside the operation that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind. A nil err yields nil.
func NewError(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of err. Errors that were never classified are
// inspected for well-known network and endpoint failures before falling
// back to UnexpectedFailure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return UnexpectedFailure
	}

	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	switch {
	case errors.Is(err, ErrInvalidEndpoint):
		return InvalidEndpoint
	case errors.Is(err, ErrChannelNotFound):
		return ChannelNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return NetworkFailure
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return NetworkFailure
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return NetworkFailure
	}

	return UnexpectedFailure
}
