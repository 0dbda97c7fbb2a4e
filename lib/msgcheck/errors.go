package msgcheck

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrValidation returned for an empty or whitespace-only message, no backend is called
	ErrValidation = errors.New("empty message")
	// ErrModelUnavailable returned when model or vocabulary artifacts can't be loaded
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrEmptyBatch returned when a batch has no usable lines
	ErrEmptyBatch = errors.New("no messages to check")
)

// RemoteError is a non-success answer from a remote backend, including malformed 2xx responses
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error, status %d: %s", e.Status, e.Body)
}

// ConnectivityError is a network or timeout failure reaching a remote backend
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connectivity error: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// ErrKind is a coarse error category, used to tag failed items
type ErrKind string

// enum of error kinds
const (
	KindNone         ErrKind = ""
	KindValidation   ErrKind = "validation"
	KindModel        ErrKind = "model-unavailable"
	KindRemote       ErrKind = "remote"
	KindConnectivity ErrKind = "connectivity"
	KindCanceled     ErrKind = "canceled"
	KindUnknown      ErrKind = "unknown"
)

// Kind returns the category of an error
func Kind(err error) ErrKind {
	if err == nil {
		return KindNone
	}
	var remoteErr *RemoteError
	var connErr *ConnectivityError
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrModelUnavailable):
		return KindModel
	case errors.As(err, &remoteErr):
		return KindRemote
	case errors.As(err, &connErr):
		return KindConnectivity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	return KindUnknown
}
