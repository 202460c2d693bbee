package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a failure talking to the management API.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindResponseShape
	KindSigning
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindResponseShape:
		return "response_shape"
	case KindSigning:
		return "signing"
	default:
		return "unknown"
	}
}

// APIError is returned by the mold client and the power controller. Kind
// tells the caller which part of the request cycle failed.
type APIError struct {
	Kind    Kind
	Command string
	err     error
}

func NewTransportError(command string, err error) error {
	return &APIError{Kind: KindTransport, Command: command, err: err}
}

// NewResponseShapeError is used when the response body was received but the
// expected path is missing or the body is not JSON.
func NewResponseShapeError(command string, err error) error {
	return &APIError{Kind: KindResponseShape, Command: command, err: err}
}

func NewSigningError(command string, err error) error {
	return &APIError{Kind: KindSigning, Command: command, err: err}
}

func (e *APIError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.err)
	}
	return fmt.Sprintf("%s error in %s: %v", e.Kind, e.Command, e.err)
}

// Cause lets pkg/errors.Cause reach the underlying failure.
func (e *APIError) Cause() error {
	return e.err
}

func (e *APIError) Unwrap() error {
	return e.err
}

// KindOf returns the Kind of the first APIError found in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var apiErr *APIError
	if pkgerrors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}
