package types

import (
	"errors"
	"fmt"
)

// ErrNotFound matches any NotFoundError with errors.Is.
var ErrNotFound = errors.New("resource not found")

// TransportError is returned when an AMI action could not be sent or was
// rejected by the switch.
type TransportError struct {
	Action string
	Params map[string]string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ami action %s %v failed: %v", e.Action, e.Params, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a channel, bridge or variable that no longer
// resolves on the switch.
type NotFoundError struct {
	Kind string
	Id   string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Id)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// LinkageError is returned when a call leg is not connected to exactly one
// other leg.
type LinkageError struct {
	CallId string
	Peers  int
}

func (e *LinkageError) Error() string {
	if e.Peers == 0 {
		return fmt.Sprintf("call %s is not connected to any channel", e.CallId)
	}
	return fmt.Sprintf("call %s is connected to %d channels, expected one", e.CallId, e.Peers)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
