package cmd

import (
	"errors"
	"fmt"
)

var (
	ErrRoomRejected       = errors.New("relay rejected the join")
	ErrRelayClosed        = errors.New("relay closed the connection")
	ErrJoinTimeout        = errors.New("timed out waiting for the relay")
	ErrMissingCoordinates = errors.New("both --lat and --lon are required")
	ErrMissingPhoneForSOS = errors.New("--sos needs a --phone number to call back")
	ErrUnexpectedStatus   = errors.New("unexpected status from relay")
)

// CommandError ties a failure to the step that produced it.
type CommandError struct {
	Op      string
	Err     error
	Details string
}

func (e *CommandError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *CommandError {
	return &CommandError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *CommandError {
	return &CommandError{Op: op, Err: err, Details: details}
}
