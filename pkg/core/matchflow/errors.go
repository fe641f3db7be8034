package matchflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is wrapped by a PreconditionError when the current status does not allow the command
	ErrInvalidTransition = errors.New("transition not allowed from current status")

	// ErrInvalidCommand is returned when a command is missing required input
	ErrInvalidCommand = errors.New("invalid command")
)

// PreconditionError rejects a transition without writing anything.
// Reason is safe to show to the person who issued the command.
type PreconditionError struct {
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// IsPrecondition reports whether err is a rejected precondition
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

func reject(format string, args ...any) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

func rejectTransition(format string, args ...any) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...), Err: ErrInvalidTransition}
}
