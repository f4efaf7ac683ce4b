package engine

import (
	"context"
	"errors"

	"github.com/zurustar/necroturtle/pkg/animation"
	"github.com/zurustar/necroturtle/pkg/command"
	"github.com/zurustar/necroturtle/pkg/vm"
)

const (
	// SuccessMessage is reported when a ritual ran and its animation finished.
	SuccessMessage = "Ritual cast successfully! The spirits obey your commands."
	// FailurePrefix starts every failure message except an empty compile.
	FailurePrefix = "The ritual has failed: "
)

var (
	// ErrBusy is returned when Execute is called while another run is in flight.
	ErrBusy = errors.New("interpreter is busy")
	// ErrInterrupted reports a run stopped by context cancellation.
	ErrInterrupted = errors.New("the ritual was interrupted")
	// ErrTimedOut reports a run stopped by a context deadline.
	ErrTimedOut = errors.New("the ritual ran out of time")
)

// ValidationError is a script rejected before anything ran.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Aliases so that callers can match every failure kind from one package.
type (
	UnknownVerbError = command.UnknownVerbError
	CapabilityError  = command.CapabilityError
	AnimationError   = animation.AnimationError
	RuntimeError     = vm.RuntimeError
)

// interruption maps cancellation causes to ErrInterrupted or ErrTimedOut.
// It returns nil for any other error.
func interruption(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimedOut
	case errors.Is(err, context.Canceled):
		return ErrInterrupted
	}
	var re *vm.RuntimeError
	if errors.As(err, &re) && re.Type == vm.ErrorCancelled {
		return ErrInterrupted
	}
	return nil
}
