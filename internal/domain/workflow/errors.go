package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition means the trigger is not configured for the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed means every guarded transition for the trigger refused
	ErrGuardFailed = errors.New("guard condition failed")
)

// TransitionError reports a refused Fire with the lifecycle, state and trigger involved
type TransitionError struct {
	Lifecycle string
	From      State
	Trigger   Trigger

	// Guarded is true when the trigger exists but its guards refused
	Guarded bool
}

func (e *TransitionError) Error() string {
	if e.Guarded {
		return fmt.Sprintf("%s: %s refused %s from %s", e.Lifecycle, ErrGuardFailed, e.Trigger, e.From)
	}
	return fmt.Sprintf("%s: %s %s from %s", e.Lifecycle, ErrInvalidTransition, e.Trigger, e.From)
}

// Is matches ErrGuardFailed or ErrInvalidTransition depending on Guarded
func (e *TransitionError) Is(target error) bool {
	if e.Guarded {
		return target == ErrGuardFailed
	}
	return target == ErrInvalidTransition
}
