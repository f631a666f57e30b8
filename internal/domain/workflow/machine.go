package workflow

import "context"

// StateMachine tracks the current state of one entity and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// Lifecycle returns the lifecycle the machine was built for
	Lifecycle() *Lifecycle

	// CanFire returns true if the trigger is configured for the current state.
	// Guards are not evaluated.
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers configured for the current state
	PermittedTriggers() []Trigger

	// IsTerminal returns true if the current state is terminal for the lifecycle
	IsTerminal() bool
}
