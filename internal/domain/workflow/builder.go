package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc is a function that evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows a trigger to transition to the target state if the guard condition passes.
	// Guarded transitions for the same trigger are tried in registration order.
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type transition struct {
	toState State
	guard   GuardFunc
}

type stateConfig struct {
	lifecycle   *Lifecycle
	fromState   State
	transitions map[Trigger][]transition
}

type stateMachineBuilder struct {
	lifecycle      *Lifecycle
	configurations map[State]*stateConfig
}

type stateMachine struct {
	lifecycle      *Lifecycle
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a new state machine builder for a lifecycle
func NewBuilder(lifecycle *Lifecycle) StateMachineBuilder {
	if lifecycle == nil {
		panic("lifecycle is required")
	}
	return &stateMachineBuilder{
		lifecycle:      lifecycle,
		configurations: make(map[State]*stateConfig),
	}
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !b.lifecycle.Contains(state) {
		panic(fmt.Sprintf("state %s is not part of lifecycle %s", state, b.lifecycle.Name()))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			lifecycle:   b.lifecycle,
			fromState:   state,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[state] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial state
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !b.lifecycle.Contains(initialState) {
		panic(fmt.Sprintf("invalid initial state %s for lifecycle %s", initialState, b.lifecycle.Name()))
	}

	// Copy so later Configure calls never leak into built machines
	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition, len(config.transitions))
		for trigger, transitions := range config.transitions {
			transitionsCopy[trigger] = append([]transition{}, transitions...)
		}
		configsCopy[state] = &stateConfig{
			lifecycle:   b.lifecycle,
			fromState:   state,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		lifecycle:      b.lifecycle,
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// Permit allows a trigger to transition to the target state
func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows a trigger to transition to the target state if the guard condition passes
func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !c.lifecycle.Contains(toState) {
		panic(fmt.Sprintf("target state %s is not part of lifecycle %s", toState, c.lifecycle.Name()))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{
		toState: toState,
		guard:   guard,
	})

	return c
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// Lifecycle returns the lifecycle the machine was built for
func (m *stateMachine) Lifecycle() *Lifecycle {
	return m.lifecycle
}

// CanFire returns true if the trigger is configured for the current state
func (m *stateMachine) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}

	transitions, exists := config.transitions[trigger]
	return exists && len(transitions) > 0
}

// Fire runs the first transition whose guard passes. A refusal returns a *TransitionError.
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	var candidates []transition
	if config, ok := m.configurations[m.currentState]; ok {
		candidates = config.transitions[trigger]
	}

	refused := &TransitionError{Lifecycle: m.lifecycle.Name(), From: m.currentState, Trigger: trigger}
	if len(candidates) == 0 {
		return refused
	}

	for _, t := range candidates {
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	refused.Guarded = true
	return refused
}

// PermittedTriggers returns all triggers configured for the current state, sorted by name
func (m *stateMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })

	return triggers
}

// IsTerminal returns true if the current state is terminal for the lifecycle
func (m *stateMachine) IsTerminal() bool {
	return m.lifecycle.IsTerminal(m.currentState)
}
