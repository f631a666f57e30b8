package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/procurement-engine/internal/application/dispatcher"
	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	"github.com/garyjia/procurement-engine/internal/domain/event"
	domainwf "github.com/garyjia/procurement-engine/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// TransitionResult describes one committed requisition transition
type TransitionResult struct {
	RequisitionID int64                           `json:"requisition_id"`
	FromState     domainwf.State                  `json:"from_state"`
	ToState       domainwf.State                  `json:"to_state"`
	Entry         *entity.RequisitionHistoryEntry `json:"history_entry"`

	// Event is dispatched by Transition; callers of Apply dispatch it after their commit
	Event *event.Event `json:"-"`
}

// TransitionOptions carries facts the guards need beyond the requisition itself
type TransitionOptions struct {
	VendorCount int
}

// TransitionOption configures a single transition
type TransitionOption func(*TransitionOptions)

// WithVendorCount tells the create_rfqs guard how many vendors will be solicited
func WithVendorCount(n int) TransitionOption {
	return func(o *TransitionOptions) {
		o.VendorCount = n
	}
}

// RequisitionEngine drives requisitions through their lifecycle and keeps the history log
type RequisitionEngine interface {
	// Transition locks the requisition, applies the trigger in its own transaction
	// and dispatches the status change event after commit
	Transition(ctx context.Context, requisitionID int64, trigger domainwf.Trigger, actor entity.Actor, notes string, opts ...TransitionOption) (*TransitionResult, error)

	// Apply fires the trigger on an already loaded requisition: one state write and
	// one history entry. The caller owns the lock and the transaction.
	Apply(ctx context.Context, req *entity.Requisition, trigger domainwf.Trigger, actor entity.Actor, notes string, opts ...TransitionOption) (*TransitionResult, error)

	// PermittedTriggers lists the triggers configured for the requisition's current state
	PermittedTriggers(ctx context.Context, requisitionID int64) ([]domainwf.Trigger, error)
}

type requisitionEngine struct {
	requisitionRepo port.RequisitionRepository
	historyRepo     port.RequisitionHistoryRepository
	txManager       port.TransactionManager
	locker          port.EntityLocker
	dispatcher      dispatcher.Dispatcher
	logger          Logger
	now             func() time.Time
}

// EngineOption configures the requisition engine
type EngineOption func(*requisitionEngine)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *requisitionEngine) {
		e.dispatcher = d
	}
}

// WithClock overrides the time source used for history timestamps
func WithClock(now func() time.Time) EngineOption {
	return func(e *requisitionEngine) {
		e.now = now
	}
}

// NewRequisitionEngine creates a new requisition engine
func NewRequisitionEngine(
	requisitionRepo port.RequisitionRepository,
	historyRepo port.RequisitionHistoryRepository,
	txManager port.TransactionManager,
	locker port.EntityLocker,
	logger Logger,
	opts ...EngineOption,
) RequisitionEngine {
	e := &requisitionEngine{
		requisitionRepo: requisitionRepo,
		historyRepo:     historyRepo,
		txManager:       txManager,
		locker:          locker,
		logger:          logger,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *requisitionEngine) Transition(ctx context.Context, requisitionID int64, trigger domainwf.Trigger, actor entity.Actor, notes string, opts ...TransitionOption) (*TransitionResult, error) {
	unlock, err := e.locker.Lock(ctx, port.RequisitionLockKey(requisitionID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *TransitionResult
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.requisitionRepo.GetByID(txCtx, requisitionID)
		if err != nil {
			return fmt.Errorf("failed to load requisition: %w", err)
		}
		if req == nil {
			return fmt.Errorf("%w: id %d", entity.ErrRequisitionNotFound, requisitionID)
		}

		result, err = e.Apply(txCtx, req, trigger, actor, notes, opts...)
		return err
	})
	if err != nil {
		e.logFailure("Requisition transition failed", err,
			"requisition_id", requisitionID,
			"trigger", trigger,
			"actor_id", actor.ID,
		)
		return nil, err
	}

	if e.dispatcher != nil && result.Event != nil {
		e.dispatcher.DispatchAsync(ctx, result.Event)
	}
	return result, nil
}

func (e *requisitionEngine) Apply(ctx context.Context, req *entity.Requisition, trigger domainwf.Trigger, actor entity.Actor, notes string, opts ...TransitionOption) (*TransitionResult, error) {
	var o TransitionOptions
	for _, opt := range opts {
		opt(&o)
	}

	from := req.State
	if err := checkTerminal(from, trigger); err != nil {
		return nil, err
	}
	if trigger == domainwf.TriggerRejectWithReason && strings.TrimSpace(notes) == "" {
		return nil, entity.ErrReasonRequired
	}

	machine := BuildRequisitionStateMachine(from, RequisitionGuards{
		CanCreateRFQs: func(ctx context.Context) bool {
			return o.VendorCount > 0 && req.HasResolvableLine()
		},
	})
	if err := machine.Fire(ctx, trigger); err != nil {
		return nil, translateFireError(err, trigger, req, o)
	}

	to := machine.State()
	previousReason := req.RejectReason
	req.State = to
	switch trigger {
	case domainwf.TriggerRejectWithReason:
		req.RejectReason = notes
	case domainwf.TriggerResetToDraft:
		req.RejectReason = ""
	}

	if err := e.requisitionRepo.Update(ctx, req); err != nil {
		req.State = from
		req.RejectReason = previousReason
		return nil, fmt.Errorf("failed to update requisition state: %w", err)
	}

	entry := &entity.RequisitionHistoryEntry{
		RequisitionID: req.ID,
		FromState:     from,
		ToState:       to,
		StateLabel:    to.Label(),
		ActorID:       actor.ID,
		Notes:         notes,
		IPAddress:     actor.IP,
		CreatedAt:     e.now(),
	}
	if err := e.historyRepo.Append(ctx, entry); err != nil {
		req.State = from
		req.RejectReason = previousReason
		return nil, fmt.Errorf("failed to append requisition history: %w", err)
	}

	e.logger.Info("Requisition transitioned",
		"requisition_id", req.ID,
		"trigger", trigger,
		"from_state", from,
		"to_state", to,
		"actor_id", actor.ID,
	)

	evt := event.NewEvent(event.TypeRequisitionStatusChanged, event.EntityRequisition, req.ID, actor.ID, map[string]interface{}{
		"requisition_name": req.Name,
		"trigger":          trigger.String(),
		"from_state":       from.String(),
		"to_state":         to.String(),
		"notes":            notes,
	})

	return &TransitionResult{
		RequisitionID: req.ID,
		FromState:     from,
		ToState:       to,
		Entry:         entry,
		Event:         evt,
	}, nil
}

func (e *requisitionEngine) PermittedTriggers(ctx context.Context, requisitionID int64) ([]domainwf.Trigger, error) {
	req, err := e.requisitionRepo.GetByID(ctx, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requisition: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: id %d", entity.ErrRequisitionNotFound, requisitionID)
	}
	return BuildRequisitionStateMachine(req.State, RequisitionGuards{}).PermittedTriggers(), nil
}

// checkTerminal reports the specific error for triggers fired on a finished requisition
func checkTerminal(from domainwf.State, trigger domainwf.Trigger) error {
	switch from {
	case domainwf.StateConfirmed:
		if trigger == domainwf.TriggerCancel {
			return entity.ErrCannotCancelConfirmed
		}
		return fmt.Errorf("%w: cannot %s", entity.ErrAlreadyConfirmed, trigger)
	case domainwf.StateCancelled, domainwf.StateRejected:
		return fmt.Errorf("%w: cannot %s %s requisition", entity.ErrInvalidTransition, trigger, from.Phrase())
	}
	return nil
}

func translateFireError(err error, trigger domainwf.Trigger, req *entity.Requisition, o TransitionOptions) error {
	if errors.Is(err, domainwf.ErrGuardFailed) && trigger == domainwf.TriggerCreateRFQs {
		if o.VendorCount == 0 {
			return entity.ErrNoVendors
		}
		if !req.HasResolvableLine() {
			return entity.ErrNoRequisitionLines
		}
	}
	return fmt.Errorf("%w: %s", entity.ErrInvalidTransition, err.Error())
}

// logFailure logs user-correctable errors at info and operational faults at error level
func (e *requisitionEngine) logFailure(msg string, err error, keysAndValues ...interface{}) {
	kind := entity.KindOf(err)
	kv := append(keysAndValues, "error", err, "error_kind", kind)
	if kind == entity.KindConfiguration || kind == entity.KindInternal {
		e.logger.Error(msg, kv...)
		return
	}
	e.logger.Info(msg, kv...)
}
