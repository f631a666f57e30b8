package workflow

import (
	"context"

	domainwf "github.com/garyjia/procurement-engine/internal/domain/workflow"
)

// ApprovalGuards are evaluated when an approval request fires a guarded trigger
type ApprovalGuards struct {
	// IsFinalLevel reports whether the pending approval completes the chain
	IsFinalLevel domainwf.GuardFunc
}

// RequisitionGuards are evaluated when a requisition fires a guarded trigger
type RequisitionGuards struct {
	// CanCreateRFQs requires at least one vendor and one line with a product
	CanCreateRFQs domainwf.GuardFunc
}

var requisitionOpenStates = []domainwf.State{
	domainwf.StateDraft,
	domainwf.StateDeptConfirmed,
	domainwf.StateBudgetCheck,
	domainwf.StateWaitingApproval,
	domainwf.StateProcurementReview,
	domainwf.StateApproved,
	domainwf.StateRFQCreation,
	domainwf.StateComparison,
}

// BuildApprovalStateMachine creates a state machine configured for approval requests
func BuildApprovalStateMachine(initialState domainwf.State, guards ApprovalGuards) domainwf.StateMachine {
	isFinal := guards.IsFinalLevel
	if isFinal == nil {
		isFinal = never
	}
	notFinal := func(ctx context.Context) bool { return !isFinal(ctx) }

	builder := domainwf.NewBuilder(domainwf.ApprovalLifecycle)

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSubmit, domainwf.StateSubmitted).
		Permit(domainwf.TriggerCancel, domainwf.StateCancelled).
		Permit(domainwf.TriggerResetToDraft, domainwf.StateDraft)

	// approve stays in SUBMITTED until the last required level signs off
	builder.Configure(domainwf.StateSubmitted).
		PermitIf(domainwf.TriggerApprove, domainwf.StateApproved, isFinal).
		PermitIf(domainwf.TriggerApprove, domainwf.StateSubmitted, notFinal).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerCancel, domainwf.StateCancelled).
		Permit(domainwf.TriggerResetToDraft, domainwf.StateDraft)

	builder.Configure(domainwf.StateApproved).
		Permit(domainwf.TriggerIssue, domainwf.StateIssued).
		Permit(domainwf.TriggerCancel, domainwf.StateCancelled)

	builder.Configure(domainwf.StateRejected).
		Permit(domainwf.TriggerCancel, domainwf.StateCancelled).
		Permit(domainwf.TriggerResetToDraft, domainwf.StateDraft)

	builder.Configure(domainwf.StateCancelled).
		Permit(domainwf.TriggerResetToDraft, domainwf.StateDraft)

	// ISSUED is terminal

	return builder.Build(initialState)
}

// BuildRequisitionStateMachine creates a state machine configured for requisitions
func BuildRequisitionStateMachine(initialState domainwf.State, guards RequisitionGuards) domainwf.StateMachine {
	canCreateRFQs := guards.CanCreateRFQs
	if canCreateRFQs == nil {
		canCreateRFQs = never
	}

	builder := domainwf.NewBuilder(domainwf.RequisitionLifecycle)

	for _, state := range requisitionOpenStates {
		builder.Configure(state).
			Permit(domainwf.TriggerRejectWithReason, domainwf.StateRejected).
			Permit(domainwf.TriggerCancel, domainwf.StateCancelled).
			Permit(domainwf.TriggerResetToDraft, domainwf.StateDraft)
	}

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerConfirm, domainwf.StateDeptConfirmed)

	builder.Configure(domainwf.StateDeptConfirmed).
		Permit(domainwf.TriggerBudgetApprove, domainwf.StateBudgetCheck).
		Permit(domainwf.TriggerManagerApprove, domainwf.StateWaitingApproval)

	builder.Configure(domainwf.StateBudgetCheck).
		Permit(domainwf.TriggerManagerApprove, domainwf.StateWaitingApproval)

	builder.Configure(domainwf.StateWaitingApproval).
		Permit(domainwf.TriggerSendToProcurementReview, domainwf.StateProcurementReview)

	builder.Configure(domainwf.StateProcurementReview).
		Permit(domainwf.TriggerUserApprove, domainwf.StateApproved)

	// RFQs can be re-issued while quotes are still being compared
	for _, state := range []domainwf.State{domainwf.StateApproved, domainwf.StateRFQCreation, domainwf.StateComparison} {
		builder.Configure(state).
			PermitIf(domainwf.TriggerCreateRFQs, domainwf.StateRFQCreation, canCreateRFQs)
	}

	builder.Configure(domainwf.StateRFQCreation).
		Permit(domainwf.TriggerStartComparison, domainwf.StateComparison)

	builder.Configure(domainwf.StateComparison).
		Permit(domainwf.TriggerConfirmPO, domainwf.StateConfirmed)

	// CONFIRMED, CANCELLED and REJECTED are terminal

	return builder.Build(initialState)
}

func never(ctx context.Context) bool {
	return false
}
