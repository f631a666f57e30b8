package workflow

import "fmt"

// Trigger represents an action that can cause a state transition
type Trigger string

// Approval request triggers
const (
	TriggerSubmit  Trigger = "submit"
	TriggerApprove Trigger = "approve"
	TriggerReject  Trigger = "reject"
	TriggerIssue   Trigger = "issue"
)

// Requisition triggers
const (
	TriggerConfirm                 Trigger = "confirm"
	TriggerBudgetApprove           Trigger = "budget_approve"
	TriggerManagerApprove          Trigger = "manager_approve"
	TriggerSendToProcurementReview Trigger = "send_to_procurement_review"
	TriggerUserApprove             Trigger = "user_approve"
	TriggerCreateRFQs              Trigger = "create_rfqs"
	TriggerStartComparison         Trigger = "start_comparison"
	TriggerConfirmPO               Trigger = "confirm_po"
	TriggerRejectWithReason        Trigger = "reject_with_reason"
)

// Shared triggers
const (
	TriggerCancel       Trigger = "cancel"
	TriggerResetToDraft Trigger = "reset_to_draft"
)

var requisitionTriggers = map[Trigger]bool{
	TriggerConfirm:                 true,
	TriggerBudgetApprove:           true,
	TriggerManagerApprove:          true,
	TriggerSendToProcurementReview: true,
	TriggerUserApprove:             true,
	TriggerCreateRFQs:              true,
	TriggerStartComparison:         true,
	TriggerConfirmPO:               true,
	TriggerRejectWithReason:        true,
	TriggerCancel:                  true,
	TriggerResetToDraft:            true,
}

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// ParseRequisitionTrigger maps a transition name to a requisition trigger
func ParseRequisitionTrigger(name string) (Trigger, error) {
	t := Trigger(name)
	if !requisitionTriggers[t] {
		return "", fmt.Errorf("%w: unknown transition %q", ErrInvalidTransition, name)
	}
	return t, nil
}
