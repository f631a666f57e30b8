package workflow

import "strings"

// State represents a lifecycle state of an approval request or a requisition
type State string

// Shared states
const (
	StateDraft     State = "DRAFT"
	StateApproved  State = "APPROVED"
	StateRejected  State = "REJECTED"
	StateCancelled State = "CANCELLED"
)

// Approval request states
const (
	StateSubmitted State = "SUBMITTED"
	StateIssued    State = "ISSUED"
)

// Requisition states
const (
	StateDeptConfirmed     State = "DEPT_CONFIRMED"
	StateBudgetCheck       State = "BUDGET_CHECK"
	StateWaitingApproval   State = "WAITING_APPROVAL"
	StateProcurementReview State = "PROCUREMENT_REVIEW"
	StateRFQCreation       State = "RFQ_CREATION"
	StateComparison        State = "COMPARISON"
	StateConfirmed         State = "CONFIRMED"
)

var stateLabels = map[State]string{
	StateDraft:             "Draft",
	StateSubmitted:         "Submitted",
	StateApproved:          "Approved",
	StateRejected:          "Rejected",
	StateIssued:            "Issued",
	StateCancelled:         "Cancelled",
	StateDeptConfirmed:     "Department Confirmed",
	StateBudgetCheck:       "Budget Check",
	StateWaitingApproval:   "Waiting Approval",
	StateProcurementReview: "Procurement Review",
	StateRFQCreation:       "RFQ Creation",
	StateComparison:        "Comparison",
	StateConfirmed:         "PO Confirmed",
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state belongs to any known lifecycle
func (s State) IsValid() bool {
	_, ok := stateLabels[s]
	return ok
}

// Label returns the human readable label stored alongside history entries
func (s State) Label() string {
	if label, ok := stateLabels[s]; ok {
		return label
	}
	return string(s)
}

// Phrase returns the label for use inside a sentence with its indefinite
// article, e.g. "an approved" or "an RFQ creation". Acronyms keep their case.
func (s State) Phrase() string {
	words := strings.Fields(s.Label())
	if len(words) == 0 {
		return "a"
	}
	for i, w := range words {
		if len(w) < 2 || w != strings.ToUpper(w) {
			words[i] = strings.ToLower(w)
		}
	}

	article := "a"
	first := words[0]
	if first == strings.ToUpper(first) && len(first) > 1 {
		if strings.ContainsRune("AEFHILMNORSX", rune(first[0])) {
			article = "an"
		}
	} else if strings.ContainsRune("aeiou", rune(first[0])) {
		article = "an"
	}
	return article + " " + strings.Join(words, " ")
}

// Lifecycle is a closed set of states one kind of entity may occupy
type Lifecycle struct {
	name     string
	states   map[State]bool
	terminal map[State]bool
}

// NewLifecycle creates a lifecycle from its states; terminal states must be members
func NewLifecycle(name string, states []State, terminal []State) *Lifecycle {
	lc := &Lifecycle{
		name:     name,
		states:   make(map[State]bool, len(states)),
		terminal: make(map[State]bool, len(terminal)),
	}
	for _, s := range states {
		lc.states[s] = true
	}
	for _, s := range terminal {
		if lc.states[s] {
			lc.terminal[s] = true
		}
	}
	return lc
}

// Name returns the lifecycle name
func (l *Lifecycle) Name() string {
	return l.name
}

// Contains reports whether the state is part of this lifecycle
func (l *Lifecycle) Contains(s State) bool {
	return l.states[s]
}

// IsTerminal returns true if no further forward transitions are allowed from the state
func (l *Lifecycle) IsTerminal(s State) bool {
	return l.terminal[s]
}

// ApprovalLifecycle covers amount-routed approval requests.
// Rejected and Cancelled requests may still be reset to draft, so only Issued is terminal.
var ApprovalLifecycle = NewLifecycle("approval_request",
	[]State{StateDraft, StateSubmitted, StateApproved, StateRejected, StateIssued, StateCancelled},
	[]State{StateIssued},
)

// RequisitionLifecycle covers purchase requisitions from draft to confirmed purchase order
var RequisitionLifecycle = NewLifecycle("requisition",
	[]State{
		StateDraft, StateDeptConfirmed, StateBudgetCheck, StateWaitingApproval,
		StateProcurementReview, StateApproved, StateRFQCreation, StateComparison,
		StateConfirmed, StateCancelled, StateRejected,
	},
	[]State{StateConfirmed, StateCancelled, StateRejected},
)
