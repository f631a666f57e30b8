package event

// Type identifies the type of domain event
type Type string

const (
	TypeApprovalSubmitted        Type = "approval.submitted"
	TypeApprovalApproved         Type = "approval.approved"
	TypeApprovalRejected         Type = "approval.rejected"
	TypeRequisitionStatusChanged Type = "requisition.status_changed"
	TypeQuoteLineConfirmed       Type = "quote.line_confirmed"
	TypeOrderConfirmed           Type = "order.confirmed"
	TypeVendorSubscribed         Type = "vendor.subscribed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeApprovalSubmitted,
		TypeApprovalApproved,
		TypeApprovalRejected,
		TypeRequisitionStatusChanged,
		TypeQuoteLineConfirmed,
		TypeOrderConfirmed,
		TypeVendorSubscribed:
		return true
	default:
		return false
	}
}
