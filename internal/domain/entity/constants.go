package entity

// Approval types for ApprovalLevelConfig
const (
	ApprovalTypeAmountBased ApprovalType = "amount_based"
	ApprovalTypeFixed       ApprovalType = "fixed"
)

// Product tracking modes
const (
	TrackingNone   TrackingMode = "none"
	TrackingLot    TrackingMode = "lot"
	TrackingSerial TrackingMode = "serial"
)

// Approval history actions
const (
	ApprovalActionSubmit  ApprovalAction = "submit"
	ApprovalActionApprove ApprovalAction = "approve"
	ApprovalActionReject  ApprovalAction = "reject"
	ApprovalActionIssue   ApprovalAction = "issue"
	ApprovalActionCancel  ApprovalAction = "cancel"
)

// Pricing modes for approval requests
const (
	PricingList = "list"
	PricingFree = "free"
)

// Vendor quote states
const (
	QuoteStateDraft     QuoteState = "draft"
	QuoteStateSent      QuoteState = "sent"
	QuoteStateConfirmed QuoteState = "confirmed"
	QuoteStateCancelled QuoteState = "cancelled"
)

// Purchase order states
const (
	OrderStateApproved  OrderState = "approved"
	OrderStateToApprove OrderState = "to_approve"
)

// RFQ dispatch types
const (
	RFQTypeAllToAll RFQType = "all_to_all"
	RFQTypeAllToOne RFQType = "all_to_one"
)

// Zero price decisions for RFQ dispatch
const (
	ZeroPriceAsk     ZeroPriceDecision = "ask"
	ZeroPriceExclude ZeroPriceDecision = "exclude"
	ZeroPriceInclude ZeroPriceDecision = "include"
)

// Sequence codes used to name new records
const (
	SequenceApprovalRequest = "approval_request"
	SequenceRequisition     = "requisition"
	SequenceRFQ             = "rfq"
	SequencePurchaseOrder   = "purchase_order"
)

// sequencePrefixes maps a sequence code to its reference prefix
var sequencePrefixes = map[string]string{
	SequenceApprovalRequest: "MR/",
	SequenceRequisition:     "PR/",
	SequenceRFQ:             "RFQ/",
	SequencePurchaseOrder:   "PO/",
}
