package entity

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies domain errors so callers can choose a response and a log level
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindState         Kind = "state"
	KindConfiguration Kind = "configuration"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

// Error is a categorized domain error
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation errors
var (
	ErrEmptyRequest          = newError(KindValidation, "EMPTY_REQUEST", "request has no lines")
	ErrMissingLotInfo        = newError(KindValidation, "MISSING_LOT_INFO", "line requires a lot or serial number")
	ErrReasonRequired        = newError(KindValidation, "REASON_REQUIRED", "a reason is required")
	ErrZeroPriceLinesPresent = newError(KindValidation, "ZERO_PRICE_LINES_PRESENT", "order contains lines without a positive unit price")
	ErrLineNotFound          = newError(KindValidation, "LINE_NOT_FOUND", "quote line no longer exists")
	ErrDuplicateVendorQuote  = newError(KindValidation, "DUPLICATE_VENDOR_QUOTE", "vendor already has a quote for this requisition")
	ErrInvalidQuantity       = newError(KindValidation, "INVALID_QUANTITY", "quantity must be greater than zero")
	ErrInvalidAmountRange    = newError(KindValidation, "INVALID_AMOUNT_RANGE", "minimum amount cannot exceed maximum amount")
	ErrInvalidLevel          = newError(KindValidation, "INVALID_LEVEL", "approval level is invalid")
	ErrNoVendors             = newError(KindValidation, "NO_VENDORS", "at least one vendor is required")
	ErrVendorRequired        = newError(KindValidation, "VENDOR_REQUIRED", "a vendor is required for a single vendor RFQ")
	ErrNoRequisitionLines    = newError(KindValidation, "NO_REQUISITION_LINES", "requisition has no lines with a product")
	ErrNoPricedLines         = newError(KindValidation, "NO_PRICED_LINES", "no lines with a price remain")
	ErrInvalidRFQType        = newError(KindValidation, "INVALID_RFQ_TYPE", "unknown RFQ type")
	ErrInvalidComparisonMode = newError(KindValidation, "INVALID_COMPARISON_MODE", "unknown comparison mode")
	ErrInvalidInput          = newError(KindValidation, "INVALID_INPUT", "invalid input")
)

// Authorization errors
var (
	ErrForbidden       = newError(KindAuthorization, "FORBIDDEN", "actor is not allowed to approve at this level")
	ErrUnauthenticated = newError(KindAuthorization, "UNAUTHENTICATED", "missing or invalid credentials")
)

// State errors
var (
	ErrInvalidTransition       = newError(KindState, "INVALID_TRANSITION", "transition not allowed from the current state")
	ErrAlreadyConfirmed        = newError(KindState, "ALREADY_CONFIRMED", "requisition is already confirmed")
	ErrCannotCancelConfirmed   = newError(KindState, "CANNOT_CANCEL_CONFIRMED", "a confirmed requisition cannot be cancelled")
	ErrCannotCancelIssued      = newError(KindState, "CANNOT_CANCEL_ISSUED", "an issued request cannot be cancelled")
	ErrRequestLocked           = newError(KindState, "REQUEST_LOCKED", "request lines can no longer be changed")
	ErrCannotDeleteRequisition = newError(KindState, "CANNOT_DELETE_REQUISITION", "only draft or cancelled requisitions can be deleted")
	ErrQuoteNotConfirmable     = newError(KindState, "QUOTE_NOT_CONFIRMABLE", "quote is not in a confirmable state")
)

// Configuration errors
var (
	ErrConfigurationMissing = newError(KindConfiguration, "CONFIGURATION_MISSING", "no level 1 approval configuration for company")
)

// Not found errors
var (
	ErrApprovalRequestNotFound = newError(KindNotFound, "APPROVAL_REQUEST_NOT_FOUND", "approval request not found")
	ErrRequisitionNotFound     = newError(KindNotFound, "REQUISITION_NOT_FOUND", "requisition not found")
	ErrLevelNotFound           = newError(KindNotFound, "LEVEL_NOT_FOUND", "approval level not found")
	ErrOrderNotFound           = newError(KindNotFound, "ORDER_NOT_FOUND", "order not found")
	ErrVendorNotFound          = newError(KindNotFound, "VENDOR_NOT_FOUND", "vendor not found")
	ErrProductNotFound         = newError(KindNotFound, "PRODUCT_NOT_FOUND", "product not found")
)

// Conflict errors
var (
	ErrDuplicateLevel  = newError(KindConflict, "DUPLICATE_LEVEL", "level number already exists for company")
	ErrVersionConflict = newError(KindConflict, "VERSION_CONFLICT", "entity was modified concurrently")
	ErrEntityBusy      = newError(KindConflict, "ENTITY_BUSY", "entity is locked by another operation")
)

// KindOf returns the kind of the first domain error in err's chain.
// Errors outside the taxonomy are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	var zeroErr *ZeroPriceLinesError
	if errors.As(err, &zeroErr) {
		return KindValidation
	}
	return KindInternal
}

// CodeOf returns the code of the first domain error in err's chain, or INTERNAL
func CodeOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	var zeroErr *ZeroPriceLinesError
	if errors.As(err, &zeroErr) {
		return ErrZeroPriceLinesPresent.Code
	}
	return "INTERNAL"
}

// ZeroPriceLinesError lists the products whose unit price blocks a whole-order confirmation
type ZeroPriceLinesError struct {
	Products []string
}

func (e *ZeroPriceLinesError) Error() string {
	return fmt.Sprintf("%s: %s", ErrZeroPriceLinesPresent.Message, strings.Join(e.Products, ", "))
}

// Is matches ErrZeroPriceLinesPresent
func (e *ZeroPriceLinesError) Is(target error) bool {
	return target == ErrZeroPriceLinesPresent
}
