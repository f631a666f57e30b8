package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteState is the state of a vendor quote
type QuoteState string

// OrderState is the approval state of a purchase order committed from a quote line
type OrderState string

// RFQType controls how RFQs are dispatched to vendors
type RFQType string

// ZeroPriceDecision controls how zero priced lines are handled when dispatching RFQs
type ZeroPriceDecision string

// Vendor is a supplier that receives RFQs
type Vendor struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	LarkOpenID string    `json:"lark_open_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Product is a purchasable item
type Product struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Tracking TrackingMode `json:"tracking"`
	Uom      string       `json:"uom"`
}

// VendorQuote is one vendor's priced response to a requisition RFQ
type VendorQuote struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	RequisitionID int64        `json:"requisition_id"`
	VendorID      int64        `json:"vendor_id"`
	RFQType       RFQType      `json:"rfq_type"`
	State         QuoteState   `json:"state"`
	Lines         []*QuoteLine `json:"lines,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// QuoteLine is one priced and dated product offer
type QuoteLine struct {
	ID              int64           `json:"id"`
	QuoteID         int64           `json:"quote_id"`
	ProductID       int64           `json:"product_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	PlannedDelivery time.Time       `json:"planned_delivery"`
}

// IsOpen reports whether the quote can still be confirmed or cancelled
func (q *VendorQuote) IsOpen() bool {
	return q.State == QuoteStateDraft || q.State == QuoteStateSent
}

// ZeroPriceLines returns the lines whose unit price is not positive
func (q *VendorQuote) ZeroPriceLines() []*QuoteLine {
	var lines []*QuoteLine
	for _, line := range q.Lines {
		if !line.UnitPrice.IsPositive() {
			lines = append(lines, line)
		}
	}
	return lines
}

// Total returns Σ quantity × unit price + tax over the quote lines
func (q *VendorQuote) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range q.Lines {
		total = total.Add(line.Quantity.Mul(line.UnitPrice)).Add(line.TaxAmount)
	}
	return total
}

// PurchaseOrder is a single line order committed to one vendor from a quote line
type PurchaseOrder struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	RequisitionID   int64           `json:"requisition_id"`
	VendorID        int64           `json:"vendor_id"`
	SourceQuoteID   int64           `json:"source_quote_id"`
	SourceLineID    int64           `json:"source_line_id"`
	ProductID       int64           `json:"product_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	PlannedDelivery time.Time       `json:"planned_delivery"`
	State           OrderState      `json:"state"`
	Note            string          `json:"note"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// RequisitionFollower subscribes a vendor to a requisition's notifications
type RequisitionFollower struct {
	RequisitionID int64     `json:"requisition_id"`
	VendorID      int64     `json:"vendor_id"`
	CreatedAt     time.Time `json:"created_at"`
}
