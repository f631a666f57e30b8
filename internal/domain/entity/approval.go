package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-engine/internal/domain/workflow"
)

// ApprovalType selects how a level configuration is matched
type ApprovalType string

// TrackingMode is the lot/serial tracking requirement of a product
type TrackingMode string

// ApprovalAction is the action recorded in an approval history entry
type ApprovalAction string

// ApprovalLevelConfig is one level of the sequential approval chain of a company
type ApprovalLevelConfig struct {
	ID               int64            `json:"id"`
	CompanyID        int64            `json:"company_id"`
	LevelNumber      int              `json:"level_number"`
	Name             string           `json:"name"`
	ApprovalType     ApprovalType     `json:"approval_type"`
	MinAmount        decimal.Decimal  `json:"min_amount"`
	MaxAmount        *decimal.Decimal `json:"max_amount,omitempty"`
	ApproverGroupIDs []int64          `json:"approver_group_ids"`
	Active           bool             `json:"active"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// DisplayName renders "<name> (Level <n>)"
func (c *ApprovalLevelConfig) DisplayName() string {
	return fmt.Sprintf("%s (Level %d)", c.Name, c.LevelNumber)
}

// Matches reports whether an amount-based config covers the amount.
// Fixed configs never match by amount.
func (c *ApprovalLevelConfig) Matches(amount decimal.Decimal) bool {
	if c.ApprovalType != ApprovalTypeAmountBased || !c.Active {
		return false
	}
	if amount.LessThan(c.MinAmount) {
		return false
	}
	return c.MaxAmount == nil || c.MaxAmount.GreaterThanOrEqual(amount)
}

// HasApproverGroups reports whether the level restricts who may approve
func (c *ApprovalLevelConfig) HasApproverGroups() bool {
	return len(c.ApproverGroupIDs) > 0
}

// Validate checks the config invariants that do not need storage
func (c *ApprovalLevelConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLevel)
	}
	if c.LevelNumber < 1 {
		return fmt.Errorf("%w: level number must be at least 1", ErrInvalidLevel)
	}
	switch c.ApprovalType {
	case ApprovalTypeAmountBased:
		if c.MaxAmount != nil && c.MinAmount.GreaterThan(*c.MaxAmount) {
			return fmt.Errorf("%w: %s > %s", ErrInvalidAmountRange, c.MinAmount, c.MaxAmount)
		}
	case ApprovalTypeFixed:
	default:
		return fmt.Errorf("%w: unknown approval type %q", ErrInvalidLevel, c.ApprovalType)
	}
	return nil
}

// ApprovalRequest is a monetary request routed through the approval chain
type ApprovalRequest struct {
	ID               int64                  `json:"id"`
	Name             string                 `json:"name"`
	CompanyID        int64                  `json:"company_id"`
	RequesterID      string                 `json:"requester_id"`
	State            workflow.State         `json:"state"`
	CurrentLevel     int                    `json:"current_level"`
	RequiredLevel    int                    `json:"required_level"`
	ResolvedConfigID *int64                 `json:"resolved_config_id,omitempty"`
	TotalAmount      decimal.Decimal        `json:"total_amount"`
	Billable         bool                   `json:"billable"`
	Pricing          string                 `json:"pricing"`
	SaleOrderRef     string                 `json:"sale_order_ref,omitempty"`
	Version          int64                  `json:"version"`
	Lines            []*ApprovalRequestLine `json:"lines,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// ApprovalRequestLine is one product line of an approval request
type ApprovalRequestLine struct {
	ID          int64           `json:"id"`
	RequestID   int64           `json:"request_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Tracking    TrackingMode    `json:"tracking"`
	LotName     string          `json:"lot_name,omitempty"`
}

// Subtotal returns quantity × unit price
func (l *ApprovalRequestLine) Subtotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// MissingLot reports whether the line is tracked by lot or serial but carries none
func (l *ApprovalRequestLine) MissingLot() bool {
	return (l.Tracking == TrackingLot || l.Tracking == TrackingSerial) && l.LotName == ""
}

// Validate checks a single line
func (l *ApprovalRequestLine) Validate() error {
	if !l.Quantity.IsPositive() {
		return fmt.Errorf("%w: product %d", ErrInvalidQuantity, l.ProductID)
	}
	return nil
}

// ComputeTotal returns Σ quantity × unit price over the request lines
func (r *ApprovalRequest) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// LinesLocked reports whether monetary lines may no longer be edited
func (r *ApprovalRequest) LinesLocked() bool {
	switch r.State {
	case workflow.StateApproved, workflow.StateIssued, workflow.StateRejected, workflow.StateCancelled:
		return true
	}
	return false
}

// ClearRouting drops the resolved routing and returns the counters to their initial values
func (r *ApprovalRequest) ClearRouting() {
	r.ResolvedConfigID = nil
	r.RequiredLevel = 1
	r.CurrentLevel = 1
}

// ApprovalHistoryEntry is an immutable record of an approval action
type ApprovalHistoryEntry struct {
	ID          int64          `json:"id"`
	RequestID   int64          `json:"request_id"`
	ActorID     string         `json:"actor_id"`
	Action      ApprovalAction `json:"action"`
	LevelAtTime int            `json:"level_at_time"`
	Comment     string         `json:"comment,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// OnBillableChange resets pricing fields after the billable flag changed.
// A request that is not billable is priced free and detached from its sale order.
func OnBillableChange(r *ApprovalRequest) {
	if r.Billable {
		if r.Pricing == "" || r.Pricing == PricingFree {
			r.Pricing = PricingList
		}
		return
	}
	r.Pricing = PricingFree
	r.SaleOrderRef = ""
}

// OnConfigSelected makes the required level follow a manually chosen configuration
func OnConfigSelected(r *ApprovalRequest, config *ApprovalLevelConfig) {
	if config == nil {
		r.ResolvedConfigID = nil
		r.RequiredLevel = 1
		return
	}
	id := config.ID
	r.ResolvedConfigID = &id
	r.RequiredLevel = config.LevelNumber
}
