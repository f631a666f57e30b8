package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-engine/internal/domain/workflow"
)

// Requisition tracks a procurement need from draft to confirmed purchase order
type Requisition struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	EmployeeID     string             `json:"employee_id"`
	DepartmentID   int64              `json:"department_id"`
	CompanyID      int64              `json:"company_id"`
	Project        string             `json:"project,omitempty"`
	SiteLocationID *int64             `json:"site_location_id,omitempty"`
	WarehouseID    *int64             `json:"warehouse_id,omitempty"`
	PickingTypeID  *int64             `json:"picking_type_id,omitempty"`
	State          workflow.State     `json:"state"`
	RejectReason   string             `json:"reject_reason,omitempty"`
	Version        int64              `json:"version"`
	Lines          []*RequisitionLine `json:"lines,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// RequisitionLine is one requested product
type RequisitionLine struct {
	ID            int64           `json:"id"`
	RequisitionID int64           `json:"requisition_id"`
	ProductID     int64           `json:"product_id"`
	Description   string          `json:"description,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	Uom           string          `json:"uom"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

// RequisitionHistoryEntry is an append-only record of one requisition transition
type RequisitionHistoryEntry struct {
	ID            int64          `json:"id"`
	RequisitionID int64          `json:"requisition_id"`
	FromState     workflow.State `json:"from_state"`
	ToState       workflow.State `json:"to_state"`
	StateLabel    string         `json:"state_label"`
	ActorID       string         `json:"actor_id"`
	Notes         string         `json:"notes,omitempty"`
	IPAddress     string         `json:"ip_address,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Deletable reports whether the requisition may be removed with its lines
func (r *Requisition) Deletable() bool {
	return r.State == workflow.StateDraft || r.State == workflow.StateCancelled
}

// HasResolvableLine reports whether at least one line references a product
func (r *Requisition) HasResolvableLine() bool {
	for _, line := range r.Lines {
		if line.ProductID > 0 {
			return true
		}
	}
	return false
}

// OnSiteLocationChange re-derives the warehouse from the site location and clears the picking type
func OnSiteLocationChange(r *Requisition, warehouseFor func(siteLocationID int64) *int64) {
	r.PickingTypeID = nil
	if r.SiteLocationID == nil || warehouseFor == nil {
		r.WarehouseID = nil
		return
	}
	r.WarehouseID = warehouseFor(*r.SiteLocationID)
}

// OnCompanyChange clears the company-scoped location fields
func OnCompanyChange(r *Requisition) {
	r.WarehouseID = nil
	r.PickingTypeID = nil
}
