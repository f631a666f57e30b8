package port

import (
	"context"

	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

// ApprovalLevelRepository defines persistence operations for ApprovalLevelConfig
type ApprovalLevelRepository interface {
	// Create inserts a level; a duplicate (company, level_number) returns entity.ErrDuplicateLevel
	Create(ctx context.Context, config *entity.ApprovalLevelConfig) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalLevelConfig, error)
	ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*entity.ApprovalLevelConfig, error)
	Deactivate(ctx context.Context, id int64) error
}

// ApproverGroupRepository defines persistence operations for ApproverGroup
type ApproverGroupRepository interface {
	Create(ctx context.Context, group *entity.ApproverGroup) error
	List(ctx context.Context) ([]*entity.ApproverGroup, error)
}

// ApprovalRequestRepository defines persistence operations for ApprovalRequest and its lines
type ApprovalRequestRepository interface {
	// Create inserts the request together with its lines
	Create(ctx context.Context, req *entity.ApprovalRequest) error

	// GetByID loads the request with its lines, or nil when it does not exist
	GetByID(ctx context.Context, id int64) (*entity.ApprovalRequest, error)

	// Update writes the header fields if the stored version still matches req.Version,
	// then bumps req.Version. A stale version returns entity.ErrVersionConflict.
	Update(ctx context.Context, req *entity.ApprovalRequest) error

	AddLine(ctx context.Context, line *entity.ApprovalRequestLine) error
	UpdateLine(ctx context.Context, line *entity.ApprovalRequestLine) error
	DeleteLine(ctx context.Context, lineID int64) error
	GetLine(ctx context.Context, lineID int64) (*entity.ApprovalRequestLine, error)
}

// ApprovalHistoryRepository is the append-only approval audit log
type ApprovalHistoryRepository interface {
	Append(ctx context.Context, entry *entity.ApprovalHistoryEntry) error
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.ApprovalHistoryEntry, error)
}

// RequisitionRepository defines persistence operations for Requisition and its lines
type RequisitionRepository interface {
	Create(ctx context.Context, req *entity.Requisition) error
	GetByID(ctx context.Context, id int64) (*entity.Requisition, error)

	// Update writes the header fields with the same version check as approval requests
	Update(ctx context.Context, req *entity.Requisition) error

	// Delete removes the requisition and its lines; history rows are kept
	Delete(ctx context.Context, id int64) error
}

// RequisitionHistoryRepository is the append-only requisition transition log
type RequisitionHistoryRepository interface {
	Append(ctx context.Context, entry *entity.RequisitionHistoryEntry) error

	// ListByRequisition returns entries newest first
	ListByRequisition(ctx context.Context, requisitionID int64) ([]*entity.RequisitionHistoryEntry, error)
	CountByRequisition(ctx context.Context, requisitionID int64) (int, error)
}

// VendorRepository defines persistence operations for Vendor
type VendorRepository interface {
	Create(ctx context.Context, vendor *entity.Vendor) error
	GetByID(ctx context.Context, id int64) (*entity.Vendor, error)
	List(ctx context.Context) ([]*entity.Vendor, error)
}

// ProductRepository defines persistence operations for Product
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
}

// QuoteRepository defines persistence operations for VendorQuote and QuoteLine
type QuoteRepository interface {
	// Create inserts the quote and its lines; a second quote for the same
	// (requisition, vendor) returns entity.ErrDuplicateVendorQuote
	Create(ctx context.Context, quote *entity.VendorQuote) error
	GetByID(ctx context.Context, id int64) (*entity.VendorQuote, error)
	ListByRequisition(ctx context.Context, requisitionID int64) ([]*entity.VendorQuote, error)
	ExistsForVendor(ctx context.Context, requisitionID, vendorID int64) (bool, error)
	UpdateState(ctx context.Context, id int64, state entity.QuoteState) error
	GetLine(ctx context.Context, lineID int64) (*entity.QuoteLine, error)

	// UpdateLine stores the vendor's price, tax and planned delivery of a line
	UpdateLine(ctx context.Context, line *entity.QuoteLine) error
	DeleteLine(ctx context.Context, lineID int64) error
}

// PurchaseOrderRepository defines persistence operations for single line purchase orders
type PurchaseOrderRepository interface {
	Create(ctx context.Context, order *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error)
	ListByRequisition(ctx context.Context, requisitionID int64) ([]*entity.PurchaseOrder, error)
}

// FollowerRepository tracks vendors subscribed to requisition notifications
type FollowerRepository interface {
	// Add subscribes the vendor and reports whether a new subscription was created
	Add(ctx context.Context, requisitionID, vendorID int64) (bool, error)
	ListByRequisition(ctx context.Context, requisitionID int64) ([]*entity.RequisitionFollower, error)
}

// SequenceRepository hands out monotonically increasing numbers per sequence code
type SequenceRepository interface {
	Next(ctx context.Context, code string) (int64, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	// WithTransaction runs fn inside a transaction carried by the context.
	// Nested calls join the outer transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
