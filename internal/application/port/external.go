package port

import (
	"context"
	"fmt"

	"github.com/garyjia/procurement-engine/internal/domain/comparison"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

// EntityLocker serializes mutating operations per entity key, e.g. "requisition:42"
type EntityLocker interface {
	// Lock blocks until the key is held or ctx ends, and returns the release function
	Lock(ctx context.Context, key string) (func(), error)
}

// MessageSender delivers plain text notifications to a chat user
type MessageSender interface {
	SendText(ctx context.Context, openID string, text string) error
}

// StockFulfillment issues the goods of an approved request. Picking mechanics are opaque here.
type StockFulfillment interface {
	Fulfill(ctx context.Context, req *entity.ApprovalRequest) error
}

// ComparisonExporter renders a comparison result as a spreadsheet
type ComparisonExporter interface {
	Export(result *comparison.Result) ([]byte, error)
}

// FileStorage stores generated files
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	GetFullPath(relativePath string) string
}

// ApprovalRequestLockKey is the EntityLocker key of an approval request
func ApprovalRequestLockKey(id int64) string {
	return fmt.Sprintf("approval_request:%d", id)
}

// RequisitionLockKey is the EntityLocker key of a requisition
func RequisitionLockKey(id int64) string {
	return fmt.Sprintf("requisition:%d", id)
}
