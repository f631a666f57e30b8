package http

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-engine/internal/application/service"
	appwf "github.com/garyjia/procurement-engine/internal/application/workflow"
	"github.com/garyjia/procurement-engine/internal/domain/comparison"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

// The mocks embed the service interface; calling a method without a func
// field set panics, which gin.Recovery turns into a 500.

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockLevelService struct {
	service.ApprovalLevelService
	resolveFunc func(ctx context.Context, amount decimal.Decimal, companyID int64) (*entity.ApprovalLevelConfig, error)
}

func (m *mockLevelService) Resolve(ctx context.Context, amount decimal.Decimal, companyID int64) (*entity.ApprovalLevelConfig, error) {
	return m.resolveFunc(ctx, amount, companyID)
}

type mockApprovalService struct {
	service.ApprovalService
	approveFunc func(ctx context.Context, id int64, actor entity.Actor, comment string) (*entity.ApprovalRequest, error)
	historyFunc func(ctx context.Context, id int64) ([]*entity.ApprovalHistoryEntry, error)
}

func (m *mockApprovalService) Approve(ctx context.Context, id int64, actor entity.Actor, comment string) (*entity.ApprovalRequest, error) {
	return m.approveFunc(ctx, id, actor, comment)
}

func (m *mockApprovalService) History(ctx context.Context, id int64) ([]*entity.ApprovalHistoryEntry, error) {
	return m.historyFunc(ctx, id)
}

type mockRequisitionService struct {
	service.RequisitionService
	getFunc        func(ctx context.Context, id int64) (*entity.Requisition, error)
	transitionFunc func(ctx context.Context, id int64, name string, actor entity.Actor, notes string) (*appwf.TransitionResult, error)
}

func (m *mockRequisitionService) Get(ctx context.Context, id int64) (*entity.Requisition, error) {
	return m.getFunc(ctx, id)
}

func (m *mockRequisitionService) Transition(ctx context.Context, id int64, name string, actor entity.Actor, notes string) (*appwf.TransitionResult, error) {
	return m.transitionFunc(ctx, id, name, actor, notes)
}

type mockRFQService struct {
	service.RFQService
	createRFQsFunc func(ctx context.Context, requisitionID int64, input service.CreateRFQsInput, actor entity.Actor) (*service.RFQOutcome, error)
}

func (m *mockRFQService) CreateRFQs(ctx context.Context, requisitionID int64, input service.CreateRFQsInput, actor entity.Actor) (*service.RFQOutcome, error) {
	return m.createRFQsFunc(ctx, requisitionID, input, actor)
}

type mockComparisonService struct {
	service.ComparisonService
	compareFunc func(ctx context.Context, requisitionID int64, mode, projectFilter string) (*comparison.Result, error)
	exportFunc  func(ctx context.Context, requisitionID int64, mode, projectFilter string) (*service.ExportedComparison, error)
}

func (m *mockComparisonService) Compare(ctx context.Context, requisitionID int64, mode, projectFilter string) (*comparison.Result, error) {
	return m.compareFunc(ctx, requisitionID, mode, projectFilter)
}

func (m *mockComparisonService) Export(ctx context.Context, requisitionID int64, mode, projectFilter string) (*service.ExportedComparison, error) {
	return m.exportFunc(ctx, requisitionID, mode, projectFilter)
}

type mockConfirmationService struct {
	service.ConfirmationService
	confirmLineFunc  func(ctx context.Context, input service.ConfirmLineInput, actor entity.Actor) (*service.LineOutcome, error)
	confirmOrderFunc func(ctx context.Context, quoteID int64, allQuoteIDs []int64, actor entity.Actor) (*service.OrderConfirmation, error)
}

func (m *mockConfirmationService) ConfirmLine(ctx context.Context, input service.ConfirmLineInput, actor entity.Actor) (*service.LineOutcome, error) {
	return m.confirmLineFunc(ctx, input, actor)
}

func (m *mockConfirmationService) ConfirmOrder(ctx context.Context, quoteID int64, allQuoteIDs []int64, actor entity.Actor) (*service.OrderConfirmation, error) {
	return m.confirmOrderFunc(ctx, quoteID, allQuoteIDs, actor)
}

type mockMasterDataService struct {
	service.MasterDataService
	listVendorsFunc func(ctx context.Context) ([]*entity.Vendor, error)
}

func (m *mockMasterDataService) ListVendors(ctx context.Context) ([]*entity.Vendor, error) {
	return m.listVendorsFunc(ctx)
}
