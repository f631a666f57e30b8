package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/procurement-engine/internal/application/dispatcher"
	"github.com/garyjia/procurement-engine/internal/application/port/porttest"
	appwf "github.com/garyjia/procurement-engine/internal/application/workflow"
	"github.com/garyjia/procurement-engine/internal/domain/comparison"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	"github.com/garyjia/procurement-engine/internal/domain/event"
	domainwf "github.com/garyjia/procurement-engine/internal/domain/workflow"
)

const companyID int64 = 1

var (
	ctx       = context.Background()
	fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	requester = entity.Actor{ID: "emp-1", IP: "10.0.0.1"}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// mockDispatcher records events instead of running handlers
type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeAll(eventTypes []event.Type, name string, handler dispatcher.Handler) {}

func (m *mockDispatcher) Register(routes ...dispatcher.Route) error { return nil }

func (m *mockDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.DispatchAsync(ctx, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo {
	return nil
}

func (m *mockDispatcher) Close() error {
	return nil
}

func (m *mockDispatcher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]event.Type, 0, len(m.events))
	for _, evt := range m.events {
		types = append(types, evt.Type)
	}
	return types
}

func (m *mockDispatcher) last(eventType event.Type) *event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Type == eventType {
			return m.events[i]
		}
	}
	return nil
}

type mockExporter struct {
	exportFunc func(result *comparison.Result) ([]byte, error)
}

func (m *mockExporter) Export(result *comparison.Result) ([]byte, error) {
	if m.exportFunc != nil {
		return m.exportFunc(result)
	}
	return []byte("xlsx"), nil
}

type mockFileStorage struct {
	saved    map[string][]byte
	saveFunc func(ctx context.Context, path string, content []byte) error
}

func (m *mockFileStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, path, content)
	}
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[path] = content
	return nil
}

func (m *mockFileStorage) Read(ctx context.Context, path string) ([]byte, error) {
	return m.saved[path], nil
}

func (m *mockFileStorage) GetFullPath(relativePath string) string {
	return "/data/exports/" + relativePath
}

// fixture wires every service on one in-memory store
type fixture struct {
	store       *porttest.Store
	txManager   *porttest.TxManager
	locker      *porttest.Locker
	events      *mockDispatcher
	fulfillment *porttest.Fulfillment
	engine      appwf.RequisitionEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:       porttest.NewStore(),
		txManager:   &porttest.TxManager{},
		locker:      &porttest.Locker{},
		events:      &mockDispatcher{},
		fulfillment: &porttest.Fulfillment{},
	}
	f.engine = appwf.NewRequisitionEngine(
		f.store.Requisitions(),
		f.store.RequisitionHistory(),
		f.txManager,
		f.locker,
		porttest.Logger{},
		appwf.WithClock(func() time.Time { return fixedTime }),
	)
	return f
}

func (f *fixture) opts() []Option {
	return []Option{
		WithDispatcher(f.events),
		WithClock(func() time.Time { return fixedTime }),
	}
}

func (f *fixture) approvalService() ApprovalService {
	return NewApprovalService(
		f.store.Requests(),
		f.store.ApprovalHistory(),
		f.store.Levels(),
		f.store.Groups(),
		f.store.Products(),
		f.store.Sequences(),
		f.txManager,
		f.locker,
		f.fulfillment,
		porttest.Logger{},
		f.opts()...,
	)
}

func (f *fixture) levelService() ApprovalLevelService {
	return NewApprovalLevelService(f.store.Levels(), f.store.Groups(), porttest.Logger{})
}

func (f *fixture) requisitionService(warehouseFor WarehouseResolver) RequisitionService {
	return NewRequisitionService(
		f.store.Requisitions(),
		f.store.RequisitionHistory(),
		f.store.Products(),
		f.store.Quotes(),
		f.store.Sequences(),
		f.txManager,
		f.locker,
		f.engine,
		warehouseFor,
		porttest.Logger{},
		f.opts()...,
	)
}

func (f *fixture) rfqService() RFQService {
	return NewRFQService(
		f.store.Requisitions(),
		f.store.Quotes(),
		f.store.Vendors(),
		f.store.Sequences(),
		f.txManager,
		f.locker,
		f.engine,
		porttest.Logger{},
		f.opts()...,
	)
}

func (f *fixture) comparisonService(exporter *mockExporter, storage *mockFileStorage) ComparisonService {
	return NewComparisonService(
		f.store.Requisitions(),
		f.store.Quotes(),
		f.store.Vendors(),
		f.store.Products(),
		exporter,
		storage,
		porttest.Logger{},
		f.opts()...,
	)
}

func (f *fixture) confirmationService(policy ConfirmationPolicy) ConfirmationService {
	return NewConfirmationService(
		f.store.Requisitions(),
		f.store.Quotes(),
		f.store.Orders(),
		f.store.Followers(),
		f.store.Vendors(),
		f.store.Products(),
		f.store.Groups(),
		f.store.Sequences(),
		f.txManager,
		f.locker,
		f.engine,
		policy,
		porttest.Logger{},
		f.opts()...,
	)
}

func (f *fixture) product(t *testing.T, name string, tracking entity.TrackingMode) *entity.Product {
	t.Helper()
	p := &entity.Product{Name: name, Tracking: tracking, Uom: "Units"}
	require.NoError(t, f.store.Products().Create(ctx, p))
	return p
}

func (f *fixture) vendor(t *testing.T, name, openID string) *entity.Vendor {
	t.Helper()
	v := &entity.Vendor{Name: name, LarkOpenID: openID}
	require.NoError(t, f.store.Vendors().Create(ctx, v))
	return v
}

func (f *fixture) group(t *testing.T, name string, parent *entity.ApproverGroup) *entity.ApproverGroup {
	t.Helper()
	g := &entity.ApproverGroup{Name: name}
	if parent != nil {
		g.ParentID = &parent.ID
	}
	require.NoError(t, f.store.Groups().Create(ctx, g))
	return g
}

func (f *fixture) fixedLevel(t *testing.T, number int, groups ...int64) *entity.ApprovalLevelConfig {
	t.Helper()
	c := &entity.ApprovalLevelConfig{
		CompanyID:        companyID,
		LevelNumber:      number,
		Name:             "Fixed",
		ApprovalType:     entity.ApprovalTypeFixed,
		ApproverGroupIDs: groups,
		Active:           true,
	}
	require.NoError(t, f.store.Levels().Create(ctx, c))
	return c
}

func (f *fixture) amountLevel(t *testing.T, number int, min string, max string, groups ...int64) *entity.ApprovalLevelConfig {
	t.Helper()
	c := &entity.ApprovalLevelConfig{
		CompanyID:        companyID,
		LevelNumber:      number,
		Name:             "Amount",
		ApprovalType:     entity.ApprovalTypeAmountBased,
		MinAmount:        dec(min),
		ApproverGroupIDs: groups,
		Active:           true,
	}
	if max != "" {
		m := dec(max)
		c.MaxAmount = &m
	}
	require.NoError(t, f.store.Levels().Create(ctx, c))
	return c
}

// requisition stores a requisition directly in the given state
func (f *fixture) requisition(t *testing.T, state domainwf.State, lines ...*entity.RequisitionLine) *entity.Requisition {
	t.Helper()
	req := &entity.Requisition{
		Name:       "PR/00042",
		EmployeeID: requester.ID,
		CompanyID:  companyID,
		Project:    "Tower A",
		State:      state,
		Lines:      lines,
	}
	require.NoError(t, f.store.Requisitions().Create(ctx, req))
	return req
}

// quote stores a sent quote directly
func (f *fixture) quote(t *testing.T, req *entity.Requisition, vendor *entity.Vendor, name string, lines ...*entity.QuoteLine) *entity.VendorQuote {
	t.Helper()
	q := &entity.VendorQuote{
		Name:          name,
		RequisitionID: req.ID,
		VendorID:      vendor.ID,
		RFQType:       entity.RFQTypeAllToAll,
		State:         entity.QuoteStateSent,
		Lines:         lines,
	}
	require.NoError(t, f.store.Quotes().Create(ctx, q))
	return q
}

func quoteLine(productID int64, qty, price string, delivery time.Time) *entity.QuoteLine {
	return &entity.QuoteLine{
		ProductID:       productID,
		Quantity:        dec(qty),
		UnitPrice:       dec(price),
		TaxAmount:       decimal.Zero,
		PlannedDelivery: delivery,
	}
}

func (f *fixture) requisitionState(t *testing.T, id int64) domainwf.State {
	t.Helper()
	req, err := f.store.Requisitions().GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, req)
	return req.State
}

func (f *fixture) quoteState(t *testing.T, id int64) entity.QuoteState {
	t.Helper()
	q, err := f.store.Quotes().GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, q)
	return q.State
}
