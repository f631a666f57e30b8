// Package porttest provides in-memory implementations of the application ports for tests.
package porttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

// Store keeps every entity in memory. Entities are copied on the way in and out
// so tests observe the same aliasing rules as a real database.
type Store struct {
	mu sync.Mutex

	nextID    int64
	sequences map[string]int64
	failures  map[string]error

	levels          map[int64]*entity.ApprovalLevelConfig
	groups          map[int64]*entity.ApproverGroup
	requests        map[int64]*entity.ApprovalRequest
	requestLines    map[int64]*entity.ApprovalRequestLine
	approvalHistory []*entity.ApprovalHistoryEntry
	requisitions    map[int64]*entity.Requisition
	reqHistory      []*entity.RequisitionHistoryEntry
	vendors         map[int64]*entity.Vendor
	products        map[int64]*entity.Product
	quotes          map[int64]*entity.VendorQuote
	quoteLines      map[int64]*entity.QuoteLine
	orders          map[int64]*entity.PurchaseOrder
	followers       []*entity.RequisitionFollower
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		sequences:    make(map[string]int64),
		failures:     make(map[string]error),
		levels:       make(map[int64]*entity.ApprovalLevelConfig),
		groups:       make(map[int64]*entity.ApproverGroup),
		requests:     make(map[int64]*entity.ApprovalRequest),
		requestLines: make(map[int64]*entity.ApprovalRequestLine),
		requisitions: make(map[int64]*entity.Requisition),
		vendors:      make(map[int64]*entity.Vendor),
		products:     make(map[int64]*entity.Product),
		quotes:       make(map[int64]*entity.VendorQuote),
		quoteLines:   make(map[int64]*entity.QuoteLine),
		orders:       make(map[int64]*entity.PurchaseOrder),
	}
}

// FailOn makes the named operation (e.g. "requisition_history.append") return err
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) fail(op string) error {
	return s.failures[op]
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Repository accessors

func (s *Store) Levels() port.ApprovalLevelRepository {
	return &levelRepo{s}
}

func (s *Store) Groups() port.ApproverGroupRepository {
	return &groupRepo{s}
}

func (s *Store) Requests() port.ApprovalRequestRepository {
	return &requestRepo{s}
}

func (s *Store) ApprovalHistory() port.ApprovalHistoryRepository {
	return &approvalHistoryRepo{s}
}

func (s *Store) Requisitions() port.RequisitionRepository {
	return &requisitionRepo{s}
}

func (s *Store) RequisitionHistory() port.RequisitionHistoryRepository {
	return &requisitionHistoryRepo{s}
}

func (s *Store) Vendors() port.VendorRepository {
	return &vendorRepo{s}
}

func (s *Store) Products() port.ProductRepository {
	return &productRepo{s}
}

func (s *Store) Quotes() port.QuoteRepository {
	return &quoteRepo{s}
}

func (s *Store) Orders() port.PurchaseOrderRepository {
	return &orderRepo{s}
}

func (s *Store) Followers() port.FollowerRepository {
	return &followerRepo{s}
}

func (s *Store) Sequences() port.SequenceRepository {
	return &sequenceRepo{s}
}

// Inspection helpers

// RequisitionHistoryFor returns the requisition history oldest first
func (s *Store) RequisitionHistoryFor(requisitionID int64) []*entity.RequisitionHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.RequisitionHistoryEntry
	for _, h := range s.reqHistory {
		if h.RequisitionID == requisitionID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out
}

// ApprovalHistoryFor returns the approval history oldest first
func (s *Store) ApprovalHistoryFor(requestID int64) []*entity.ApprovalHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.ApprovalHistoryEntry
	for _, h := range s.approvalHistory {
		if h.RequestID == requestID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out
}

// OrdersFor returns the purchase orders of a requisition ordered by id
func (s *Store) OrdersFor(requisitionID int64) []*entity.PurchaseOrder {
	orders, _ := (&orderRepo{s}).ListByRequisition(context.Background(), requisitionID)
	return orders
}

// FollowerIDs returns the subscribed vendor ids of a requisition
func (s *Store) FollowerIDs(requisitionID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, f := range s.followers {
		if f.RequisitionID == requisitionID {
			ids = append(ids, f.VendorID)
		}
	}
	return ids
}

// TxManager runs the function directly and counts calls
type TxManager struct {
	mu    sync.Mutex
	Calls int
	Err   error
}

// WithTransaction implements port.TransactionManager
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.Calls++
	err := m.Err
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return fn(ctx)
}

// Locker records lock keys and can be made to fail
type Locker struct {
	mu   sync.Mutex
	Keys []string
	Err  error
	held map[string]bool
}

// Lock implements port.EntityLocker; it refuses re-entrant locking to catch deadlocks in tests
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return nil, entity.ErrEntityBusy
	}
	l.held[key] = true
	l.Keys = append(l.Keys, key)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

// Message is one text sent through MessageSender
type Message struct {
	OpenID string
	Text   string
}

// MessageSender records messages
type MessageSender struct {
	mu       sync.Mutex
	Messages []Message
	Err      error
}

// SendText implements port.MessageSender
func (m *MessageSender) SendText(ctx context.Context, openID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, Message{OpenID: openID, Text: text})
	return nil
}

// Sent returns a copy of the recorded messages
func (m *MessageSender) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.Messages...)
}

// Fulfillment records fulfilled requests
type Fulfillment struct {
	Fulfilled []int64
	Err       error
}

// Fulfill implements port.StockFulfillment
func (f *Fulfillment) Fulfill(ctx context.Context, req *entity.ApprovalRequest) error {
	if f.Err != nil {
		return f.Err
	}
	f.Fulfilled = append(f.Fulfilled, req.ID)
	return nil
}

// Logger discards log lines
type Logger struct{}

func (Logger) Info(msg string, keysAndValues ...interface{})  {}
func (Logger) Error(msg string, keysAndValues ...interface{}) {}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

func sortByID[T any](items []T, id func(T) int64) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}
