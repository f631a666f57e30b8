package porttest

import (
	"context"
	"time"

	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

func cloneRequest(r *entity.ApprovalRequest) *entity.ApprovalRequest {
	cp := *r
	cp.Lines = nil
	return &cp
}

func cloneRequisition(r *entity.Requisition) *entity.Requisition {
	cp := *r
	cp.Lines = make([]*entity.RequisitionLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		line := *l
		cp.Lines = append(cp.Lines, &line)
	}
	return &cp
}

func cloneQuote(q *entity.VendorQuote) *entity.VendorQuote {
	cp := *q
	cp.Lines = nil
	return &cp
}

// levels

type levelRepo struct{ s *Store }

func (r *levelRepo) Create(ctx context.Context, config *entity.ApprovalLevelConfig) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("levels.create"); err != nil {
		return err
	}
	for _, existing := range r.s.levels {
		if existing.CompanyID == config.CompanyID && existing.LevelNumber == config.LevelNumber {
			return entity.ErrDuplicateLevel
		}
	}
	config.ID = r.s.id()
	stamp(&config.CreatedAt)
	config.UpdatedAt = config.CreatedAt
	cp := *config
	r.s.levels[cp.ID] = &cp
	return nil
}

func (r *levelRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalLevelConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.levels[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *levelRepo) ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*entity.ApprovalLevelConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("levels.list"); err != nil {
		return nil, err
	}
	var out []*entity.ApprovalLevelConfig
	for _, c := range r.s.levels {
		if c.CompanyID != companyID || (activeOnly && !c.Active) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sortByID(out, func(c *entity.ApprovalLevelConfig) int64 { return int64(c.LevelNumber) })
	return out, nil
}

func (r *levelRepo) Deactivate(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.levels[id]
	if !ok {
		return entity.ErrLevelNotFound
	}
	c.Active = false
	return nil
}

// groups

type groupRepo struct{ s *Store }

func (r *groupRepo) Create(ctx context.Context, group *entity.ApproverGroup) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	group.ID = r.s.id()
	stamp(&group.CreatedAt)
	cp := *group
	r.s.groups[cp.ID] = &cp
	return nil
}

func (r *groupRepo) List(ctx context.Context) ([]*entity.ApproverGroup, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ApproverGroup
	for _, g := range r.s.groups {
		cp := *g
		out = append(out, &cp)
	}
	sortByID(out, func(g *entity.ApproverGroup) int64 { return g.ID })
	return out, nil
}

// approval requests

type requestRepo struct{ s *Store }

func (r *requestRepo) Create(ctx context.Context, req *entity.ApprovalRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("requests.create"); err != nil {
		return err
	}
	req.ID = r.s.id()
	req.Version = 1
	stamp(&req.CreatedAt)
	req.UpdatedAt = req.CreatedAt
	r.s.requests[req.ID] = cloneRequest(req)
	for _, line := range req.Lines {
		line.ID = r.s.id()
		line.RequestID = req.ID
		cp := *line
		r.s.requestLines[cp.ID] = &cp
	}
	return nil
}

func (r *requestRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("requests.get"); err != nil {
		return nil, err
	}
	req, ok := r.s.requests[id]
	if !ok {
		return nil, nil
	}
	out := cloneRequest(req)
	for _, line := range r.s.requestLines {
		if line.RequestID == id {
			cp := *line
			out.Lines = append(out.Lines, &cp)
		}
	}
	sortByID(out.Lines, func(l *entity.ApprovalRequestLine) int64 { return l.ID })
	return out, nil
}

func (r *requestRepo) Update(ctx context.Context, req *entity.ApprovalRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("requests.update"); err != nil {
		return err
	}
	stored, ok := r.s.requests[req.ID]
	if !ok {
		return entity.ErrApprovalRequestNotFound
	}
	if stored.Version != req.Version {
		return entity.ErrVersionConflict
	}
	req.Version++
	req.UpdatedAt = time.Now()
	r.s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (r *requestRepo) AddLine(ctx context.Context, line *entity.ApprovalRequestLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	line.ID = r.s.id()
	cp := *line
	r.s.requestLines[cp.ID] = &cp
	return nil
}

func (r *requestRepo) UpdateLine(ctx context.Context, line *entity.ApprovalRequestLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requestLines[line.ID]; !ok {
		return entity.ErrInvalidInput
	}
	cp := *line
	r.s.requestLines[cp.ID] = &cp
	return nil
}

func (r *requestRepo) DeleteLine(ctx context.Context, lineID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.requestLines, lineID)
	return nil
}

func (r *requestRepo) GetLine(ctx context.Context, lineID int64) (*entity.ApprovalRequestLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	line, ok := r.s.requestLines[lineID]
	if !ok {
		return nil, nil
	}
	cp := *line
	return &cp, nil
}

// approval history

type approvalHistoryRepo struct{ s *Store }

func (r *approvalHistoryRepo) Append(ctx context.Context, entry *entity.ApprovalHistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("approval_history.append"); err != nil {
		return err
	}
	entry.ID = r.s.id()
	stamp(&entry.CreatedAt)
	cp := *entry
	r.s.approvalHistory = append(r.s.approvalHistory, &cp)
	return nil
}

func (r *approvalHistoryRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.ApprovalHistoryEntry, error) {
	return r.s.ApprovalHistoryFor(requestID), nil
}

// requisitions

type requisitionRepo struct{ s *Store }

func (r *requisitionRepo) Create(ctx context.Context, req *entity.Requisition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("requisitions.create"); err != nil {
		return err
	}
	req.ID = r.s.id()
	req.Version = 1
	stamp(&req.CreatedAt)
	req.UpdatedAt = req.CreatedAt
	for _, line := range req.Lines {
		line.ID = r.s.id()
		line.RequisitionID = req.ID
	}
	r.s.requisitions[req.ID] = cloneRequisition(req)
	return nil
}

func (r *requisitionRepo) GetByID(ctx context.Context, id int64) (*entity.Requisition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("requisitions.get"); err != nil {
		return nil, err
	}
	req, ok := r.s.requisitions[id]
	if !ok {
		return nil, nil
	}
	return cloneRequisition(req), nil
}

func (r *requisitionRepo) Update(ctx context.Context, req *entity.Requisition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("requisitions.update"); err != nil {
		return err
	}
	stored, ok := r.s.requisitions[req.ID]
	if !ok {
		return entity.ErrRequisitionNotFound
	}
	if stored.Version != req.Version {
		return entity.ErrVersionConflict
	}
	req.Version++
	req.UpdatedAt = time.Now()
	updated := cloneRequisition(req)
	updated.Lines = stored.Lines
	r.s.requisitions[req.ID] = updated
	return nil
}

func (r *requisitionRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.requisitions, id)
	return nil
}

// requisition history

type requisitionHistoryRepo struct{ s *Store }

func (r *requisitionHistoryRepo) Append(ctx context.Context, entry *entity.RequisitionHistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("requisition_history.append"); err != nil {
		return err
	}
	entry.ID = r.s.id()
	stamp(&entry.CreatedAt)
	cp := *entry
	r.s.reqHistory = append(r.s.reqHistory, &cp)
	return nil
}

func (r *requisitionHistoryRepo) ListByRequisition(ctx context.Context, requisitionID int64) ([]*entity.RequisitionHistoryEntry, error) {
	entries := r.s.RequisitionHistoryFor(requisitionID)
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (r *requisitionHistoryRepo) CountByRequisition(ctx context.Context, requisitionID int64) (int, error) {
	return len(r.s.RequisitionHistoryFor(requisitionID)), nil
}

// vendors and products

type vendorRepo struct{ s *Store }

func (r *vendorRepo) Create(ctx context.Context, vendor *entity.Vendor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	vendor.ID = r.s.id()
	stamp(&vendor.CreatedAt)
	cp := *vendor
	r.s.vendors[cp.ID] = &cp
	return nil
}

func (r *vendorRepo) GetByID(ctx context.Context, id int64) (*entity.Vendor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vendors[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *vendorRepo) List(ctx context.Context) ([]*entity.Vendor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Vendor
	for _, v := range r.s.vendors {
		cp := *v
		out = append(out, &cp)
	}
	sortByID(out, func(v *entity.Vendor) int64 { return v.ID })
	return out, nil
}

// DeleteVendor simulates a vendor removed concurrently
func (s *Store) DeleteVendor(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vendors, id)
}

type productRepo struct{ s *Store }

func (r *productRepo) Create(ctx context.Context, product *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product.ID = r.s.id()
	cp := *product
	r.s.products[cp.ID] = &cp
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// quotes

type quoteRepo struct{ s *Store }

func (r *quoteRepo) Create(ctx context.Context, quote *entity.VendorQuote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("quotes.create"); err != nil {
		return err
	}
	for _, q := range r.s.quotes {
		if q.RequisitionID == quote.RequisitionID && q.VendorID == quote.VendorID {
			return entity.ErrDuplicateVendorQuote
		}
	}
	quote.ID = r.s.id()
	stamp(&quote.CreatedAt)
	quote.UpdatedAt = quote.CreatedAt
	r.s.quotes[quote.ID] = cloneQuote(quote)
	for _, line := range quote.Lines {
		line.ID = r.s.id()
		line.QuoteID = quote.ID
		cp := *line
		r.s.quoteLines[cp.ID] = &cp
	}
	return nil
}

func (r *quoteRepo) withLines(q *entity.VendorQuote) *entity.VendorQuote {
	out := cloneQuote(q)
	for _, line := range r.s.quoteLines {
		if line.QuoteID == q.ID {
			cp := *line
			out.Lines = append(out.Lines, &cp)
		}
	}
	sortByID(out.Lines, func(l *entity.QuoteLine) int64 { return l.ID })
	return out
}

func (r *quoteRepo) GetByID(ctx context.Context, id int64) (*entity.VendorQuote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.quotes[id]
	if !ok {
		return nil, nil
	}
	return r.withLines(q), nil
}

func (r *quoteRepo) ListByRequisition(ctx context.Context, requisitionID int64) ([]*entity.VendorQuote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.VendorQuote
	for _, q := range r.s.quotes {
		if q.RequisitionID == requisitionID {
			out = append(out, r.withLines(q))
		}
	}
	sortByID(out, func(q *entity.VendorQuote) int64 { return q.ID })
	return out, nil
}

func (r *quoteRepo) ExistsForVendor(ctx context.Context, requisitionID, vendorID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, q := range r.s.quotes {
		if q.RequisitionID == requisitionID && q.VendorID == vendorID {
			return true, nil
		}
	}
	return false, nil
}

func (r *quoteRepo) UpdateState(ctx context.Context, id int64, state entity.QuoteState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("quotes.update_state"); err != nil {
		return err
	}
	q, ok := r.s.quotes[id]
	if !ok {
		return entity.ErrOrderNotFound
	}
	q.State = state
	q.UpdatedAt = time.Now()
	return nil
}

func (r *quoteRepo) GetLine(ctx context.Context, lineID int64) (*entity.QuoteLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	line, ok := r.s.quoteLines[lineID]
	if !ok {
		return nil, nil
	}
	cp := *line
	return &cp, nil
}

func (r *quoteRepo) UpdateLine(ctx context.Context, line *entity.QuoteLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.quoteLines[line.ID]; !ok {
		return entity.ErrLineNotFound
	}
	cp := *line
	r.s.quoteLines[cp.ID] = &cp
	return nil
}

func (r *quoteRepo) DeleteLine(ctx context.Context, lineID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.quoteLines, lineID)
	return nil
}

// purchase orders

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(ctx context.Context, order *entity.PurchaseOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("orders.create"); err != nil {
		return err
	}
	order.ID = r.s.id()
	stamp(&order.CreatedAt)
	cp := *order
	r.s.orders[cp.ID] = &cp
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *orderRepo) ListByRequisition(ctx context.Context, requisitionID int64) ([]*entity.PurchaseOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.PurchaseOrder
	for _, o := range r.s.orders {
		if o.RequisitionID == requisitionID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sortByID(out, func(o *entity.PurchaseOrder) int64 { return o.ID })
	return out, nil
}

// followers

type followerRepo struct{ s *Store }

func (r *followerRepo) Add(ctx context.Context, requisitionID, vendorID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, f := range r.s.followers {
		if f.RequisitionID == requisitionID && f.VendorID == vendorID {
			return false, nil
		}
	}
	r.s.followers = append(r.s.followers, &entity.RequisitionFollower{
		RequisitionID: requisitionID,
		VendorID:      vendorID,
		CreatedAt:     time.Now(),
	})
	return true, nil
}

func (r *followerRepo) ListByRequisition(ctx context.Context, requisitionID int64) ([]*entity.RequisitionFollower, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.RequisitionFollower
	for _, f := range r.s.followers {
		if f.RequisitionID == requisitionID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

// sequences

type sequenceRepo struct{ s *Store }

func (r *sequenceRepo) Next(ctx context.Context, code string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sequences[code]++
	return r.s.sequences[code], nil
}
