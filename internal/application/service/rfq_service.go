package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-engine/internal/application/port"
	appwf "github.com/garyjia/procurement-engine/internal/application/workflow"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	"github.com/garyjia/procurement-engine/internal/domain/event"
	domainwf "github.com/garyjia/procurement-engine/internal/domain/workflow"
)

// CreateRFQsInput selects vendors and lines for an RFQ round
type CreateRFQsInput struct {
	Type              entity.RFQType           `json:"type"`
	VendorID          int64                    `json:"vendor_id,omitempty"`
	VendorIDs         []int64                  `json:"vendor_ids,omitempty"`
	LineIDs           []int64                  `json:"line_ids,omitempty"`
	ZeroPriceDecision entity.ZeroPriceDecision `json:"zero_price_decision,omitempty"`
	Notes             string                   `json:"notes,omitempty"`
}

// ZeroPriceDecisionNeeded is returned instead of creating RFQs when zero priced
// lines are present and the caller has not decided what to do with them
type ZeroPriceDecisionNeeded struct {
	ZeroCount  int  `json:"zero_count"`
	TotalLines int  `json:"total_lines"`
	Mixed      bool `json:"mixed"`
}

// RFQOutcome is the result of CreateRFQs. Exactly one of NeedsDecision and Quotes is set.
type RFQOutcome struct {
	NeedsDecision *ZeroPriceDecisionNeeded  `json:"needs_decision,omitempty"`
	Quotes        []*entity.VendorQuote     `json:"quotes,omitempty"`
	Transitions   []*appwf.TransitionResult `json:"transitions,omitempty"`
}

// QuoteLineInput is a vendor's answer for one quote line
type QuoteLineInput struct {
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	PlannedDelivery time.Time       `json:"planned_delivery"`
}

// RFQService dispatches requests for quotation and maintains the resulting quotes
type RFQService interface {
	CreateRFQs(ctx context.Context, requisitionID int64, input CreateRFQsInput, actor entity.Actor) (*RFQOutcome, error)
	ListQuotes(ctx context.Context, requisitionID int64) ([]*entity.VendorQuote, error)
	UpdateQuoteLine(ctx context.Context, lineID int64, input QuoteLineInput) (*entity.QuoteLine, error)
	RemoveQuoteLine(ctx context.Context, lineID int64, actor entity.Actor) error
}

type rfqServiceImpl struct {
	requisitionRepo port.RequisitionRepository
	quoteRepo       port.QuoteRepository
	vendorRepo      port.VendorRepository
	sequenceRepo    port.SequenceRepository
	txManager       port.TransactionManager
	locker          port.EntityLocker
	engine          appwf.RequisitionEngine
	logger          Logger
	options
}

// NewRFQService creates a new RFQService
func NewRFQService(
	requisitionRepo port.RequisitionRepository,
	quoteRepo port.QuoteRepository,
	vendorRepo port.VendorRepository,
	sequenceRepo port.SequenceRepository,
	txManager port.TransactionManager,
	locker port.EntityLocker,
	engine appwf.RequisitionEngine,
	logger Logger,
	opts ...Option,
) RFQService {
	return &rfqServiceImpl{
		requisitionRepo: requisitionRepo,
		quoteRepo:       quoteRepo,
		vendorRepo:      vendorRepo,
		sequenceRepo:    sequenceRepo,
		txManager:       txManager,
		locker:          locker,
		engine:          engine,
		logger:          logger,
		options:         newOptions(opts),
	}
}

// CreateRFQs creates one sent quote per vendor and moves the requisition into comparison
func (s *rfqServiceImpl) CreateRFQs(ctx context.Context, requisitionID int64, input CreateRFQsInput, actor entity.Actor) (*RFQOutcome, error) {
	vendorIDs, err := rfqVendors(input)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, port.RequisitionLockKey(requisitionID))
	if err != nil {
		logFailure(s.logger, "Failed to lock requisition", err, "requisition_id", requisitionID)
		return nil, err
	}
	defer unlock()

	outcome := &RFQOutcome{}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requisitionRepo.GetByID(txCtx, requisitionID)
		if err != nil {
			return fmt.Errorf("failed to load requisition: %w", err)
		}
		if req == nil {
			return fmt.Errorf("%w: id %d", entity.ErrRequisitionNotFound, requisitionID)
		}

		lines, err := selectLines(req, input.LineIDs)
		if err != nil {
			return err
		}
		lines, decision, err := applyZeroPriceDecision(lines, input.ZeroPriceDecision)
		if err != nil {
			return err
		}
		if decision != nil {
			outcome.NeedsDecision = decision
			return nil
		}

		for _, vendorID := range vendorIDs {
			if err := s.checkVendor(txCtx, requisitionID, vendorID); err != nil {
				return err
			}
		}

		created, err := s.engine.Apply(txCtx, req, domainwf.TriggerCreateRFQs, actor, input.Notes, appwf.WithVendorCount(len(vendorIDs)))
		if err != nil {
			return err
		}
		outcome.Transitions = append(outcome.Transitions, created)

		for _, vendorID := range vendorIDs {
			quote, err := s.createQuote(txCtx, req, vendorID, input.Type, lines)
			if err != nil {
				return err
			}
			outcome.Quotes = append(outcome.Quotes, quote)
		}

		started, err := s.engine.Apply(txCtx, req, domainwf.TriggerStartComparison, actor, fmt.Sprintf("%d RFQs sent", len(outcome.Quotes)))
		if err != nil {
			return err
		}
		outcome.Transitions = append(outcome.Transitions, started)
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Failed to create RFQs", err,
			"requisition_id", requisitionID,
			"rfq_type", input.Type,
			"vendors", len(vendorIDs),
		)
		return nil, err
	}

	if outcome.NeedsDecision != nil {
		s.logger.Info("RFQ creation needs a zero price decision",
			"requisition_id", requisitionID,
			"zero_count", outcome.NeedsDecision.ZeroCount,
		)
		return outcome, nil
	}

	s.logger.Info("RFQs created",
		"requisition_id", requisitionID,
		"quotes", len(outcome.Quotes),
		"actor_id", actor.ID,
	)
	s.publish(ctx, transitionEvents(outcome.Transitions...)...)
	return outcome, nil
}

func (s *rfqServiceImpl) ListQuotes(ctx context.Context, requisitionID int64) ([]*entity.VendorQuote, error) {
	quotes, err := s.quoteRepo.ListByRequisition(ctx, requisitionID)
	if err != nil {
		s.logger.Error("Failed to list quotes", "error", err, "requisition_id", requisitionID)
		return nil, err
	}
	return quotes, nil
}

// UpdateQuoteLine records the vendor's price and delivery date on an open quote
func (s *rfqServiceImpl) UpdateQuoteLine(ctx context.Context, lineID int64, input QuoteLineInput) (*entity.QuoteLine, error) {
	if input.UnitPrice.IsNegative() || input.TaxAmount.IsNegative() {
		return nil, fmt.Errorf("%w: price and tax cannot be negative", entity.ErrInvalidInput)
	}

	var line *entity.QuoteLine
	err := s.withQuoteLine(ctx, lineID, func(txCtx context.Context, quote *entity.VendorQuote, l *entity.QuoteLine) error {
		l.UnitPrice = input.UnitPrice
		l.TaxAmount = input.TaxAmount
		if !input.PlannedDelivery.IsZero() {
			l.PlannedDelivery = input.PlannedDelivery
		}
		if err := s.quoteRepo.UpdateLine(txCtx, l); err != nil {
			return fmt.Errorf("failed to update quote line: %w", err)
		}
		line = l
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Failed to update quote line", err, "line_id", lineID)
		return nil, err
	}
	return line, nil
}

// RemoveQuoteLine deletes a line from an open quote
func (s *rfqServiceImpl) RemoveQuoteLine(ctx context.Context, lineID int64, actor entity.Actor) error {
	err := s.withQuoteLine(ctx, lineID, func(txCtx context.Context, quote *entity.VendorQuote, l *entity.QuoteLine) error {
		if err := s.quoteRepo.DeleteLine(txCtx, lineID); err != nil {
			return fmt.Errorf("failed to delete quote line: %w", err)
		}
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Failed to remove quote line", err, "line_id", lineID)
		return err
	}

	s.logger.Info("Quote line removed", "line_id", lineID, "actor_id", actor.ID)
	return nil
}

// withQuoteLine locks the owning requisition and re-reads the line inside the transaction
func (s *rfqServiceImpl) withQuoteLine(ctx context.Context, lineID int64, fn func(txCtx context.Context, quote *entity.VendorQuote, line *entity.QuoteLine) error) error {
	_, quote, err := s.loadLine(ctx, lineID)
	if err != nil {
		return err
	}

	unlock, err := s.locker.Lock(ctx, port.RequisitionLockKey(quote.RequisitionID))
	if err != nil {
		return err
	}
	defer unlock()

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		line, quote, err := s.loadLine(txCtx, lineID)
		if err != nil {
			return err
		}
		if !quote.IsOpen() {
			return fmt.Errorf("%w: quote %s is %s", entity.ErrQuoteNotConfirmable, quote.Name, quote.State)
		}
		return fn(txCtx, quote, line)
	})
}

func (s *rfqServiceImpl) loadLine(ctx context.Context, lineID int64) (*entity.QuoteLine, *entity.VendorQuote, error) {
	line, err := s.quoteRepo.GetLine(ctx, lineID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load quote line: %w", err)
	}
	if line == nil {
		return nil, nil, fmt.Errorf("%w: id %d", entity.ErrLineNotFound, lineID)
	}
	quote, err := s.quoteRepo.GetByID(ctx, line.QuoteID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load quote: %w", err)
	}
	if quote == nil {
		return nil, nil, fmt.Errorf("%w: id %d", entity.ErrLineNotFound, lineID)
	}
	return line, quote, nil
}

func (s *rfqServiceImpl) checkVendor(ctx context.Context, requisitionID, vendorID int64) error {
	vendor, err := s.vendorRepo.GetByID(ctx, vendorID)
	if err != nil {
		return fmt.Errorf("failed to load vendor: %w", err)
	}
	if vendor == nil {
		return fmt.Errorf("%w: id %d", entity.ErrVendorNotFound, vendorID)
	}
	exists, err := s.quoteRepo.ExistsForVendor(ctx, requisitionID, vendorID)
	if err != nil {
		return fmt.Errorf("failed to check existing quotes: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", entity.ErrDuplicateVendorQuote, vendor.Name)
	}
	return nil
}

func (s *rfqServiceImpl) createQuote(ctx context.Context, req *entity.Requisition, vendorID int64, rfqType entity.RFQType, lines []*entity.RequisitionLine) (*entity.VendorQuote, error) {
	next, err := s.sequenceRepo.Next(ctx, entity.SequenceRFQ)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate RFQ name: %w", err)
	}

	now := s.now()
	quote := &entity.VendorQuote{
		Name:          entity.FormatReference(entity.SequenceRFQ, next),
		RequisitionID: req.ID,
		VendorID:      vendorID,
		RFQType:       rfqType,
		State:         entity.QuoteStateSent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, line := range lines {
		quote.Lines = append(quote.Lines, &entity.QuoteLine{
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			TaxAmount:       decimal.Zero,
			PlannedDelivery: now,
		})
	}

	if err := s.quoteRepo.Create(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}
	return quote, nil
}

// rfqVendors validates the RFQ type and returns the distinct vendors to solicit
func rfqVendors(input CreateRFQsInput) ([]int64, error) {
	switch input.Type {
	case entity.RFQTypeAllToOne:
		if input.VendorID == 0 {
			return nil, entity.ErrVendorRequired
		}
		return []int64{input.VendorID}, nil
	case entity.RFQTypeAllToAll:
		if len(input.VendorIDs) == 0 {
			return nil, entity.ErrNoVendors
		}
		seen := make(map[int64]bool, len(input.VendorIDs))
		for _, id := range input.VendorIDs {
			if seen[id] {
				return nil, fmt.Errorf("%w: vendor %d listed twice", entity.ErrDuplicateVendorQuote, id)
			}
			seen[id] = true
		}
		return input.VendorIDs, nil
	default:
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidRFQType, input.Type)
	}
}

// selectLines returns the chosen requisition lines that reference a product,
// or all such lines when no ids are given
func selectLines(req *entity.Requisition, lineIDs []int64) ([]*entity.RequisitionLine, error) {
	byID := make(map[int64]*entity.RequisitionLine, len(req.Lines))
	for _, line := range req.Lines {
		byID[line.ID] = line
	}

	var chosen []*entity.RequisitionLine
	if len(lineIDs) == 0 {
		chosen = req.Lines
	} else {
		for _, id := range lineIDs {
			line, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: requisition line %d", entity.ErrInvalidInput, id)
			}
			chosen = append(chosen, line)
		}
	}

	var lines []*entity.RequisitionLine
	for _, line := range chosen {
		if line.ProductID > 0 {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, entity.ErrNoRequisitionLines
	}
	return lines, nil
}

// applyZeroPriceDecision filters zero priced lines. With the ask decision it
// reports the situation instead of choosing.
func applyZeroPriceDecision(lines []*entity.RequisitionLine, decision entity.ZeroPriceDecision) ([]*entity.RequisitionLine, *ZeroPriceDecisionNeeded, error) {
	var priced []*entity.RequisitionLine
	for _, line := range lines {
		if line.UnitPrice.IsPositive() {
			priced = append(priced, line)
		}
	}
	zeroCount := len(lines) - len(priced)
	if zeroCount == 0 {
		return lines, nil, nil
	}

	switch decision {
	case entity.ZeroPriceInclude:
		return lines, nil, nil
	case entity.ZeroPriceExclude:
		if len(priced) == 0 {
			return nil, nil, entity.ErrNoPricedLines
		}
		return priced, nil, nil
	case entity.ZeroPriceAsk, "":
		return nil, &ZeroPriceDecisionNeeded{
			ZeroCount:  zeroCount,
			TotalLines: len(lines),
			Mixed:      len(priced) > 0,
		}, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown zero price decision %q", entity.ErrInvalidInput, decision)
	}
}

// transitionEvents collects the events of committed transitions
func transitionEvents(results ...*appwf.TransitionResult) []*event.Event {
	events := make([]*event.Event, 0, len(results))
	for _, r := range results {
		if r != nil {
			events = append(events, r.Event)
		}
	}
	return events
}

var _ RFQService = (*rfqServiceImpl)(nil)
