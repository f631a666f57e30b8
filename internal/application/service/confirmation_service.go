package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-engine/internal/application/port"
	appwf "github.com/garyjia/procurement-engine/internal/application/workflow"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	"github.com/garyjia/procurement-engine/internal/domain/event"
	"github.com/garyjia/procurement-engine/internal/domain/hierarchy"
	domainwf "github.com/garyjia/procurement-engine/internal/domain/workflow"
)

// ConfirmationPolicy holds the standing rules applied when orders are committed
type ConfirmationPolicy struct {
	// TwoStepValidation requires a manager for orders at or above DoubleValidationAmount
	TwoStepValidation      bool
	DoubleValidationAmount decimal.Decimal
	ManagerGroupID         int64

	AutoSubscribeVendor bool
}

// AutoApproves reports whether an order of the given total is approved right away
func (p ConfirmationPolicy) AutoApproves(total decimal.Decimal, isManager bool) bool {
	return !p.TwoStepValidation || total.LessThan(p.DoubleValidationAmount) || isManager
}

// ConfirmLineInput references the quote line to commit
type ConfirmLineInput struct {
	LineID            int64 `json:"line_id"`
	VendorID          int64 `json:"vendor_id"`
	ProductID         int64 `json:"product_id"`
	RequisitionID     int64 `json:"requisition_id"`
	OverrideZeroPrice bool  `json:"override_zero_price"`
}

// ZeroPriceConfirmation asks a human to confirm committing a free line
type ZeroPriceConfirmation struct {
	ProductName string `json:"product_name"`
	VendorName  string `json:"vendor_name"`
	Message     string `json:"message"`
}

// LineOutcome is either a committed order or a pending zero price confirmation
type LineOutcome struct {
	Order             *entity.PurchaseOrder  `json:"order,omitempty"`
	NeedsConfirmation *ZeroPriceConfirmation `json:"needs_confirmation,omitempty"`
}

// OrderConfirmation reports a whole-order confirmation
type OrderConfirmation struct {
	Quote             *entity.VendorQuote     `json:"quote"`
	CancelledQuoteIDs []int64                 `json:"cancelled_quote_ids"`
	Subscribed        bool                    `json:"subscribed"`
	Transition        *appwf.TransitionResult `json:"transition"`
}

// ConfirmationService commits quotes to purchase orders
type ConfirmationService interface {
	// ConfirmLine commits one quote line as its own purchase order
	ConfirmLine(ctx context.Context, input ConfirmLineInput, actor entity.Actor) (*LineOutcome, error)

	// ConfirmOrder confirms a whole quote and cancels the other open quotes among allQuoteIDs.
	// An empty allQuoteIDs means every quote of the requisition.
	ConfirmOrder(ctx context.Context, quoteID int64, allQuoteIDs []int64, actor entity.Actor) (*OrderConfirmation, error)
}

type confirmationServiceImpl struct {
	requisitionRepo port.RequisitionRepository
	quoteRepo       port.QuoteRepository
	orderRepo       port.PurchaseOrderRepository
	followerRepo    port.FollowerRepository
	vendorRepo      port.VendorRepository
	productRepo     port.ProductRepository
	groupRepo       port.ApproverGroupRepository
	sequenceRepo    port.SequenceRepository
	txManager       port.TransactionManager
	locker          port.EntityLocker
	engine          appwf.RequisitionEngine
	policy          ConfirmationPolicy
	logger          Logger
	options
}

// NewConfirmationService creates a new ConfirmationService
func NewConfirmationService(
	requisitionRepo port.RequisitionRepository,
	quoteRepo port.QuoteRepository,
	orderRepo port.PurchaseOrderRepository,
	followerRepo port.FollowerRepository,
	vendorRepo port.VendorRepository,
	productRepo port.ProductRepository,
	groupRepo port.ApproverGroupRepository,
	sequenceRepo port.SequenceRepository,
	txManager port.TransactionManager,
	locker port.EntityLocker,
	engine appwf.RequisitionEngine,
	policy ConfirmationPolicy,
	logger Logger,
	opts ...Option,
) ConfirmationService {
	return &confirmationServiceImpl{
		requisitionRepo: requisitionRepo,
		quoteRepo:       quoteRepo,
		orderRepo:       orderRepo,
		followerRepo:    followerRepo,
		vendorRepo:      vendorRepo,
		productRepo:     productRepo,
		groupRepo:       groupRepo,
		sequenceRepo:    sequenceRepo,
		txManager:       txManager,
		locker:          locker,
		engine:          engine,
		policy:          policy,
		logger:          logger,
		options:         newOptions(opts),
	}
}

func (s *confirmationServiceImpl) ConfirmLine(ctx context.Context, input ConfirmLineInput, actor entity.Actor) (*LineOutcome, error) {
	if input.LineID == 0 {
		return nil, entity.ErrLineNotFound
	}
	if input.RequisitionID == 0 {
		return nil, fmt.Errorf("%w: requisition is required", entity.ErrInvalidInput)
	}

	unlock, err := s.locker.Lock(ctx, port.RequisitionLockKey(input.RequisitionID))
	if err != nil {
		logFailure(s.logger, "Failed to lock requisition", err, "requisition_id", input.RequisitionID)
		return nil, err
	}
	defer unlock()

	outcome := &LineOutcome{}
	var evt *event.Event
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// The line may have been removed since the dashboard was rendered
		line, err := s.quoteRepo.GetLine(txCtx, input.LineID)
		if err != nil {
			return fmt.Errorf("failed to load quote line: %w", err)
		}
		if line == nil {
			return fmt.Errorf("%w: id %d", entity.ErrLineNotFound, input.LineID)
		}
		quote, err := s.quoteRepo.GetByID(txCtx, line.QuoteID)
		if err != nil {
			return fmt.Errorf("failed to load quote: %w", err)
		}
		if quote == nil {
			return fmt.Errorf("%w: id %d", entity.ErrLineNotFound, input.LineID)
		}
		if err := checkLineReference(input, quote, line); err != nil {
			return err
		}
		if quote.State == entity.QuoteStateCancelled {
			return fmt.Errorf("%w: quote %s is cancelled", entity.ErrQuoteNotConfirmable, quote.Name)
		}

		req, err := s.requisitionRepo.GetByID(txCtx, quote.RequisitionID)
		if err != nil {
			return fmt.Errorf("failed to load requisition: %w", err)
		}
		if req == nil {
			return fmt.Errorf("%w: id %d", entity.ErrRequisitionNotFound, quote.RequisitionID)
		}

		vendorName, productName, err := s.names(txCtx, quote.VendorID, line.ProductID)
		if err != nil {
			return err
		}

		if !line.UnitPrice.IsPositive() && !input.OverrideZeroPrice {
			message := fmt.Sprintf("Product %s from vendor %s has no price. Confirm to order it at zero cost.", productName, vendorName)
			outcome.NeedsConfirmation = &ZeroPriceConfirmation{
				ProductName: productName,
				VendorName:  vendorName,
				Message:     message,
			}
			return nil
		}

		state, err := s.orderState(txCtx, line.Quantity.Mul(line.UnitPrice), actor)
		if err != nil {
			return err
		}
		next, err := s.sequenceRepo.Next(txCtx, entity.SequencePurchaseOrder)
		if err != nil {
			return fmt.Errorf("failed to allocate order name: %w", err)
		}

		note := fmt.Sprintf("Product %s confirmed from vendor %s at price %s", productName, vendorName, line.UnitPrice.StringFixed(2))
		order := &entity.PurchaseOrder{
			Name:            entity.FormatReference(entity.SequencePurchaseOrder, next),
			RequisitionID:   req.ID,
			VendorID:        quote.VendorID,
			SourceQuoteID:   quote.ID,
			SourceLineID:    line.ID,
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			PlannedDelivery: line.PlannedDelivery,
			State:           state,
			Note:            note,
			CreatedBy:       actor.ID,
			CreatedAt:       s.now(),
		}
		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return fmt.Errorf("failed to create purchase order: %w", err)
		}
		outcome.Order = order

		evt = event.NewEvent(event.TypeQuoteLineConfirmed, event.EntityPurchaseOrder, order.ID, actor.ID, map[string]interface{}{
			"order_name":     order.Name,
			"requisition_id": req.ID,
			"quote_id":       quote.ID,
			"line_id":        line.ID,
			"vendor_id":      quote.VendorID,
			"vendor_name":    vendorName,
			"product_name":   productName,
			"unit_price":     line.UnitPrice.String(),
			"state":          string(state),
		})
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Failed to confirm quote line", err,
			"line_id", input.LineID,
			"requisition_id", input.RequisitionID,
		)
		return nil, err
	}

	if outcome.NeedsConfirmation != nil {
		s.logger.Info("Quote line needs zero price confirmation", "line_id", input.LineID)
		return outcome, nil
	}

	s.logger.Info("Quote line confirmed",
		"line_id", input.LineID,
		"order_id", outcome.Order.ID,
		"order_name", outcome.Order.Name,
		"state", outcome.Order.State,
		"actor_id", actor.ID,
	)
	s.publish(ctx, evt)
	return outcome, nil
}

func (s *confirmationServiceImpl) ConfirmOrder(ctx context.Context, quoteID int64, allQuoteIDs []int64, actor entity.Actor) (*OrderConfirmation, error) {
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quote: %w", err)
	}
	if quote == nil {
		return nil, fmt.Errorf("%w: id %d", entity.ErrOrderNotFound, quoteID)
	}

	unlock, err := s.locker.Lock(ctx, port.RequisitionLockKey(quote.RequisitionID))
	if err != nil {
		logFailure(s.logger, "Failed to lock requisition", err, "requisition_id", quote.RequisitionID)
		return nil, err
	}
	defer unlock()

	result := &OrderConfirmation{CancelledQuoteIDs: []int64{}}
	var events []*event.Event
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		quote, err := s.quoteRepo.GetByID(txCtx, quoteID)
		if err != nil {
			return fmt.Errorf("failed to load quote: %w", err)
		}
		if quote == nil {
			return fmt.Errorf("%w: id %d", entity.ErrOrderNotFound, quoteID)
		}
		req, err := s.requisitionRepo.GetByID(txCtx, quote.RequisitionID)
		if err != nil {
			return fmt.Errorf("failed to load requisition: %w", err)
		}
		if req == nil {
			return fmt.Errorf("%w: id %d", entity.ErrRequisitionNotFound, quote.RequisitionID)
		}
		if req.State == domainwf.StateConfirmed {
			return fmt.Errorf("%w: %s", entity.ErrAlreadyConfirmed, req.Name)
		}
		if !quote.IsOpen() {
			return fmt.Errorf("%w: quote %s is %s", entity.ErrQuoteNotConfirmable, quote.Name, quote.State)
		}
		if err := s.checkPrices(txCtx, quote); err != nil {
			return err
		}

		if err := s.quoteRepo.UpdateState(txCtx, quote.ID, entity.QuoteStateConfirmed); err != nil {
			return fmt.Errorf("failed to confirm quote: %w", err)
		}
		quote.State = entity.QuoteStateConfirmed
		result.Quote = quote

		cancelled, err := s.cancelOthers(txCtx, quote, allQuoteIDs)
		if err != nil {
			return err
		}
		result.CancelledQuoteIDs = cancelled

		if s.policy.AutoSubscribeVendor {
			added, err := s.followerRepo.Add(txCtx, req.ID, quote.VendorID)
			if err != nil {
				return fmt.Errorf("failed to subscribe vendor: %w", err)
			}
			result.Subscribed = added
			if added {
				events = append(events, event.NewEvent(event.TypeVendorSubscribed, event.EntityRequisition, req.ID, actor.ID, map[string]interface{}{
					"requisition_name": req.Name,
					"vendor_id":        quote.VendorID,
				}))
			}
		}

		transition, err := s.engine.Apply(txCtx, req, domainwf.TriggerConfirmPO, actor, fmt.Sprintf("Order %s confirmed", quote.Name))
		if err != nil {
			return err
		}
		result.Transition = transition

		events = append(events, event.NewEvent(event.TypeOrderConfirmed, event.EntityQuote, quote.ID, actor.ID, map[string]interface{}{
			"quote_name":       quote.Name,
			"requisition_id":   req.ID,
			"requisition_name": req.Name,
			"vendor_id":        quote.VendorID,
			"total":            quote.Total().String(),
			"cancelled_count":  len(cancelled),
		}))
		events = append(events, transition.Event)
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Failed to confirm order", err, "quote_id", quoteID)
		return nil, err
	}

	s.logger.Info("Order confirmed",
		"quote_id", quoteID,
		"cancelled", len(result.CancelledQuoteIDs),
		"subscribed", result.Subscribed,
		"actor_id", actor.ID,
	)
	s.publish(ctx, events...)
	return result, nil
}

// checkPrices refuses whole-order confirmation while any line is unpriced
func (s *confirmationServiceImpl) checkPrices(ctx context.Context, quote *entity.VendorQuote) error {
	zero := quote.ZeroPriceLines()
	if len(zero) == 0 {
		return nil
	}
	products := make([]string, 0, len(zero))
	for _, line := range zero {
		name := fmt.Sprintf("#%d", line.ProductID)
		product, err := s.productRepo.GetByID(ctx, line.ProductID)
		if err != nil {
			return fmt.Errorf("failed to load product: %w", err)
		}
		if product != nil {
			name = product.Name
		}
		products = append(products, name)
	}
	return &entity.ZeroPriceLinesError{Products: products}
}

// cancelOthers cancels the open sibling quotes. Confirmed and cancelled quotes
// are left untouched, as are ids that vanished or belong to another requisition.
func (s *confirmationServiceImpl) cancelOthers(ctx context.Context, chosen *entity.VendorQuote, ids []int64) ([]int64, error) {
	var siblings []*entity.VendorQuote
	if len(ids) == 0 {
		all, err := s.quoteRepo.ListByRequisition(ctx, chosen.RequisitionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load quotes: %w", err)
		}
		siblings = all
	} else {
		for _, id := range ids {
			q, err := s.quoteRepo.GetByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to load quote: %w", err)
			}
			if q != nil {
				siblings = append(siblings, q)
			}
		}
	}

	cancelled := []int64{}
	for _, q := range siblings {
		if q.ID == chosen.ID || q.RequisitionID != chosen.RequisitionID || !q.IsOpen() {
			continue
		}
		if err := s.quoteRepo.UpdateState(ctx, q.ID, entity.QuoteStateCancelled); err != nil {
			return nil, fmt.Errorf("failed to cancel quote %s: %w", q.Name, err)
		}
		cancelled = append(cancelled, q.ID)
	}
	return cancelled, nil
}

func (s *confirmationServiceImpl) orderState(ctx context.Context, total decimal.Decimal, actor entity.Actor) (entity.OrderState, error) {
	isManager := false
	if s.policy.TwoStepValidation && s.policy.ManagerGroupID != 0 {
		groups, err := s.groupRepo.List(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to load approver groups: %w", err)
		}
		isManager = hierarchy.NewTree(groups).Intersects(actor.GroupIDs, []int64{s.policy.ManagerGroupID})
	}
	if s.policy.AutoApproves(total, isManager) {
		return entity.OrderStateApproved, nil
	}
	return entity.OrderStateToApprove, nil
}

func (s *confirmationServiceImpl) names(ctx context.Context, vendorID, productID int64) (string, string, error) {
	vendor, err := s.vendorRepo.GetByID(ctx, vendorID)
	if err != nil {
		return "", "", fmt.Errorf("failed to load vendor: %w", err)
	}
	if vendor == nil {
		return "", "", fmt.Errorf("%w: id %d", entity.ErrVendorNotFound, vendorID)
	}
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return "", "", fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return "", "", fmt.Errorf("%w: id %d", entity.ErrProductNotFound, productID)
	}
	return vendor.Name, product.Name, nil
}

// checkLineReference makes sure the caller's vendor, product and requisition match
// the line. Zero vendor and product references are taken from the line.
func checkLineReference(input ConfirmLineInput, quote *entity.VendorQuote, line *entity.QuoteLine) error {
	if input.RequisitionID != quote.RequisitionID {
		return fmt.Errorf("%w: line %d does not belong to requisition %d", entity.ErrInvalidInput, line.ID, input.RequisitionID)
	}
	if input.VendorID != 0 && input.VendorID != quote.VendorID {
		return fmt.Errorf("%w: line %d is not quoted by vendor %d", entity.ErrInvalidInput, line.ID, input.VendorID)
	}
	if input.ProductID != 0 && input.ProductID != line.ProductID {
		return fmt.Errorf("%w: line %d is not for product %d", entity.ErrInvalidInput, line.ID, input.ProductID)
	}
	return nil
}

var _ ConfirmationService = (*confirmationServiceImpl)(nil)
