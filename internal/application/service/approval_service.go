package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-engine/internal/application/port"
	appwf "github.com/garyjia/procurement-engine/internal/application/workflow"
	"github.com/garyjia/procurement-engine/internal/domain/approval"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	"github.com/garyjia/procurement-engine/internal/domain/event"
	"github.com/garyjia/procurement-engine/internal/domain/hierarchy"
	domainwf "github.com/garyjia/procurement-engine/internal/domain/workflow"
)

// ApprovalLineInput describes one product line of an approval request
type ApprovalLineInput struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LotName   string          `json:"lot_name,omitempty"`
}

// CreateApprovalRequestInput describes a new draft approval request
type CreateApprovalRequestInput struct {
	CompanyID    int64               `json:"company_id"`
	RequesterID  string              `json:"requester_id"`
	Billable     bool                `json:"billable"`
	SaleOrderRef string              `json:"sale_order_ref,omitempty"`
	Lines        []ApprovalLineInput `json:"lines"`
}

// UpdateApprovalRequestInput carries header changes. Nil fields are left untouched.
type UpdateApprovalRequestInput struct {
	Billable     *bool   `json:"billable,omitempty"`
	SaleOrderRef *string `json:"sale_order_ref,omitempty"`
	ConfigID     *int64  `json:"config_id,omitempty"`
	ClearConfig  bool    `json:"clear_config,omitempty"`
}

// ApprovalService drives approval requests through the tiered approval chain
type ApprovalService interface {
	CreateRequest(ctx context.Context, input CreateApprovalRequestInput) (*entity.ApprovalRequest, error)
	GetRequest(ctx context.Context, id int64) (*entity.ApprovalRequest, error)
	UpdateRequest(ctx context.Context, id int64, input UpdateApprovalRequestInput) (*entity.ApprovalRequest, error)

	AddLine(ctx context.Context, requestID int64, input ApprovalLineInput) (*entity.ApprovalRequest, error)
	UpdateLine(ctx context.Context, lineID int64, input ApprovalLineInput) (*entity.ApprovalRequest, error)
	DeleteLine(ctx context.Context, lineID int64) (*entity.ApprovalRequest, error)

	Submit(ctx context.Context, id int64, actor entity.Actor) (*entity.ApprovalRequest, error)
	Approve(ctx context.Context, id int64, actor entity.Actor, comment string) (*entity.ApprovalRequest, error)
	Reject(ctx context.Context, id int64, actor entity.Actor, comment string) (*entity.ApprovalRequest, error)
	Issue(ctx context.Context, id int64, actor entity.Actor) (*entity.ApprovalRequest, error)
	Cancel(ctx context.Context, id int64, actor entity.Actor, comment string) (*entity.ApprovalRequest, error)
	ResetToDraft(ctx context.Context, id int64, actor entity.Actor) (*entity.ApprovalRequest, error)

	// CanApprove is a read-only check; it never changes the request
	CanApprove(ctx context.Context, id int64, actor entity.Actor) (bool, error)
	History(ctx context.Context, id int64) ([]*entity.ApprovalHistoryEntry, error)
}

type approvalServiceImpl struct {
	requestRepo  port.ApprovalRequestRepository
	historyRepo  port.ApprovalHistoryRepository
	levelRepo    port.ApprovalLevelRepository
	groupRepo    port.ApproverGroupRepository
	productRepo  port.ProductRepository
	sequenceRepo port.SequenceRepository
	txManager    port.TransactionManager
	locker       port.EntityLocker
	fulfillment  port.StockFulfillment
	logger       Logger
	options
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	requestRepo port.ApprovalRequestRepository,
	historyRepo port.ApprovalHistoryRepository,
	levelRepo port.ApprovalLevelRepository,
	groupRepo port.ApproverGroupRepository,
	productRepo port.ProductRepository,
	sequenceRepo port.SequenceRepository,
	txManager port.TransactionManager,
	locker port.EntityLocker,
	fulfillment port.StockFulfillment,
	logger Logger,
	opts ...Option,
) ApprovalService {
	return &approvalServiceImpl{
		requestRepo:  requestRepo,
		historyRepo:  historyRepo,
		levelRepo:    levelRepo,
		groupRepo:    groupRepo,
		productRepo:  productRepo,
		sequenceRepo: sequenceRepo,
		txManager:    txManager,
		locker:       locker,
		fulfillment:  fulfillment,
		logger:       logger,
		options:      newOptions(opts),
	}
}

// CreateRequest stores a draft request with its lines and computed total
func (s *approvalServiceImpl) CreateRequest(ctx context.Context, input CreateApprovalRequestInput) (*entity.ApprovalRequest, error) {
	req := &entity.ApprovalRequest{
		CompanyID:     input.CompanyID,
		RequesterID:   input.RequesterID,
		State:         domainwf.StateDraft,
		CurrentLevel:  1,
		RequiredLevel: 1,
		Billable:      input.Billable,
		SaleOrderRef:  input.SaleOrderRef,
	}
	entity.OnBillableChange(req)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, in := range input.Lines {
			line, err := s.buildLine(txCtx, in)
			if err != nil {
				return err
			}
			req.Lines = append(req.Lines, line)
		}
		req.TotalAmount = req.ComputeTotal()

		next, err := s.sequenceRepo.Next(txCtx, entity.SequenceApprovalRequest)
		if err != nil {
			return fmt.Errorf("failed to allocate request name: %w", err)
		}
		req.Name = entity.FormatReference(entity.SequenceApprovalRequest, next)

		if err := s.requestRepo.Create(txCtx, req); err != nil {
			return fmt.Errorf("failed to create approval request: %w", err)
		}
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Failed to create approval request", err, "company_id", input.CompanyID)
		return nil, err
	}

	s.logger.Info("Approval request created",
		"id", req.ID,
		"name", req.Name,
		"total_amount", req.TotalAmount.String(),
	)
	return req, nil
}

// GetRequest loads a request with its lines
func (s *approvalServiceImpl) GetRequest(ctx context.Context, id int64) (*entity.ApprovalRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get approval request", "error", err, "id", id)
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: id %d", entity.ErrApprovalRequestNotFound, id)
	}
	return req, nil
}

func (s *approvalServiceImpl) UpdateRequest(ctx context.Context, id int64, input UpdateApprovalRequestInput) (*entity.ApprovalRequest, error) {
	req, _, err := s.mutate(ctx, id, "update", func(txCtx context.Context, req *entity.ApprovalRequest) (*event.Event, error) {
		if req.LinesLocked() {
			return nil, fmt.Errorf("%w: request is %s", entity.ErrRequestLocked, req.State)
		}

		if input.Billable != nil {
			req.Billable = *input.Billable
			entity.OnBillableChange(req)
		}
		if input.SaleOrderRef != nil && req.Billable {
			req.SaleOrderRef = *input.SaleOrderRef
		}

		switch {
		case input.ClearConfig:
			entity.OnConfigSelected(req, nil)
		case input.ConfigID != nil:
			config, err := s.levelRepo.GetByID(txCtx, *input.ConfigID)
			if err != nil {
				return nil, fmt.Errorf("failed to load approval level: %w", err)
			}
			if config == nil || config.CompanyID != req.CompanyID {
				return nil, fmt.Errorf("%w: id %d", entity.ErrLevelNotFound, *input.ConfigID)
			}
			entity.OnConfigSelected(req, config)
		}
		if req.CurrentLevel > req.RequiredLevel {
			req.CurrentLevel = req.RequiredLevel
		}

		return nil, s.requestRepo.Update(txCtx, req)
	})
	return req, err
}

// AddLine appends a line while the request is still editable
func (s *approvalServiceImpl) AddLine(ctx context.Context, requestID int64, input ApprovalLineInput) (*entity.ApprovalRequest, error) {
	req, _, err := s.mutate(ctx, requestID, "add_line", func(txCtx context.Context, req *entity.ApprovalRequest) (*event.Event, error) {
		if req.LinesLocked() {
			return nil, fmt.Errorf("%w: request is %s", entity.ErrRequestLocked, req.State)
		}
		line, err := s.buildLine(txCtx, input)
		if err != nil {
			return nil, err
		}
		line.RequestID = req.ID
		if err := s.requestRepo.AddLine(txCtx, line); err != nil {
			return nil, fmt.Errorf("failed to add line: %w", err)
		}
		req.Lines = append(req.Lines, line)
		req.TotalAmount = req.ComputeTotal()
		return nil, s.requestRepo.Update(txCtx, req)
	})
	return req, err
}

// UpdateLine changes quantity, price and lot of an existing line
func (s *approvalServiceImpl) UpdateLine(ctx context.Context, lineID int64, input ApprovalLineInput) (*entity.ApprovalRequest, error) {
	requestID, err := s.requestOfLine(ctx, lineID)
	if err != nil {
		return nil, err
	}

	req, _, err := s.mutate(ctx, requestID, "update_line", func(txCtx context.Context, req *entity.ApprovalRequest) (*event.Event, error) {
		if req.LinesLocked() {
			return nil, fmt.Errorf("%w: request is %s", entity.ErrRequestLocked, req.State)
		}
		line := findRequestLine(req, lineID)
		if line == nil {
			return nil, fmt.Errorf("%w: request line %d", entity.ErrInvalidInput, lineID)
		}
		line.Quantity = input.Quantity
		line.UnitPrice = input.UnitPrice
		line.LotName = input.LotName
		if err := line.Validate(); err != nil {
			return nil, err
		}
		if err := s.requestRepo.UpdateLine(txCtx, line); err != nil {
			return nil, fmt.Errorf("failed to update line: %w", err)
		}
		req.TotalAmount = req.ComputeTotal()
		return nil, s.requestRepo.Update(txCtx, req)
	})
	return req, err
}

// DeleteLine removes a line while the request is still editable
func (s *approvalServiceImpl) DeleteLine(ctx context.Context, lineID int64) (*entity.ApprovalRequest, error) {
	requestID, err := s.requestOfLine(ctx, lineID)
	if err != nil {
		return nil, err
	}

	req, _, err := s.mutate(ctx, requestID, "delete_line", func(txCtx context.Context, req *entity.ApprovalRequest) (*event.Event, error) {
		if req.LinesLocked() {
			return nil, fmt.Errorf("%w: request is %s", entity.ErrRequestLocked, req.State)
		}
		if err := s.requestRepo.DeleteLine(txCtx, lineID); err != nil {
			return nil, fmt.Errorf("failed to delete line: %w", err)
		}
		kept := req.Lines[:0]
		for _, line := range req.Lines {
			if line.ID != lineID {
				kept = append(kept, line)
			}
		}
		req.Lines = kept
		req.TotalAmount = req.ComputeTotal()
		return nil, s.requestRepo.Update(txCtx, req)
	})
	return req, err
}

// Submit resolves the approval chain from the request total and starts it at level 1
func (s *approvalServiceImpl) Submit(ctx context.Context, id int64, actor entity.Actor) (*entity.ApprovalRequest, error) {
	req, evt, err := s.mutate(ctx, id, "submit", func(txCtx context.Context, req *entity.ApprovalRequest) (*event.Event, error) {
		machine := appwf.BuildApprovalStateMachine(req.State, appwf.ApprovalGuards{})
		if !machine.CanFire(domainwf.TriggerSubmit) {
			return nil, fmt.Errorf("%w: cannot submit %s request", entity.ErrInvalidTransition, req.State.Phrase())
		}
		if len(req.Lines) == 0 {
			return nil, entity.ErrEmptyRequest
		}
		for _, line := range req.Lines {
			if line.MissingLot() {
				return nil, fmt.Errorf("%w: %s", entity.ErrMissingLotInfo, line.ProductName)
			}
		}

		configs, err := s.levelRepo.ListByCompany(txCtx, req.CompanyID, true)
		if err != nil {
			return nil, fmt.Errorf("failed to load approval levels: %w", err)
		}
		req.TotalAmount = req.ComputeTotal()
		config, err := approval.Resolve(configs, req.TotalAmount, req.CompanyID)
		if err != nil {
			return nil, err
		}

		if err := machine.Fire(txCtx, domainwf.TriggerSubmit); err != nil {
			return nil, fmt.Errorf("%w: %s", entity.ErrInvalidTransition, err.Error())
		}
		configID := config.ID
		req.State = machine.State()
		req.ResolvedConfigID = &configID
		req.RequiredLevel = config.LevelNumber
		req.CurrentLevel = 1

		if err := s.record(txCtx, req, actor, entity.ApprovalActionSubmit, 1, ""); err != nil {
			return nil, err
		}
		return event.NewEvent(event.TypeApprovalSubmitted, event.EntityApprovalRequest, req.ID, actor.ID, map[string]interface{}{
			"request_name":   req.Name,
			"level_name":     config.DisplayName(),
			"required_level": req.RequiredLevel,
			"total_amount":   req.TotalAmount.String(),
		}), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Approval request submitted",
		"id", req.ID,
		"required_level", req.RequiredLevel,
		"actor_id", actor.ID,
	)
	s.publish(ctx, evt)
	return req, nil
}

// Approve signs off the current level. The request stays SUBMITTED until the
// required level has approved.
func (s *approvalServiceImpl) Approve(ctx context.Context, id int64, actor entity.Actor, comment string) (*entity.ApprovalRequest, error) {
	req, evt, err := s.mutate(ctx, id, "approve", func(txCtx context.Context, req *entity.ApprovalRequest) (*event.Event, error) {
		machine := appwf.BuildApprovalStateMachine(req.State, appwf.ApprovalGuards{
			IsFinalLevel: func(ctx context.Context) bool { return approval.IsFinalLevel(req) },
		})
		if !machine.CanFire(domainwf.TriggerApprove) {
			return nil, fmt.Errorf("%w: cannot approve %s request", entity.ErrInvalidTransition, req.State.Phrase())
		}

		level, err := s.levelFor(txCtx, req)
		if err != nil {
			return nil, err
		}
		allowed, err := s.mayApprove(txCtx, level, actor)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", entity.ErrForbidden, level.DisplayName())
		}

		levelAtTime := req.CurrentLevel
		if err := machine.Fire(txCtx, domainwf.TriggerApprove); err != nil {
			return nil, fmt.Errorf("%w: %s", entity.ErrInvalidTransition, err.Error())
		}
		final := approval.AdvanceLevel(req)
		req.State = machine.State()

		if err := s.record(txCtx, req, actor, entity.ApprovalActionApprove, levelAtTime, comment); err != nil {
			return nil, err
		}
		return event.NewEvent(event.TypeApprovalApproved, event.EntityApprovalRequest, req.ID, actor.ID, map[string]interface{}{
			"request_name":   req.Name,
			"level":          levelAtTime,
			"current_level":  req.CurrentLevel,
			"required_level": req.RequiredLevel,
			"final":          final,
		}), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Approval request approved",
		"id", req.ID,
		"state", req.State,
		"current_level", req.CurrentLevel,
		"required_level", req.RequiredLevel,
		"actor_id", actor.ID,
	)
	s.publish(ctx, evt)
	return req, nil
}

// Reject ends a submitted request
func (s *approvalServiceImpl) Reject(ctx context.Context, id int64, actor entity.Actor, comment string) (*entity.ApprovalRequest, error) {
	req, evt, err := s.mutate(ctx, id, "reject", func(txCtx context.Context, req *entity.ApprovalRequest) (*event.Event, error) {
		levelAtTime := req.CurrentLevel
		if err := s.fire(txCtx, req, domainwf.TriggerReject); err != nil {
			return nil, err
		}
		if err := s.record(txCtx, req, actor, entity.ApprovalActionReject, levelAtTime, comment); err != nil {
			return nil, err
		}
		return event.NewEvent(event.TypeApprovalRejected, event.EntityApprovalRequest, req.ID, actor.ID, map[string]interface{}{
			"request_name": req.Name,
			"level":        levelAtTime,
			"comment":      comment,
		}), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Approval request rejected", "id", req.ID, "actor_id", actor.ID)
	s.publish(ctx, evt)
	return req, nil
}

// Issue hands an approved request to stock fulfillment
func (s *approvalServiceImpl) Issue(ctx context.Context, id int64, actor entity.Actor) (*entity.ApprovalRequest, error) {
	req, _, err := s.mutate(ctx, id, "issue", func(txCtx context.Context, req *entity.ApprovalRequest) (*event.Event, error) {
		if err := s.fire(txCtx, req, domainwf.TriggerIssue); err != nil {
			return nil, err
		}
		if err := s.fulfillment.Fulfill(txCtx, req); err != nil {
			return nil, fmt.Errorf("failed to fulfill request: %w", err)
		}
		return nil, s.record(txCtx, req, actor, entity.ApprovalActionIssue, req.CurrentLevel, "")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Approval request issued", "id", req.ID, "actor_id", actor.ID)
	return req, nil
}

// Cancel is allowed from every state except ISSUED
func (s *approvalServiceImpl) Cancel(ctx context.Context, id int64, actor entity.Actor, comment string) (*entity.ApprovalRequest, error) {
	req, _, err := s.mutate(ctx, id, "cancel", func(txCtx context.Context, req *entity.ApprovalRequest) (*event.Event, error) {
		if req.State == domainwf.StateIssued {
			return nil, entity.ErrCannotCancelIssued
		}
		levelAtTime := req.CurrentLevel
		if err := s.fire(txCtx, req, domainwf.TriggerCancel); err != nil {
			return nil, err
		}
		return nil, s.record(txCtx, req, actor, entity.ApprovalActionCancel, levelAtTime, comment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Approval request cancelled", "id", req.ID, "actor_id", actor.ID)
	return req, nil
}

// ResetToDraft clears the resolved routing. It is not an audited action.
func (s *approvalServiceImpl) ResetToDraft(ctx context.Context, id int64, actor entity.Actor) (*entity.ApprovalRequest, error) {
	req, _, err := s.mutate(ctx, id, "reset", func(txCtx context.Context, req *entity.ApprovalRequest) (*event.Event, error) {
		if err := s.fire(txCtx, req, domainwf.TriggerResetToDraft); err != nil {
			return nil, err
		}
		req.ClearRouting()
		return nil, s.requestRepo.Update(txCtx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Approval request reset to draft", "id", req.ID, "actor_id", actor.ID)
	return req, nil
}

func (s *approvalServiceImpl) CanApprove(ctx context.Context, id int64, actor entity.Actor) (bool, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return false, err
	}
	if req.State != domainwf.StateSubmitted {
		return false, nil
	}

	level, err := s.levelFor(ctx, req)
	if err != nil {
		return false, err
	}
	var groups *hierarchy.Tree
	if level.HasApproverGroups() {
		if groups, err = s.groupTree(ctx); err != nil {
			return false, err
		}
	}
	return approval.CanApprove(req, level, actor.GroupIDs, groups), nil
}

// History returns the approval log oldest first
func (s *approvalServiceImpl) History(ctx context.Context, id int64) ([]*entity.ApprovalHistoryEntry, error) {
	if _, err := s.GetRequest(ctx, id); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByRequest(ctx, id)
}

// mutate runs fn on the locked request inside a transaction. The event fn returns
// is handed back for dispatch after commit.
func (s *approvalServiceImpl) mutate(
	ctx context.Context,
	id int64,
	operation string,
	fn func(txCtx context.Context, req *entity.ApprovalRequest) (*event.Event, error),
) (*entity.ApprovalRequest, *event.Event, error) {
	unlock, err := s.locker.Lock(ctx, port.ApprovalRequestLockKey(id))
	if err != nil {
		logFailure(s.logger, "Failed to lock approval request", err, "id", id, "operation", operation)
		return nil, nil, err
	}
	defer unlock()

	var (
		req *entity.ApprovalRequest
		evt *event.Event
	)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		loaded, err := s.requestRepo.GetByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load approval request: %w", err)
		}
		if loaded == nil {
			return fmt.Errorf("%w: id %d", entity.ErrApprovalRequestNotFound, id)
		}
		evt, err = fn(txCtx, loaded)
		if err != nil {
			return err
		}
		req = loaded
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Approval request operation failed", err, "id", id, "operation", operation)
		return nil, nil, err
	}
	return req, evt, nil
}

// fire applies an unguarded trigger to the request state
func (s *approvalServiceImpl) fire(ctx context.Context, req *entity.ApprovalRequest, trigger domainwf.Trigger) error {
	machine := appwf.BuildApprovalStateMachine(req.State, appwf.ApprovalGuards{})
	if err := machine.Fire(ctx, trigger); err != nil {
		return fmt.Errorf("%w: %s", entity.ErrInvalidTransition, err.Error())
	}
	req.State = machine.State()
	return nil
}

// record writes the request header and appends one history entry
func (s *approvalServiceImpl) record(ctx context.Context, req *entity.ApprovalRequest, actor entity.Actor, action entity.ApprovalAction, level int, comment string) error {
	if err := s.requestRepo.Update(ctx, req); err != nil {
		return fmt.Errorf("failed to update approval request: %w", err)
	}
	entry := &entity.ApprovalHistoryEntry{
		RequestID:   req.ID,
		ActorID:     actor.ID,
		Action:      action,
		LevelAtTime: level,
		Comment:     comment,
		CreatedAt:   s.now(),
	}
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append approval history: %w", err)
	}
	return nil
}

// levelFor returns the configuration of the request's current level
func (s *approvalServiceImpl) levelFor(ctx context.Context, req *entity.ApprovalRequest) (*entity.ApprovalLevelConfig, error) {
	configs, err := s.levelRepo.ListByCompany(ctx, req.CompanyID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval levels: %w", err)
	}
	level := approval.ForLevel(configs, req.CompanyID, req.CurrentLevel)
	if level == nil {
		return nil, fmt.Errorf("%w: no active level %d for company %d", entity.ErrConfigurationMissing, req.CurrentLevel, req.CompanyID)
	}
	return level, nil
}

func (s *approvalServiceImpl) mayApprove(ctx context.Context, level *entity.ApprovalLevelConfig, actor entity.Actor) (bool, error) {
	if !level.HasApproverGroups() {
		return true, nil
	}
	groups, err := s.groupTree(ctx)
	if err != nil {
		return false, err
	}
	return approval.MayApprove(level, actor.GroupIDs, groups), nil
}

func (s *approvalServiceImpl) groupTree(ctx context.Context) (*hierarchy.Tree, error) {
	groups, err := s.groupRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load approver groups: %w", err)
	}
	return hierarchy.NewTree(groups), nil
}

func (s *approvalServiceImpl) buildLine(ctx context.Context, in ApprovalLineInput) (*entity.ApprovalRequestLine, error) {
	product, err := s.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: id %d", entity.ErrProductNotFound, in.ProductID)
	}
	line := &entity.ApprovalRequestLine{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Tracking:    product.Tracking,
		LotName:     in.LotName,
	}
	if err := line.Validate(); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *approvalServiceImpl) requestOfLine(ctx context.Context, lineID int64) (int64, error) {
	line, err := s.requestRepo.GetLine(ctx, lineID)
	if err != nil {
		return 0, fmt.Errorf("failed to load request line: %w", err)
	}
	if line == nil {
		return 0, fmt.Errorf("%w: request line %d", entity.ErrInvalidInput, lineID)
	}
	return line.RequestID, nil
}

func findRequestLine(req *entity.ApprovalRequest, lineID int64) *entity.ApprovalRequestLine {
	for _, line := range req.Lines {
		if line.ID == lineID {
			return line
		}
	}
	return nil
}

var _ ApprovalService = (*approvalServiceImpl)(nil)
