package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-engine/internal/application/port"
	appwf "github.com/garyjia/procurement-engine/internal/application/workflow"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	domainwf "github.com/garyjia/procurement-engine/internal/domain/workflow"
)

// WarehouseResolver maps a site location to the warehouse that serves it
type WarehouseResolver func(siteLocationID int64) *int64

// RequisitionLineInput describes one requested product
type RequisitionLineInput struct {
	ProductID   int64           `json:"product_id"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Uom         string          `json:"uom,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateRequisitionInput describes a new draft requisition
type CreateRequisitionInput struct {
	EmployeeID     string                 `json:"employee_id"`
	DepartmentID   int64                  `json:"department_id"`
	CompanyID      int64                  `json:"company_id"`
	Project        string                 `json:"project,omitempty"`
	SiteLocationID *int64                 `json:"site_location_id,omitempty"`
	Lines          []RequisitionLineInput `json:"lines"`
}

// RequisitionService manages requisitions and their transition log
type RequisitionService interface {
	Create(ctx context.Context, input CreateRequisitionInput) (*entity.Requisition, error)
	Get(ctx context.Context, id int64) (*entity.Requisition, error)

	// Delete removes a draft or cancelled requisition with its lines. History is kept.
	Delete(ctx context.Context, id int64, actor entity.Actor) error

	// Transition applies a named transition such as "confirm" or "reject_with_reason"
	Transition(ctx context.Context, id int64, name string, actor entity.Actor, notes string) (*appwf.TransitionResult, error)
	PermittedTransitions(ctx context.Context, id int64) ([]domainwf.Trigger, error)

	// History returns the transition log newest first
	History(ctx context.Context, id int64) ([]*entity.RequisitionHistoryEntry, error)

	UpdateSiteLocation(ctx context.Context, id int64, siteLocationID *int64) (*entity.Requisition, error)
	ChangeCompany(ctx context.Context, id int64, companyID int64) (*entity.Requisition, error)
}

type requisitionServiceImpl struct {
	requisitionRepo port.RequisitionRepository
	historyRepo     port.RequisitionHistoryRepository
	productRepo     port.ProductRepository
	quoteRepo       port.QuoteRepository
	sequenceRepo    port.SequenceRepository
	txManager       port.TransactionManager
	locker          port.EntityLocker
	engine          appwf.RequisitionEngine
	warehouseFor    WarehouseResolver
	logger          Logger
	options
}

// NewRequisitionService creates a new RequisitionService
func NewRequisitionService(
	requisitionRepo port.RequisitionRepository,
	historyRepo port.RequisitionHistoryRepository,
	productRepo port.ProductRepository,
	quoteRepo port.QuoteRepository,
	sequenceRepo port.SequenceRepository,
	txManager port.TransactionManager,
	locker port.EntityLocker,
	engine appwf.RequisitionEngine,
	warehouseFor WarehouseResolver,
	logger Logger,
	opts ...Option,
) RequisitionService {
	return &requisitionServiceImpl{
		requisitionRepo: requisitionRepo,
		historyRepo:     historyRepo,
		productRepo:     productRepo,
		quoteRepo:       quoteRepo,
		sequenceRepo:    sequenceRepo,
		txManager:       txManager,
		locker:          locker,
		engine:          engine,
		warehouseFor:    warehouseFor,
		logger:          logger,
		options:         newOptions(opts),
	}
}

func (s *requisitionServiceImpl) Create(ctx context.Context, input CreateRequisitionInput) (*entity.Requisition, error) {
	req := &entity.Requisition{
		EmployeeID:     input.EmployeeID,
		DepartmentID:   input.DepartmentID,
		CompanyID:      input.CompanyID,
		Project:        input.Project,
		SiteLocationID: input.SiteLocationID,
		State:          domainwf.StateDraft,
	}
	entity.OnSiteLocationChange(req, s.warehouseFor)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, in := range input.Lines {
			line, err := s.buildLine(txCtx, in)
			if err != nil {
				return err
			}
			req.Lines = append(req.Lines, line)
		}

		next, err := s.sequenceRepo.Next(txCtx, entity.SequenceRequisition)
		if err != nil {
			return fmt.Errorf("failed to allocate requisition name: %w", err)
		}
		req.Name = entity.FormatReference(entity.SequenceRequisition, next)

		if err := s.requisitionRepo.Create(txCtx, req); err != nil {
			return fmt.Errorf("failed to create requisition: %w", err)
		}
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Failed to create requisition", err, "employee_id", input.EmployeeID)
		return nil, err
	}

	s.logger.Info("Requisition created", "id", req.ID, "name", req.Name, "lines", len(req.Lines))
	return req, nil
}

func (s *requisitionServiceImpl) Get(ctx context.Context, id int64) (*entity.Requisition, error) {
	req, err := s.requisitionRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get requisition", "error", err, "id", id)
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: id %d", entity.ErrRequisitionNotFound, id)
	}
	return req, nil
}

func (s *requisitionServiceImpl) Delete(ctx context.Context, id int64, actor entity.Actor) error {
	_, err := s.mutate(ctx, id, "delete", func(txCtx context.Context, req *entity.Requisition) error {
		if !req.Deletable() {
			return fmt.Errorf("%w: requisition is %s", entity.ErrCannotDeleteRequisition, req.State)
		}
		return s.requisitionRepo.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Requisition deleted", "id", id, "actor_id", actor.ID)
	return nil
}

func (s *requisitionServiceImpl) Transition(ctx context.Context, id int64, name string, actor entity.Actor, notes string) (*appwf.TransitionResult, error) {
	trigger, err := domainwf.ParseRequisitionTrigger(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown transition %q", entity.ErrInvalidTransition, name)
	}

	var opts []appwf.TransitionOption
	if trigger == domainwf.TriggerCreateRFQs {
		// RFQs already sent count as solicited vendors; new vendors go through RFQService
		quotes, err := s.quoteRepo.ListByRequisition(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load quotes: %w", err)
		}
		opts = append(opts, appwf.WithVendorCount(len(quotes)))
	}

	return s.engine.Transition(ctx, id, trigger, actor, notes, opts...)
}

func (s *requisitionServiceImpl) PermittedTransitions(ctx context.Context, id int64) ([]domainwf.Trigger, error) {
	return s.engine.PermittedTriggers(ctx, id)
}

func (s *requisitionServiceImpl) History(ctx context.Context, id int64) ([]*entity.RequisitionHistoryEntry, error) {
	entries, err := s.historyRepo.ListByRequisition(ctx, id)
	if err != nil {
		s.logger.Error("Failed to list requisition history", "error", err, "id", id)
		return nil, err
	}
	return entries, nil
}

// UpdateSiteLocation re-derives the warehouse and clears the picking type
func (s *requisitionServiceImpl) UpdateSiteLocation(ctx context.Context, id int64, siteLocationID *int64) (*entity.Requisition, error) {
	return s.mutate(ctx, id, "update_site_location", func(txCtx context.Context, req *entity.Requisition) error {
		if err := checkEditable(req); err != nil {
			return err
		}
		req.SiteLocationID = siteLocationID
		entity.OnSiteLocationChange(req, s.warehouseFor)
		return s.requisitionRepo.Update(txCtx, req)
	})
}

// ChangeCompany moves the requisition and clears company-scoped locations
func (s *requisitionServiceImpl) ChangeCompany(ctx context.Context, id int64, companyID int64) (*entity.Requisition, error) {
	return s.mutate(ctx, id, "change_company", func(txCtx context.Context, req *entity.Requisition) error {
		if err := checkEditable(req); err != nil {
			return err
		}
		if req.CompanyID == companyID {
			return nil
		}
		req.CompanyID = companyID
		entity.OnCompanyChange(req)
		return s.requisitionRepo.Update(txCtx, req)
	})
}

func (s *requisitionServiceImpl) mutate(ctx context.Context, id int64, operation string, fn func(txCtx context.Context, req *entity.Requisition) error) (*entity.Requisition, error) {
	unlock, err := s.locker.Lock(ctx, port.RequisitionLockKey(id))
	if err != nil {
		logFailure(s.logger, "Failed to lock requisition", err, "id", id, "operation", operation)
		return nil, err
	}
	defer unlock()

	var req *entity.Requisition
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		loaded, err := s.requisitionRepo.GetByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load requisition: %w", err)
		}
		if loaded == nil {
			return fmt.Errorf("%w: id %d", entity.ErrRequisitionNotFound, id)
		}
		if err := fn(txCtx, loaded); err != nil {
			return err
		}
		req = loaded
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Requisition operation failed", err, "id", id, "operation", operation)
		return nil, err
	}
	return req, nil
}

func (s *requisitionServiceImpl) buildLine(ctx context.Context, in RequisitionLineInput) (*entity.RequisitionLine, error) {
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: product %d", entity.ErrInvalidQuantity, in.ProductID)
	}
	line := &entity.RequisitionLine{
		ProductID:   in.ProductID,
		Description: in.Description,
		Quantity:    in.Quantity,
		Uom:         in.Uom,
		UnitPrice:   in.UnitPrice,
	}
	if in.ProductID == 0 {
		return line, nil
	}

	product, err := s.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: id %d", entity.ErrProductNotFound, in.ProductID)
	}
	if line.Uom == "" {
		line.Uom = product.Uom
	}
	if line.Description == "" {
		line.Description = product.Name
	}
	return line, nil
}

// checkEditable refuses header edits on finished requisitions
func checkEditable(req *entity.Requisition) error {
	if domainwf.RequisitionLifecycle.IsTerminal(req.State) {
		return fmt.Errorf("%w: requisition is %s", entity.ErrInvalidTransition, req.State)
	}
	return nil
}

var _ RequisitionService = (*requisitionServiceImpl)(nil)
