package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/approval"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	"github.com/garyjia/procurement-engine/internal/domain/hierarchy"
)

// ApprovalLevelService administers the approval level catalog and resolves routing
type ApprovalLevelService interface {
	CreateLevel(ctx context.Context, config *entity.ApprovalLevelConfig) (*entity.ApprovalLevelConfig, error)
	ListLevels(ctx context.Context, companyID int64, activeOnly bool) ([]*entity.ApprovalLevelConfig, error)
	DeactivateLevel(ctx context.Context, id int64) error

	// Resolve returns the level configuration that applies to an amount
	Resolve(ctx context.Context, amount decimal.Decimal, companyID int64) (*entity.ApprovalLevelConfig, error)

	CreateGroup(ctx context.Context, group *entity.ApproverGroup) (*entity.ApproverGroup, error)
	ListGroups(ctx context.Context) ([]*entity.ApproverGroup, error)

	// GroupTree loads the approver group hierarchy
	GroupTree(ctx context.Context) (*hierarchy.Tree, error)
}

type approvalLevelServiceImpl struct {
	levelRepo port.ApprovalLevelRepository
	groupRepo port.ApproverGroupRepository
	logger    Logger
}

// NewApprovalLevelService creates a new ApprovalLevelService
func NewApprovalLevelService(
	levelRepo port.ApprovalLevelRepository,
	groupRepo port.ApproverGroupRepository,
	logger Logger,
) ApprovalLevelService {
	return &approvalLevelServiceImpl{
		levelRepo: levelRepo,
		groupRepo: groupRepo,
		logger:    logger,
	}
}

// CreateLevel validates and stores a new level; new levels are active
func (s *approvalLevelServiceImpl) CreateLevel(ctx context.Context, config *entity.ApprovalLevelConfig) (*entity.ApprovalLevelConfig, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.Active = true

	if err := s.levelRepo.Create(ctx, config); err != nil {
		logFailure(s.logger, "Failed to create approval level", err,
			"company_id", config.CompanyID,
			"level_number", config.LevelNumber,
		)
		return nil, err
	}

	s.logger.Info("Approval level created",
		"id", config.ID,
		"company_id", config.CompanyID,
		"name", config.DisplayName(),
	)
	return config, nil
}

// ListLevels returns a company's levels ordered by level number
func (s *approvalLevelServiceImpl) ListLevels(ctx context.Context, companyID int64, activeOnly bool) ([]*entity.ApprovalLevelConfig, error) {
	levels, err := s.levelRepo.ListByCompany(ctx, companyID, activeOnly)
	if err != nil {
		s.logger.Error("Failed to list approval levels", "error", err, "company_id", companyID)
		return nil, err
	}
	return levels, nil
}

// DeactivateLevel removes a level from routing without deleting it
func (s *approvalLevelServiceImpl) DeactivateLevel(ctx context.Context, id int64) error {
	level, err := s.levelRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if level == nil {
		return fmt.Errorf("%w: id %d", entity.ErrLevelNotFound, id)
	}
	if err := s.levelRepo.Deactivate(ctx, id); err != nil {
		s.logger.Error("Failed to deactivate approval level", "error", err, "id", id)
		return err
	}
	s.logger.Info("Approval level deactivated", "id", id, "name", level.DisplayName())
	return nil
}

func (s *approvalLevelServiceImpl) Resolve(ctx context.Context, amount decimal.Decimal, companyID int64) (*entity.ApprovalLevelConfig, error) {
	configs, err := s.levelRepo.ListByCompany(ctx, companyID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval levels: %w", err)
	}

	config, err := approval.Resolve(configs, amount, companyID)
	if err != nil {
		logFailure(s.logger, "Approval level resolution failed", err,
			"company_id", companyID,
			"amount", amount.String(),
		)
		return nil, err
	}
	return config, nil
}

func (s *approvalLevelServiceImpl) CreateGroup(ctx context.Context, group *entity.ApproverGroup) (*entity.ApproverGroup, error) {
	if group.Name == "" {
		return nil, fmt.Errorf("%w: group name is required", entity.ErrInvalidInput)
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		s.logger.Error("Failed to create approver group", "error", err, "name", group.Name)
		return nil, err
	}
	return group, nil
}

func (s *approvalLevelServiceImpl) ListGroups(ctx context.Context) ([]*entity.ApproverGroup, error) {
	return s.groupRepo.List(ctx)
}

func (s *approvalLevelServiceImpl) GroupTree(ctx context.Context) (*hierarchy.Tree, error) {
	groups, err := s.groupRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load approver groups: %w", err)
	}
	return hierarchy.NewTree(groups), nil
}
