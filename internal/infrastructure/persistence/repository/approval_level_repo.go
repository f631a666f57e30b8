package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	"github.com/garyjia/procurement-engine/internal/infrastructure/persistence/sqlite"
)

// ApprovalLevelRepository implements port.ApprovalLevelRepository
type ApprovalLevelRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewApprovalLevelRepository creates a new approval level repository
func NewApprovalLevelRepository(db *sqlite.DB, logger *zap.Logger) port.ApprovalLevelRepository {
	return &ApprovalLevelRepository{
		db:     db,
		logger: logger,
	}
}

const levelColumns = `id, company_id, level_number, name, approval_type, min_amount, max_amount, active, created_at, updated_at`

// Create inserts the level and its approver groups
func (r *ApprovalLevelRepository) Create(ctx context.Context, config *entity.ApprovalLevelConfig) error {
	stamp(&config.CreatedAt)
	config.UpdatedAt = config.CreatedAt

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		query := `
			INSERT INTO approval_level_configs (
				company_id, level_number, name, approval_type, min_amount, max_amount,
				active, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		result, err := r.db.Executor(txCtx).ExecContext(txCtx, query,
			config.CompanyID,
			config.LevelNumber,
			config.Name,
			config.ApprovalType,
			config.MinAmount,
			decimal.NullDecimal{Decimal: derefDecimal(config.MaxAmount), Valid: config.MaxAmount != nil},
			config.Active,
			config.CreatedAt,
			config.UpdatedAt,
		)
		if err != nil {
			if sqlite.IsUniqueViolation(err) {
				return fmt.Errorf("%w: company %d level %d", entity.ErrDuplicateLevel, config.CompanyID, config.LevelNumber)
			}
			r.logger.Error("Failed to create approval level", zap.Error(err))
			return fmt.Errorf("failed to create approval level: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		config.ID = id

		for _, groupID := range config.ApproverGroupIDs {
			_, err := r.db.Executor(txCtx).ExecContext(txCtx,
				`INSERT OR IGNORE INTO approval_level_groups (level_id, group_id) VALUES (?, ?)`, id, groupID)
			if err != nil {
				return fmt.Errorf("failed to link approver group %d: %w", groupID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a level by ID, or nil when it does not exist
func (r *ApprovalLevelRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalLevelConfig, error) {
	query := `SELECT ` + levelColumns + ` FROM approval_level_configs WHERE id = ?`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get approval level: %w", err)
	}
	levels, err := r.collect(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return nil, nil
	}
	return levels[0], nil
}

// ListByCompany returns the company's levels ordered by level number
func (r *ApprovalLevelRepository) ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*entity.ApprovalLevelConfig, error) {
	query := `SELECT ` + levelColumns + ` FROM approval_level_configs WHERE company_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY level_number ASC`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("Failed to list approval levels", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to list approval levels: %w", err)
	}
	return r.collect(ctx, rows)
}

// Deactivate soft-deletes a level
func (r *ApprovalLevelRepository) Deactivate(ctx context.Context, id int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE approval_level_configs SET active = 0, updated_at = ? WHERE id = ?`, nowUTC(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate approval level: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", entity.ErrLevelNotFound, id)
	}
	return nil
}

// collect scans the level rows, closes them, then attaches approver groups
func (r *ApprovalLevelRepository) collect(ctx context.Context, rows *sql.Rows) ([]*entity.ApprovalLevelConfig, error) {
	var levels []*entity.ApprovalLevelConfig
	for rows.Next() {
		var config entity.ApprovalLevelConfig
		var maxAmount decimal.NullDecimal
		err := rows.Scan(
			&config.ID,
			&config.CompanyID,
			&config.LevelNumber,
			&config.Name,
			&config.ApprovalType,
			&config.MinAmount,
			&maxAmount,
			&config.Active,
			&config.CreatedAt,
			&config.UpdatedAt,
		)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan approval level: %w", err)
		}
		if maxAmount.Valid {
			m := maxAmount.Decimal
			config.MaxAmount = &m
		}
		levels = append(levels, &config)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(levels) == 0 {
		return levels, nil
	}
	if err := r.attachGroups(ctx, levels); err != nil {
		return nil, err
	}
	return levels, nil
}

func (r *ApprovalLevelRepository) attachGroups(ctx context.Context, levels []*entity.ApprovalLevelConfig) error {
	byID := make(map[int64]*entity.ApprovalLevelConfig, len(levels))
	ids := make([]int64, 0, len(levels))
	for _, level := range levels {
		byID[level.ID] = level
		ids = append(ids, level.ID)
	}

	query := `SELECT level_id, group_id FROM approval_level_groups WHERE level_id IN (` + placeholders(len(ids)) + `) ORDER BY group_id`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("failed to load approver groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var levelID, groupID int64
		if err := rows.Scan(&levelID, &groupID); err != nil {
			return fmt.Errorf("failed to scan approver group: %w", err)
		}
		if level, ok := byID[levelID]; ok {
			level.ApproverGroupIDs = append(level.ApproverGroupIDs, groupID)
		}
	}
	return rows.Err()
}

func derefDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

var _ port.ApprovalLevelRepository = (*ApprovalLevelRepository)(nil)
