package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	"github.com/garyjia/procurement-engine/internal/infrastructure/persistence/sqlite"
)

// ApproverGroupRepository implements port.ApproverGroupRepository
type ApproverGroupRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewApproverGroupRepository creates a new approver group repository
func NewApproverGroupRepository(db *sqlite.DB, logger *zap.Logger) port.ApproverGroupRepository {
	return &ApproverGroupRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a group
func (r *ApproverGroupRepository) Create(ctx context.Context, group *entity.ApproverGroup) error {
	stamp(&group.CreatedAt)

	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`INSERT INTO approver_groups (name, parent_id, created_at) VALUES (?, ?, ?)`,
		group.Name,
		nullInt64(group.ParentID),
		group.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create approver group", zap.String("name", group.Name), zap.Error(err))
		return fmt.Errorf("failed to create approver group: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	group.ID = id
	return nil
}

// List returns every group ordered by id
func (r *ApproverGroupRepository) List(ctx context.Context) ([]*entity.ApproverGroup, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT id, name, parent_id, created_at FROM approver_groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list approver groups: %w", err)
	}
	defer rows.Close()

	var groups []*entity.ApproverGroup
	for rows.Next() {
		var group entity.ApproverGroup
		var parentID sql.NullInt64
		if err := rows.Scan(&group.ID, &group.Name, &parentID, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approver group: %w", err)
		}
		group.ParentID = int64Ptr(parentID)
		groups = append(groups, &group)
	}
	return groups, rows.Err()
}

var _ port.ApproverGroupRepository = (*ApproverGroupRepository)(nil)
