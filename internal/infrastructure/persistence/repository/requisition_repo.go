package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	"github.com/garyjia/procurement-engine/internal/infrastructure/persistence/sqlite"
)

// RequisitionRepository implements port.RequisitionRepository
type RequisitionRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRequisitionRepository creates a new requisition repository
func NewRequisitionRepository(db *sqlite.DB, logger *zap.Logger) port.RequisitionRepository {
	return &RequisitionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the requisition and its lines
func (r *RequisitionRepository) Create(ctx context.Context, req *entity.Requisition) error {
	stamp(&req.CreatedAt)
	req.UpdatedAt = req.CreatedAt
	req.Version = 1

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		query := `
			INSERT INTO requisitions (
				name, employee_id, department_id, company_id, project, site_location_id,
				warehouse_id, picking_type_id, state, reject_reason, version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		result, err := r.db.Executor(txCtx).ExecContext(txCtx, query,
			req.Name,
			req.EmployeeID,
			req.DepartmentID,
			req.CompanyID,
			req.Project,
			nullInt64(req.SiteLocationID),
			nullInt64(req.WarehouseID),
			nullInt64(req.PickingTypeID),
			req.State,
			req.RejectReason,
			req.Version,
			req.CreatedAt,
			req.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create requisition", zap.String("name", req.Name), zap.Error(err))
			return fmt.Errorf("failed to create requisition: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		req.ID = id

		lineQuery := `
			INSERT INTO requisition_lines (
				requisition_id, product_id, description, quantity, uom, unit_price
			) VALUES (?, ?, ?, ?, ?, ?)
		`
		for _, line := range req.Lines {
			line.RequisitionID = id
			result, err := r.db.Executor(txCtx).ExecContext(txCtx, lineQuery,
				line.RequisitionID,
				nullID(line.ProductID),
				line.Description,
				line.Quantity,
				line.Uom,
				line.UnitPrice,
			)
			if err != nil {
				return fmt.Errorf("failed to create requisition line: %w", err)
			}
			if line.ID, err = result.LastInsertId(); err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}
		}
		return nil
	})
}

// GetByID loads the requisition with its lines, or nil when it does not exist
func (r *RequisitionRepository) GetByID(ctx context.Context, id int64) (*entity.Requisition, error) {
	query := `
		SELECT id, name, employee_id, department_id, company_id, project, site_location_id,
			warehouse_id, picking_type_id, state, reject_reason, version, created_at, updated_at
		FROM requisitions
		WHERE id = ?
	`
	var req entity.Requisition
	var siteLocationID, warehouseID, pickingTypeID sql.NullInt64
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, id).Scan(
		&req.ID,
		&req.Name,
		&req.EmployeeID,
		&req.DepartmentID,
		&req.CompanyID,
		&req.Project,
		&siteLocationID,
		&warehouseID,
		&pickingTypeID,
		&req.State,
		&req.RejectReason,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get requisition", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get requisition: %w", err)
	}
	req.SiteLocationID = int64Ptr(siteLocationID)
	req.WarehouseID = int64Ptr(warehouseID)
	req.PickingTypeID = int64Ptr(pickingTypeID)

	lines, err := r.lines(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Lines = lines
	return &req, nil
}

// Update writes the header fields guarded by the version column; lines are untouched
func (r *RequisitionRepository) Update(ctx context.Context, req *entity.Requisition) error {
	query := `
		UPDATE requisitions SET
			department_id = ?, company_id = ?, project = ?, site_location_id = ?,
			warehouse_id = ?, picking_type_id = ?, state = ?, reject_reason = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`
	updatedAt := nowUTC()
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		req.DepartmentID,
		req.CompanyID,
		req.Project,
		nullInt64(req.SiteLocationID),
		nullInt64(req.WarehouseID),
		nullInt64(req.PickingTypeID),
		req.State,
		req.RejectReason,
		updatedAt,
		req.ID,
		req.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update requisition", zap.Int64("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update requisition: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return versionMiss(ctx, r.db.Executor(ctx), `SELECT 1 FROM requisitions WHERE id = ?`, req.ID, entity.ErrRequisitionNotFound)
	}

	req.Version++
	req.UpdatedAt = updatedAt
	return nil
}

// Delete removes the requisition; lines and quotes cascade, history rows stay
func (r *RequisitionRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM requisitions WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete requisition", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete requisition: %w", err)
	}
	return nil
}

func (r *RequisitionRepository) lines(ctx context.Context, requisitionID int64) ([]*entity.RequisitionLine, error) {
	query := `
		SELECT id, requisition_id, product_id, description, quantity, uom, unit_price
		FROM requisition_lines
		WHERE requisition_id = ?
		ORDER BY id
	`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requisition lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.RequisitionLine
	for rows.Next() {
		var line entity.RequisitionLine
		var productID sql.NullInt64
		err := rows.Scan(
			&line.ID,
			&line.RequisitionID,
			&productID,
			&line.Description,
			&line.Quantity,
			&line.Uom,
			&line.UnitPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requisition line: %w", err)
		}
		line.ProductID = productID.Int64
		lines = append(lines, &line)
	}
	return lines, rows.Err()
}

var _ port.RequisitionRepository = (*RequisitionRepository)(nil)
