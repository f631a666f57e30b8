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

// ApprovalRequestRepository implements port.ApprovalRequestRepository
type ApprovalRequestRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewApprovalRequestRepository creates a new approval request repository
func NewApprovalRequestRepository(db *sqlite.DB, logger *zap.Logger) port.ApprovalRequestRepository {
	return &ApprovalRequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the request header and its lines
func (r *ApprovalRequestRepository) Create(ctx context.Context, req *entity.ApprovalRequest) error {
	stamp(&req.CreatedAt)
	req.UpdatedAt = req.CreatedAt
	req.Version = 1

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		query := `
			INSERT INTO approval_requests (
				name, company_id, requester_id, state, current_level, required_level,
				resolved_config_id, total_amount, billable, pricing, sale_order_ref,
				version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		result, err := r.db.Executor(txCtx).ExecContext(txCtx, query,
			req.Name,
			req.CompanyID,
			req.RequesterID,
			req.State,
			req.CurrentLevel,
			req.RequiredLevel,
			nullInt64(req.ResolvedConfigID),
			req.TotalAmount,
			req.Billable,
			req.Pricing,
			req.SaleOrderRef,
			req.Version,
			req.CreatedAt,
			req.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create approval request", zap.String("name", req.Name), zap.Error(err))
			return fmt.Errorf("failed to create approval request: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		req.ID = id

		for _, line := range req.Lines {
			line.RequestID = id
			if err := r.AddLine(txCtx, line); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID loads the request with its lines, or nil when it does not exist
func (r *ApprovalRequestRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalRequest, error) {
	query := `
		SELECT id, name, company_id, requester_id, state, current_level, required_level,
			resolved_config_id, total_amount, billable, pricing, sale_order_ref,
			version, created_at, updated_at
		FROM approval_requests
		WHERE id = ?
	`
	var req entity.ApprovalRequest
	var resolvedConfigID sql.NullInt64
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, id).Scan(
		&req.ID,
		&req.Name,
		&req.CompanyID,
		&req.RequesterID,
		&req.State,
		&req.CurrentLevel,
		&req.RequiredLevel,
		&resolvedConfigID,
		&req.TotalAmount,
		&req.Billable,
		&req.Pricing,
		&req.SaleOrderRef,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval request", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval request: %w", err)
	}
	req.ResolvedConfigID = int64Ptr(resolvedConfigID)

	lines, err := r.lines(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Lines = lines
	return &req, nil
}

// Update writes the header fields guarded by the version column
func (r *ApprovalRequestRepository) Update(ctx context.Context, req *entity.ApprovalRequest) error {
	query := `
		UPDATE approval_requests SET
			state = ?, current_level = ?, required_level = ?, resolved_config_id = ?,
			total_amount = ?, billable = ?, pricing = ?, sale_order_ref = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`
	updatedAt := nowUTC()
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		req.State,
		req.CurrentLevel,
		req.RequiredLevel,
		nullInt64(req.ResolvedConfigID),
		req.TotalAmount,
		req.Billable,
		req.Pricing,
		req.SaleOrderRef,
		updatedAt,
		req.ID,
		req.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update approval request", zap.Int64("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update approval request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return versionMiss(ctx, r.db.Executor(ctx), `SELECT 1 FROM approval_requests WHERE id = ?`, req.ID, entity.ErrApprovalRequestNotFound)
	}

	req.Version++
	req.UpdatedAt = updatedAt
	return nil
}

// AddLine inserts a line of an existing request
func (r *ApprovalRequestRepository) AddLine(ctx context.Context, line *entity.ApprovalRequestLine) error {
	query := `
		INSERT INTO approval_request_lines (
			request_id, product_id, product_name, quantity, unit_price, tracking, lot_name
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		line.RequestID,
		line.ProductID,
		line.ProductName,
		line.Quantity,
		line.UnitPrice,
		line.Tracking,
		line.LotName,
	)
	if err != nil {
		return fmt.Errorf("failed to create approval request line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	line.ID = id
	return nil
}

// UpdateLine rewrites the editable fields of a line
func (r *ApprovalRequestRepository) UpdateLine(ctx context.Context, line *entity.ApprovalRequestLine) error {
	query := `
		UPDATE approval_request_lines SET
			product_id = ?, product_name = ?, quantity = ?, unit_price = ?, tracking = ?, lot_name = ?
		WHERE id = ?
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		line.ProductID,
		line.ProductName,
		line.Quantity,
		line.UnitPrice,
		line.Tracking,
		line.LotName,
		line.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update approval request line: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: line %d not found", entity.ErrInvalidInput, line.ID)
	}
	return nil
}

// DeleteLine removes a line; deleting a missing line is not an error
func (r *ApprovalRequestRepository) DeleteLine(ctx context.Context, lineID int64) error {
	if _, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM approval_request_lines WHERE id = ?`, lineID); err != nil {
		return fmt.Errorf("failed to delete approval request line: %w", err)
	}
	return nil
}

// GetLine retrieves a line by ID, or nil when it does not exist
func (r *ApprovalRequestRepository) GetLine(ctx context.Context, lineID int64) (*entity.ApprovalRequestLine, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, requestLineSelect+` WHERE id = ?`, lineID)
	line, err := scanRequestLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval request line: %w", err)
	}
	return line, nil
}

const requestLineSelect = `
	SELECT id, request_id, product_id, product_name, quantity, unit_price, tracking, lot_name
	FROM approval_request_lines`

func (r *ApprovalRequestRepository) lines(ctx context.Context, requestID int64) ([]*entity.ApprovalRequestLine, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, requestLineSelect+` WHERE request_id = ? ORDER BY id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval request lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.ApprovalRequestLine
	for rows.Next() {
		line, err := scanRequestLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval request line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanRequestLine(row rowScanner) (*entity.ApprovalRequestLine, error) {
	var line entity.ApprovalRequestLine
	err := row.Scan(
		&line.ID,
		&line.RequestID,
		&line.ProductID,
		&line.ProductName,
		&line.Quantity,
		&line.UnitPrice,
		&line.Tracking,
		&line.LotName,
	)
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// versionMiss tells a stale version apart from a missing row after a guarded update hit nothing
func versionMiss(ctx context.Context, exec sqlite.Executor, existsQuery string, id int64, notFound error) error {
	var one int
	err := exec.QueryRowContext(ctx, existsQuery, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", notFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to check row: %w", err)
	}
	return fmt.Errorf("%w: id %d", entity.ErrVersionConflict, id)
}

var _ port.ApprovalRequestRepository = (*ApprovalRequestRepository)(nil)
