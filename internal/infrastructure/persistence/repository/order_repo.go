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

// PurchaseOrderRepository implements port.PurchaseOrderRepository
type PurchaseOrderRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPurchaseOrderRepository creates a new purchase order repository
func NewPurchaseOrderRepository(db *sqlite.DB, logger *zap.Logger) port.PurchaseOrderRepository {
	return &PurchaseOrderRepository{
		db:     db,
		logger: logger,
	}
}

const orderSelect = `
	SELECT id, name, requisition_id, vendor_id, source_quote_id, source_line_id, product_id,
		quantity, unit_price, planned_delivery, state, note, created_by, created_at
	FROM purchase_orders`

// Create inserts a purchase order
func (r *PurchaseOrderRepository) Create(ctx context.Context, order *entity.PurchaseOrder) error {
	stamp(&order.CreatedAt)

	query := `
		INSERT INTO purchase_orders (
			name, requisition_id, vendor_id, source_quote_id, source_line_id, product_id,
			quantity, unit_price, planned_delivery, state, note, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		order.Name,
		order.RequisitionID,
		order.VendorID,
		order.SourceQuoteID,
		order.SourceLineID,
		order.ProductID,
		order.Quantity,
		order.UnitPrice,
		order.PlannedDelivery,
		order.State,
		order.Note,
		order.CreatedBy,
		order.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create purchase order", zap.String("name", order.Name), zap.Error(err))
		return fmt.Errorf("failed to create purchase order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	order.ID = id
	return nil
}

// GetByID retrieves a purchase order, or nil when it does not exist
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	order, err := scanOrder(r.db.Executor(ctx).QueryRowContext(ctx, orderSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase order: %w", err)
	}
	return order, nil
}

// ListByRequisition returns the requisition's orders ordered by id
func (r *PurchaseOrderRepository) ListByRequisition(ctx context.Context, requisitionID int64) ([]*entity.PurchaseOrder, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, orderSelect+` WHERE requisition_id = ? ORDER BY id`, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []*entity.PurchaseOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func scanOrder(row rowScanner) (*entity.PurchaseOrder, error) {
	var order entity.PurchaseOrder
	err := row.Scan(
		&order.ID,
		&order.Name,
		&order.RequisitionID,
		&order.VendorID,
		&order.SourceQuoteID,
		&order.SourceLineID,
		&order.ProductID,
		&order.Quantity,
		&order.UnitPrice,
		&order.PlannedDelivery,
		&order.State,
		&order.Note,
		&order.CreatedBy,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FollowerRepository implements port.FollowerRepository
type FollowerRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewFollowerRepository creates a new follower repository
func NewFollowerRepository(db *sqlite.DB, logger *zap.Logger) port.FollowerRepository {
	return &FollowerRepository{
		db:     db,
		logger: logger,
	}
}

// Add subscribes a vendor and reports whether the subscription is new
func (r *FollowerRepository) Add(ctx context.Context, requisitionID, vendorID int64) (bool, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`INSERT OR IGNORE INTO requisition_followers (requisition_id, vendor_id, created_at) VALUES (?, ?, ?)`,
		requisitionID, vendorID, nowUTC())
	if err != nil {
		r.logger.Error("Failed to add follower",
			zap.Int64("requisition_id", requisitionID),
			zap.Int64("vendor_id", vendorID),
			zap.Error(err))
		return false, fmt.Errorf("failed to add follower: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListByRequisition returns the requisition's followers in subscription order
func (r *FollowerRepository) ListByRequisition(ctx context.Context, requisitionID int64) ([]*entity.RequisitionFollower, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT requisition_id, vendor_id, created_at FROM requisition_followers WHERE requisition_id = ? ORDER BY rowid`,
		requisitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	defer rows.Close()

	var followers []*entity.RequisitionFollower
	for rows.Next() {
		var follower entity.RequisitionFollower
		if err := rows.Scan(&follower.RequisitionID, &follower.VendorID, &follower.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan follower: %w", err)
		}
		followers = append(followers, &follower)
	}
	return followers, rows.Err()
}

// SequenceRepository implements port.SequenceRepository
type SequenceRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(db *sqlite.DB, logger *zap.Logger) port.SequenceRepository {
	return &SequenceRepository{
		db:     db,
		logger: logger,
	}
}

// Next increments the sequence in a single statement and returns the new value
func (r *SequenceRepository) Next(ctx context.Context, code string) (int64, error) {
	var next int64
	err := r.db.Executor(ctx).QueryRowContext(ctx, `
		INSERT INTO sequences (code, last_value) VALUES (?, 1)
		ON CONFLICT (code) DO UPDATE SET last_value = last_value + 1
		RETURNING last_value
	`, code).Scan(&next)
	if err != nil {
		r.logger.Error("Failed to advance sequence", zap.String("code", code), zap.Error(err))
		return 0, fmt.Errorf("failed to advance sequence %s: %w", code, err)
	}
	return next, nil
}

var (
	_ port.PurchaseOrderRepository = (*PurchaseOrderRepository)(nil)
	_ port.FollowerRepository      = (*FollowerRepository)(nil)
	_ port.SequenceRepository      = (*SequenceRepository)(nil)
)
