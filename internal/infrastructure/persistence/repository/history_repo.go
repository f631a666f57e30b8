package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	"github.com/garyjia/procurement-engine/internal/infrastructure/persistence/sqlite"
)

// ApprovalHistoryRepository implements port.ApprovalHistoryRepository
type ApprovalHistoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewApprovalHistoryRepository creates a new approval history repository
func NewApprovalHistoryRepository(db *sqlite.DB, logger *zap.Logger) port.ApprovalHistoryRepository {
	return &ApprovalHistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append creates a new history record
func (r *ApprovalHistoryRepository) Append(ctx context.Context, entry *entity.ApprovalHistoryEntry) error {
	stamp(&entry.CreatedAt)

	query := `
		INSERT INTO approval_history (
			request_id, actor_id, action, level_at_time, comment, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		entry.RequestID,
		entry.ActorID,
		entry.Action,
		entry.LevelAtTime,
		entry.Comment,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append approval history", zap.Int64("request_id", entry.RequestID), zap.Error(err))
		return fmt.Errorf("failed to append approval history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListByRequest returns the entries of a request oldest first
func (r *ApprovalHistoryRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.ApprovalHistoryEntry, error) {
	query := `
		SELECT id, request_id, actor_id, action, level_at_time, comment, created_at
		FROM approval_history
		WHERE request_id = ?
		ORDER BY id ASC
	`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to get approval history", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval history: %w", err)
	}
	defer rows.Close()

	var entries []*entity.ApprovalHistoryEntry
	for rows.Next() {
		var entry entity.ApprovalHistoryEntry
		err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.ActorID,
			&entry.Action,
			&entry.LevelAtTime,
			&entry.Comment,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval history: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// RequisitionHistoryRepository implements port.RequisitionHistoryRepository
type RequisitionHistoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRequisitionHistoryRepository creates a new requisition history repository
func NewRequisitionHistoryRepository(db *sqlite.DB, logger *zap.Logger) port.RequisitionHistoryRepository {
	return &RequisitionHistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append creates a new history record
func (r *RequisitionHistoryRepository) Append(ctx context.Context, entry *entity.RequisitionHistoryEntry) error {
	stamp(&entry.CreatedAt)

	query := `
		INSERT INTO requisition_history (
			requisition_id, from_state, to_state, state_label, actor_id, notes, ip_address, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		entry.RequisitionID,
		entry.FromState,
		entry.ToState,
		entry.StateLabel,
		entry.ActorID,
		entry.Notes,
		entry.IPAddress,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append requisition history", zap.Int64("requisition_id", entry.RequisitionID), zap.Error(err))
		return fmt.Errorf("failed to append requisition history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListByRequisition returns the entries of a requisition newest first
func (r *RequisitionHistoryRepository) ListByRequisition(ctx context.Context, requisitionID int64) ([]*entity.RequisitionHistoryEntry, error) {
	query := `
		SELECT id, requisition_id, from_state, to_state, state_label, actor_id, notes, ip_address, created_at
		FROM requisition_history
		WHERE requisition_id = ?
		ORDER BY id DESC
	`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, requisitionID)
	if err != nil {
		r.logger.Error("Failed to get requisition history", zap.Int64("requisition_id", requisitionID), zap.Error(err))
		return nil, fmt.Errorf("failed to get requisition history: %w", err)
	}
	defer rows.Close()

	var entries []*entity.RequisitionHistoryEntry
	for rows.Next() {
		var entry entity.RequisitionHistoryEntry
		err := rows.Scan(
			&entry.ID,
			&entry.RequisitionID,
			&entry.FromState,
			&entry.ToState,
			&entry.StateLabel,
			&entry.ActorID,
			&entry.Notes,
			&entry.IPAddress,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requisition history: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// CountByRequisition counts the transitions recorded for a requisition
func (r *RequisitionHistoryRepository) CountByRequisition(ctx context.Context, requisitionID int64) (int, error) {
	var count int
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM requisition_history WHERE requisition_id = ?`, requisitionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count requisition history: %w", err)
	}
	return count, nil
}

var (
	_ port.ApprovalHistoryRepository    = (*ApprovalHistoryRepository)(nil)
	_ port.RequisitionHistoryRepository = (*RequisitionHistoryRepository)(nil)
)
