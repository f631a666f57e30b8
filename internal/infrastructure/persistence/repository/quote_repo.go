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

// QuoteRepository implements port.QuoteRepository
type QuoteRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewQuoteRepository creates a new vendor quote repository
func NewQuoteRepository(db *sqlite.DB, logger *zap.Logger) port.QuoteRepository {
	return &QuoteRepository{
		db:     db,
		logger: logger,
	}
}

const (
	quoteSelect = `
		SELECT id, name, requisition_id, vendor_id, rfq_type, state, created_at, updated_at
		FROM vendor_quotes`
	quoteLineSelect = `
		SELECT id, quote_id, product_id, quantity, unit_price, tax_amount, planned_delivery
		FROM quote_lines`
)

// Create inserts the quote and its lines; the (requisition, vendor) key is unique
func (r *QuoteRepository) Create(ctx context.Context, quote *entity.VendorQuote) error {
	stamp(&quote.CreatedAt)
	quote.UpdatedAt = quote.CreatedAt

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		query := `
			INSERT INTO vendor_quotes (
				name, requisition_id, vendor_id, rfq_type, state, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		result, err := r.db.Executor(txCtx).ExecContext(txCtx, query,
			quote.Name,
			quote.RequisitionID,
			quote.VendorID,
			quote.RFQType,
			quote.State,
			quote.CreatedAt,
			quote.UpdatedAt,
		)
		if err != nil {
			if sqlite.IsUniqueViolation(err) {
				return fmt.Errorf("%w: vendor %d", entity.ErrDuplicateVendorQuote, quote.VendorID)
			}
			r.logger.Error("Failed to create quote", zap.String("name", quote.Name), zap.Error(err))
			return fmt.Errorf("failed to create quote: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		quote.ID = id

		lineQuery := `
			INSERT INTO quote_lines (
				quote_id, product_id, quantity, unit_price, tax_amount, planned_delivery
			) VALUES (?, ?, ?, ?, ?, ?)
		`
		for _, line := range quote.Lines {
			line.QuoteID = id
			result, err := r.db.Executor(txCtx).ExecContext(txCtx, lineQuery,
				line.QuoteID,
				line.ProductID,
				line.Quantity,
				line.UnitPrice,
				line.TaxAmount,
				line.PlannedDelivery,
			)
			if err != nil {
				return fmt.Errorf("failed to create quote line: %w", err)
			}
			if line.ID, err = result.LastInsertId(); err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}
		}
		return nil
	})
}

// GetByID loads the quote with its lines, or nil when it does not exist
func (r *QuoteRepository) GetByID(ctx context.Context, id int64) (*entity.VendorQuote, error) {
	quote, err := scanQuote(r.db.Executor(ctx).QueryRowContext(ctx, quoteSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	lines, err := r.loadLines(ctx, `WHERE quote_id = ?`, id)
	if err != nil {
		return nil, err
	}
	quote.Lines = lines
	return quote, nil
}

// ListByRequisition returns the requisition's quotes with their lines ordered by id
func (r *QuoteRepository) ListByRequisition(ctx context.Context, requisitionID int64) ([]*entity.VendorQuote, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, quoteSelect+` WHERE requisition_id = ? ORDER BY id`, requisitionID)
	if err != nil {
		r.logger.Error("Failed to list quotes", zap.Int64("requisition_id", requisitionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}

	var quotes []*entity.VendorQuote
	byID := make(map[int64]*entity.VendorQuote)
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, quote)
		byID[quote.ID] = quote
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(quotes) == 0 {
		return quotes, nil
	}
	lines, err := r.loadLines(ctx,
		`WHERE quote_id IN (SELECT id FROM vendor_quotes WHERE requisition_id = ?)`, requisitionID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if quote, ok := byID[line.QuoteID]; ok {
			quote.Lines = append(quote.Lines, line)
		}
	}
	return quotes, nil
}

// ExistsForVendor reports whether the vendor already quoted the requisition
func (r *QuoteRepository) ExistsForVendor(ctx context.Context, requisitionID, vendorID int64) (bool, error) {
	var exists bool
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM vendor_quotes WHERE requisition_id = ? AND vendor_id = ?)`,
		requisitionID, vendorID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check vendor quote: %w", err)
	}
	return exists, nil
}

// UpdateState moves a quote to a new state
func (r *QuoteRepository) UpdateState(ctx context.Context, id int64, state entity.QuoteState) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE vendor_quotes SET state = ?, updated_at = ? WHERE id = ?`, state, nowUTC(), id)
	if err != nil {
		r.logger.Error("Failed to update quote state", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update quote state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", entity.ErrOrderNotFound, id)
	}
	return nil
}

// GetLine retrieves a quote line, or nil when it was removed
func (r *QuoteRepository) GetLine(ctx context.Context, lineID int64) (*entity.QuoteLine, error) {
	line, err := scanQuoteLine(r.db.Executor(ctx).QueryRowContext(ctx, quoteLineSelect+` WHERE id = ?`, lineID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote line: %w", err)
	}
	return line, nil
}

// UpdateLine stores the vendor's price, tax and planned delivery
func (r *QuoteRepository) UpdateLine(ctx context.Context, line *entity.QuoteLine) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE quote_lines SET unit_price = ?, tax_amount = ?, planned_delivery = ? WHERE id = ?`,
		line.UnitPrice,
		line.TaxAmount,
		line.PlannedDelivery,
		line.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update quote line: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", entity.ErrLineNotFound, line.ID)
	}
	return nil
}

// DeleteLine removes a quote line; deleting a missing line is not an error
func (r *QuoteRepository) DeleteLine(ctx context.Context, lineID int64) error {
	if _, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM quote_lines WHERE id = ?`, lineID); err != nil {
		return fmt.Errorf("failed to delete quote line: %w", err)
	}
	return nil
}

func (r *QuoteRepository) loadLines(ctx context.Context, where string, arg interface{}) ([]*entity.QuoteLine, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, quoteLineSelect+` `+where+` ORDER BY id`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to load quote lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.QuoteLine
	for rows.Next() {
		line, err := scanQuoteLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanQuote(row rowScanner) (*entity.VendorQuote, error) {
	var quote entity.VendorQuote
	err := row.Scan(
		&quote.ID,
		&quote.Name,
		&quote.RequisitionID,
		&quote.VendorID,
		&quote.RFQType,
		&quote.State,
		&quote.CreatedAt,
		&quote.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func scanQuoteLine(row rowScanner) (*entity.QuoteLine, error) {
	var line entity.QuoteLine
	err := row.Scan(
		&line.ID,
		&line.QuoteID,
		&line.ProductID,
		&line.Quantity,
		&line.UnitPrice,
		&line.TaxAmount,
		&line.PlannedDelivery,
	)
	if err != nil {
		return nil, err
	}
	return &line, nil
}

var _ port.QuoteRepository = (*QuoteRepository)(nil)
