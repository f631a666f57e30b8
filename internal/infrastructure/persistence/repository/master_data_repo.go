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

// VendorRepository implements port.VendorRepository
type VendorRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewVendorRepository creates a new vendor repository
func NewVendorRepository(db *sqlite.DB, logger *zap.Logger) port.VendorRepository {
	return &VendorRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a vendor
func (r *VendorRepository) Create(ctx context.Context, vendor *entity.Vendor) error {
	stamp(&vendor.CreatedAt)

	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`INSERT INTO vendors (name, email, lark_open_id, created_at) VALUES (?, ?, ?, ?)`,
		vendor.Name,
		vendor.Email,
		vendor.LarkOpenID,
		vendor.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create vendor", zap.String("name", vendor.Name), zap.Error(err))
		return fmt.Errorf("failed to create vendor: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	vendor.ID = id
	return nil
}

// GetByID retrieves a vendor by ID, or nil when it does not exist
func (r *VendorRepository) GetByID(ctx context.Context, id int64) (*entity.Vendor, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT id, name, email, lark_open_id, created_at FROM vendors WHERE id = ?`, id)

	vendor, err := scanVendor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return vendor, nil
}

// List returns every vendor ordered by id
func (r *VendorRepository) List(ctx context.Context) ([]*entity.Vendor, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT id, name, email, lark_open_id, created_at FROM vendors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []*entity.Vendor
	for rows.Next() {
		vendor, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, vendor)
	}
	return vendors, rows.Err()
}

func scanVendor(row rowScanner) (*entity.Vendor, error) {
	var vendor entity.Vendor
	if err := row.Scan(&vendor.ID, &vendor.Name, &vendor.Email, &vendor.LarkOpenID, &vendor.CreatedAt); err != nil {
		return nil, err
	}
	return &vendor, nil
}

// ProductRepository implements port.ProductRepository
type ProductRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sqlite.DB, logger *zap.Logger) port.ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a product
func (r *ProductRepository) Create(ctx context.Context, product *entity.Product) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`INSERT INTO products (name, tracking, uom) VALUES (?, ?, ?)`,
		product.Name,
		product.Tracking,
		product.Uom,
	)
	if err != nil {
		r.logger.Error("Failed to create product", zap.String("name", product.Name), zap.Error(err))
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	product.ID = id
	return nil
}

// GetByID retrieves a product by ID, or nil when it does not exist
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	var product entity.Product
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT id, name, tracking, uom FROM products WHERE id = ?`, id,
	).Scan(&product.ID, &product.Name, &product.Tracking, &product.Uom)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

var (
	_ port.VendorRepository  = (*VendorRepository)(nil)
	_ port.ProductRepository = (*ProductRepository)(nil)
)
