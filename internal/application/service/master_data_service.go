package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

// MasterDataService maintains the vendors and products the procurement flows refer to
type MasterDataService interface {
	CreateVendor(ctx context.Context, vendor *entity.Vendor) (*entity.Vendor, error)
	ListVendors(ctx context.Context) ([]*entity.Vendor, error)
	CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error)
	GetProduct(ctx context.Context, id int64) (*entity.Product, error)
}

type masterDataServiceImpl struct {
	vendorRepo  port.VendorRepository
	productRepo port.ProductRepository
	logger      Logger
}

// NewMasterDataService creates a new MasterDataService
func NewMasterDataService(vendorRepo port.VendorRepository, productRepo port.ProductRepository, logger Logger) MasterDataService {
	return &masterDataServiceImpl{
		vendorRepo:  vendorRepo,
		productRepo: productRepo,
		logger:      logger,
	}
}

func (s *masterDataServiceImpl) CreateVendor(ctx context.Context, vendor *entity.Vendor) (*entity.Vendor, error) {
	vendor.Name = strings.TrimSpace(vendor.Name)
	if vendor.Name == "" {
		return nil, fmt.Errorf("%w: vendor name is required", entity.ErrInvalidInput)
	}
	if err := s.vendorRepo.Create(ctx, vendor); err != nil {
		s.logger.Error("Failed to create vendor", "error", err, "name", vendor.Name)
		return nil, err
	}
	s.logger.Info("Vendor created", "id", vendor.ID, "name", vendor.Name)
	return vendor, nil
}

func (s *masterDataServiceImpl) ListVendors(ctx context.Context) ([]*entity.Vendor, error) {
	return s.vendorRepo.List(ctx)
}

func (s *masterDataServiceImpl) CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", entity.ErrInvalidInput)
	}
	switch product.Tracking {
	case "":
		product.Tracking = entity.TrackingNone
	case entity.TrackingNone, entity.TrackingLot, entity.TrackingSerial:
	default:
		return nil, fmt.Errorf("%w: unknown tracking %q", entity.ErrInvalidInput, product.Tracking)
	}
	if product.Uom == "" {
		product.Uom = "Units"
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.Error("Failed to create product", "error", err, "name", product.Name)
		return nil, err
	}
	s.logger.Info("Product created", "id", product.ID, "name", product.Name)
	return product, nil
}

func (s *masterDataServiceImpl) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: id %d", entity.ErrProductNotFound, id)
	}
	return product, nil
}

var _ MasterDataService = (*masterDataServiceImpl)(nil)
