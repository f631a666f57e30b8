package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/comparison"
)

// unknownRequisition names the comparison of a requisition that no longer exists
const unknownRequisition = "Unknown"

// ExportedComparison is a rendered comparison matrix
type ExportedComparison struct {
	FileName string
	Path     string
	Content  []byte
}

// ComparisonService compares vendor quotes of a requisition
type ComparisonService interface {
	Compare(ctx context.Context, requisitionID int64, mode string, projectFilter string) (*comparison.Result, error)
	Export(ctx context.Context, requisitionID int64, mode string, projectFilter string) (*ExportedComparison, error)
}

type comparisonServiceImpl struct {
	requisitionRepo port.RequisitionRepository
	quoteRepo       port.QuoteRepository
	vendorRepo      port.VendorRepository
	productRepo     port.ProductRepository
	exporter        port.ComparisonExporter
	storage         port.FileStorage
	logger          Logger
	options
}

// NewComparisonService creates a new ComparisonService
func NewComparisonService(
	requisitionRepo port.RequisitionRepository,
	quoteRepo port.QuoteRepository,
	vendorRepo port.VendorRepository,
	productRepo port.ProductRepository,
	exporter port.ComparisonExporter,
	storage port.FileStorage,
	logger Logger,
	opts ...Option,
) ComparisonService {
	return &comparisonServiceImpl{
		requisitionRepo: requisitionRepo,
		quoteRepo:       quoteRepo,
		vendorRepo:      vendorRepo,
		productRepo:     productRepo,
		exporter:        exporter,
		storage:         storage,
		logger:          logger,
		options:         newOptions(opts),
	}
}

// Compare reads without locking; vendors and products are re-validated as the
// engine reaches them.
func (s *comparisonServiceImpl) Compare(ctx context.Context, requisitionID int64, mode string, projectFilter string) (*comparison.Result, error) {
	m, err := comparison.ParseMode(mode)
	if err != nil {
		return nil, err
	}

	input := comparison.Input{
		RequisitionName: unknownRequisition,
		Mode:            m,
		ProjectFilter:   projectFilter,
	}

	req, err := s.requisitionRepo.GetByID(ctx, requisitionID)
	if err != nil {
		s.logger.Error("Failed to load requisition for comparison", "error", err, "requisition_id", requisitionID)
		return nil, err
	}
	if req != nil {
		input.RequisitionName = req.Name
		quotes, err := s.quoteRepo.ListByRequisition(ctx, requisitionID)
		if err != nil {
			s.logger.Error("Failed to load quotes for comparison", "error", err, "requisition_id", requisitionID)
			return nil, err
		}
		for _, q := range quotes {
			input.Quotes = append(input.Quotes, comparison.QuoteSource{Quote: q, Project: req.Project})
		}
	}

	result := comparison.Compare(input, &repoResolver{
		ctx:         ctx,
		vendorRepo:  s.vendorRepo,
		productRepo: s.productRepo,
		logger:      s.logger,
	})

	s.logger.Info("Vendor quotes compared",
		"requisition_id", requisitionID,
		"mode", m,
		"vendors", result.VendorCount,
		"products", result.ProductCount,
	)
	return result, nil
}

// Export renders the comparison to a spreadsheet and keeps a copy in file storage
func (s *comparisonServiceImpl) Export(ctx context.Context, requisitionID int64, mode string, projectFilter string) (*ExportedComparison, error) {
	result, err := s.Compare(ctx, requisitionID, mode, projectFilter)
	if err != nil {
		return nil, err
	}

	content, err := s.exporter.Export(result)
	if err != nil {
		s.logger.Error("Failed to export comparison", "error", err, "requisition_id", requisitionID)
		return nil, fmt.Errorf("failed to export comparison: %w", err)
	}

	fileName := fmt.Sprintf("comparison_%s_%s.xlsx",
		strings.ReplaceAll(result.RequisitionName, "/", "_"),
		s.now().Format("20060102_150405"),
	)
	path := "comparisons/" + fileName
	if err := s.storage.Save(ctx, path, content); err != nil {
		s.logger.Error("Failed to store comparison export", "error", err, "path", path)
		return nil, fmt.Errorf("failed to store comparison export: %w", err)
	}

	s.logger.Info("Comparison exported", "requisition_id", requisitionID, "path", path, "size", len(content))
	return &ExportedComparison{
		FileName: fileName,
		Path:     s.storage.GetFullPath(path),
		Content:  content,
	}, nil
}

// repoResolver looks vendors and products up on every call
type repoResolver struct {
	ctx         context.Context
	vendorRepo  port.VendorRepository
	productRepo port.ProductRepository
	logger      Logger
}

func (r *repoResolver) VendorName(id int64) (string, bool) {
	vendor, err := r.vendorRepo.GetByID(r.ctx, id)
	if err != nil {
		r.logger.Error("Failed to resolve vendor", "error", err, "vendor_id", id)
		return "", false
	}
	if vendor == nil {
		return "", false
	}
	return vendor.Name, true
}

func (r *repoResolver) ProductName(id int64) (string, bool) {
	product, err := r.productRepo.GetByID(r.ctx, id)
	if err != nil {
		r.logger.Error("Failed to resolve product", "error", err, "product_id", id)
		return "", false
	}
	if product == nil {
		return "", false
	}
	return product.Name, true
}

var _ ComparisonService = (*comparisonServiceImpl)(nil)
