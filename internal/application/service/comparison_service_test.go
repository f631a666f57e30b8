package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/procurement-engine/internal/domain/comparison"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	domainwf "github.com/garyjia/procurement-engine/internal/domain/workflow"
)

// comparisonFixture holds two vendors quoting two products
type comparisonFixture struct {
	*fixture
	req    *entity.Requisition
	p1, p2 *entity.Product
	v1, v2 *entity.Vendor
}

func newComparisonFixture(t *testing.T) *comparisonFixture {
	t.Helper()
	f := &comparisonFixture{fixture: newFixture(t)}
	f.p1 = f.product(t, "P1", entity.TrackingNone)
	f.p2 = f.product(t, "P2", entity.TrackingNone)
	f.v1 = f.vendor(t, "V1", "")
	f.v2 = f.vendor(t, "V2", "")
	f.req = f.requisition(t, domainwf.StateComparison)
	f.quote(t, f.req, f.v1, "RFQ/00001",
		quoteLine(f.p1.ID, "1", "10", day("2024-01-10")),
		quoteLine(f.p2.ID, "1", "20", day("2024-01-10")),
	)
	f.quote(t, f.req, f.v2, "RFQ/00002",
		quoteLine(f.p1.ID, "1", "8", day("2024-01-05")),
		quoteLine(f.p2.ID, "1", "25", day("2024-01-05")),
	)
	return f
}

func TestComparisonService_CompareByPrice(t *testing.T) {
	f := newComparisonFixture(t)
	svc := f.comparisonService(&mockExporter{}, &mockFileStorage{})

	result, err := svc.Compare(ctx, f.req.ID, "by_price", "")
	require.NoError(t, err)

	assert.Equal(t, "PR/00042", result.RequisitionName)
	assert.Equal(t, comparison.ModeByPrice, result.Mode)
	assert.Equal(t, []string{"Tower A"}, result.Projects)
	require.Equal(t, 2, result.VendorCount)
	require.Equal(t, 2, result.ProductCount)

	assert.Equal(t, f.v2.ID, result.PerProduct[f.p1.ID].MinPriceVendorID)
	assert.Equal(t, f.v1.ID, result.PerProduct[f.p2.ID].MinPriceVendorID)
	assert.True(t, dec("30").Equal(result.PerVendorTotal[f.v1.ID].Subtotal))
	assert.True(t, dec("33").Equal(result.PerVendorTotal[f.v2.ID].Subtotal))
	assert.Equal(t, f.v1.ID, result.MinTotalVendorID)
}

func TestComparisonService_CompareByDate(t *testing.T) {
	f := newComparisonFixture(t)
	svc := f.comparisonService(&mockExporter{}, &mockFileStorage{})

	result, err := svc.Compare(ctx, f.req.ID, "by_date", "")
	require.NoError(t, err)

	assert.Equal(t, f.v2.ID, result.MinDeliveryVendorID)
	assert.Equal(t, f.v2.ID, result.PerProduct[f.p1.ID].RecommendedVendorID)
	assert.Equal(t, f.v2.ID, result.PerProduct[f.p2.ID].RecommendedVendorID)
}

func TestComparisonService_CompareEdgeCases(t *testing.T) {
	t.Run("unknown mode", func(t *testing.T) {
		f := newComparisonFixture(t)
		svc := f.comparisonService(&mockExporter{}, &mockFileStorage{})

		_, err := svc.Compare(ctx, f.req.ID, "cheapest", "")
		assert.ErrorIs(t, err, entity.ErrInvalidComparisonMode)
	})

	t.Run("missing requisition", func(t *testing.T) {
		f := newComparisonFixture(t)
		svc := f.comparisonService(&mockExporter{}, &mockFileStorage{})

		result, err := svc.Compare(ctx, 9999, "", "")
		require.NoError(t, err)
		assert.Equal(t, "Unknown", result.RequisitionName)
		assert.Equal(t, comparison.ModeNone, result.Mode)
		assert.Zero(t, result.VendorCount)
		assert.Empty(t, result.ProductRows)
	})

	t.Run("vendor deleted after quoting", func(t *testing.T) {
		f := newComparisonFixture(t)
		svc := f.comparisonService(&mockExporter{}, &mockFileStorage{})
		f.store.DeleteVendor(f.v2.ID)

		result, err := svc.Compare(ctx, f.req.ID, "by_price", "")
		require.NoError(t, err)
		require.Equal(t, 1, result.VendorCount)
		assert.Equal(t, f.v1.ID, result.PerProduct[f.p1.ID].MinPriceVendorID)
	})

	t.Run("project filter excludes other projects", func(t *testing.T) {
		f := newComparisonFixture(t)
		svc := f.comparisonService(&mockExporter{}, &mockFileStorage{})

		result, err := svc.Compare(ctx, f.req.ID, "by_price", "Bridge")
		require.NoError(t, err)
		assert.Zero(t, result.VendorCount)
		assert.Equal(t, "Bridge", result.ProjectFilter)
	})
}

func TestComparisonService_Export(t *testing.T) {
	f := newComparisonFixture(t)
	storage := &mockFileStorage{}
	var exported *comparison.Result
	exporter := &mockExporter{exportFunc: func(result *comparison.Result) ([]byte, error) {
		exported = result
		return []byte("spreadsheet"), nil
	}}
	svc := f.comparisonService(exporter, storage)

	out, err := svc.Export(ctx, f.req.ID, "by_price", "")
	require.NoError(t, err)

	assert.Equal(t, "comparison_PR_00042_20240102_030405.xlsx", out.FileName)
	assert.Equal(t, "/data/exports/comparisons/comparison_PR_00042_20240102_030405.xlsx", out.Path)
	assert.Equal(t, []byte("spreadsheet"), out.Content)
	assert.Equal(t, []byte("spreadsheet"), storage.saved["comparisons/comparison_PR_00042_20240102_030405.xlsx"])
	require.NotNil(t, exported)
	assert.Equal(t, 2, exported.VendorCount)
}

func TestComparisonService_ExportFailures(t *testing.T) {
	t.Run("exporter error", func(t *testing.T) {
		f := newComparisonFixture(t)
		storage := &mockFileStorage{}
		exporter := &mockExporter{exportFunc: func(*comparison.Result) ([]byte, error) {
			return nil, errors.New("render failed")
		}}
		svc := f.comparisonService(exporter, storage)

		_, err := svc.Export(ctx, f.req.ID, "by_price", "")
		assert.ErrorContains(t, err, "render failed")
		assert.Empty(t, storage.saved)
	})

	t.Run("storage error", func(t *testing.T) {
		f := newComparisonFixture(t)
		storage := &mockFileStorage{saveFunc: func(ctx context.Context, path string, content []byte) error {
			return errors.New("disk full")
		}}
		svc := f.comparisonService(&mockExporter{}, storage)

		_, err := svc.Export(ctx, f.req.ID, "by_price", "")
		assert.ErrorContains(t, err, "disk full")
	})

	t.Run("invalid mode is not exported", func(t *testing.T) {
		f := newComparisonFixture(t)
		storage := &mockFileStorage{}
		svc := f.comparisonService(&mockExporter{}, storage)

		_, err := svc.Export(ctx, f.req.ID, "sideways", "")
		assert.ErrorIs(t, err, entity.ErrInvalidComparisonMode)
		assert.Empty(t, storage.saved)
	})
}
