package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/procurement-engine/internal/application/port/porttest"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

func TestMasterDataService_Products(t *testing.T) {
	f := newFixture(t)
	svc := NewMasterDataService(f.store.Vendors(), f.store.Products(), porttest.Logger{})

	product, err := svc.CreateProduct(ctx, &entity.Product{Name: "  Rebar  "})
	require.NoError(t, err)
	assert.Equal(t, "Rebar", product.Name)
	assert.Equal(t, entity.TrackingNone, product.Tracking)
	assert.Equal(t, "Units", product.Uom)

	loaded, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rebar", loaded.Name)

	_, err = svc.GetProduct(ctx, 999)
	assert.ErrorIs(t, err, entity.ErrProductNotFound)

	_, err = svc.CreateProduct(ctx, &entity.Product{Name: "Drill", Tracking: "batch"})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = svc.CreateProduct(ctx, &entity.Product{Name: " "})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestMasterDataService_Vendors(t *testing.T) {
	f := newFixture(t)
	svc := NewMasterDataService(f.store.Vendors(), f.store.Products(), porttest.Logger{})

	_, err := svc.CreateVendor(ctx, &entity.Vendor{})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = svc.CreateVendor(ctx, &entity.Vendor{Name: "Acme", LarkOpenID: "ou-acme"})
	require.NoError(t, err)
	_, err = svc.CreateVendor(ctx, &entity.Vendor{Name: "Builders Co"})
	require.NoError(t, err)

	vendors, err := svc.ListVendors(ctx)
	require.NoError(t, err)
	require.Len(t, vendors, 2)
	assert.Equal(t, "Acme", vendors[0].Name)
}
