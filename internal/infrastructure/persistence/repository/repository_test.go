package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-engine/internal/domain/entity"
	domainwf "github.com/garyjia/procurement-engine/internal/domain/workflow"
	"github.com/garyjia/procurement-engine/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/procurement-engine/migrations"
	"github.com/garyjia/procurement-engine/pkg/database"
)

var ctx = context.Background()

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setupDB(t *testing.T) *sqlite.DB {
	t.Helper()
	logger := zap.NewNop()
	conn, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "procurement.db"), MaxOpenConns: 1}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, database.NewMigrator(conn, logger).RunMigrations(migrations.FS))
	return sqlite.NewDB(conn.DB, logger)
}

func TestApprovalLevelRepository(t *testing.T) {
	db := setupDB(t)
	groups := NewApproverGroupRepository(db, zap.NewNop())
	repo := NewApprovalLevelRepository(db, zap.NewNop())

	admins := &entity.ApproverGroup{Name: "Admins"}
	require.NoError(t, groups.Create(ctx, admins))
	users := &entity.ApproverGroup{Name: "Users", ParentID: &admins.ID}
	require.NoError(t, groups.Create(ctx, users))

	ceiling := dec("10000")
	manager := &entity.ApprovalLevelConfig{
		CompanyID:        1,
		LevelNumber:      2,
		Name:             "Manager",
		ApprovalType:     entity.ApprovalTypeAmountBased,
		MinAmount:        dec("1000"),
		MaxAmount:        &ceiling,
		ApproverGroupIDs: []int64{users.ID, admins.ID},
		Active:           true,
	}
	fixed := &entity.ApprovalLevelConfig{
		CompanyID:    1,
		LevelNumber:  1,
		Name:         "Supervisor",
		ApprovalType: entity.ApprovalTypeFixed,
		MinAmount:    decimal.Zero,
		Active:       true,
	}
	require.NoError(t, repo.Create(ctx, manager))
	require.NoError(t, repo.Create(ctx, fixed))
	assert.NotZero(t, manager.ID)

	err := repo.Create(ctx, &entity.ApprovalLevelConfig{CompanyID: 1, LevelNumber: 2, Name: "Again", ApprovalType: entity.ApprovalTypeFixed})
	assert.ErrorIs(t, err, entity.ErrDuplicateLevel)

	loaded, err := repo.GetByID(ctx, manager.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.NotNil(t, loaded.MaxAmount)
	assert.True(t, ceiling.Equal(*loaded.MaxAmount))
	assert.True(t, dec("1000").Equal(loaded.MinAmount))
	assert.ElementsMatch(t, []int64{users.ID, admins.ID}, loaded.ApproverGroupIDs)

	levels, err := repo.ListByCompany(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, 1, levels[0].LevelNumber)
	assert.Nil(t, levels[0].MaxAmount)
	assert.Empty(t, levels[0].ApproverGroupIDs)

	require.NoError(t, repo.Deactivate(ctx, fixed.ID))
	levels, err = repo.ListByCompany(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	all, err := repo.ListByCompany(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, repo.Deactivate(ctx, 999), entity.ErrLevelNotFound)
	missing, err := repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	listed, err := groups.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Nil(t, listed[0].ParentID)
	require.NotNil(t, listed[1].ParentID)
	assert.Equal(t, admins.ID, *listed[1].ParentID)
}

func TestApprovalRequestRepository(t *testing.T) {
	db := setupDB(t)
	levels := NewApprovalLevelRepository(db, zap.NewNop())
	repo := NewApprovalRequestRepository(db, zap.NewNop())
	history := NewApprovalHistoryRepository(db, zap.NewNop())

	level := &entity.ApprovalLevelConfig{
		CompanyID:    1,
		LevelNumber:  1,
		Name:         "Supervisor",
		ApprovalType: entity.ApprovalTypeFixed,
		MinAmount:    decimal.Zero,
		Active:       true,
	}
	require.NoError(t, levels.Create(ctx, level))

	req := &entity.ApprovalRequest{
		Name:          "MR/00001",
		CompanyID:     1,
		RequesterID:   "emp-1",
		State:         domainwf.StateDraft,
		CurrentLevel:  1,
		RequiredLevel: 1,
		TotalAmount:   dec("601"),
		Pricing:       entity.PricingFree,
		Lines: []*entity.ApprovalRequestLine{
			{ProductID: 7, ProductName: "Drill", Quantity: dec("1"), UnitPrice: dec("600.5"), Tracking: entity.TrackingSerial, LotName: "SN-1"},
			{ProductID: 8, ProductName: "Bits", Quantity: dec("2"), UnitPrice: dec("0.25"), Tracking: entity.TrackingNone},
		},
	}
	require.NoError(t, repo.Create(ctx, req))
	assert.Equal(t, int64(1), req.Version)
	require.NotZero(t, req.Lines[0].ID)

	loaded, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 2)
	assert.Equal(t, "SN-1", loaded.Lines[0].LotName)
	assert.True(t, dec("600.5").Equal(loaded.Lines[0].UnitPrice))
	assert.Nil(t, loaded.ResolvedConfigID)

	configID := level.ID
	loaded.State = domainwf.StateSubmitted
	loaded.ResolvedConfigID = &configID
	loaded.RequiredLevel = 2
	require.NoError(t, repo.Update(ctx, loaded))
	assert.Equal(t, int64(2), loaded.Version)

	stale := *loaded
	stale.Version = 1
	assert.ErrorIs(t, repo.Update(ctx, &stale), entity.ErrVersionConflict)
	assert.ErrorIs(t, repo.Update(ctx, &entity.ApprovalRequest{ID: 999, Version: 1}), entity.ErrApprovalRequestNotFound)

	reloaded, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateSubmitted, reloaded.State)
	require.NotNil(t, reloaded.ResolvedConfigID)
	assert.Equal(t, configID, *reloaded.ResolvedConfigID)

	line := reloaded.Lines[1]
	line.Quantity = dec("5")
	require.NoError(t, repo.UpdateLine(ctx, line))
	got, err := repo.GetLine(ctx, line.ID)
	require.NoError(t, err)
	assert.True(t, dec("5").Equal(got.Quantity))

	require.NoError(t, repo.DeleteLine(ctx, line.ID))
	got, err = repo.GetLine(ctx, line.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, repo.UpdateLine(ctx, line), entity.ErrInvalidInput)

	require.NoError(t, history.Append(ctx, &entity.ApprovalHistoryEntry{RequestID: req.ID, ActorID: "mgr", Action: entity.ApprovalActionApprove, LevelAtTime: 1}))
	require.NoError(t, history.Append(ctx, &entity.ApprovalHistoryEntry{RequestID: req.ID, ActorID: "dir", Action: entity.ApprovalActionApprove, LevelAtTime: 2, Comment: "ok"}))
	entries, err := history.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].LevelAtTime)
	assert.Equal(t, "ok", entries[1].Comment)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestRequisitionRepository(t *testing.T) {
	db := setupDB(t)
	products := NewProductRepository(db, zap.NewNop())
	repo := NewRequisitionRepository(db, zap.NewNop())
	history := NewRequisitionHistoryRepository(db, zap.NewNop())

	cement := &entity.Product{Name: "Cement", Tracking: entity.TrackingNone, Uom: "Bag"}
	require.NoError(t, products.Create(ctx, cement))

	site := int64(4)
	req := &entity.Requisition{
		Name:           "PR/00001",
		EmployeeID:     "emp-1",
		CompanyID:      1,
		Project:        "Tower A",
		SiteLocationID: &site,
		State:          domainwf.StateDraft,
		Lines: []*entity.RequisitionLine{
			{ProductID: cement.ID, Description: "Cement", Quantity: dec("10"), Uom: "Bag", UnitPrice: dec("7.5")},
			{Description: "Scaffolding rental", Quantity: dec("1"), Uom: "Month"},
		},
	}
	require.NoError(t, repo.Create(ctx, req))

	loaded, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 2)
	assert.Equal(t, cement.ID, loaded.Lines[0].ProductID)
	assert.Zero(t, loaded.Lines[1].ProductID)
	require.NotNil(t, loaded.SiteLocationID)
	assert.Equal(t, site, *loaded.SiteLocationID)
	assert.Nil(t, loaded.WarehouseID)

	loaded.State = domainwf.StateDeptConfirmed
	require.NoError(t, repo.Update(ctx, loaded))
	stale := *loaded
	stale.Version--
	assert.ErrorIs(t, repo.Update(ctx, &stale), entity.ErrVersionConflict)

	for i, to := range []domainwf.State{domainwf.StateDeptConfirmed, domainwf.StateCancelled} {
		require.NoError(t, history.Append(ctx, &entity.RequisitionHistoryEntry{
			RequisitionID: req.ID,
			FromState:     domainwf.StateDraft,
			ToState:       to,
			StateLabel:    string(to),
			ActorID:       "emp-1",
			IPAddress:     "10.0.0.1",
			CreatedAt:     time.Date(2024, 1, 2, 3, 4, i, 0, time.UTC),
		}))
	}

	require.NoError(t, repo.Delete(ctx, req.ID))
	gone, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	var lineCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM requisition_lines WHERE requisition_id = ?`, req.ID).Scan(&lineCount))
	assert.Zero(t, lineCount, "lines cascade with the requisition")

	entries, err := history.ListByRequisition(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2, "history outlives the requisition")
	assert.Equal(t, domainwf.StateCancelled, entries[0].ToState)
	assert.Equal(t, "10.0.0.1", entries[0].IPAddress)
	count, err := history.CountByRequisition(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestQuoteRepository(t *testing.T) {
	db := setupDB(t)
	vendors := NewVendorRepository(db, zap.NewNop())
	requisitions := NewRequisitionRepository(db, zap.NewNop())
	repo := NewQuoteRepository(db, zap.NewNop())

	acme := &entity.Vendor{Name: "Acme", LarkOpenID: "ou-acme"}
	build := &entity.Vendor{Name: "Builders Co"}
	require.NoError(t, vendors.Create(ctx, acme))
	require.NoError(t, vendors.Create(ctx, build))
	req := &entity.Requisition{Name: "PR/00001", EmployeeID: "emp-1", CompanyID: 1, State: domainwf.StateApproved}
	require.NoError(t, requisitions.Create(ctx, req))

	delivery := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	newQuote := func(name string, vendor *entity.Vendor) *entity.VendorQuote {
		return &entity.VendorQuote{
			Name:          name,
			RequisitionID: req.ID,
			VendorID:      vendor.ID,
			RFQType:       entity.RFQTypeAllToAll,
			State:         entity.QuoteStateSent,
			Lines: []*entity.QuoteLine{
				{ProductID: 1, Quantity: dec("10"), UnitPrice: dec("12.5"), TaxAmount: decimal.Zero, PlannedDelivery: delivery},
				{ProductID: 2, Quantity: dec("4"), UnitPrice: decimal.Zero, TaxAmount: decimal.Zero, PlannedDelivery: delivery},
			},
		}
	}
	q1 := newQuote("RFQ/00001", acme)
	require.NoError(t, repo.Create(ctx, q1))
	require.NoError(t, repo.Create(ctx, newQuote("RFQ/00002", build)))
	assert.ErrorIs(t, repo.Create(ctx, newQuote("RFQ/00003", acme)), entity.ErrDuplicateVendorQuote)

	exists, err := repo.ExistsForVendor(ctx, req.ID, acme.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsForVendor(ctx, req.ID+1, acme.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	quotes, err := repo.ListByRequisition(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	require.Len(t, quotes[0].Lines, 2)
	require.Len(t, quotes[1].Lines, 2)
	assert.Equal(t, "RFQ/00001", quotes[0].Name)
	assert.True(t, quotes[0].Lines[0].PlannedDelivery.Equal(delivery))
	assert.True(t, dec("125").Equal(quotes[0].Total()))

	line := q1.Lines[1]
	line.UnitPrice = dec("3")
	line.TaxAmount = dec("0.6")
	line.PlannedDelivery = delivery.AddDate(0, 0, 7)
	require.NoError(t, repo.UpdateLine(ctx, line))
	got, err := repo.GetLine(ctx, line.ID)
	require.NoError(t, err)
	assert.True(t, dec("3").Equal(got.UnitPrice))
	assert.True(t, dec("0.6").Equal(got.TaxAmount))
	assert.True(t, got.PlannedDelivery.Equal(delivery.AddDate(0, 0, 7)))

	require.NoError(t, repo.UpdateState(ctx, q1.ID, entity.QuoteStateConfirmed))
	assert.ErrorIs(t, repo.UpdateState(ctx, 999, entity.QuoteStateCancelled), entity.ErrOrderNotFound)

	require.NoError(t, repo.DeleteLine(ctx, line.ID))
	assert.ErrorIs(t, repo.UpdateLine(ctx, line), entity.ErrLineNotFound)
	loaded, err := repo.GetByID(ctx, q1.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.QuoteStateConfirmed, loaded.State)
	assert.Len(t, loaded.Lines, 1)

	missing, err := repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrdersFollowersAndSequences(t *testing.T) {
	db := setupDB(t)
	orders := NewPurchaseOrderRepository(db, zap.NewNop())
	followers := NewFollowerRepository(db, zap.NewNop())
	sequences := NewSequenceRepository(db, zap.NewNop())

	order := &entity.PurchaseOrder{
		Name:            "PO/00001",
		RequisitionID:   42,
		VendorID:        3,
		SourceQuoteID:   5,
		SourceLineID:    6,
		ProductID:       7,
		Quantity:        dec("10"),
		UnitPrice:       dec("12.5"),
		PlannedDelivery: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		State:           entity.OrderStateToApprove,
		Note:            "Product Cement confirmed from vendor Acme at price 12.50",
		CreatedBy:       "emp-1",
	}
	require.NoError(t, orders.Create(ctx, order))
	loaded, err := orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStateToApprove, loaded.State)
	assert.True(t, dec("12.5").Equal(loaded.UnitPrice))
	listed, err := orders.ListByRequisition(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	added, err := followers.Add(ctx, 42, 3)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = followers.Add(ctx, 42, 3)
	require.NoError(t, err)
	assert.False(t, added, "subscribing twice is a no-op")
	subscribed, err := followers.ListByRequisition(ctx, 42)
	require.NoError(t, err)
	require.Len(t, subscribed, 1)
	assert.Equal(t, int64(3), subscribed[0].VendorID)

	for want := int64(1); want <= 3; want++ {
		next, err := sequences.Next(ctx, entity.SequencePurchaseOrder)
		require.NoError(t, err)
		assert.Equal(t, want, next)
	}
	next, err := sequences.Next(ctx, entity.SequenceRFQ)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next, "sequences count independently")
}

func TestTransactionRollback(t *testing.T) {
	db := setupDB(t)
	vendors := NewVendorRepository(db, zap.NewNop())

	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		require.NoError(t, vendors.Create(txCtx, &entity.Vendor{Name: "Ghost"}))
		return db.WithTransaction(txCtx, func(inner context.Context) error {
			return sql.ErrTxDone
		})
	})
	require.ErrorIs(t, err, sql.ErrTxDone)

	listed, err := vendors.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)

	require.NoError(t, db.WithTransaction(ctx, func(txCtx context.Context) error {
		return vendors.Create(txCtx, &entity.Vendor{Name: "Acme"})
	}))
	listed, err = vendors.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Acme", listed[0].Name)
}
