package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-engine/internal/application/dispatcher"
	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/application/service"
	appwf "github.com/garyjia/procurement-engine/internal/application/workflow"
	"github.com/garyjia/procurement-engine/internal/infrastructure/export"
	infraLark "github.com/garyjia/procurement-engine/internal/infrastructure/external/lark"
	"github.com/garyjia/procurement-engine/internal/infrastructure/fulfillment"
	"github.com/garyjia/procurement-engine/internal/infrastructure/lock"
	"github.com/garyjia/procurement-engine/internal/infrastructure/persistence/repository"
	"github.com/garyjia/procurement-engine/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/procurement-engine/internal/infrastructure/storage"
	"github.com/garyjia/procurement-engine/migrations"
	"github.com/garyjia/procurement-engine/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Levels             port.ApprovalLevelRepository
	Groups             port.ApproverGroupRepository
	ApprovalRequests   port.ApprovalRequestRepository
	ApprovalHistory    port.ApprovalHistoryRepository
	Requisitions       port.RequisitionRepository
	RequisitionHistory port.RequisitionHistoryRepository
	Vendors            port.VendorRepository
	Products           port.ProductRepository
	Quotes             port.QuoteRepository
	PurchaseOrders     port.PurchaseOrderRepository
	Followers          port.FollowerRepository
	Sequences          port.SequenceRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Levels        service.ApprovalLevelService
	Approvals     service.ApprovalService
	Requisitions  service.RequisitionService
	RFQs          service.RFQService
	Comparisons   service.ComparisonService
	Confirmations service.ConfirmationService
	MasterData    service.MasterDataService
	Notifications service.NotificationService
}

// ServiceDeps holds everything ProvideServices wires together.
type ServiceDeps struct {
	Repos       *RepositoryBundle
	TxManager   port.TransactionManager
	Locker      port.EntityLocker
	Messenger   port.MessageSender
	Storage     port.FileStorage
	Exporter    port.ComparisonExporter
	Fulfillment port.StockFulfillment
	Dispatcher  dispatcher.Dispatcher
	Procurement *ProcurementConfig
	Lark        *LarkConfig
	Logger      *zap.Logger
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(conn, logger).RunMigrations(migrations.FS); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideRepositories creates every repository on the shared transaction manager.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &RepositoryBundle{
		Levels:             repository.NewApprovalLevelRepository(db, logger),
		Groups:             repository.NewApproverGroupRepository(db, logger),
		ApprovalRequests:   repository.NewApprovalRequestRepository(db, logger),
		ApprovalHistory:    repository.NewApprovalHistoryRepository(db, logger),
		Requisitions:       repository.NewRequisitionRepository(db, logger),
		RequisitionHistory: repository.NewRequisitionHistoryRepository(db, logger),
		Vendors:            repository.NewVendorRepository(db, logger),
		Products:           repository.NewProductRepository(db, logger),
		Quotes:             repository.NewQuoteRepository(db, logger),
		PurchaseOrders:     repository.NewPurchaseOrderRepository(db, logger),
		Followers:          repository.NewFollowerRepository(db, logger),
		Sequences:          repository.NewSequenceRepository(db, logger),
	}, nil
}

// ProvideLocker builds the configured lock driver with the wait bound applied.
// The returned close function releases the driver's connections.
func ProvideLocker(cfg *LockConfig, logger *zap.Logger) (port.EntityLocker, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case LockDriverRedis:
		redisLocker, err := lock.NewRedisLocker(lock.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("Using redis entity locks", zap.String("addr", cfg.RedisAddr))
		return lock.NewBounded(redisLocker, cfg.Wait), redisLocker.Close, nil
	case LockDriverMemory, "":
		logger.Info("Using in-process entity locks")
		return lock.NewBounded(lock.NewMemoryLocker(), cfg.Wait), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown lock driver %q", cfg.Driver)
	}
}

// ProvideMessenger returns the Lark messenger, or a log-only sender when Lark is off.
func ProvideMessenger(cfg *LarkConfig, logger *zap.Logger) port.MessageSender {
	if !cfg.Enabled {
		logger.Info("Lark disabled, notifications are logged only")
		return &logMessageSender{logger: logger}
	}
	client := infraLark.NewSDKClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		BaseURL:   cfg.BaseURL,
	}, logger)
	return infraLark.NewMessenger(client, logger)
}

// ProvideStorage creates the export file storage.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) port.FileStorage {
	return storage.NewLocalFileStorage(cfg.ExportDir, logger)
}

// ProvideDispatcher creates the in-process event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}))
}

// ProvideServices wires the requisition engine and every application service.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}

	log := &zapLoggerAdapter{logger: deps.Logger}
	repos := deps.Repos
	withDispatcher := service.WithDispatcher(deps.Dispatcher)

	engine := appwf.NewRequisitionEngine(
		repos.Requisitions,
		repos.RequisitionHistory,
		deps.TxManager,
		deps.Locker,
		log,
		appwf.WithDispatcher(deps.Dispatcher),
	)

	policy := service.ConfirmationPolicy{
		TwoStepValidation:      deps.Procurement.TwoStepValidation,
		DoubleValidationAmount: deps.Procurement.DoubleValidationAmount,
		ManagerGroupID:         deps.Procurement.ManagerGroupID,
		AutoSubscribeVendor:    deps.Procurement.AutoSubscribeVendor,
	}

	exporter := deps.Exporter
	if exporter == nil {
		exporter = export.NewExcelExporter(deps.Logger)
	}
	fulfill := deps.Fulfillment
	if fulfill == nil {
		fulfill = fulfillment.NewLogFulfillment(deps.Logger)
	}

	bundle := &ServiceBundle{
		Levels: service.NewApprovalLevelService(repos.Levels, repos.Groups, log),
		Approvals: service.NewApprovalService(
			repos.ApprovalRequests, repos.ApprovalHistory, repos.Levels, repos.Groups,
			repos.Products, repos.Sequences, deps.TxManager, deps.Locker, fulfill, log,
			withDispatcher,
		),
		Requisitions: service.NewRequisitionService(
			repos.Requisitions, repos.RequisitionHistory, repos.Products, repos.Quotes,
			repos.Sequences, deps.TxManager, deps.Locker, engine,
			warehouseResolver(deps.Procurement.SiteWarehouses), log,
			withDispatcher,
		),
		RFQs: service.NewRFQService(
			repos.Requisitions, repos.Quotes, repos.Vendors, repos.Sequences,
			deps.TxManager, deps.Locker, engine, log,
			withDispatcher,
		),
		Comparisons: service.NewComparisonService(
			repos.Requisitions, repos.Quotes, repos.Vendors, repos.Products,
			exporter, deps.Storage, log,
		),
		Confirmations: service.NewConfirmationService(
			repos.Requisitions, repos.Quotes, repos.PurchaseOrders, repos.Followers,
			repos.Vendors, repos.Products, repos.Groups, repos.Sequences,
			deps.TxManager, deps.Locker, engine, policy, log,
			withDispatcher,
		),
		MasterData: service.NewMasterDataService(repos.Vendors, repos.Products, log),
		Notifications: service.NewNotificationService(
			repos.Requisitions, repos.Quotes, repos.Vendors, deps.Messenger,
			deps.Lark.ApproversOpenID, log,
		),
	}

	if err := bundle.Notifications.RegisterHandlers(deps.Dispatcher); err != nil {
		return nil, fmt.Errorf("failed to register notification handlers: %w", err)
	}
	return bundle, nil
}

func warehouseResolver(sites map[int64]int64) service.WarehouseResolver {
	return func(siteLocationID int64) *int64 {
		warehouseID, ok := sites[siteLocationID]
		if !ok {
			return nil
		}
		return &warehouseID
	}
}

// logMessageSender stands in for Lark when it is disabled
type logMessageSender struct {
	logger *zap.Logger
}

func (s *logMessageSender) SendText(ctx context.Context, openID string, text string) error {
	s.logger.Info("Notification (not sent)", zap.String("open_id", openID), zap.String("text", text))
	return nil
}
