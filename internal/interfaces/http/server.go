// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/procurement-engine/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// AllowedOrigins for CORS; empty allows any origin
	AllowedOrigins []string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Services are the application services exposed over HTTP
type Services struct {
	Levels        service.ApprovalLevelService
	Approvals     service.ApprovalService
	Requisitions  service.RequisitionService
	RFQs          service.RFQService
	Comparisons   service.ComparisonService
	Confirmations service.ConfirmationService
	MasterData    service.MasterDataService
}

// Option configures the server
type Option func(*Server)

// WithAuthenticator requires a bearer token on every /api route
func WithAuthenticator(a *Authenticator) Option {
	return func(s *Server) {
		s.authenticator = a
	}
}

// WithRateLimiter installs a rate limiting middleware in front of /api
func WithRateLimiter(mw gin.HandlerFunc) Option {
	return func(s *Server) {
		s.rateLimiter = mw
	}
}

// Server is the HTTP server adapter
type Server struct {
	config        ServerConfig
	httpServer    *http.Server
	router        *gin.Engine
	handlers      *Handlers
	authenticator *Authenticator
	rateLimiter   gin.HandlerFunc
	logger        Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: NewHandlers(services, logger),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(server)
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(corsMiddleware(s.config.AllowedOrigins))
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	if s.rateLimiter != nil {
		api.Use(s.rateLimiter)
	}
	if s.authenticator != nil {
		api.Use(s.authenticator.Middleware(h))
	} else {
		api.Use(headerActor(h))
	}

	{
		api.GET("/approval-levels", h.ListLevels)
		api.POST("/approval-levels", h.CreateLevel)
		api.POST("/approval-levels/resolve", h.ResolveLevel)
		api.DELETE("/approval-levels/:id", h.DeactivateLevel)
		api.GET("/approver-groups", h.ListGroups)
		api.POST("/approver-groups", h.CreateGroup)
	}

	{
		api.POST("/approval-requests", h.CreateApprovalRequest)
		api.GET("/approval-requests/:id", h.GetApprovalRequest)
		api.PATCH("/approval-requests/:id", h.UpdateApprovalRequest)
		api.POST("/approval-requests/:id/lines", h.AddApprovalLine)
		api.POST("/approval-requests/:id/submit", h.SubmitApprovalRequest)
		api.POST("/approval-requests/:id/approve", h.ApproveApprovalRequest)
		api.POST("/approval-requests/:id/reject", h.RejectApprovalRequest)
		api.POST("/approval-requests/:id/reset", h.ResetApprovalRequest)
		api.POST("/approval-requests/:id/issue", h.IssueApprovalRequest)
		api.POST("/approval-requests/:id/cancel", h.CancelApprovalRequest)
		api.GET("/approval-requests/:id/can-approve", h.CanApprove)
		api.GET("/approval-requests/:id/history", h.ApprovalHistory)
		api.PUT("/approval-request-lines/:id", h.UpdateApprovalLine)
		api.DELETE("/approval-request-lines/:id", h.DeleteApprovalLine)
	}

	{
		api.POST("/requisitions", h.CreateRequisition)
		api.GET("/requisitions/:id", h.GetRequisition)
		api.DELETE("/requisitions/:id", h.DeleteRequisition)
		api.GET("/requisitions/:id/transitions", h.PermittedTransitions)
		api.POST("/requisitions/:id/transitions", h.TransitionRequisition)
		api.GET("/requisitions/:id/history", h.RequisitionHistory)
		api.PUT("/requisitions/:id/site-location", h.UpdateSiteLocation)
		api.PUT("/requisitions/:id/company", h.ChangeCompany)
		api.POST("/requisitions/:id/rfqs", h.CreateRFQs)
		api.GET("/requisitions/:id/quotes", h.ListQuotes)
		api.GET("/requisitions/:id/comparison", h.CompareQuotes)
		api.GET("/requisitions/:id/comparison/export", h.ExportComparison)
	}

	{
		api.PUT("/quote-lines/:id", h.UpdateQuoteLine)
		api.DELETE("/quote-lines/:id", h.RemoveQuoteLine)
		api.POST("/quote-lines/:id/confirm", h.ConfirmLine)
		api.POST("/quotes/:id/confirm", h.ConfirmOrder)
	}

	{
		api.GET("/vendors", h.ListVendors)
		api.POST("/vendors", h.CreateVendor)
		api.POST("/products", h.CreateProduct)
		api.GET("/products/:id", h.GetProduct)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
