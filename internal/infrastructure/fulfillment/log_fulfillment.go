// Package fulfillment hands issued approval requests to the warehouse side.
package fulfillment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

// LogFulfillment records the picking of an issued request in the log.
// Deployments without a warehouse integration run with this implementation.
type LogFulfillment struct {
	logger *zap.Logger
}

// NewLogFulfillment creates a new LogFulfillment
func NewLogFulfillment(logger *zap.Logger) *LogFulfillment {
	return &LogFulfillment{logger: logger}
}

// Fulfill logs one picking entry per request line
func (f *LogFulfillment) Fulfill(ctx context.Context, req *entity.ApprovalRequest) error {
	if req == nil {
		return fmt.Errorf("approval request is nil")
	}

	for _, line := range req.Lines {
		f.logger.Info("Picking line",
			zap.String("request", req.Name),
			zap.Int64("product_id", line.ProductID),
			zap.String("product", line.ProductName),
			zap.String("quantity", line.Quantity.String()))
	}

	f.logger.Info("Approval request fulfilled",
		zap.Int64("request_id", req.ID),
		zap.String("request", req.Name),
		zap.Int("lines", len(req.Lines)))
	return nil
}

var _ port.StockFulfillment = (*LogFulfillment)(nil)
