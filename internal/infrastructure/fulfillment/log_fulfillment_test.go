package fulfillment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

func TestLogFulfillment_Fulfill(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := NewLogFulfillment(zap.New(core))

	req := &entity.ApprovalRequest{
		ID:   3,
		Name: "MR/00003",
		Lines: []*entity.ApprovalRequestLine{
			{ProductID: 1, ProductName: "Cement", Quantity: decimal.NewFromInt(10)},
			{ProductID: 2, ProductName: "Gravel", Quantity: decimal.NewFromInt(4)},
		},
	}

	require.NoError(t, f.Fulfill(context.Background(), req))

	assert.Equal(t, 2, logs.FilterMessage("Picking line").Len())
	done := logs.FilterMessage("Approval request fulfilled").All()
	require.Len(t, done, 1)
	assert.Equal(t, int64(2), done[0].ContextMap()["lines"])
}

func TestLogFulfillment_NilRequest(t *testing.T) {
	err := NewLogFulfillment(zap.NewNop()).Fulfill(context.Background(), nil)
	assert.Error(t, err)
}
