package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/procurement-engine/internal/domain/entity"
	"github.com/garyjia/procurement-engine/internal/domain/event"
	domainwf "github.com/garyjia/procurement-engine/internal/domain/workflow"
)

// confirmationFixture is a requisition in comparison with three open quotes
type confirmationFixture struct {
	*fixture
	req             *entity.Requisition
	cement, gravel  *entity.Product
	acme, build, lo *entity.Vendor
	q1, q2, q3      *entity.VendorQuote
}

func newConfirmationFixture(t *testing.T) *confirmationFixture {
	t.Helper()
	f := &confirmationFixture{fixture: newFixture(t)}
	f.cement = f.product(t, "Cement", entity.TrackingNone)
	f.gravel = f.product(t, "Gravel", entity.TrackingNone)
	f.acme = f.vendor(t, "Acme", "ou-acme")
	f.build = f.vendor(t, "Builders Co", "")
	f.lo = f.vendor(t, "Lowball Ltd", "")
	f.req = f.requisition(t, domainwf.StateComparison)
	f.q1 = f.quote(t, f.req, f.acme, "RFQ/00001",
		quoteLine(f.cement.ID, "10", "12.5", day("2024-02-01")),
		quoteLine(f.gravel.ID, "4", "30", day("2024-02-03")),
	)
	f.q2 = f.quote(t, f.req, f.build, "RFQ/00002",
		quoteLine(f.cement.ID, "10", "11", day("2024-02-10")),
		quoteLine(f.gravel.ID, "4", "0", day("2024-02-10")),
	)
	f.q3 = f.quote(t, f.req, f.lo, "RFQ/00003",
		quoteLine(f.cement.ID, "10", "9", day("2024-03-01")),
	)
	return f
}

func (f *confirmationFixture) lineInput(quote *entity.VendorQuote, i int) ConfirmLineInput {
	return ConfirmLineInput{
		LineID:        quote.Lines[i].ID,
		VendorID:      quote.VendorID,
		ProductID:     quote.Lines[i].ProductID,
		RequisitionID: f.req.ID,
	}
}

func TestConfirmationService_ConfirmLine(t *testing.T) {
	f := newConfirmationFixture(t)
	svc := f.confirmationService(ConfirmationPolicy{})

	outcome, err := svc.ConfirmLine(ctx, f.lineInput(f.q1, 0), requester)
	require.NoError(t, err)
	require.Nil(t, outcome.NeedsConfirmation)
	require.NotNil(t, outcome.Order)

	order := outcome.Order
	assert.Equal(t, "PO/00001", order.Name)
	assert.Equal(t, entity.OrderStateApproved, order.State)
	assert.Equal(t, f.acme.ID, order.VendorID)
	assert.Equal(t, f.q1.ID, order.SourceQuoteID)
	assert.Equal(t, f.cement.ID, order.ProductID)
	assert.True(t, dec("12.5").Equal(order.UnitPrice))
	assert.True(t, dec("10").Equal(order.Quantity))
	assert.Equal(t, day("2024-02-01"), order.PlannedDelivery)
	assert.Equal(t, "Product Cement confirmed from vendor Acme at price 12.50", order.Note)
	assert.Equal(t, fixedTime, order.CreatedAt)

	evt := f.events.last(event.TypeQuoteLineConfirmed)
	require.NotNil(t, evt)
	assert.Equal(t, order.ID, evt.EntityID)
	assert.Equal(t, event.EntityPurchaseOrder, evt.EntityType)

	assert.Equal(t, domainwf.StateComparison, f.requisitionState(t, f.req.ID), "line confirmation leaves the requisition open")
	assert.Equal(t, entity.QuoteStateSent, f.quoteState(t, f.q1.ID))

	second, err := svc.ConfirmLine(ctx, f.lineInput(f.q3, 0), requester)
	require.NoError(t, err)
	assert.Equal(t, "PO/00002", second.Order.Name)
	assert.Len(t, f.store.OrdersFor(f.req.ID), 2)
}

func TestConfirmationService_ConfirmLineZeroPrice(t *testing.T) {
	f := newConfirmationFixture(t)
	svc := f.confirmationService(ConfirmationPolicy{})
	input := f.lineInput(f.q2, 1)

	outcome, err := svc.ConfirmLine(ctx, input, requester)
	require.NoError(t, err)
	require.Nil(t, outcome.Order)
	require.NotNil(t, outcome.NeedsConfirmation)
	assert.Equal(t, "Gravel", outcome.NeedsConfirmation.ProductName)
	assert.Equal(t, "Builders Co", outcome.NeedsConfirmation.VendorName)
	assert.Contains(t, outcome.NeedsConfirmation.Message, "has no price")
	assert.Empty(t, f.store.OrdersFor(f.req.ID))
	assert.Nil(t, f.events.last(event.TypeQuoteLineConfirmed))

	input.OverrideZeroPrice = true
	outcome, err = svc.ConfirmLine(ctx, input, requester)
	require.NoError(t, err)
	require.NotNil(t, outcome.Order)
	assert.True(t, outcome.Order.UnitPrice.IsZero())
	assert.Equal(t, "Product Gravel confirmed from vendor Builders Co at price 0.00", outcome.Order.Note)
}

func TestConfirmationService_ConfirmLineErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   func(f *confirmationFixture) ConfirmLineInput
		prepare func(t *testing.T, f *confirmationFixture)
		wantErr error
	}{
		{
			name:    "no line",
			input:   func(f *confirmationFixture) ConfirmLineInput { return ConfirmLineInput{RequisitionID: f.req.ID} },
			wantErr: entity.ErrLineNotFound,
		},
		{
			name:    "line removed",
			input:   func(f *confirmationFixture) ConfirmLineInput { return ConfirmLineInput{LineID: 9999, RequisitionID: f.req.ID} },
			wantErr: entity.ErrLineNotFound,
		},
		{
			name: "no requisition",
			input: func(f *confirmationFixture) ConfirmLineInput {
				in := f.lineInput(f.q1, 0)
				in.RequisitionID = 0
				return in
			},
			wantErr: entity.ErrInvalidInput,
		},
		{
			name: "wrong vendor",
			input: func(f *confirmationFixture) ConfirmLineInput {
				in := f.lineInput(f.q1, 0)
				in.VendorID = f.build.ID
				return in
			},
			wantErr: entity.ErrInvalidInput,
		},
		{
			name: "wrong product",
			input: func(f *confirmationFixture) ConfirmLineInput {
				in := f.lineInput(f.q1, 0)
				in.ProductID = f.gravel.ID
				return in
			},
			wantErr: entity.ErrInvalidInput,
		},
		{
			name: "cancelled quote",
			input: func(f *confirmationFixture) ConfirmLineInput {
				return f.lineInput(f.q1, 0)
			},
			prepare: func(t *testing.T, f *confirmationFixture) {
				require.NoError(t, f.store.Quotes().UpdateState(ctx, f.q1.ID, entity.QuoteStateCancelled))
			},
			wantErr: entity.ErrQuoteNotConfirmable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConfirmationFixture(t)
			svc := f.confirmationService(ConfirmationPolicy{})
			if tt.prepare != nil {
				tt.prepare(t, f)
			}

			_, err := svc.ConfirmLine(ctx, tt.input(f), requester)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.store.OrdersFor(f.req.ID))
		})
	}
}

func TestConfirmationService_ConfirmLineReferencesFromLine(t *testing.T) {
	f := newConfirmationFixture(t)
	svc := f.confirmationService(ConfirmationPolicy{})

	outcome, err := svc.ConfirmLine(ctx, ConfirmLineInput{LineID: f.q1.Lines[1].ID, RequisitionID: f.req.ID}, requester)
	require.NoError(t, err)
	assert.Equal(t, f.acme.ID, outcome.Order.VendorID)
	assert.Equal(t, f.gravel.ID, outcome.Order.ProductID)
}

func TestConfirmationService_TwoStepValidation(t *testing.T) {
	tests := []struct {
		name      string
		quote     func(f *confirmationFixture) *entity.VendorQuote
		manager   bool
		wantState entity.OrderState
	}{
		{"below threshold", func(f *confirmationFixture) *entity.VendorQuote { return f.q3 }, false, entity.OrderStateApproved},
		{"above threshold needs a manager", func(f *confirmationFixture) *entity.VendorQuote { return f.q1 }, false, entity.OrderStateToApprove},
		{"parent of the manager group approves directly", func(f *confirmationFixture) *entity.VendorQuote { return f.q1 }, true, entity.OrderStateApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConfirmationFixture(t)
			directors := f.group(t, "Directors", nil)
			managers := f.group(t, "Managers", directors)
			svc := f.confirmationService(ConfirmationPolicy{
				TwoStepValidation:      true,
				DoubleValidationAmount: dec("120"),
				ManagerGroupID:         managers.ID,
			})

			actor := requester
			if tt.manager {
				actor = entity.Actor{ID: "dir-1", GroupIDs: []int64{directors.ID}}
			}

			outcome, err := svc.ConfirmLine(ctx, f.lineInput(tt.quote(f), 0), actor)
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, outcome.Order.State)
		})
	}
}

func TestConfirmationService_ConfirmOrder(t *testing.T) {
	f := newConfirmationFixture(t)
	svc := f.confirmationService(ConfirmationPolicy{AutoSubscribeVendor: true})

	result, err := svc.ConfirmOrder(ctx, f.q1.ID, nil, requester)
	require.NoError(t, err)

	assert.Equal(t, entity.QuoteStateConfirmed, result.Quote.State)
	assert.ElementsMatch(t, []int64{f.q2.ID, f.q3.ID}, result.CancelledQuoteIDs)
	assert.True(t, result.Subscribed)
	require.NotNil(t, result.Transition)
	assert.Equal(t, domainwf.StateConfirmed, result.Transition.ToState)

	assert.Equal(t, entity.QuoteStateConfirmed, f.quoteState(t, f.q1.ID))
	assert.Equal(t, entity.QuoteStateCancelled, f.quoteState(t, f.q2.ID))
	assert.Equal(t, entity.QuoteStateCancelled, f.quoteState(t, f.q3.ID))
	assert.Equal(t, domainwf.StateConfirmed, f.requisitionState(t, f.req.ID))
	assert.Equal(t, []int64{f.acme.ID}, f.store.FollowerIDs(f.req.ID))

	history := f.store.RequisitionHistoryFor(f.req.ID)
	require.Len(t, history, 1)
	assert.Equal(t, "PO Confirmed", history[0].StateLabel)
	assert.Equal(t, "Order RFQ/00001 confirmed", history[0].Notes)

	assert.Equal(t, []event.Type{
		event.TypeVendorSubscribed,
		event.TypeOrderConfirmed,
		event.TypeRequisitionStatusChanged,
	}, f.events.types())
	confirmed := f.events.last(event.TypeOrderConfirmed)
	assert.Equal(t, f.q1.ID, confirmed.EntityID)
	assert.Equal(t, "245", confirmed.GetPayloadString("total"))

	_, err = svc.ConfirmOrder(ctx, f.q1.ID, nil, requester)
	assert.ErrorIs(t, err, entity.ErrAlreadyConfirmed)
}

func TestConfirmationService_ConfirmOrderSubset(t *testing.T) {
	f := newConfirmationFixture(t)
	svc := f.confirmationService(ConfirmationPolicy{})

	result, err := svc.ConfirmOrder(ctx, f.q3.ID, []int64{f.q3.ID, f.q1.ID, 9999}, requester)
	require.NoError(t, err)

	assert.Equal(t, []int64{f.q1.ID}, result.CancelledQuoteIDs)
	assert.False(t, result.Subscribed)
	assert.Equal(t, entity.QuoteStateSent, f.quoteState(t, f.q2.ID), "quotes outside the list are untouched")
	assert.Empty(t, f.store.FollowerIDs(f.req.ID))
	assert.Nil(t, f.events.last(event.TypeVendorSubscribed))
}

func TestConfirmationService_ConfirmOrderErrors(t *testing.T) {
	t.Run("unknown quote", func(t *testing.T) {
		f := newConfirmationFixture(t)
		svc := f.confirmationService(ConfirmationPolicy{})

		_, err := svc.ConfirmOrder(ctx, 9999, nil, requester)
		assert.ErrorIs(t, err, entity.ErrOrderNotFound)
	})

	t.Run("zero priced lines", func(t *testing.T) {
		f := newConfirmationFixture(t)
		svc := f.confirmationService(ConfirmationPolicy{})

		_, err := svc.ConfirmOrder(ctx, f.q2.ID, nil, requester)
		require.ErrorIs(t, err, entity.ErrZeroPriceLinesPresent)
		var zeroErr *entity.ZeroPriceLinesError
		require.ErrorAs(t, err, &zeroErr)
		assert.Equal(t, []string{"Gravel"}, zeroErr.Products)
		assert.Equal(t, entity.KindValidation, entity.KindOf(err))

		assert.Equal(t, entity.QuoteStateSent, f.quoteState(t, f.q1.ID))
		assert.Equal(t, domainwf.StateComparison, f.requisitionState(t, f.req.ID))
	})

	t.Run("cancelled quote", func(t *testing.T) {
		f := newConfirmationFixture(t)
		svc := f.confirmationService(ConfirmationPolicy{})
		require.NoError(t, f.store.Quotes().UpdateState(ctx, f.q1.ID, entity.QuoteStateCancelled))

		_, err := svc.ConfirmOrder(ctx, f.q1.ID, nil, requester)
		assert.ErrorIs(t, err, entity.ErrQuoteNotConfirmable)
	})

	t.Run("requisition not in comparison", func(t *testing.T) {
		f := newConfirmationFixture(t)
		svc := f.confirmationService(ConfirmationPolicy{})
		req, err := f.store.Requisitions().GetByID(ctx, f.req.ID)
		require.NoError(t, err)
		req.State = domainwf.StateApproved
		require.NoError(t, f.store.Requisitions().Update(ctx, req))

		_, err = svc.ConfirmOrder(ctx, f.q1.ID, nil, requester)
		assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	})

	t.Run("lock busy", func(t *testing.T) {
		f := newConfirmationFixture(t)
		svc := f.confirmationService(ConfirmationPolicy{})
		f.locker.Err = entity.ErrEntityBusy

		_, err := svc.ConfirmOrder(ctx, f.q1.ID, nil, requester)
		assert.ErrorIs(t, err, entity.ErrEntityBusy)
		assert.Equal(t, entity.QuoteStateSent, f.quoteState(t, f.q1.ID))
	})
}
