package comparison

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

type mapResolver struct {
	vendors  map[int64]string
	products map[int64]string
}

func (r *mapResolver) VendorName(id int64) (string, bool) {
	name, ok := r.vendors[id]
	return name, ok
}

func (r *mapResolver) ProductName(id int64) (string, bool) {
	name, ok := r.products[id]
	return name, ok
}

func newResolver() *mapResolver {
	return &mapResolver{
		vendors:  map[int64]string{1: "V1", 2: "V2", 3: "V3"},
		products: map[int64]string{10: "P1", 20: "P2", 30: "P3"},
	}
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func line(id, product int64, price string, delivery string) *entity.QuoteLine {
	return &entity.QuoteLine{
		ID:              id,
		ProductID:       product,
		Quantity:        decimal.NewFromInt(1),
		UnitPrice:       decimal.RequireFromString(price),
		TaxAmount:       decimal.Zero,
		PlannedDelivery: date(delivery),
	}
}

func quote(id, vendor int64, lines ...*entity.QuoteLine) *entity.VendorQuote {
	return &entity.VendorQuote{
		ID:       id,
		Name:     "RFQ/0000" + string(rune('0'+id)),
		VendorID: vendor,
		State:    entity.QuoteStateSent,
		Lines:    lines,
	}
}

func twoVendorInput(mode Mode) Input {
	return Input{
		RequisitionName: "PR/00001",
		Mode:            mode,
		Quotes: []QuoteSource{
			{Quote: quote(1, 1, line(11, 10, "10", "2024-01-10"), line(12, 20, "20", "2024-01-10"))},
			{Quote: quote(2, 2, line(21, 10, "8", "2024-01-05"), line(22, 20, "25", "2024-01-05"))},
		},
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeNone, m)

	m, err = ParseMode("by_date")
	require.NoError(t, err)
	assert.Equal(t, ModeByDate, m)

	_, err = ParseMode("by_color")
	assert.ErrorIs(t, err, entity.ErrInvalidComparisonMode)
}

func TestCompare_ByPrice(t *testing.T) {
	result := Compare(twoVendorInput(ModeByPrice), newResolver())

	require.Equal(t, 2, result.VendorCount)
	require.Equal(t, 2, result.ProductCount)

	p1 := result.PerProduct[10]
	p2 := result.PerProduct[20]
	assert.Equal(t, int64(2), p1.MinPriceVendorID)
	assert.True(t, decimal.NewFromInt(8).Equal(p1.MinPrice))
	assert.Equal(t, int64(1), p2.MinPriceVendorID)
	assert.Equal(t, int64(2), p1.RecommendedVendorID)
	assert.Equal(t, int64(1), p2.RecommendedVendorID)
	assert.Equal(t, "V2 - RFQ/00002", p1.MinPriceVendor)

	// Subtotal is the sum of unit prices: V1 = 30, V2 = 33
	assert.True(t, decimal.NewFromInt(30).Equal(result.PerVendorTotal[1].Subtotal))
	assert.True(t, decimal.NewFromInt(33).Equal(result.PerVendorTotal[2].Subtotal))
	assert.Equal(t, int64(1), result.MinTotalVendorID)

	assert.Equal(t, ModeByPrice, result.VendorRows[0].Tag)
	assert.Equal(t, Mode(""), result.VendorRows[1].Tag)

	assert.Equal(t, Mode(""), p1.Offers[0].Tag)
	assert.Equal(t, ModeByPrice, p1.Offers[1].Tag)
	assert.Equal(t, ModeByPrice, p2.Offers[0].Tag)
}

func TestCompare_ByDate(t *testing.T) {
	result := Compare(twoVendorInput(ModeByDate), newResolver())

	assert.Equal(t, int64(2), result.MinDeliveryVendorID)
	assert.Equal(t, int64(2), result.PerProduct[10].MinDeliveryVendorID)
	assert.Equal(t, int64(2), result.PerProduct[20].RecommendedVendorID)
	assert.Equal(t, date("2024-01-05"), result.PerVendorTotal[2].EarliestDelivery)
	assert.Equal(t, Mode(""), result.VendorRows[0].Tag)
	assert.Equal(t, ModeByDate, result.VendorRows[1].Tag)
}

func TestCompare_NoneMode(t *testing.T) {
	result := Compare(twoVendorInput(ModeNone), newResolver())

	for _, row := range result.VendorRows {
		assert.Empty(t, row.Tag)
	}
	assert.Zero(t, result.PerProduct[10].RecommendedVendorID)
	assert.Equal(t, int64(2), result.PerProduct[10].MinPriceVendorID)
}

func TestCompare_TiesGoToFirstEncountered(t *testing.T) {
	in := Input{
		Mode: ModeByPrice,
		Quotes: []QuoteSource{
			{Quote: quote(1, 1, line(11, 10, "5", "2024-02-01"))},
			{Quote: quote(2, 2, line(21, 10, "5", "2024-02-01"))},
		},
	}
	result := Compare(in, newResolver())

	assert.Equal(t, int64(1), result.MinTotalVendorID)
	assert.Equal(t, int64(1), result.MinDeliveryVendorID)
	assert.Equal(t, int64(1), result.PerProduct[10].MinPriceVendorID)
	assert.Equal(t, int64(1), result.PerProduct[10].MinDeliveryVendorID)
}

func TestCompare_VendorDeliveryComparedByDay(t *testing.T) {
	early := line(11, 10, "5", "2024-02-01")
	late := line(21, 10, "6", "2024-02-01")
	early.PlannedDelivery = early.PlannedDelivery.Add(15 * time.Hour)
	late.PlannedDelivery = late.PlannedDelivery.Add(9 * time.Hour)

	in := Input{
		Mode: ModeByDate,
		Quotes: []QuoteSource{
			{Quote: quote(1, 1, early)},
			{Quote: quote(2, 2, late)},
		},
	}
	result := Compare(in, newResolver())

	// Same day keeps the first vendor at both levels
	assert.Equal(t, int64(1), result.MinDeliveryVendorID)
	assert.Equal(t, int64(1), result.PerProduct[10].MinDeliveryVendorID)
	assert.Equal(t, int64(1), result.PerProduct[10].RecommendedVendorID)

	in.Quotes[1].Quote.Lines[0].PlannedDelivery = date("2024-01-31").Add(23 * time.Hour)
	result = Compare(in, newResolver())
	assert.Equal(t, int64(2), result.MinDeliveryVendorID)
	assert.Equal(t, int64(2), result.PerProduct[10].MinDeliveryVendorID)
}

func TestCompare_PlaceholdersAndSkips(t *testing.T) {
	in := Input{
		Mode: ModeByPrice,
		Quotes: []QuoteSource{
			{Quote: quote(1, 1, line(11, 10, "10", "2024-01-10"), line(12, 30, "3", "2024-01-10"))},
			{Quote: quote(2, 2, line(21, 10, "9", "2024-01-09"))},
			{Quote: quote(3, 3)},
			{Quote: quote(4, 99, line(41, 10, "1", "2024-01-01"))},
			{Quote: quote(5, 3, line(51, 77, "1", "2024-01-01"))},
		},
	}
	result := Compare(in, newResolver())

	// empty quote, deleted vendor and quote with only a deleted product are dropped
	require.Equal(t, 2, result.VendorCount)
	require.Equal(t, 2, result.ProductCount)

	p3 := result.PerProduct[30]
	require.Len(t, p3.Offers, 2)
	assert.False(t, p3.Offers[0].Placeholder)
	assert.True(t, p3.Offers[1].Placeholder)
	assert.Equal(t, "V2", p3.Offers[1].VendorName)
	assert.NotContains(t, result.PerProduct, int64(77))
}

func TestCompare_ProjectFilter(t *testing.T) {
	in := Input{
		Mode:          ModeByPrice,
		ProjectFilter: "Bridge",
		Quotes: []QuoteSource{
			{Quote: quote(1, 1, line(11, 10, "10", "2024-01-10")), Project: "Tower"},
			{Quote: quote(2, 2, line(21, 10, "12", "2024-01-10")), Project: "Bridge"},
		},
	}
	result := Compare(in, newResolver())

	assert.Equal(t, []string{"Bridge", "Tower"}, result.Projects)
	require.Equal(t, 1, result.VendorCount)
	assert.Equal(t, int64(2), result.MinTotalVendorID)
}

func TestCompare_Empty(t *testing.T) {
	result := Compare(Input{RequisitionName: "Unknown"}, newResolver())

	assert.Equal(t, 0, result.VendorCount)
	assert.Equal(t, 0, result.ProductCount)
	assert.Empty(t, result.VendorRows)
	assert.Empty(t, result.ProductRows)
	assert.Equal(t, ModeNone, result.Mode)
	assert.Equal(t, "Unknown", result.RequisitionName)
}

func TestCompare_TaxAndTotal(t *testing.T) {
	l := line(11, 10, "10", "2024-01-10")
	l.TaxAmount = decimal.RequireFromString("1.5")
	result := Compare(Input{Quotes: []QuoteSource{{Quote: quote(1, 1, l)}}}, newResolver())

	total := result.PerVendorTotal[1]
	assert.True(t, decimal.RequireFromString("1.5").Equal(total.Tax))
	assert.True(t, decimal.RequireFromString("11.5").Equal(total.Total))
}
