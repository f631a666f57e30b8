// Package comparison builds the vendor comparison matrix for a requisition's quotes.
package comparison

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

// Mode selects which winner is highlighted
type Mode string

const (
	ModeByPrice Mode = "by_price"
	ModeByDate  Mode = "by_date"
	ModeNone    Mode = "none"
)

// ParseMode maps a request parameter to a Mode; empty means none
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeByPrice, ModeByDate, ModeNone:
		return Mode(s), nil
	case "":
		return ModeNone, nil
	}
	return "", fmt.Errorf("%w: %q", entity.ErrInvalidComparisonMode, s)
}

// Resolver re-validates references right before the engine dereferences them.
// A false result means the entity disappeared and must be skipped.
type Resolver interface {
	VendorName(id int64) (string, bool)
	ProductName(id int64) (string, bool)
}

// QuoteSource is one vendor quote with the project of its requisition
type QuoteSource struct {
	Quote   *entity.VendorQuote
	Project string
}

// Input is everything one comparison needs
type Input struct {
	RequisitionName string
	Quotes          []QuoteSource
	Mode            Mode
	ProjectFilter   string
}

// VendorRow is the whole-order line of one vendor quote
type VendorRow struct {
	QuoteID          int64             `json:"quote_id"`
	VendorID         int64             `json:"vendor_id"`
	VendorName       string            `json:"vendor_name"`
	RFQName          string            `json:"rfq_name"`
	State            entity.QuoteState `json:"state"`
	Project          string            `json:"project,omitempty"`
	LineCount        int               `json:"line_count"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	Tax              decimal.Decimal   `json:"tax"`
	Total            decimal.Decimal   `json:"total"`
	EarliestDelivery time.Time         `json:"earliest_delivery"`
	Tag              Mode              `json:"tag,omitempty"`
}

// Label renders "<vendor> - <rfq>"
func (r *VendorRow) Label() string {
	return fmt.Sprintf("%s - %s", r.VendorName, r.RFQName)
}

// Offer is one vendor's cell in a product row
type Offer struct {
	QuoteID      int64           `json:"quote_id"`
	LineID       int64           `json:"line_id,omitempty"`
	VendorID     int64           `json:"vendor_id"`
	VendorName   string          `json:"vendor_name"`
	RFQName      string          `json:"rfq_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	DeliveryDate time.Time       `json:"delivery_date"`
	Tag          Mode            `json:"tag,omitempty"`
	Placeholder  bool            `json:"placeholder,omitempty"`
}

// ProductRow compares every vendor's offer for one product
type ProductRow struct {
	ProductID           int64           `json:"product_id"`
	ProductName         string          `json:"product_name"`
	Offers              []*Offer        `json:"offers"`
	MinPriceVendorID    int64           `json:"min_price_vendor_id"`
	MinPriceVendor      string          `json:"min_price_vendor"`
	MinPrice            decimal.Decimal `json:"min_price"`
	MinDeliveryVendorID int64           `json:"min_delivery_vendor_id"`
	MinDeliveryVendor   string          `json:"min_delivery_vendor"`
	MinDeliveryDate     time.Time       `json:"min_delivery_date"`
	RecommendedVendorID int64           `json:"recommended_vendor_id,omitempty"`
	Message             string          `json:"message"`
}

// VendorTotal is the whole-order summary of one vendor
type VendorTotal struct {
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	EarliestDelivery time.Time       `json:"earliest_delivery"`
}

// Result is the derived comparison of a requisition's quotes
type Result struct {
	RequisitionName     string                 `json:"requisition_name"`
	Mode                Mode                   `json:"mode"`
	ProjectFilter       string                 `json:"project_filter,omitempty"`
	Projects            []string               `json:"projects"`
	MinTotalVendorID    int64                  `json:"min_total_vendor_id,omitempty"`
	MinDeliveryVendorID int64                  `json:"min_delivery_vendor_id,omitempty"`
	PerProduct          map[int64]*ProductRow  `json:"per_product"`
	PerVendorTotal      map[int64]*VendorTotal `json:"per_vendor_total"`
	VendorRows          []*VendorRow           `json:"vendor_rows"`
	ProductRows         []*ProductRow          `json:"product_rows"`
	VendorCount         int                    `json:"vendor_count"`
	ProductCount        int                    `json:"product_count"`
}

type pricedLine struct {
	row  *VendorRow
	line *entity.QuoteLine
}

// Compare builds the comparison matrix. Quotes without surviving lines are dropped
// up front; no surviving quotes yields an empty result rather than an error.
func Compare(in Input, resolver Resolver) *Result {
	mode := in.Mode
	if mode == "" {
		mode = ModeNone
	}
	result := &Result{
		RequisitionName: in.RequisitionName,
		Mode:            mode,
		ProjectFilter:   in.ProjectFilter,
		Projects:        projects(in.Quotes),
		PerProduct:      make(map[int64]*ProductRow),
		PerVendorTotal:  make(map[int64]*VendorTotal),
		VendorRows:      []*VendorRow{},
		ProductRows:     []*ProductRow{},
	}

	var productOrder []int64
	offersByProduct := make(map[int64][]pricedLine)

	for _, src := range in.Quotes {
		q := src.Quote
		if q == nil || len(q.Lines) == 0 {
			continue
		}
		if in.ProjectFilter != "" && src.Project != in.ProjectFilter {
			continue
		}
		vendorName, ok := resolver.VendorName(q.VendorID)
		if !ok {
			continue
		}

		row := &VendorRow{
			QuoteID:    q.ID,
			VendorID:   q.VendorID,
			VendorName: vendorName,
			RFQName:    q.Name,
			State:      q.State,
			Project:    src.Project,
			Subtotal:   decimal.Zero,
			Tax:        decimal.Zero,
		}

		var lines []pricedLine
		for _, line := range q.Lines {
			if line == nil {
				continue
			}
			if _, ok := resolver.ProductName(line.ProductID); !ok {
				continue
			}
			// Whole-order subtotal sums unit prices, not price × quantity
			row.Subtotal = row.Subtotal.Add(line.UnitPrice)
			row.Tax = row.Tax.Add(line.TaxAmount)
			if row.LineCount == 0 || line.PlannedDelivery.Before(row.EarliestDelivery) {
				row.EarliestDelivery = line.PlannedDelivery
			}
			row.LineCount++
			lines = append(lines, pricedLine{row: row, line: line})
		}
		if row.LineCount == 0 {
			continue
		}
		row.Total = row.Subtotal.Add(row.Tax)

		result.VendorRows = append(result.VendorRows, row)
		result.PerVendorTotal[row.VendorID] = &VendorTotal{
			Subtotal:         row.Subtotal,
			Tax:              row.Tax,
			Total:            row.Total,
			EarliestDelivery: row.EarliestDelivery,
		}

		for _, pl := range lines {
			pid := pl.line.ProductID
			if _, seen := offersByProduct[pid]; !seen {
				productOrder = append(productOrder, pid)
			}
			offersByProduct[pid] = append(offersByProduct[pid], pl)
		}
	}

	if len(result.VendorRows) == 0 {
		return result
	}

	minTotal, minDelivery := wholeOrderWinners(result.VendorRows)
	result.MinTotalVendorID = minTotal.VendorID
	result.MinDeliveryVendorID = minDelivery.VendorID
	for _, row := range result.VendorRows {
		row.Tag = tagFor(mode, row.QuoteID, minTotal.QuoteID, minDelivery.QuoteID)
	}

	for _, pid := range productOrder {
		productName, ok := resolver.ProductName(pid)
		if !ok {
			continue
		}
		row := buildProductRow(pid, productName, offersByProduct[pid], result.VendorRows, mode)
		result.ProductRows = append(result.ProductRows, row)
		result.PerProduct[pid] = row
	}

	result.VendorCount = len(result.VendorRows)
	result.ProductCount = len(result.ProductRows)
	return result
}

// wholeOrderWinners returns the rows with the smallest subtotal and the earliest
// delivery day; the first row wins ties.
func wholeOrderWinners(rows []*VendorRow) (minTotal, minDelivery *VendorRow) {
	for _, row := range rows {
		if minTotal == nil || row.Subtotal.LessThan(minTotal.Subtotal) {
			minTotal = row
		}
		if minDelivery == nil || day(row.EarliestDelivery).Before(day(minDelivery.EarliestDelivery)) {
			minDelivery = row
		}
	}
	return minTotal, minDelivery
}

func buildProductRow(productID int64, productName string, offers []pricedLine, vendorRows []*VendorRow, mode Mode) *ProductRow {
	row := &ProductRow{
		ProductID:   productID,
		ProductName: productName,
	}

	var minPrice, minDelivery *pricedLine
	byQuote := make(map[int64]*pricedLine, len(offers))
	for i := range offers {
		o := &offers[i]
		if _, dup := byQuote[o.row.QuoteID]; !dup {
			byQuote[o.row.QuoteID] = o
		}
		if minPrice == nil || o.line.UnitPrice.LessThan(minPrice.line.UnitPrice) {
			minPrice = o
		}
		if minDelivery == nil || day(o.line.PlannedDelivery).Before(day(minDelivery.line.PlannedDelivery)) {
			minDelivery = o
		}
	}

	row.MinPriceVendorID = minPrice.row.VendorID
	row.MinPriceVendor = minPrice.row.Label()
	row.MinPrice = minPrice.line.UnitPrice
	row.MinDeliveryVendorID = minDelivery.row.VendorID
	row.MinDeliveryVendor = minDelivery.row.Label()
	row.MinDeliveryDate = minDelivery.line.PlannedDelivery

	switch mode {
	case ModeByPrice:
		row.RecommendedVendorID = row.MinPriceVendorID
	case ModeByDate:
		row.RecommendedVendorID = row.MinDeliveryVendorID
	}

	row.Offers = make([]*Offer, 0, len(vendorRows))
	for _, vr := range vendorRows {
		pl, ok := byQuote[vr.QuoteID]
		if !ok {
			row.Offers = append(row.Offers, &Offer{
				QuoteID:     vr.QuoteID,
				VendorID:    vr.VendorID,
				VendorName:  vr.VendorName,
				RFQName:     vr.RFQName,
				Quantity:    decimal.Zero,
				UnitPrice:   decimal.Zero,
				Placeholder: true,
			})
			continue
		}
		row.Offers = append(row.Offers, &Offer{
			QuoteID:      vr.QuoteID,
			LineID:       pl.line.ID,
			VendorID:     vr.VendorID,
			VendorName:   vr.VendorName,
			RFQName:      vr.RFQName,
			Quantity:     pl.line.Quantity,
			UnitPrice:    pl.line.UnitPrice,
			DeliveryDate: pl.line.PlannedDelivery,
			Tag:          tagFor(mode, vr.QuoteID, minPrice.row.QuoteID, minDelivery.row.QuoteID),
		})
	}

	row.Message = fmt.Sprintf("Best price: %s at %s. Earliest delivery: %s on %s.",
		row.MinPriceVendor, row.MinPrice.StringFixed(2),
		row.MinDeliveryVendor, row.MinDeliveryDate.Format("2006-01-02"))

	return row
}

func tagFor(mode Mode, quoteID, priceWinner, dateWinner int64) Mode {
	switch {
	case mode == ModeByPrice && quoteID == priceWinner:
		return ModeByPrice
	case mode == ModeByDate && quoteID == dateWinner:
		return ModeByDate
	}
	return ""
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func projects(quotes []QuoteSource) []string {
	seen := make(map[string]bool)
	list := []string{}
	for _, src := range quotes {
		if src.Project == "" || seen[src.Project] {
			continue
		}
		seen[src.Project] = true
		list = append(list, src.Project)
	}
	sort.Strings(list)
	return list
}
