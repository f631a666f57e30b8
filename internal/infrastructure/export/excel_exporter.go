// Package export renders vendor comparisons as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/comparison"
)

const (
	vendorSheet  = "Vendors"
	productSheet = "Products"
	dateLayout   = "2006-01-02"
)

var vendorHeaders = []string{
	"Vendor", "RFQ", "State", "Project", "Lines", "Subtotal", "Tax", "Total", "Earliest Delivery", "Tag",
}

var productHeaders = []string{
	"Product", "Vendor", "RFQ", "Quantity", "Unit Price", "Delivery", "Tag",
}

// ExcelExporter implements port.ComparisonExporter with excelize
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new ExcelExporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// Export writes one sheet per comparison view and returns the workbook bytes
func (e *ExcelExporter) Export(result *comparison.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("comparison result is nil")
	}

	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", vendorSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := file.NewSheet(productSheet); err != nil {
		return nil, fmt.Errorf("failed to create product sheet: %w", err)
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	if err := e.fillVendorSheet(file, result, bold); err != nil {
		return nil, fmt.Errorf("failed to fill vendor sheet: %w", err)
	}
	if err := e.fillProductSheet(file, result, bold); err != nil {
		return nil, fmt.Errorf("failed to fill product sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Debug("Comparison workbook rendered",
		zap.String("requisition", result.RequisitionName),
		zap.Int("vendor_rows", len(result.VendorRows)),
		zap.Int("product_rows", len(result.ProductRows)),
		zap.Int("size", buf.Len()))

	return buf.Bytes(), nil
}

func (e *ExcelExporter) fillVendorSheet(file *excelize.File, result *comparison.Result, headerStyle int) error {
	title := fmt.Sprintf("Vendor comparison: %s", result.RequisitionName)
	if err := file.SetCellValue(vendorSheet, "A1", title); err != nil {
		return err
	}
	if err := writeRow(file, vendorSheet, 3, toCells(vendorHeaders)); err != nil {
		return err
	}
	if err := styleHeader(file, vendorSheet, 3, len(vendorHeaders), headerStyle); err != nil {
		return err
	}

	row := 4
	for _, v := range result.VendorRows {
		cells := []interface{}{
			v.VendorName,
			v.RFQName,
			string(v.State),
			v.Project,
			v.LineCount,
			v.Subtotal.StringFixed(2),
			v.Tax.StringFixed(2),
			v.Total.StringFixed(2),
			formatDate(v.EarliestDelivery.IsZero(), v.EarliestDelivery.Format(dateLayout)),
			string(v.Tag),
		}
		if err := writeRow(file, vendorSheet, row, cells); err != nil {
			return err
		}
		row++
	}
	return nil
}

func (e *ExcelExporter) fillProductSheet(file *excelize.File, result *comparison.Result, headerStyle int) error {
	if err := writeRow(file, productSheet, 1, toCells(productHeaders)); err != nil {
		return err
	}
	if err := styleHeader(file, productSheet, 1, len(productHeaders), headerStyle); err != nil {
		return err
	}

	row := 2
	for _, p := range result.ProductRows {
		for _, offer := range p.Offers {
			price := offer.UnitPrice.StringFixed(2)
			if offer.Placeholder {
				price = "-"
			}
			cells := []interface{}{
				p.ProductName,
				offer.VendorName,
				offer.RFQName,
				offer.Quantity.String(),
				price,
				formatDate(offer.DeliveryDate.IsZero(), offer.DeliveryDate.Format(dateLayout)),
				string(offer.Tag),
			}
			if err := writeRow(file, productSheet, row, cells); err != nil {
				return err
			}
			row++
		}
		if p.Message != "" {
			if err := file.SetCellValue(productSheet, cellName(1, row), p.Message); err != nil {
				return err
			}
			row++
		}
		row++
	}
	return nil
}

func writeRow(file *excelize.File, sheet string, row int, cells []interface{}) error {
	start := cellName(1, row)
	return file.SetSheetRow(sheet, start, &cells)
}

func styleHeader(file *excelize.File, sheet string, row, columns, style int) error {
	return file.SetCellStyle(sheet, cellName(1, row), cellName(columns, row), style)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func formatDate(zero bool, formatted string) string {
	if zero {
		return ""
	}
	return formatted
}

var _ port.ComparisonExporter = (*ExcelExporter)(nil)
