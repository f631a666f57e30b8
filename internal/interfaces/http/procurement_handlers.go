package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/procurement-engine/internal/application/service"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type confirmLineRequest struct {
	VendorID          int64 `json:"vendor_id"`
	ProductID         int64 `json:"product_id"`
	RequisitionID     int64 `json:"requisition_id"`
	OverrideZeroPrice bool  `json:"override_zero_price"`
}

type confirmOrderRequest struct {
	QuoteIDs []int64 `json:"quote_ids"`
}

// CreateRFQs handles POST /api/requisitions/:id/rfqs
func (h *Handlers) CreateRFQs(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var input service.CreateRFQsInput
	if !h.bind(c, &input) {
		return
	}

	outcome, err := h.services.RFQs.CreateRFQs(c.Request.Context(), id, input, actorFrom(c))
	if err != nil {
		h.respondError(c, "Create RFQs", err)
		return
	}
	if outcome.NeedsDecision != nil {
		h.ok(c, outcome)
		return
	}
	h.created(c, outcome)
}

// ListQuotes handles GET /api/requisitions/:id/quotes
func (h *Handlers) ListQuotes(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	quotes, err := h.services.RFQs.ListQuotes(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "List quotes", err)
		return
	}
	if quotes == nil {
		quotes = []*entity.VendorQuote{}
	}
	h.ok(c, quotes)
}

// CompareQuotes handles GET /api/requisitions/:id/comparison?mode=&project=
func (h *Handlers) CompareQuotes(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	result, err := h.services.Comparisons.Compare(c.Request.Context(), id, c.Query("mode"), c.Query("project"))
	if err != nil {
		h.respondError(c, "Compare quotes", err)
		return
	}
	h.ok(c, result)
}

// ExportComparison handles GET /api/requisitions/:id/comparison/export
func (h *Handlers) ExportComparison(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	exported, err := h.services.Comparisons.Export(c.Request.Context(), id, c.Query("mode"), c.Query("project"))
	if err != nil {
		h.respondError(c, "Export comparison", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exported.FileName))
	c.Data(http.StatusOK, xlsxContentType, exported.Content)
}

// UpdateQuoteLine handles PUT /api/quote-lines/:id
func (h *Handlers) UpdateQuoteLine(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var input service.QuoteLineInput
	if !h.bind(c, &input) {
		return
	}
	line, err := h.services.RFQs.UpdateQuoteLine(c.Request.Context(), id, input)
	if err != nil {
		h.respondError(c, "Update quote line", err)
		return
	}
	h.ok(c, line)
}

// RemoveQuoteLine handles DELETE /api/quote-lines/:id
func (h *Handlers) RemoveQuoteLine(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.services.RFQs.RemoveQuoteLine(c.Request.Context(), id, actorFrom(c)); err != nil {
		h.respondError(c, "Remove quote line", err)
		return
	}
	h.ok(c, gin.H{"id": id, "deleted": true})
}

// ConfirmLine handles POST /api/quote-lines/:id/confirm
func (h *Handlers) ConfirmLine(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var body confirmLineRequest
	if !h.bind(c, &body) {
		return
	}

	outcome, err := h.services.Confirmations.ConfirmLine(c.Request.Context(), service.ConfirmLineInput{
		LineID:            id,
		VendorID:          body.VendorID,
		ProductID:         body.ProductID,
		RequisitionID:     body.RequisitionID,
		OverrideZeroPrice: body.OverrideZeroPrice,
	}, actorFrom(c))
	if err != nil {
		h.respondError(c, "Confirm line", err)
		return
	}
	if outcome.Order == nil {
		h.ok(c, outcome)
		return
	}
	h.created(c, outcome)
}

// ConfirmOrder handles POST /api/quotes/:id/confirm
func (h *Handlers) ConfirmOrder(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var body confirmOrderRequest
	if !h.bind(c, &body) {
		return
	}

	confirmation, err := h.services.Confirmations.ConfirmOrder(c.Request.Context(), id, body.QuoteIDs, actorFrom(c))
	if err != nil {
		h.respondError(c, "Confirm order", err)
		return
	}
	h.ok(c, confirmation)
}

// ListVendors handles GET /api/vendors
func (h *Handlers) ListVendors(c *gin.Context) {
	vendors, err := h.services.MasterData.ListVendors(c.Request.Context())
	if err != nil {
		h.respondError(c, "List vendors", err)
		return
	}
	if vendors == nil {
		vendors = []*entity.Vendor{}
	}
	h.ok(c, vendors)
}

// CreateVendor handles POST /api/vendors
func (h *Handlers) CreateVendor(c *gin.Context) {
	var vendor entity.Vendor
	if !h.bind(c, &vendor) {
		return
	}
	created, err := h.services.MasterData.CreateVendor(c.Request.Context(), &vendor)
	if err != nil {
		h.respondError(c, "Create vendor", err)
		return
	}
	h.created(c, created)
}

// CreateProduct handles POST /api/products
func (h *Handlers) CreateProduct(c *gin.Context) {
	var product entity.Product
	if !h.bind(c, &product) {
		return
	}
	created, err := h.services.MasterData.CreateProduct(c.Request.Context(), &product)
	if err != nil {
		h.respondError(c, "Create product", err)
		return
	}
	h.created(c, created)
}

// GetProduct handles GET /api/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	product, err := h.services.MasterData.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Get product", err)
		return
	}
	h.ok(c, product)
}
