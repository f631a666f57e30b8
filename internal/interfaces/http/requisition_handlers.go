package http

import (
	"github.com/gin-gonic/gin"

	"github.com/garyjia/procurement-engine/internal/application/service"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

type transitionRequest struct {
	Name  string `json:"name" binding:"required"`
	Notes string `json:"notes"`
}

type siteLocationRequest struct {
	SiteLocationID *int64 `json:"site_location_id"`
}

type companyRequest struct {
	CompanyID int64 `json:"company_id" binding:"required"`
}

// CreateRequisition handles POST /api/requisitions
func (h *Handlers) CreateRequisition(c *gin.Context) {
	var input service.CreateRequisitionInput
	if !h.bind(c, &input) {
		return
	}
	if input.EmployeeID == "" {
		input.EmployeeID = actorFrom(c).ID
	}

	req, err := h.services.Requisitions.Create(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, "Create requisition", err)
		return
	}
	h.created(c, req)
}

// GetRequisition handles GET /api/requisitions/:id
func (h *Handlers) GetRequisition(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	req, err := h.services.Requisitions.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Get requisition", err)
		return
	}
	h.ok(c, req)
}

// DeleteRequisition handles DELETE /api/requisitions/:id
func (h *Handlers) DeleteRequisition(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.services.Requisitions.Delete(c.Request.Context(), id, actorFrom(c)); err != nil {
		h.respondError(c, "Delete requisition", err)
		return
	}
	h.ok(c, gin.H{"id": id, "deleted": true})
}

// PermittedTransitions handles GET /api/requisitions/:id/transitions
func (h *Handlers) PermittedTransitions(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	triggers, err := h.services.Requisitions.PermittedTransitions(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "List transitions", err)
		return
	}
	h.ok(c, triggers)
}

// TransitionRequisition handles POST /api/requisitions/:id/transitions
func (h *Handlers) TransitionRequisition(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "transition name is required", err)
		return
	}

	actor := actorFrom(c)
	result, err := h.services.Requisitions.Transition(c.Request.Context(), id, req.Name, actor, req.Notes)
	if err != nil {
		h.respondError(c, "Transition requisition", err)
		return
	}
	h.logger.Info("Requisition transitioned",
		"requisition_id", id,
		"transition", req.Name,
		"from", result.FromState,
		"to", result.ToState,
		"actor", actor.ID,
	)
	h.ok(c, result)
}

// RequisitionHistory handles GET /api/requisitions/:id/history
func (h *Handlers) RequisitionHistory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	entries, err := h.services.Requisitions.History(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Get requisition history", err)
		return
	}
	if entries == nil {
		entries = []*entity.RequisitionHistoryEntry{}
	}
	h.ok(c, entries)
}

// UpdateSiteLocation handles PUT /api/requisitions/:id/site-location
func (h *Handlers) UpdateSiteLocation(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var body siteLocationRequest
	if !h.bind(c, &body) {
		return
	}
	req, err := h.services.Requisitions.UpdateSiteLocation(c.Request.Context(), id, body.SiteLocationID)
	if err != nil {
		h.respondError(c, "Update site location", err)
		return
	}
	h.ok(c, req)
}

// ChangeCompany handles PUT /api/requisitions/:id/company
func (h *Handlers) ChangeCompany(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var body companyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "company_id is required", err)
		return
	}
	req, err := h.services.Requisitions.ChangeCompany(c.Request.Context(), id, body.CompanyID)
	if err != nil {
		h.respondError(c, "Change company", err)
		return
	}
	h.ok(c, req)
}
