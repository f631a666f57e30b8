package http

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-engine/internal/application/service"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

type resolveRequest struct {
	CompanyID int64           `json:"company_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// levelResponse adds the display name to a level configuration
type levelResponse struct {
	*entity.ApprovalLevelConfig
	DisplayName string `json:"display_name"`
}

func toLevelResponse(config *entity.ApprovalLevelConfig) levelResponse {
	return levelResponse{ApprovalLevelConfig: config, DisplayName: config.DisplayName()}
}

// ListLevels handles GET /api/approval-levels?company_id=&active_only=
func (h *Handlers) ListLevels(c *gin.Context) {
	companyID, err := strconv.ParseInt(c.DefaultQuery("company_id", "0"), 10, 64)
	if err != nil {
		h.badRequest(c, "invalid company_id", err)
		return
	}
	activeOnly := c.Query("active_only") == "true"

	levels, err := h.services.Levels.ListLevels(c.Request.Context(), companyID, activeOnly)
	if err != nil {
		h.respondError(c, "List levels", err)
		return
	}

	resp := make([]levelResponse, 0, len(levels))
	for _, level := range levels {
		resp = append(resp, toLevelResponse(level))
	}
	h.ok(c, resp)
}

// CreateLevel handles POST /api/approval-levels
func (h *Handlers) CreateLevel(c *gin.Context) {
	var req entity.ApprovalLevelConfig
	if !h.bind(c, &req) {
		return
	}

	level, err := h.services.Levels.CreateLevel(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Create level", err)
		return
	}
	h.created(c, toLevelResponse(level))
}

// ResolveLevel handles POST /api/approval-levels/resolve
func (h *Handlers) ResolveLevel(c *gin.Context) {
	var req resolveRequest
	if !h.bind(c, &req) {
		return
	}

	level, err := h.services.Levels.Resolve(c.Request.Context(), req.Amount, req.CompanyID)
	if err != nil {
		h.respondError(c, "Resolve level", err)
		return
	}
	h.ok(c, toLevelResponse(level))
}

// DeactivateLevel handles DELETE /api/approval-levels/:id
func (h *Handlers) DeactivateLevel(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.services.Levels.DeactivateLevel(c.Request.Context(), id); err != nil {
		h.respondError(c, "Deactivate level", err)
		return
	}
	h.ok(c, gin.H{"id": id, "active": false})
}

// ListGroups handles GET /api/approver-groups
func (h *Handlers) ListGroups(c *gin.Context) {
	groups, err := h.services.Levels.ListGroups(c.Request.Context())
	if err != nil {
		h.respondError(c, "List groups", err)
		return
	}
	h.ok(c, groups)
}

// CreateGroup handles POST /api/approver-groups
func (h *Handlers) CreateGroup(c *gin.Context) {
	var req entity.ApproverGroup
	if !h.bind(c, &req) {
		return
	}
	group, err := h.services.Levels.CreateGroup(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Create group", err)
		return
	}
	h.created(c, group)
}

// CreateApprovalRequest handles POST /api/approval-requests
func (h *Handlers) CreateApprovalRequest(c *gin.Context) {
	var req service.CreateApprovalRequestInput
	if !h.bind(c, &req) {
		return
	}
	if req.RequesterID == "" {
		req.RequesterID = actorFrom(c).ID
	}

	created, err := h.services.Approvals.CreateRequest(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "Create approval request", err)
		return
	}
	h.created(c, created)
}

// GetApprovalRequest handles GET /api/approval-requests/:id
func (h *Handlers) GetApprovalRequest(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	req, err := h.services.Approvals.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Get approval request", err)
		return
	}
	h.ok(c, req)
}

// UpdateApprovalRequest handles PATCH /api/approval-requests/:id
func (h *Handlers) UpdateApprovalRequest(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var input service.UpdateApprovalRequestInput
	if !h.bind(c, &input) {
		return
	}
	req, err := h.services.Approvals.UpdateRequest(c.Request.Context(), id, input)
	if err != nil {
		h.respondError(c, "Update approval request", err)
		return
	}
	h.ok(c, req)
}

// AddApprovalLine handles POST /api/approval-requests/:id/lines
func (h *Handlers) AddApprovalLine(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var input service.ApprovalLineInput
	if !h.bind(c, &input) {
		return
	}
	req, err := h.services.Approvals.AddLine(c.Request.Context(), id, input)
	if err != nil {
		h.respondError(c, "Add approval line", err)
		return
	}
	h.created(c, req)
}

// UpdateApprovalLine handles PUT /api/approval-request-lines/:id
func (h *Handlers) UpdateApprovalLine(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var input service.ApprovalLineInput
	if !h.bind(c, &input) {
		return
	}
	req, err := h.services.Approvals.UpdateLine(c.Request.Context(), id, input)
	if err != nil {
		h.respondError(c, "Update approval line", err)
		return
	}
	h.ok(c, req)
}

// DeleteApprovalLine handles DELETE /api/approval-request-lines/:id
func (h *Handlers) DeleteApprovalLine(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	req, err := h.services.Approvals.DeleteLine(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Delete approval line", err)
		return
	}
	h.ok(c, req)
}

// SubmitApprovalRequest handles POST /api/approval-requests/:id/submit
func (h *Handlers) SubmitApprovalRequest(c *gin.Context) {
	h.approvalAction(c, "Submit approval request", func(c *gin.Context, id int64, body commentRequest) (*entity.ApprovalRequest, error) {
		return h.services.Approvals.Submit(c.Request.Context(), id, actorFrom(c))
	})
}

// ApproveApprovalRequest handles POST /api/approval-requests/:id/approve
func (h *Handlers) ApproveApprovalRequest(c *gin.Context) {
	h.approvalAction(c, "Approve approval request", func(c *gin.Context, id int64, body commentRequest) (*entity.ApprovalRequest, error) {
		return h.services.Approvals.Approve(c.Request.Context(), id, actorFrom(c), body.Comment)
	})
}

// RejectApprovalRequest handles POST /api/approval-requests/:id/reject
func (h *Handlers) RejectApprovalRequest(c *gin.Context) {
	h.approvalAction(c, "Reject approval request", func(c *gin.Context, id int64, body commentRequest) (*entity.ApprovalRequest, error) {
		return h.services.Approvals.Reject(c.Request.Context(), id, actorFrom(c), body.Comment)
	})
}

// ResetApprovalRequest handles POST /api/approval-requests/:id/reset
func (h *Handlers) ResetApprovalRequest(c *gin.Context) {
	h.approvalAction(c, "Reset approval request", func(c *gin.Context, id int64, body commentRequest) (*entity.ApprovalRequest, error) {
		return h.services.Approvals.ResetToDraft(c.Request.Context(), id, actorFrom(c))
	})
}

// IssueApprovalRequest handles POST /api/approval-requests/:id/issue
func (h *Handlers) IssueApprovalRequest(c *gin.Context) {
	h.approvalAction(c, "Issue approval request", func(c *gin.Context, id int64, body commentRequest) (*entity.ApprovalRequest, error) {
		return h.services.Approvals.Issue(c.Request.Context(), id, actorFrom(c))
	})
}

// CancelApprovalRequest handles POST /api/approval-requests/:id/cancel
func (h *Handlers) CancelApprovalRequest(c *gin.Context) {
	h.approvalAction(c, "Cancel approval request", func(c *gin.Context, id int64, body commentRequest) (*entity.ApprovalRequest, error) {
		return h.services.Approvals.Cancel(c.Request.Context(), id, actorFrom(c), body.Comment)
	})
}

type approvalActionFunc func(c *gin.Context, id int64, body commentRequest) (*entity.ApprovalRequest, error)

func (h *Handlers) approvalAction(c *gin.Context, op string, action approvalActionFunc) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var body commentRequest
	if !h.bind(c, &body) {
		return
	}

	req, err := action(c, id, body)
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	h.logger.Info(op, "request_id", id, "state", req.State, "actor", actorFrom(c).ID)
	h.ok(c, req)
}

// CanApprove handles GET /api/approval-requests/:id/can-approve
func (h *Handlers) CanApprove(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	allowed, err := h.services.Approvals.CanApprove(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		h.respondError(c, "Check approval permission", err)
		return
	}
	h.ok(c, gin.H{"can_approve": allowed})
}

// ApprovalHistory handles GET /api/approval-requests/:id/history
func (h *Handlers) ApprovalHistory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	entries, err := h.services.Approvals.History(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Get approval history", err)
		return
	}
	if entries == nil {
		entries = []*entity.ApprovalHistoryEntry{}
	}
	h.ok(c, entries)
}
