package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/merchantkit/storesync/internal/model"
	"github.com/merchantkit/storesync/internal/pkg/errcode"
	"github.com/merchantkit/storesync/internal/pkg/response"
	"github.com/merchantkit/storesync/internal/service"
)

type ContextHandler struct {
	ctx *service.ContextService
}

func NewContextHandler(ctx *service.ContextService) *ContextHandler {
	return &ContextHandler{ctx: ctx}
}

type contextQueryRequest struct {
	TenantID string `json:"tenant_id"`
	Query    string `json:"query"`
	Kind     string `json:"kind,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

func (r *contextQueryRequest) validate(c *gin.Context) bool {
	if r.TenantID == "" {
		response.Error(c, errcode.ErrInvalid, "tenant_id required")
		return false
	}
	if r.Query == "" {
		response.Error(c, errcode.ErrInvalid, "query required")
		return false
	}
	return true
}

// Query is the assistant-facing retrieval endpoint: confidence-gated context
// plus sources, or the no-information sentinel.
func (h *ContextHandler) Query(c *gin.Context) {
	var req contextQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if !req.validate(c) {
		return
	}
	result, err := h.ctx.GetRelevantContext(c.Request.Context(), req.TenantID, req.Query, model.EntityKind(req.Kind))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// Search is the raw, ungated retrieval endpoint for tooling.
func (h *ContextHandler) Search(c *gin.Context) {
	var req contextQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if !req.validate(c) {
		return
	}
	results, err := h.ctx.Search(c.Request.Context(), req.TenantID, req.Query, model.EntityKind(req.Kind), req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"results": results})
}
