package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/merchantkit/storesync/internal/pkg/errcode"
	appErr "github.com/merchantkit/storesync/internal/pkg/errors"
	"github.com/merchantkit/storesync/internal/pkg/response"
	"github.com/merchantkit/storesync/internal/service"
)

type SyncHandler struct {
	sync *service.SyncService
}

func NewSyncHandler(sync *service.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Trigger runs the tenant's sync right now. A run already holding the lease
// wins; the caller is told the tenant is busy rather than queued.
func (h *SyncHandler) Trigger(c *gin.Context) {
	tenantID := c.Param("id")
	if tenantID == "" {
		response.Error(c, errcode.ErrInvalid, "tenant id required")
		return
	}
	report, err := h.sync.TriggerSync(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, appErr.ErrBusy) {
			response.Error(c, errcode.ErrSyncBusy, "sync already in progress")
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, report)
}

func (h *SyncHandler) Status(c *gin.Context) {
	status, err := h.sync.Status(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, status)
}

func (h *SyncHandler) Report(c *gin.Context) {
	tenantID := c.Param("id")
	if tenantID == "" {
		response.Error(c, errcode.ErrInvalid, "tenant id required")
		return
	}
	report := h.sync.LastReport(tenantID)
	if report == nil {
		response.Error(c, errcode.ErrNotFound, "no report for tenant")
		return
	}
	response.Success(c, report)
}

func (h *SyncHandler) Unlock(c *gin.Context) {
	tenantID := c.Param("id")
	if tenantID == "" {
		response.Error(c, errcode.ErrInvalid, "tenant id required")
		return
	}
	released, err := h.sync.ForceUnlock(c.Request.Context(), tenantID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"released": released})
}
