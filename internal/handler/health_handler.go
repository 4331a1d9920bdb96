package handler

import (
	"database/sql"

	"github.com/gin-gonic/gin"

	"github.com/merchantkit/storesync/internal/pkg/errcode"
	"github.com/merchantkit/storesync/internal/pkg/response"
)

type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		response.Error(c, errcode.ErrInternal, "database unreachable")
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}
