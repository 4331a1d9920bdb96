package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/merchantkit/storesync/internal/pkg/errcode"
	appErr "github.com/merchantkit/storesync/internal/pkg/errors"
	"github.com/merchantkit/storesync/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrBusy):
		response.Error(c, errcode.ErrSyncBusy, "sync already in progress")
	case errors.Is(err, appErr.ErrNoValidCredential):
		response.Error(c, errcode.ErrNeedsReconnection, "store needs reconnection")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
