package controllers

import (
	"errors"
	"io"
	"net/http"

	"repairdesk-backend/services"
	"repairdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// respondServiceError maps service errors to status codes. fallback is the
// message for unexpected failures; the cause is logged, not returned.
func respondServiceError(c *gin.Context, err error, fallback string) {
	var notFound *services.NotFoundError
	var invalid *services.ValidationError
	switch {
	case errors.As(err, &notFound):
		utils.RespondWithError(c, http.StatusNotFound, notFound.Error())
	case errors.As(err, &invalid):
		utils.RespondWithError(c, http.StatusBadRequest, invalid.Error())
	default:
		zap.L().Error(fallback, zap.String("path", c.FullPath()), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, fallback)
	}
}

// paramID parses the :id route parameter, responding 400 when malformed.
func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON binds the body when there is one. A missing body leaves
// obj at its zero value.
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return def
	}
	return n
}
