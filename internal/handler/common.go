package handler

import (
	"errors"
	"net/http"
	"time"

	apperrors "ticket-booking/pkg/app_errors"
	"ticket-booking/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserIDHeader carries the caller identity set by the authenticating gateway.
const UserIDHeader = "X-User-ID"

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// ActorID 從 header 取得呼叫者 ID，缺少或格式錯誤時回 401
func ActorID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetHeader(UserIDHeader))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Missing or invalid " + UserIDHeader + " header",
		})
		return uuid.Nil, false
	}
	return id, true
}

func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return uuid.Nil, false
	}
	return id, true
}

// handleError maps the error kind to a status code. Messages of domain errors
// are safe to return; anything else is logged and reported as 500.
func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))

	var used *apperrors.CodeAlreadyUsedError
	switch {
	case errors.As(err, &used):
		log.Warn("Code already used")
		c.JSON(http.StatusConflict, gin.H{
			"error":   err.Error(),
			"used_at": used.UsedAt.UTC().Format(time.RFC3339),
			"used_by": used.UsedBy,
		})
	case errors.Is(err, apperrors.ErrForbidden):
		log.Warn("Forbidden")
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		log.Warn("Not found")
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrState):
		log.Warn("Conflict")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrIntegrity):
		log.Warn("Integrity check failed")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
