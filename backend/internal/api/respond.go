package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "tribehub/backend/pkg/errors"
)

// ok writes the success envelope
func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// fail maps a repository outcome onto the response envelope. NotFound is
// an empty result, not an error.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"data": nil})
	case apperrors.IsNotAuthorized(err):
		c.JSON(http.StatusForbidden, gin.H{"error": apperrors.PublicMessage(err)})
	case apperrors.IsErrorType(err, apperrors.ErrorTypeValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": apperrors.PublicMessage(err)})
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": apperrors.PublicMessage(err)})
	}
}
