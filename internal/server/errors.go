package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/records"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	errorNotFound         = "not_found"
	errorValidationFailed = "validation_failed"
	errorInternal         = "internal_error"
	errorInvalidRequest   = "invalid_request"
)

// respondError maps service errors onto the HTTP error taxonomy.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	code := records.ErrorCode(err)
	switch {
	case records.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": errorNotFound, "code": code})
	case records.IsValidation(err):
		fields := map[string]string{}
		var validationErr *records.ValidationError
		if errors.As(err, &validationErr) {
			fields = validationErr.Fields
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errorValidationFailed, "code": code, "fields": fields})
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("code", code),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorInternal, "code": code})
	}
}

func respondInvalidRequest(c *gin.Context, detail string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": errorInvalidRequest, "detail": detail})
}
