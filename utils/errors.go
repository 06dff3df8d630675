package utils

import (
	"errors"
	"net/http"

	"vlmax-platform/models"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error     string      `json:"error"`
	ErrorCode string      `json:"error_code"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		Error:     message,
		ErrorCode: errorCode,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithDomainError maps the shared error taxonomy onto HTTP statuses.
// Model failures are reported without details.
func RespondWithDomainError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, models.ErrInputMissing):
		RespondWithError(c, http.StatusBadRequest, "input_missing", message, nil)
	case errors.Is(err, models.ErrUnsupportedFormat):
		RespondWithError(c, http.StatusBadRequest, "unsupported_format", message, nil)
	case errors.Is(err, models.ErrFileNotFound):
		RespondWithError(c, http.StatusNotFound, "file_not_found", message, nil)
	case errors.Is(err, models.ErrTableNotFound):
		RespondWithError(c, http.StatusUnprocessableEntity, "table_not_found", message, nil)
	case errors.Is(err, models.ErrModelError):
		RespondWithError(c, http.StatusInternalServerError, "model_error", message, nil)
	default:
		RespondWithInternalError(c, message, nil)
	}
}
