package types

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/fieldscope/fieldrec-api/pkg/errors"
)

// Handler utility functions to reduce duplication across handlers

// RequireFingerprint extracts the fingerprint URL parameter
// Returns the value and sends error response if it is empty
func RequireFingerprint(c *gin.Context) (string, bool) {
	fingerprint := c.Param("fingerprint")
	if fingerprint == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Missing fingerprint",
		})
		return "", false
	}
	return fingerprint, true
}

// ParseQueryInt parses an optional integer query parameter
// Returns the fallback when the parameter is absent
func ParseQueryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid " + name,
		})
		return 0, false
	}
	return value, true
}

// ParseQueryFloat parses an optional float query parameter
// Returns the fallback when the parameter is absent
func ParseQueryFloat(c *gin.Context, name string, fallback float64) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid " + name,
		})
		return 0, false
	}
	return value, true
}

// BindJSONOrError attempts to bind JSON request body to target struct
// Returns false and sends error response if binding fails
func BindJSONOrError(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// SendBadRequest sends a standardized bad request response
func SendBadRequest(c *gin.Context, message string) {
	SendAppError(c, apperrors.New(apperrors.ErrCodeValidation, message))
}

// SendNotFound sends a standardized not found response
func SendNotFound(c *gin.Context, message string) {
	SendAppError(c, apperrors.New(apperrors.ErrCodeNotFound, message))
}

// SendConflict sends a standardized conflict response
func SendConflict(c *gin.Context, message string) {
	SendAppError(c, apperrors.New(apperrors.ErrCodeConflict, message))
}

// SendInternalError sends a standardized internal server error response
func SendInternalError(c *gin.Context, message string) {
	SendAppError(c, apperrors.New(apperrors.ErrCodeInternal, message))
}

// SendAppError renders a structured application error with its mapped
// HTTP status and error code
func SendAppError(c *gin.Context, err *apperrors.AppError) {
	c.JSON(err.GetHTTPCode(), gin.H{
		"error":   err.Message,
		"code":    err.Code,
		"details": err.Details,
	})
}

// SendSuccess sends a standardized success response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a standardized created response with data
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}
