package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondAccepted sends a 202 response for work that continues asynchronously.
func RespondAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrInvalidElements):
		return http.StatusBadRequest, "INVALID_ELEMENTS", "element input is malformed"
	case errors.Is(err, domain.ErrInvalidRequirements):
		return http.StatusBadRequest, "INVALID_REQUIREMENTS", "clause requirements are malformed"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "INDEX_UNAVAILABLE", "retrieval backends are unavailable"
	case errors.Is(err, domain.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", "classifier model artifact is unavailable"
	case errors.Is(err, domain.ErrOracleTimeout):
		return http.StatusGatewayTimeout, "ORACLE_TIMEOUT", "judgment oracle did not respond in time"
	case errors.Is(err, domain.ErrOracleSchema):
		return http.StatusBadGateway, "ORACLE_SCHEMA", "judgment oracle returned a malformed verdict"
	case errors.Is(err, domain.ErrRunCanceled):
		return http.StatusConflict, "RUN_CANCELED", "review run was canceled"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] internal error: %v", requestID, err)
	}
	RespondError(c, status, code, msg)
}
