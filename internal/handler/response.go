package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hail/internal/location"
	"hail/internal/repository"
	"hail/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidVehicleClass),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrAddressNotFound),
		errors.Is(err, location.ErrInvalidCenter):
		return http.StatusBadRequest

	// Lost races and wrong-state calls - Conflict
	case errors.Is(err, service.ErrAlreadyAccepted),
		errors.Is(err, service.ErrInvalidStateTransition),
		errors.Is(err, service.ErrPaymentNotSettled),
		errors.Is(err, service.ErrRideBusy):
		return http.StatusConflict

	// Wrong actor - Forbidden
	case errors.Is(err, service.ErrOtpMismatch),
		errors.Is(err, service.ErrNotAssignedDriver),
		errors.Is(err, service.ErrNotRideParty):
		return http.StatusForbidden

	// Backing store unreachable
	case errors.Is(err, repository.ErrStoreUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
