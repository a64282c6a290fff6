package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

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
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrLocationNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrRiderRequired),
		errors.Is(err, service.ErrPickupRequired),
		errors.Is(err, service.ErrDestinationRequired),
		errors.Is(err, service.ErrInvalidVehicleClass),
		errors.Is(err, service.ErrRideIDRequired),
		errors.Is(err, service.ErrOTPRequired),
		errors.Is(err, service.ErrInvalidCoordinates):
		return http.StatusBadRequest

	// OTP mismatch
	case errors.Is(err, service.ErrInvalidOTP):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrCaptainRequired),
		errors.Is(err, service.ErrCaptainUnknown),
		errors.Is(err, service.ErrCaptainNotAssigned):
		return http.StatusForbidden

	// State conflicts, including lost confirmation races
	case errors.Is(err, service.ErrRideAlreadyAccepted),
		errors.Is(err, service.ErrRideNotAccepted),
		errors.Is(err, service.ErrRideNotOngoing),
		errors.Is(err, service.ErrRideNotCancellable),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict

	// Upstream dependency failures on synchronous paths
	case errors.Is(err, service.ErrGeoUnavailable):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
