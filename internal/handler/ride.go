package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hail/internal/domain"
	"hail/internal/repository"
	"hail/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
	rideRepo    repository.RideRepository
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService, rideRepo repository.RideRepository) *RideHandler {
	return &RideHandler{
		rideService: rideService,
		rideRepo:    rideRepo,
	}
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	RiderID      string `json:"rider_id"`
	Pickup       string `json:"pickup"`
	Destination  string `json:"destination"`
	VehicleClass string `json:"vehicle_class"`
}

// ConfirmRideRequest is the HTTP request body for confirming a ride.
type ConfirmRideRequest struct {
	CaptainID string `json:"captain_id"`
}

// StartRideRequest is the HTTP request body for starting a ride.
type StartRideRequest struct {
	CaptainID string `json:"captain_id"`
	OTP       string `json:"otp"`
}

// EndRideRequest is the HTTP request body for ending a ride.
type EndRideRequest struct {
	CaptainID   string `json:"captain_id"`
	DeliveryOTP string `json:"delivery_otp"`
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	CancelledBy string `json:"cancelled_by"`
	Reason      string `json:"reason,omitempty"`
}

// CreateRideResponse is the HTTP response for creating a ride. It is the
// only place the one-time codes are ever returned: the rider hands them to
// the captain at pickup and drop-off.
type CreateRideResponse struct {
	ID           string  `json:"id"`
	RiderID      string  `json:"rider_id"`
	Pickup       string  `json:"pickup"`
	Destination  string  `json:"destination"`
	VehicleClass string  `json:"vehicle_class"`
	Fare         float64 `json:"fare"`
	Status       string  `json:"status"`
	PickupOTP    string  `json:"pickup_otp"`
	DeliveryOTP  string  `json:"delivery_otp"`
}

// RideResponse is the HTTP response for reading or transitioning a ride.
type RideResponse struct {
	ID           string  `json:"id"`
	RiderID      string  `json:"rider_id"`
	CaptainID    string  `json:"captain_id,omitempty"`
	Pickup       string  `json:"pickup"`
	Destination  string  `json:"destination"`
	VehicleClass string  `json:"vehicle_class"`
	Fare         float64 `json:"fare"`
	Status       string  `json:"status"`
	CancelledAt  string  `json:"cancelled_at,omitempty"`
	CancelReason string  `json:"cancel_reason,omitempty"`
}

// FareResponse is the HTTP response for a fare estimate.
type FareResponse struct {
	Fare float64 `json:"fare"`
}

func toRideResponse(ride *domain.Ride) RideResponse {
	response := RideResponse{
		ID:           ride.ID,
		RiderID:      ride.RiderID,
		CaptainID:    ride.CaptainID,
		Pickup:       ride.Pickup,
		Destination:  ride.Destination,
		VehicleClass: string(ride.VehicleClass),
		Fare:         ride.Fare,
		Status:       string(ride.Status),
	}
	if !ride.CancelledAt.IsZero() {
		response.CancelledAt = ride.CancelledAt.Format("2006-01-02T15:04:05Z07:00")
		response.CancelReason = ride.CancelReason
	}
	return response
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), service.CreateRideRequest{
		RiderID:      req.RiderID,
		Pickup:       req.Pickup,
		Destination:  req.Destination,
		VehicleClass: req.VehicleClass,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreateRideResponse{
		ID:           ride.ID,
		RiderID:      ride.RiderID,
		Pickup:       ride.Pickup,
		Destination:  ride.Destination,
		VehicleClass: string(ride.VehicleClass),
		Fare:         ride.Fare,
		Status:       string(ride.Status),
		PickupOTP:    ride.PickupOTP,
		DeliveryOTP:  ride.DeliveryOTP,
	})
}

// GetFare handles GET /v1/rides/fare
func (h *RideHandler) GetFare(c *gin.Context) {
	fare, err := h.rideService.GetFare(
		c.Request.Context(),
		c.Query("pickup"),
		c.Query("destination"),
		c.Query("vehicle_class"),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, FareResponse{Fare: fare})
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// ConfirmRide handles POST /v1/rides/:id/confirm
func (h *RideHandler) ConfirmRide(c *gin.Context) {
	var req ConfirmRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.ConfirmRide(c.Request.Context(), c.Param("id"), req.CaptainID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// StartRide handles POST /v1/rides/:id/start
func (h *RideHandler) StartRide(c *gin.Context) {
	var req StartRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.StartRide(c.Request.Context(), c.Param("id"), req.OTP, req.CaptainID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// EndRide handles POST /v1/rides/:id/end
func (h *RideHandler) EndRide(c *gin.Context) {
	var req EndRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.EndRide(c.Request.Context(), c.Param("id"), req.DeliveryOTP, req.CaptainID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), c.Param("id"), req.CancelledBy, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// GetAll handles GET /v1/rides
func (h *RideHandler) GetAll(c *gin.Context) {
	rides, err := h.rideRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, ride := range rides {
		response = append(response, toRideResponse(ride))
	}

	c.JSON(http.StatusOK, response)
}
