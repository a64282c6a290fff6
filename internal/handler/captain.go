package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hail/internal/domain"
	"hail/internal/repository"
	"hail/internal/service"
)

// CaptainHandler handles HTTP requests for captains.
type CaptainHandler struct {
	captainService *service.CaptainService
	captainRepo    repository.CaptainRepository
}

// NewCaptainHandler creates a new CaptainHandler.
func NewCaptainHandler(captainService *service.CaptainService, captainRepo repository.CaptainRepository) *CaptainHandler {
	return &CaptainHandler{
		captainService: captainService,
		captainRepo:    captainRepo,
	}
}

// RegisterCaptainRequest is the HTTP request body for registering a captain.
type RegisterCaptainRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	VehicleClass string `json:"vehicle_class"`
}

// UpdateLocationRequest is the HTTP request body for a location update.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CaptainResponse is the HTTP representation of a captain.
type CaptainResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Status       string `json:"status"`
	VehicleClass string `json:"vehicle_class"`
}

// OfferResponse is the HTTP representation of one worklist entry.
type OfferResponse struct {
	RideID    string `json:"ride_id"`
	State     string `json:"state"`
	OfferedAt string `json:"offered_at"`
}

func toCaptainResponse(captain *domain.Captain) CaptainResponse {
	return CaptainResponse{
		ID:           captain.ID,
		Name:         captain.Name,
		Phone:        captain.Phone,
		Status:       string(captain.Status),
		VehicleClass: string(captain.VehicleClass),
	}
}

// Register handles POST /v1/captains/register
func (h *CaptainHandler) Register(c *gin.Context) {
	var req RegisterCaptainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	captain, err := h.captainService.Register(c.Request.Context(), service.RegisterCaptainRequest{
		Name:         req.Name,
		Phone:        req.Phone,
		VehicleClass: req.VehicleClass,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toCaptainResponse(captain))
}

// UpdateLocation handles POST /v1/captains/:id/location
func (h *CaptainHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.captainService.UpdateLocation(c.Request.Context(), c.Param("id"), req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GoOffline handles POST /v1/captains/:id/offline
func (h *CaptainHandler) GoOffline(c *gin.Context) {
	if err := h.captainService.GoOffline(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Offers handles GET /v1/captains/:id/offers
func (h *CaptainHandler) Offers(c *gin.Context) {
	offers, err := h.captainService.Offers(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]OfferResponse, 0, len(offers))
	for _, offer := range offers {
		response = append(response, OfferResponse{
			RideID:    offer.RideID,
			State:     string(offer.State),
			OfferedAt: offer.OfferedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	c.JSON(http.StatusOK, response)
}

// GetAll handles GET /v1/captains
func (h *CaptainHandler) GetAll(c *gin.Context) {
	captains, err := h.captainRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]CaptainResponse, 0, len(captains))
	for _, captain := range captains {
		response = append(response, toCaptainResponse(captain))
	}

	c.JSON(http.StatusOK, response)
}
