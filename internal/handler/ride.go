package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hail/internal/domain"
	"hail/internal/service"
)

// RideHandler handles HTTP requests for the ride lifecycle.
type RideHandler struct {
	rideService *service.RideService
	fares       service.FareEstimator
	geocoder    service.Geocoder
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService, fares service.FareEstimator, geocoder service.Geocoder) *RideHandler {
	return &RideHandler{
		rideService: rideService,
		fares:       fares,
		geocoder:    geocoder,
	}
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	RiderID       string  `json:"rider_id"`
	Pickup        string  `json:"pickup"`
	Destination   string  `json:"destination"`
	VehicleClass  string  `json:"vehicle_class"`
	PaymentMethod string  `json:"payment_method,omitempty"` // cash, online
	RadiusKm      float64 `json:"radius_km,omitempty"`
}

// AcceptRideRequest is the HTTP request body for accepting a ride.
type AcceptRideRequest struct {
	DriverID string `json:"driver_id"`
}

// StartRideRequest is the HTTP request body for starting a ride.
type StartRideRequest struct {
	DriverID string `json:"driver_id"`
	OTP      string `json:"otp"`
}

// CompleteRideRequest is the HTTP request body for completing a ride.
type CompleteRideRequest struct {
	DriverID   string  `json:"driver_id"`
	DistanceKm float64 `json:"distance_km"`
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason,omitempty"`
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.Create(c.Request.Context(), service.CreateRideRequest{
		RiderID:       req.RiderID,
		Pickup:        req.Pickup,
		Destination:   req.Destination,
		VehicleClass:  domain.VehicleClass(req.VehicleClass),
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		RadiusKm:      req.RadiusKm,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// The creating rider is the one actor allowed to see the OTP.
	respondJSON(c, http.StatusCreated, service.RiderRideView(ride))
}

// AcceptRide handles POST /v1/rides/:id/accept
func (h *RideHandler) AcceptRide(c *gin.Context) {
	var req AcceptRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.Accept(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, service.PublicRideView(ride))
}

// StartRide handles POST /v1/rides/:id/start
func (h *RideHandler) StartRide(c *gin.Context) {
	var req StartRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.Start(c.Request.Context(), c.Param("id"), req.DriverID, req.OTP)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, service.PublicRideView(ride))
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	var req CompleteRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.Complete(c.Request.Context(), c.Param("id"), req.DriverID, req.DistanceKm)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, service.PublicRideView(ride))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.Cancel(c.Request.Context(), c.Param("id"), req.ActorID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, service.PublicRideView(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, service.PublicRideView(ride))
}

// GetFare handles GET /v1/fares?pickup=..&destination=..&vehicle_class=..
func (h *RideHandler) GetFare(c *gin.Context) {
	pickup := c.Query("pickup")
	destination := c.Query("destination")
	if len(pickup) < 3 || len(destination) < 3 {
		respondError(c, service.ErrInvalidAddress)
		return
	}

	class, err := service.ValidateVehicleClass(c.Query("vehicle_class"))
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	from, err := h.geocoder.Resolve(ctx, pickup)
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := h.geocoder.Resolve(ctx, destination)
	if err != nil {
		respondError(c, err)
		return
	}

	estimate, err := h.fares.Estimate(ctx, from, to, class)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"fare":        estimate.Fare,
		"distance_km": estimate.DistanceKm,
	})
}
