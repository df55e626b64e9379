package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hail/internal/domain"
	"hail/internal/geo"
	"hail/internal/repository"
	"hail/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService   *service.DriverService
	matchingService service.MatchingServiceInterface
	driverRepo      repository.DriverRepository
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService, matchingService service.MatchingServiceInterface, driverRepo repository.DriverRepository) *DriverHandler {
	return &DriverHandler{
		driverService:   driverService,
		matchingService: matchingService,
		driverRepo:      driverRepo,
	}
}

// RegisterDriverRequest is the HTTP request body for registering a driver.
type RegisterDriverRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	VehicleClass string `json:"vehicle_class"`
	VehiclePlate string `json:"vehicle_plate,omitempty"`
}

// UpdateLocationRequest is the HTTP request body for a position report.
type UpdateLocationRequest struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	RideID string  `json:"ride_id,omitempty"`
}

// DriverResponse is the public view of a driver.
type DriverResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	VehicleClass string `json:"vehicle_class"`
	VehiclePlate string `json:"vehicle_plate,omitempty"`
	Status       string `json:"status"`
}

// Register handles POST /v1/drivers/register
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	class, err := service.ValidateVehicleClass(req.VehicleClass)
	if err != nil {
		respondError(c, err)
		return
	}

	driver := &domain.Driver{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Phone:        req.Phone,
		VehicleClass: class,
		VehiclePlate: req.VehiclePlate,
		Status:       domain.DriverStatusOffline,
		CreatedAt:    time.Now(),
	}

	if err := h.driverRepo.Create(c.Request.Context(), driver); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// UpdateLocation handles POST /v1/drivers/:id/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.driverService.ReportLocation(c.Request.Context(), c.Param("id"), req.RideID, geo.Point{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// GoOffline handles POST /v1/drivers/:id/offline
func (h *DriverHandler) GoOffline(c *gin.Context) {
	if err := h.driverService.SetOffline(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// FindCandidates handles GET /v1/drivers/nearby?lat=..&lng=..&radius_km=..&vehicle_class=..
func (h *DriverHandler) FindCandidates(c *gin.Context) {
	var query struct {
		Lat          float64 `form:"lat"`
		Lng          float64 `form:"lng"`
		RadiusKm     float64 `form:"radius_km"`
		VehicleClass string  `form:"vehicle_class"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query"})
		return
	}

	candidates, err := h.matchingService.FindCandidates(
		c.Request.Context(),
		geo.Point{Lat: query.Lat, Lng: query.Lng},
		query.RadiusKm,
		domain.VehicleClass(query.VehicleClass),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"driver_ids": candidates})
}

// GetAll handles GET /v1/drivers
func (h *DriverHandler) GetAll(c *gin.Context) {
	drivers, err := h.driverRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DriverResponse, 0, len(drivers))
	for _, d := range drivers {
		response = append(response, toDriverResponse(d))
	}
	respondJSON(c, http.StatusOK, response)
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:           d.ID,
		Name:         d.Name,
		Phone:        d.Phone,
		VehicleClass: string(d.VehicleClass),
		VehiclePlate: d.VehiclePlate,
		Status:       string(d.Status),
	}
}
