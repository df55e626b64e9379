package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hail/internal/domain"
	"hail/internal/repository"
)

// UserHandler handles HTTP requests for riders.
type UserHandler struct {
	riderRepo repository.RiderRepository
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(riderRepo repository.RiderRepository) *UserHandler {
	return &UserHandler{riderRepo: riderRepo}
}

// RegisterRiderRequest is the HTTP request body for registering a rider.
type RegisterRiderRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// RiderResponse is the public view of a rider.
type RiderResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Register handles POST /v1/riders/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRiderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	rider := &domain.Rider{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Phone:     req.Phone,
		CreatedAt: time.Now(),
	}

	if err := h.riderRepo.Create(c.Request.Context(), rider); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, RiderResponse{
		ID:    rider.ID,
		Name:  rider.Name,
		Phone: rider.Phone,
	})
}

// Get handles GET /v1/riders/:id
func (h *UserHandler) Get(c *gin.Context) {
	rider, err := h.riderRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, RiderResponse{
		ID:    rider.ID,
		Name:  rider.Name,
		Phone: rider.Phone,
	})
}
