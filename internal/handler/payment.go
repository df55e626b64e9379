package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hail/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateIntentRequest is the HTTP request body for opening a payment intent.
type CreateIntentRequest struct {
	RideID string  `json:"ride_id"`
	Amount float64 `json:"amount"`
}

// CreateIntentResponse carries the gateway client secret back to the rider app.
type CreateIntentResponse struct {
	RideID       string `json:"ride_id"`
	ClientSecret string `json:"client_secret"`
}

// PaymentStatusRequest is the HTTP request body for gateway status callbacks.
type PaymentStatusRequest struct {
	RideID string `json:"ride_id"`
}

// CreateIntent handles POST /v1/payments/intent
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	secret, err := h.paymentService.CreateIntent(c.Request.Context(), req.RideID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreateIntentResponse{
		RideID:       req.RideID,
		ClientSecret: secret,
	})
}

// MarkPending handles POST /v1/payments/pending
func (h *PaymentHandler) MarkPending(c *gin.Context) {
	var req PaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.paymentService.MarkPending(c.Request.Context(), req.RideID); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// MarkCompleted handles POST /v1/payments/completed
func (h *PaymentHandler) MarkCompleted(c *gin.Context) {
	var req PaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.paymentService.MarkCompleted(c.Request.Context(), req.RideID); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "ok"})
}
