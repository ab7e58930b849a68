package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/device-trust/pkg/registration"
	"github.com/tendant/device-trust/pkg/trust"
)

// RegistrationHandler handles HTTP requests for device registration events
type RegistrationHandler struct {
	registrationService *registration.Service
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(registrationService *registration.Service) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
	}
}

// RegisterDeviceRequest represents the request body for a registration event
type RegisterDeviceRequest struct {
	UserID string `json:"user_id"`
	UDID   string `json:"udid"`
	Brand  string `json:"brand,omitempty"`
	Model  string `json:"model,omitempty"`
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// RegisterDevice handles an incoming device registration event
func (h *RegistrationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Status: "error", Message: "Invalid request body", Error: err.Error()})
		return
	}
	if req.UserID == "" || req.UDID == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Status: "error", Message: "user_id and udid are required"})
		return
	}

	err := h.registrationService.RegisterDevice(r.Context(), registration.RegisterDeviceParams{
		UserID: req.UserID,
		UDID:   req.UDID,
		Brand:  req.Brand,
		Model:  req.Model,
	})
	if err != nil {
		if errors.Is(err, trust.ErrRecordExists) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, ErrorResponse{Status: "error", Message: "Trust record already exists"})
			return
		}
		slog.Error("Failed to register device", "userID", req.UserID, "udid", req.UDID, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Status: "error", Message: "Failed to register device"})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SuccessResponse{Status: "success", Message: "Device registration processed"})
}

// Handler returns a http.Handler for the registration API
func Handler(h *RegistrationHandler) http.Handler {
	r := chi.NewRouter()

	r.Post("/", h.RegisterDevice)

	return r
}
