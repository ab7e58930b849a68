package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/device-trust/pkg/loginattempts"
	"github.com/tendant/device-trust/pkg/notification"
	"github.com/tendant/device-trust/pkg/trust"
)

// DefaultDateFormat renders attempt timestamps in the response
const DefaultDateFormat = "02.01.2006 15:04:05"

// AttemptsHandler handles HTTP requests for the login-attempt history
type AttemptsHandler struct {
	attemptService *loginattempts.Service
	dateFormat     string
}

// NewAttemptsHandler creates a new attempts handler. An empty dateFormat
// falls back to DefaultDateFormat.
func NewAttemptsHandler(attemptService *loginattempts.Service, dateFormat string) *AttemptsHandler {
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}
	return &AttemptsHandler{
		attemptService: attemptService,
		dateFormat:     dateFormat,
	}
}

// LoginAttemptView is one attempt as rendered in the response. The timestamp
// is formatted here, at the serialization boundary only; ordering was decided
// on the structured value.
type LoginAttemptView struct {
	AttemptDate string                   `json:"attempt_date"`
	DeviceInfo  *notification.DeviceInfo `json:"device_info"`
}

// ListAttemptsResponse represents the response body for the attempt history
type ListAttemptsResponse struct {
	Attempts []LoginAttemptView `json:"attempts"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ListAttempts returns one page of the user's login attempts, newest first
func (h *AttemptsHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	page, err := queryInt(r, "page", loginattempts.DefaultPage)
	if err != nil || page < 1 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Status: "error", Message: "page must be a positive integer"})
		return
	}
	limit, err := queryInt(r, "limit", loginattempts.DefaultPageLimit)
	if err != nil || limit < 1 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Status: "error", Message: "limit must be a positive integer"})
		return
	}

	attempts, err := h.attemptService.GetAttempts(r.Context(), userID, page, limit)
	if err != nil {
		if errors.Is(err, trust.ErrUnregisteredDevice) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{Status: "error", Message: "User has no registered devices"})
			return
		}
		slog.Error("Failed to get login attempts", "userID", userID, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Status: "error", Message: "Failed to get login attempts"})
		return
	}

	views := make([]LoginAttemptView, 0, len(attempts))
	for _, attempt := range attempts {
		views = append(views, LoginAttemptView{
			AttemptDate: attempt.AttemptAt.Format(h.dateFormat),
			DeviceInfo:  attempt.DeviceInfo,
		})
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ListAttemptsResponse{Attempts: views})
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// Handler returns a http.Handler for the login-attempt API
func Handler(h *AttemptsHandler) http.Handler {
	r := chi.NewRouter()

	r.Get("/{user_id}", h.ListAttempts)

	return r
}
