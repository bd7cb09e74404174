// internal/notification/handlers.go

package notification

import (
	"encoding/json"
	"net/http"

	"github.com/playdatehub/playdate-backend/internal/auth"
	"github.com/playdatehub/playdate-backend/internal/common/utils"
)

// Handlers provides HTTP handlers for device registration and the
// realtime event stream.
type Handlers struct {
	tokens TokenRepository
	hub    *Hub
}

func NewHandlers(tokens TokenRepository, hub *Hub) *Handlers {
	return &Handlers{tokens: tokens, hub: hub}
}

type registerTokenDTO struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

// RegisterDeviceToken handles POST /devices
func (h *Handlers) RegisterDeviceToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var dto registerTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.tokens.SaveToken(r.Context(), userID, dto.Token, dto.Platform); err != nil {
		utils.ErrorResponse(w, "Failed to register device", http.StatusInternalServerError)
		return
	}

	utils.MessageResponse(w, "Device registered", http.StatusOK)
}

type deleteTokenDTO struct {
	Token string `json:"token" validate:"required"`
}

// DeleteDeviceToken handles DELETE /devices
func (h *Handlers) DeleteDeviceToken(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.GetUserIDFromContext(r.Context()); !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var dto deleteTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.tokens.DeleteToken(r.Context(), dto.Token); err != nil {
		utils.ErrorResponse(w, "Failed to remove device", http.StatusInternalServerError)
		return
	}

	utils.MessageResponse(w, "Device removed", http.StatusOK)
}

// ServeWS handles GET /ws
func (h *Handlers) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}
