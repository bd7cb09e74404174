// internal/matching/handlers.go
// HTTP handlers for schedules, preferences and matches.

package matching

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/playdatehub/playdate-backend/internal/auth"
	"github.com/playdatehub/playdate-backend/internal/common/utils"
)

// Handlers provides HTTP handlers for the matching feature
type Handlers struct {
	service Service
}

// NewHandlers creates matching handlers
func NewHandlers(service Service) *Handlers {
	return &Handlers{service: service}
}

// SubmitSchedule handles PUT /schedule
func (h *Handlers) SubmitSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var dto SubmitScheduleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	slots, err := h.service.SubmitSchedule(r.Context(), userID, &dto)
	if err != nil {
		if errors.Is(err, ErrInvalidSlot) {
			utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		utils.ErrorResponse(w, "Failed to update schedule", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(w, slots, http.StatusOK)
}

// GetSchedule handles GET /schedule
func (h *Handlers) GetSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	slots, err := h.service.GetSchedule(r.Context(), userID)
	if err != nil {
		utils.ErrorResponse(w, "Failed to get schedule", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(w, slots, http.StatusOK)
}

// ToggleSlot handles PATCH /schedule/slot
func (h *Handlers) ToggleSlot(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var dto ToggleSlotDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	slots, err := h.service.ToggleSlot(r.Context(), userID, &dto)
	if err != nil {
		if errors.Is(err, ErrInvalidSlot) {
			utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		utils.ErrorResponse(w, "Failed to toggle slot", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(w, slots, http.StatusOK)
}

// GetPreferences handles GET /preferences
func (h *Handlers) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	pref, err := h.service.GetPreferences(r.Context(), userID)
	if err != nil {
		utils.ErrorResponse(w, "Failed to get preferences", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(w, pref, http.StatusOK)
}

// UpdatePreferences handles PUT /preferences
func (h *Handlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var dto UpdatePreferencesDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	pref, err := h.service.UpdatePreferences(r.Context(), userID, &dto)
	if err != nil {
		utils.ErrorResponse(w, "Failed to update preferences", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(w, pref, http.StatusOK)
}

// GetMatches handles GET /matches
func (h *Handlers) GetMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	matches, err := h.service.GetMatches(r.Context(), userID)
	if err != nil {
		utils.ErrorResponse(w, "Failed to get matches", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(w, matches, http.StatusOK)
}

// GetMatchesForSlot handles GET /matches/slot?day=3&band=morning
func (h *Handlers) GetMatchesForSlot(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	day, err := strconv.Atoi(r.URL.Query().Get("day"))
	if err != nil {
		utils.ErrorResponse(w, "Invalid day parameter", http.StatusBadRequest)
		return
	}
	band := r.URL.Query().Get("band")

	matches, err := h.service.GetMatchesForSlot(r.Context(), userID, day, band)
	if err != nil {
		if errors.Is(err, ErrInvalidSlot) {
			utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		utils.ErrorResponse(w, "Failed to get matches", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(w, matches, http.StatusOK)
}

// GetSlotStatistics handles GET /matches/stats, optionally narrowed to one
// slot with ?day=3&band=morning.
func (h *Handlers) GetSlotStatistics(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	stats, err := h.service.GetSlotStatistics(r.Context(), userID)
	if err != nil {
		utils.ErrorResponse(w, "Failed to get slot statistics", http.StatusInternalServerError)
		return
	}

	dayParam := r.URL.Query().Get("day")
	band := r.URL.Query().Get("band")
	if dayParam != "" && band != "" {
		day, err := strconv.Atoi(dayParam)
		if err != nil || day < 0 || day > 6 || !ValidTimeBand(band) {
			utils.ErrorResponse(w, "Invalid slot parameters", http.StatusBadRequest)
			return
		}
		filtered := make([]SlotStats, 0, 1)
		for _, s := range stats {
			if s.DayOfWeek == day && s.TimeBand == band {
				filtered = append(filtered, s)
			}
		}
		stats = filtered
	}

	utils.SuccessResponse(w, stats, http.StatusOK)
}

// RespondProfileMatch handles POST /matches/profile/{matchId}/respond
func (h *Handlers) RespondProfileMatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	matchID, err := strconv.ParseInt(mux.Vars(r)["matchId"], 10, 64)
	if err != nil {
		utils.ErrorResponse(w, "Invalid match ID", http.StatusBadRequest)
		return
	}

	var dto RespondProfileMatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	match, err := h.service.RespondProfileMatch(r.Context(), userID, matchID, &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrMatchNotFound):
			utils.ErrorResponse(w, "Match not found", http.StatusNotFound)
		case errors.Is(err, ErrNotParticipant):
			utils.ErrorResponse(w, "You are not part of this match", http.StatusForbidden)
		case errors.Is(err, ErrAlreadyResponded):
			utils.ErrorResponse(w, "Match already responded to", http.StatusConflict)
		case errors.Is(err, ErrMatchExpired):
			utils.ErrorResponse(w, "Match has expired", http.StatusGone)
		default:
			utils.ErrorResponse(w, "Failed to respond to match", http.StatusInternalServerError)
		}
		return
	}

	utils.SuccessResponse(w, match, http.StatusOK)
}

// Recalculate handles POST /recalculate
func (h *Handlers) Recalculate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.service.Recalculate(r.Context(), userID)
	if err != nil {
		utils.ErrorResponse(w, "Failed to recalculate matches", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(w, result, http.StatusOK)
}
