// internal/matching/dto.go
package matching

// DTOs for API requests/responses

type SlotDTO struct {
	DayOfWeek int    `json:"day_of_week" validate:"gte=0,lte=6"`
	TimeBand  string `json:"time_band" validate:"required,oneof=morning afternoon evening allday"`
}

type SubmitScheduleDTO struct {
	Slots []SlotDTO `json:"slots" validate:"required,min=1,max=28,dive"`
}

type ToggleSlotDTO struct {
	DayOfWeek int    `json:"day_of_week" validate:"gte=0,lte=6"`
	TimeBand  string `json:"time_band" validate:"required,oneof=morning afternoon evening allday"`
	Active    bool   `json:"active"`
}

type UpdatePreferencesDTO struct {
	MaxDistanceKm       float64 `json:"max_distance_km" validate:"required,gt=0,lte=200"`
	AgeFlexibilityYears int     `json:"age_flexibility_years" validate:"gte=0,lte=10"`
	Enabled             *bool   `json:"enabled,omitempty"`
}

type RespondProfileMatchDTO struct {
	Status string `json:"status" validate:"required,oneof=accepted declined"`
}

type RecalculateResponse struct {
	MatchesFound int `json:"matches_found"`
}
