// internal/matching/routes.go
// Route registration for the matching feature

package matching

import (
	"github.com/gorilla/mux"

	"github.com/playdatehub/playdate-backend/internal/auth"
)

// RegisterRoutes registers all matching routes. Every route requires
// authentication.
func RegisterRoutes(router *mux.Router, handlers *Handlers, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/matching").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/schedule", handlers.GetSchedule).Methods("GET")
	api.HandleFunc("/schedule", handlers.SubmitSchedule).Methods("PUT")
	api.HandleFunc("/schedule/slot", handlers.ToggleSlot).Methods("PATCH")

	api.HandleFunc("/preferences", handlers.GetPreferences).Methods("GET")
	api.HandleFunc("/preferences", handlers.UpdatePreferences).Methods("PUT")

	api.HandleFunc("/matches", handlers.GetMatches).Methods("GET")
	api.HandleFunc("/matches/slot", handlers.GetMatchesForSlot).Methods("GET")
	api.HandleFunc("/matches/stats", handlers.GetSlotStatistics).Methods("GET")
	api.HandleFunc("/matches/profile/{matchId:[0-9]+}/respond", handlers.RespondProfileMatch).Methods("POST")

	api.HandleFunc("/recalculate", handlers.Recalculate).Methods("POST")
}
