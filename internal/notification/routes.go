// internal/notification/routes.go

package notification

import (
	"github.com/gorilla/mux"

	"github.com/playdatehub/playdate-backend/internal/auth"
)

// RegisterRoutes registers device and realtime routes.
func RegisterRoutes(router *mux.Router, handlers *Handlers, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/notifications").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/devices", handlers.RegisterDeviceToken).Methods("POST")
	api.HandleFunc("/devices", handlers.DeleteDeviceToken).Methods("DELETE")
	api.HandleFunc("/ws", handlers.ServeWS).Methods("GET")
}
