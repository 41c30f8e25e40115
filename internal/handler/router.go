package handler

import (
	"log/slog"
	"net/http"

	"sketchsync/internal/config"
	"sketchsync/internal/middleware"

	"github.com/gorilla/mux"
)

type RouterDeps struct {
	Points    *PointHandler
	WebSocket *WebSocketHandler
	CORS      config.CORSConfig
	Chaos     config.ChaosConfig
	Logger    *slog.Logger
}

// NewRouter wires the store endpoints. Chaos applies to the point routes only
// so health checks and the echo feed stay reliable.
func NewRouter(deps RouterDeps) *mux.Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.CORSMiddleware(
		deps.CORS.AllowedOrigins,
		deps.CORS.AllowedMethods,
		deps.CORS.AllowedHeaders,
	))

	store := r.PathPrefix("").Subrouter()
	if deps.Chaos.Enabled() {
		store.Use(middleware.ChaosMiddleware(deps.Chaos.FailureRate, deps.Chaos.MaxDelay, logger))
	}

	store.HandleFunc("/points", deps.Points.List).Methods("GET", "OPTIONS")
	store.HandleFunc("/points/add", deps.Points.Add).Methods("POST", "OPTIONS")
	store.HandleFunc("/reset", deps.Points.Reset).Methods("GET", "POST", "OPTIONS")

	if deps.WebSocket != nil {
		r.HandleFunc("/ws", deps.WebSocket.HandleConnection)
	}

	r.HandleFunc("/health", healthHandler).Methods("GET")

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"sketchsync"}`))
}
