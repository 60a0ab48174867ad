package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nightfall-games/werewolf-lobby/internal/middleware"
	"github.com/nightfall-games/werewolf-lobby/internal/ws"
)

// RouterConfig holds dependencies for the HTTP router
type RouterConfig struct {
	Logger  *slog.Logger
	Gateway *ws.Gateway
}

// NewRouter builds the HTTP router: the websocket endpoint plus a health
// check. Everything else the server does happens over the socket.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	r.HandleFunc("/ws", cfg.Gateway.ServeWS).Methods(http.MethodGet)
	r.HandleFunc("/api/health", handleHealth).Methods(http.MethodGet)

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
