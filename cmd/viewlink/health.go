package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/viewtl/viewlink/internal/connection"
	"github.com/viewtl/viewlink/internal/poller"
	"github.com/viewtl/viewlink/internal/router"
	"github.com/viewtl/viewlink/internal/storage"
)

// controllerView is the part of the controller the health server uses.
type controllerView interface {
	State() connection.State
	Retry()
}

type routerStats interface {
	Stats() router.RouterStats
}

type pollerStats interface {
	Stats() poller.Stats
}

// newHealthHandler creates the HTTP handler for health checks. credentials
// may be nil, in which case /login is not served.
func newHealthHandler(ctrl controllerView, rt routerStats, refresher pollerStats, credentials storage.CredentialWriter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		state := ctrl.State()
		stats := rt.Stats()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		health.Components["connection"] = state.String()
		health.Components["router"] = map[string]any{
			"received":  stats.MessagesReceived,
			"routed":    stats.MessagesRouted,
			"unknown":   stats.UnknownMessages,
			"unhandled": stats.UnhandledMessages,
			"queued":    stats.Queue.Len,
		}
		polls := refresher.Stats()
		health.Components["poller"] = map[string]any{
			"polls":   polls.Polls,
			"skipped": polls.Skipped,
			"errors":  polls.Errors,
		}

		code := http.StatusOK
		if _, ok := state.(connection.Connected); !ok {
			health.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, health, logger)
	})

	mux.HandleFunc("GET /debug/state", func(w http.ResponseWriter, r *http.Request) {
		view := map[string]any{"state": ctrl.State().String()}
		switch s := ctrl.State().(type) {
		case connection.Connected:
			view["address"] = s.Address
			view["from_url"] = s.FromURL
			view["local"] = s.IsLocal
		case connection.LoginRequired:
			view["from_url"] = s.Address.FromURL
			view["message"] = s.Address.Message
		}
		writeJSON(w, http.StatusOK, view, logger)
	})

	if credentials != nil {
		mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
				http.Error(w, "email and password are required", http.StatusBadRequest)
				return
			}
			if err := credentials.SetCredentials(r.Context(), req.Email, req.Password); err != nil {
				logger.Error("store credentials", "error", err)
				http.Error(w, "could not store credentials", http.StatusInternalServerError)
				return
			}
			ctrl.Retry()
			logger.Info("credentials updated, retrying login")
			w.WriteHeader(http.StatusAccepted)
		})
	}

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("write response", "error", err)
	}
}
