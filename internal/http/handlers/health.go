package handlers

import (
	"context"
	"net/http"
	"time"
)

const probeTimeout = 3 * time.Second

type healthBody struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Error   string `json:"error,omitempty"`
}

// Health reports liveness. With ?probe=1 it also checks the workflow backend
// and answers 503 when it is unreachable.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	body := healthBody{Status: "ok", Backend: a.BackendAddress}
	if r.URL.Query().Get("probe") != "1" || a.Backend == nil {
		a.json(w, http.StatusOK, body)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()
	if err := a.Backend.Ping(ctx); err != nil {
		a.logger().Warn().Err(err).Msg("backend probe failed")
		body.Status = "degraded"
		body.Error = err.Error()
		a.json(w, http.StatusServiceUnavailable, body)
		return
	}
	a.json(w, http.StatusOK, body)
}
