package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

// HealthHandler serves liveness and readiness probes. Readiness pings the
// database; liveness never does.
type HealthHandler struct {
	db *sql.DB
}

// NewHealthHandler creates a health handler over the given database.
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Liveness always reports healthy while the process runs.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeHealth(w, http.StatusOK, "ok")
}

// Readiness reports healthy only when the database responds.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db == nil {
		writeHealth(w, http.StatusServiceUnavailable, "database not configured")
		return
	}
	if err := h.db.PingContext(ctx); err != nil {
		writeHealth(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}

	writeHealth(w, http.StatusOK, "ok")
}

func writeHealth(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": message})
}
