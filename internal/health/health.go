package health

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/agaaaptr/open-socmed/internal/shared/httpx"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db  Pinger
	log *zap.Logger
}

func NewHandler(db Pinger, log *zap.Logger) *Handler { return &Handler{db: db, log: log} }

// Live reports that the process serves requests.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Database pings the pool behind the repositories.
func (h *Handler) Database(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("health check failed: database unreachable", zap.Error(err))
		httpx.WriteError(w, http.StatusServiceUnavailable, nil, "database_unavailable")
		return
	}
	httpx.WriteJSON(w, map[string]string{"status": "ok", "database": "connected"}, http.StatusOK)
}
