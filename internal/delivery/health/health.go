package health

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"developertok/internal/httpresponse"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
	log   *zap.SugaredLogger
}

func NewHealthHandler(store Pinger, log *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{store: store, log: log}
}

func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Warnf("Ready: account store unavailable: %v", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, map[string]string{"status": "ready"})
}
