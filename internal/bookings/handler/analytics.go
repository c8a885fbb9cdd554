package handler

import (
	"net/http"

	"tutorbook/internal/bookings/service"
	"tutorbook/pkg/auth"
	"tutorbook/pkg/config"
	httputil "tutorbook/pkg/http"
	"tutorbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type AnalyticsHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewAnalyticsHandler(service service.BookingService, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		log:     log,
	}
}

func (h *AnalyticsHandler) BookingStats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := auth.ActorFrom(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "BookingStats", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	stats, err := h.service.Stats(r.Context(), actor, config.Role(ps.ByName("role")), ps.ByName("userId"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "BookingStats", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "BookingStats", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AnalyticsHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/analytics/bookings/:role/:userId", h.BookingStats)
}
