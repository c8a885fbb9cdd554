package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tutorbook/internal/notifications/service"
	"tutorbook/pkg/auth"
	httputil "tutorbook/pkg/http"
	"tutorbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const DefaultHeartbeat = 25 * time.Second

type NotificationHandler struct {
	service   service.NotificationService
	heartbeat time.Duration
	log       *logger.Logger
}

func NewNotificationHandler(service service.NotificationService, heartbeat time.Duration, log *logger.Logger) *NotificationHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &NotificationHandler{
		service:   service,
		heartbeat: heartbeat,
		log:       log,
	}
}

func (h *NotificationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *NotificationHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := auth.ActorFrom(r.Context())
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, total, err := h.service.List(r.Context(), actor, unreadOnly, limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, list, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := auth.ActorFrom(r.Context())
	if err != nil {
		h.writeError(w, "MarkRead", err)
		return
	}

	n, err := h.service.MarkRead(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "MarkRead", err)
		return
	}

	if err := httputil.WriteSuccess(w, n); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkRead", "operation", "WriteSuccess", "error", err)
	}
}

// Stream is a server-sent events feed of the caller's new notifications.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := auth.ActorFrom(r.Context())
	if err != nil {
		h.writeError(w, "Stream", err)
		return
	}

	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut long-lived streams.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.log.Warn("failed to clear write deadline", "handler", "Stream", "error", err)
	}

	ch, cancel := h.service.Subscribe(actor)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.log.Error("streaming unsupported", "handler", "Stream", "error", err)
		return
	}

	h.log.Debug("Notification stream opened", "user_id", actor.UserID)
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Debug("Notification stream closed", "user_id", actor.UserID)
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case n, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				h.log.Error("failed to encode notification", "handler", "Stream", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: notification\ndata: %s\n\n", n.ID, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func (h *NotificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/notifications", h.GetAll)
	router.GET("/api/v1/notifications/stream", h.Stream)
	router.PATCH("/api/v1/notifications/id/:id/read", h.MarkRead)
}

