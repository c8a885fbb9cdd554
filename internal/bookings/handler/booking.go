package handler

import (
	"net/http"

	"tutorbook/internal/bookings/repository"
	"tutorbook/internal/bookings/service"
	"tutorbook/pkg/auth"
	"tutorbook/pkg/config"
	httputil "tutorbook/pkg/http"
	"tutorbook/pkg/logger"
	"tutorbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := auth.ActorFrom(r.Context())
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := auth.ActorFrom(r.Context())
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	booking, err := h.service.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
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

	query := r.URL.Query()
	filter := repository.BookingFilter{
		StudentID: query.Get("student_id"),
		TeacherID: query.Get("teacher_id"),
		Status:    config.BookingStatus(query.Get("status")),
	}

	bookings, total, err := h.service.List(r.Context(), actor, filter, limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := auth.ActorFrom(r.Context())
	if err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	var req model.RescheduleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	booking, err := h.service.Reschedule(r.Context(), actor, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Reschedule", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := auth.ActorFrom(r.Context())
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	booking, err := h.service.Cancel(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.StatusUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", auth.RequireRoles(h.log, h.Create, config.RoleStudent, config.RoleTeacher, config.RoleAdmin))
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.PUT("/api/v1/bookings/id/:id/reschedule", auth.RequireRoles(h.log, h.Reschedule, config.RoleTeacher, config.RoleAdmin))
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.PATCH("/api/v1/bookings/id/:id/status", auth.RequireRoles(h.log, h.UpdateStatus, config.RoleAdmin))
	router.DELETE("/api/v1/bookings/id/:id", auth.RequireRoles(h.log, h.Delete, config.RoleAdmin))
}
