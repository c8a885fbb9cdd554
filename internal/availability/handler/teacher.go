package handler

import (
	"net/http"

	"tutorbook/internal/availability/service"
	"tutorbook/pkg/auth"
	"tutorbook/pkg/config"
	httputil "tutorbook/pkg/http"
	"tutorbook/pkg/logger"
	"tutorbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type TeacherHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewTeacherHandler(service service.AvailabilityService, log *logger.Logger) *TeacherHandler {
	return &TeacherHandler{
		service: service,
		log:     log,
	}
}

type assignRequest struct {
	Day config.Weekday `json:"day"`
}

type upsertRequest struct {
	Day   config.Weekday `json:"day"`
	Slots []model.Slot   `json:"slots"`
}

func (h *TeacherHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *TeacherHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var teacher model.Teacher
	if err := httputil.DecodeJSON(r, &teacher); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.CreateTeacher(r.Context(), &teacher); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, teacher); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *TeacherHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	teacher, err := h.service.GetTeacher(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, teacher); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TeacherHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	teachers, total, err := h.service.ListTeachers(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, teachers, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *TeacherHandler) AssignSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req assignRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "AssignSlots", err)
		return
	}

	assigned, err := h.service.AssignSlots(r.Context(), ps.ByName("id"), req.Day)
	if err != nil {
		h.writeError(w, "AssignSlots", err)
		return
	}

	if err := httputil.WriteCreated(w, assigned); err != nil {
		h.log.Error("failed to write created response", "handler", "AssignSlots", "operation", "WriteCreated", "error", err)
	}
}

func (h *TeacherHandler) UpsertSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req upsertRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "UpsertSlots", err)
		return
	}

	merged, err := h.service.UpsertSlots(r.Context(), ps.ByName("id"), req.Day, req.Slots)
	if err != nil {
		h.writeError(w, "UpsertSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, merged); err != nil {
		h.log.Error("failed to write success response", "handler", "UpsertSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TeacherHandler) DeleteSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	day := config.Weekday(ps.ByName("day"))
	if err := h.service.DeleteSlot(r.Context(), ps.ByName("id"), day, ps.ByName("start")); err != nil {
		h.writeError(w, "DeleteSlot", err)
		return
	}

	httputil.WriteNoContent(w)
}

// GetAvailableSlots serves the weekday view. Without ?date= a slot reads as booked if it is
// booked on any date; clients showing one calendar day pass that date.
func (h *TeacherHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	day := config.Weekday(ps.ByName("day"))
	date := r.URL.Query().Get("date")

	available, err := h.service.GetAvailableSlots(r.Context(), ps.ByName("id"), day, date)
	if err != nil {
		h.writeError(w, "GetAvailableSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, available); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAvailableSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TeacherHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/teachers", auth.RequireRoles(h.log, h.Create, config.RoleAdmin))
	router.GET("/api/v1/teachers", h.GetAll)
	router.GET("/api/v1/teachers/id/:id", h.GetByID)
	router.POST("/api/v1/teachers/id/:id/slots/assign", auth.RequireRoles(h.log, h.AssignSlots, config.RoleAdmin))
	router.PUT("/api/v1/teachers/id/:id/slots", auth.RequireRoles(h.log, h.UpsertSlots, config.RoleAdmin))
	router.GET("/api/v1/teachers/id/:id/slots/:day", h.GetAvailableSlots)
	router.DELETE("/api/v1/teachers/id/:id/slots/:day/:start", auth.RequireRoles(h.log, h.DeleteSlot, config.RoleAdmin))
}
