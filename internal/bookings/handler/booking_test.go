package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tutorbook/internal/bookings/repository"
	"tutorbook/pkg/auth"
	"tutorbook/pkg/config"
	apperrors "tutorbook/pkg/errors"
	"tutorbook/pkg/logger"
	"tutorbook/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

type stubBookingService struct {
	lastActor  auth.Actor
	lastFilter repository.BookingFilter
	statsRole  config.Role
	statsUser  string
	deleted    string
}

func (s *stubBookingService) Create(_ context.Context, actor auth.Actor, req *model.BookingRequest) (*model.Booking, error) {
	s.lastActor = actor
	if req.Date == "2025-04-22" {
		return nil, apperrors.InvalidInput("date does not fall on Monday")
	}
	return &model.Booking{ID: "b-1", TeacherID: req.TeacherID, Date: req.Date}, nil
}

func (s *stubBookingService) GetByID(_ context.Context, _ auth.Actor, id string) (*model.Booking, error) {
	return &model.Booking{ID: id}, nil
}

func (s *stubBookingService) List(_ context.Context, actor auth.Actor, f repository.BookingFilter, _ int, _ int64) ([]*model.Booking, int64, error) {
	s.lastActor, s.lastFilter = actor, f
	return []*model.Booking{}, 0, nil
}

func (s *stubBookingService) Reschedule(_ context.Context, _ auth.Actor, id string, _ *model.RescheduleRequest) (*model.Booking, error) {
	return &model.Booking{ID: id}, nil
}

func (s *stubBookingService) Cancel(_ context.Context, _ auth.Actor, id string) (*model.Booking, error) {
	return &model.Booking{ID: id, Status: config.Cancelled}, nil
}

func (s *stubBookingService) UpdateStatus(_ context.Context, id string, u *model.StatusUpdate) (*model.Booking, error) {
	return &model.Booking{ID: id, Status: u.Status}, nil
}

func (s *stubBookingService) Delete(_ context.Context, id string) error {
	s.deleted = id
	return nil
}

func (s *stubBookingService) Stats(_ context.Context, _ auth.Actor, role config.Role, userID string) (*model.BookingStats, error) {
	s.statsRole, s.statsUser = role, userID
	return &model.BookingStats{Role: role, UserID: userID}, nil
}

func (s *stubBookingService) Drain() {}

func newRouter(svc *stubBookingService) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(svc, logger.NewNop()).RegisterRoutes(router)
	NewAnalyticsHandler(svc, logger.NewNop()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, path, body string, role config.Role) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if role != "" {
		r = r.WithContext(auth.WithClaims(r.Context(), &auth.Claims{UserID: "user-1", Role: role}))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestRoutes_RoleGates(t *testing.T) {
	svc := &stubBookingService{}
	router := newRouter(svc)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		role   config.Role
		want   int
	}{
		{"student creates", http.MethodPost, "/api/v1/bookings", `{"teacher_id":"t","date":"2025-04-21"}`, config.RoleStudent, http.StatusCreated},
		{"create maps service error", http.MethodPost, "/api/v1/bookings", `{"teacher_id":"t","date":"2025-04-22"}`, config.RoleStudent, http.StatusBadRequest},
		{"create without token", http.MethodPost, "/api/v1/bookings", `{"teacher_id":"t"}`, "", http.StatusUnauthorized},
		{"student reschedule denied", http.MethodPut, "/api/v1/bookings/id/b-1/reschedule", `{"new_date":"2025-04-22","new_slot_id":"tuesday-0900"}`, config.RoleStudent, http.StatusForbidden},
		{"teacher reschedules", http.MethodPut, "/api/v1/bookings/id/b-1/reschedule", `{"new_date":"2025-04-22","new_slot_id":"tuesday-0900"}`, config.RoleTeacher, http.StatusOK},
		{"student cancels", http.MethodPost, "/api/v1/bookings/id/b-1/cancel", "", config.RoleStudent, http.StatusOK},
		{"teacher status denied", http.MethodPatch, "/api/v1/bookings/id/b-1/status", `{"status":"confirmed"}`, config.RoleTeacher, http.StatusForbidden},
		{"admin status", http.MethodPatch, "/api/v1/bookings/id/b-1/status", `{"status":"confirmed"}`, config.RoleAdmin, http.StatusOK},
		{"teacher delete denied", http.MethodDelete, "/api/v1/bookings/id/b-1", "", config.RoleTeacher, http.StatusForbidden},
		{"admin deletes", http.MethodDelete, "/api/v1/bookings/id/b-1", "", config.RoleAdmin, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.method, tt.path, tt.body, tt.role)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, "b-1", svc.deleted)
}

func TestGetAll_PassesFilter(t *testing.T) {
	svc := &stubBookingService{}
	router := newRouter(svc)

	w := serve(router, http.MethodGet, "/api/v1/bookings?status=confirmed&teacher_id=t-9", "", config.RoleAdmin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, config.Confirmed, svc.lastFilter.Status)
	assert.Equal(t, "t-9", svc.lastFilter.TeacherID)
	assert.Equal(t, config.RoleAdmin, svc.lastActor.Role)
}

func TestAnalytics_RouteParams(t *testing.T) {
	svc := &stubBookingService{}
	router := newRouter(svc)

	w := serve(router, http.MethodGet, "/api/v1/analytics/bookings/teacher/t-9", "", config.RoleAdmin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, config.RoleTeacher, svc.statsRole)
	assert.Equal(t, "t-9", svc.statsUser)
}
