package service

import (
	"context"
	"sync"

	"tutorbook/internal/bookings/repository"
	"tutorbook/pkg/auth"
	"tutorbook/pkg/config"
	apperrors "tutorbook/pkg/errors"
	"tutorbook/pkg/model"
)

// Stats aggregates one student's or teacher's bookings. Callers see their own stats;
// admins see anyone's.
func (s *bookingService) Stats(ctx context.Context, actor auth.Actor, role config.Role, userID string) (*model.BookingStats, error) {
	role = config.NormalizeRole(string(role))
	if role != config.RoleStudent && role != config.RoleTeacher {
		return nil, apperrors.InvalidInput("role must be student or teacher")
	}
	if userID == "" {
		return nil, apperrors.InvalidInput("user ID cannot be empty")
	}
	if actor.Role != config.RoleAdmin && (actor.UserID != userID || actor.Role != role) {
		return nil, apperrors.Forbidden("You can only view your own analytics")
	}

	base := repository.BookingFilter{}
	if role == config.RoleStudent {
		base.StudentID = userID
	} else {
		base.TeacherID = userID
	}

	stats := &model.BookingStats{
		Role:     role,
		UserID:   userID,
		ByStatus: make(map[config.BookingStatus]int64, len(config.BookingStatuses)),
	}

	var mu sync.Mutex
	var firstErr error
	var wg sync.WaitGroup
	count := func(apply func(n int64), fn func() (int64, error)) {
		defer wg.Done()
		n, err := fn()
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		apply(n)
	}

	wg.Add(2 + len(config.BookingStatuses))
	go count(func(n int64) { stats.Total = n }, func() (int64, error) {
		return s.repo.Count(ctx, base)
	})
	go count(func(n int64) { stats.NoShows = n }, func() (int64, error) {
		return s.repo.CountNoShows(ctx, base, s.now())
	})
	for _, status := range config.BookingStatuses {
		status := status
		f := base
		f.Status = status
		go count(func(n int64) { stats.ByStatus[status] = n }, func() (int64, error) {
			return s.repo.Count(ctx, f)
		})
	}
	wg.Wait()

	if firstErr != nil {
		s.cfg.Log.Error("Failed to aggregate booking stats", "role", role, "user_id", userID, "error", firstErr)
		return nil, apperrors.Internal("Failed to compute booking analytics", firstErr)
	}

	stats.Cancellations = stats.ByStatus[config.Cancelled]
	return stats, nil
}
