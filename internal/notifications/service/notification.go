package service

import (
	"context"
	"errors"
	"sync"

	notificationserrors "tutorbook/internal/notifications/errors"
	"tutorbook/internal/notifications/realtime"
	"tutorbook/internal/notifications/repository"
	"tutorbook/pkg/auth"
	apperrors "tutorbook/pkg/errors"
	"tutorbook/pkg/logger"
	"tutorbook/pkg/model"
)

type NotificationService interface {
	List(ctx context.Context, actor auth.Actor, unreadOnly bool, limit int, offset int64) ([]*model.Notification, int64, error)
	MarkRead(ctx context.Context, actor auth.Actor, id string) (*model.Notification, error)
	Subscribe(actor auth.Actor) (<-chan *model.Notification, func())
}

type notificationService struct {
	repo     repository.NotificationRepository
	sessions realtime.SessionRegistry
	log      *logger.Logger
}

func NewNotificationService(repo repository.NotificationRepository, sessions realtime.SessionRegistry, log *logger.Logger) NotificationService {
	return &notificationService{
		repo:     repo,
		sessions: sessions,
		log:      log,
	}
}

func (s *notificationService) List(ctx context.Context, actor auth.Actor, unreadOnly bool, limit int, offset int64) ([]*model.Notification, int64, error) {
	var count int64
	var list []*model.Notification
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByUser(ctx, actor.UserID, unreadOnly)
	}()
	go func() {
		defer wg.Done()
		list, errFind = s.repo.FindByUser(ctx, actor.UserID, unreadOnly, limit, offset)
	}()
	wg.Wait()

	if err := errors.Join(errCount, errFind); err != nil {
		s.log.Error("Failed to list notifications", "user_id", actor.UserID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve notifications", err)
	}
	return list, count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor auth.Actor, id string) (*model.Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, actor.UserID)
	if err != nil {
		switch {
		case errors.Is(err, notificationserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Notification", id)
		case errors.Is(err, notificationserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid notification ID format")
		}
		s.log.Error("Failed to mark notification read", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update notification", err)
	}
	return n, nil
}

func (s *notificationService) Subscribe(actor auth.Actor) (<-chan *model.Notification, func()) {
	return s.sessions.Subscribe(actor.UserID)
}
