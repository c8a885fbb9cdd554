package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	notificationserrors "tutorbook/internal/notifications/errors"
	"tutorbook/internal/notifications/repository"
	"tutorbook/pkg/email"
	"tutorbook/pkg/model"
)

type memNotificationRepo struct {
	mu      sync.Mutex
	seq     int
	items   []*model.Notification
	failErr error
}

func (m *memNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	for _, existing := range m.items {
		if n.EventID != "" && existing.EventID == n.EventID && existing.UserID == n.UserID {
			return notificationserrors.ErrDuplicate
		}
	}
	m.seq++
	n.ID = fmt.Sprintf("n-%d", m.seq)
	cp := *n
	m.items = append(m.items, &cp)
	return nil
}

func (m *memNotificationRepo) matching(userID string, unreadOnly bool) []*model.Notification {
	var out []*model.Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memNotificationRepo) FindByUser(_ context.Context, userID string, unreadOnly bool, limit int, offset int64) ([]*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.matching(userID, unreadOnly)
	if int(offset) >= len(out) {
		return []*model.Notification{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotificationRepo) CountByUser(_ context.Context, userID string, unreadOnly bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.matching(userID, unreadOnly))), nil
}

func (m *memNotificationRepo) MarkRead(_ context.Context, id, userID string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "bad" {
		return nil, notificationserrors.ErrInvalidID
	}
	for _, n := range m.items {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			cp := *n
			return &cp, nil
		}
	}
	return nil, notificationserrors.ErrNotFound
}

func (m *memNotificationRepo) forUser(userID string) []*model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matching(userID, false)
}

type mapDirectory map[string]repository.Contact

func (d mapDirectory) Lookup(_ context.Context, userID string) (repository.Contact, error) {
	c, ok := d[userID]
	if !ok {
		return repository.Contact{}, notificationserrors.ErrContactNotFound
	}
	return c, nil
}

type failingSender struct{}

func (failingSender) Send(context.Context, email.Message) error {
	return errors.New("sendgrid: 503")
}

type deliveryCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *deliveryCounter) NotificationDelivered(channel, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[channel+"/"+outcome]++
}

func (c *deliveryCounter) get(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}
