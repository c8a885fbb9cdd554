package reminder

import (
	"context"
	"testing"
	"time"

	"tutorbook/internal/testutil"
	"tutorbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMongoRepository_ClaimDueOnce(t *testing.T) {
	db := testutil.NewMongoHelper(t)
	repo := NewMongoRepository(db.Config())
	ctx := context.Background()
	now := time.Date(2025, 4, 20, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Schedule(ctx, model.NewReminder(booking("b-1", now.Add(2*time.Hour)), 24*time.Hour, now)))
	require.NoError(t, repo.Schedule(ctx, model.NewReminder(booking("b-2", now.Add(72*time.Hour)), 24*time.Hour, now)))

	rem, err := repo.ClaimDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "b-1", rem.BookingID)
	assert.Equal(t, model.ReminderSent, rem.Status)

	_, err = repo.ClaimDue(ctx, now)
	assert.ErrorIs(t, err, ErrNoneDue)

	require.NoError(t, repo.Release(ctx, "b-1"))
	rem, err = repo.ClaimDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "b-1", rem.BookingID)
}

func TestMongoRepository_ScheduleReplacesAndCancelRemoves(t *testing.T) {
	db := testutil.NewMongoHelper(t)
	repo := NewMongoRepository(db.Config())
	ctx := context.Background()
	now := time.Date(2025, 4, 20, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Schedule(ctx, model.NewReminder(booking("b-1", now.Add(2*time.Hour)), 24*time.Hour, now)))
	require.NoError(t, repo.Schedule(ctx, model.NewReminder(booking("b-1", now.Add(96*time.Hour)), 24*time.Hour, now)))
	assert.Equal(t, int64(1), db.CountDocuments(t, CollectionName, nil))

	_, err := repo.ClaimDue(ctx, now)
	assert.ErrorIs(t, err, ErrNoneDue)

	require.NoError(t, repo.Cancel(ctx, "b-1"))
	require.NoError(t, repo.Cancel(ctx, "b-1"))
	assert.Zero(t, db.CountDocuments(t, CollectionName, nil))
}
