package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "tutorbook/internal/bookings/errors"
	"tutorbook/pkg/config"
	mongotx "tutorbook/pkg/db/mongo"
	"tutorbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Booking_locks"

// BookingLockRepository provides advisory locks keyed by slot key.
type BookingLockRepository interface {
	// Acquire returns ErrSlotLocked if another holder owns id.
	Acquire(ctx context.Context, id string) (*model.BookingLock, error)
	Release(ctx context.Context, id string) error
}

type mongoBookingLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewBookingLockRepository(cfg *config.Config) BookingLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoBookingLockRepository) Acquire(ctx context.Context, id string) (*model.BookingLock, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	lock := &model.BookingLock{
		ID:        id,
		ExpiresAt: now.Add(r.cfg.BookingLockTTL),
		CreatedAt: now,
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, bookingserrors.ErrSlotLocked
		}
		return nil, fmt.Errorf("failed to acquire booking lock: %w", err)
	}
	return lock, nil
}

func (r *mongoBookingLockRepository) Release(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to release booking lock: %w", err)
	}
	return nil
}
