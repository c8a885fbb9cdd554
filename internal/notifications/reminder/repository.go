package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorbook/pkg/config"
	mongotx "tutorbook/pkg/db/mongo"
	"tutorbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Reminders"

// ErrNoneDue is returned by ClaimDue when nothing is ready to fire.
var ErrNoneDue = errors.New("no reminder due")

type Repository interface {
	// Schedule upserts the booking's reminder, replacing any earlier schedule.
	Schedule(ctx context.Context, r *model.Reminder) error
	Cancel(ctx context.Context, bookingID string) error
	// ClaimDue atomically marks the oldest due reminder sent and returns it.
	ClaimDue(ctx context.Context, now time.Time) (*model.Reminder, error)
	// Release puts a claimed reminder back to pending after a failed dispatch.
	Release(ctx context.Context, bookingID string) error
}

type mongoRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRepository(cfg *config.Config) Repository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoRepository) Schedule(ctx context.Context, rem *model.Reminder) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	rem.Status = model.ReminderPending
	rem.SentAt = nil
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = time.Now().UTC()
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": rem.BookingID}, rem, opts); err != nil {
		return fmt.Errorf("failed to schedule reminder: %w", err)
	}
	return nil
}

func (r *mongoRepository) Cancel(ctx context.Context, bookingID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": bookingID}); err != nil {
		return fmt.Errorf("failed to cancel reminder: %w", err)
	}
	return nil
}

func (r *mongoRepository) ClaimDue(ctx context.Context, now time.Time) (*model.Reminder, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"status":  model.ReminderPending,
		"fire_at": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"status": model.ReminderSent, "sent_at": now}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "fire_at", Value: 1}}).
		SetReturnDocument(options.After)

	var rem model.Reminder
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rem); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoneDue
		}
		return nil, fmt.Errorf("failed to claim reminder: %w", err)
	}
	return &rem, nil
}

func (r *mongoRepository) Release(ctx context.Context, bookingID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set":   bson.M{"status": model.ReminderPending},
		"$unset": bson.M{"sent_at": ""},
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": bookingID, "status": model.ReminderSent}, update); err != nil {
		return fmt.Errorf("failed to release reminder: %w", err)
	}
	return nil
}
