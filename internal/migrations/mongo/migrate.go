package mongo

import (
	"context"
	"fmt"

	"tutorbook/internal/migrations/mongo/validators"
	"tutorbook/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	TeachersCollection      = "Teachers"
	BookingsCollection      = "Bookings"
	BookingLocksCollection  = "Booking_locks"
	NotificationsCollection = "Notifications"
	RemindersCollection     = "Reminders"
)

var (
	TeachersIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{Keys: bson.D{{Key: "available_slots.day", Value: 1}}},
	}

	BookingsIndexes = []mongo.IndexModel{
		// Only active bookings carry slot_key; cancelling unsets it and frees the slot.
		{
			Keys: bson.D{{Key: "slot_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_active_slot").
				SetPartialFilterExpression(bson.M{"slot_key": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{
			{Key: "teacher_id", Value: 1},
			{Key: "day", Value: 1},
			{Key: "date", Value: 1},
		}},
		{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "ends_at", Value: 1}}},
	}

	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
	}

	NotificationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}}},
		{
			Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_event_recipient").
				SetPartialFilterExpression(bson.M{"event_id": bson.M{"$exists": true}}),
		},
	}

	RemindersIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "fire_at", Value: 1}}},
	}
)

type collectionDef struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections is ordered so migration output is stable between runs.
var Collections = []collectionDef{
	{Name: TeachersCollection, Indexes: TeachersIndexes, Validator: validators.TeacherValidator},
	{Name: BookingsCollection, Indexes: BookingsIndexes, Validator: validators.BookingValidator},
	{Name: BookingLocksCollection, Indexes: BookingLocksIndexes},
	{Name: NotificationsCollection, Indexes: NotificationsIndexes, Validator: validators.NotificationValidator},
	{Name: RemindersCollection, Indexes: RemindersIndexes, Validator: validators.ReminderValidator},
}

// RunMigration creates every collection with its validator and indexes. It is safe to
// rerun: existing collections get their validator refreshed.
func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for _, def := range Collections {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
