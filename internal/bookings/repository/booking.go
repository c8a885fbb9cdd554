package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "tutorbook/internal/bookings/errors"
	"tutorbook/pkg/config"
	mongotx "tutorbook/pkg/db/mongo"
	"tutorbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

// BookingFilter narrows list and count queries. Zero fields match everything.
type BookingFilter struct {
	StudentID string
	TeacherID string
	Status    config.BookingStatus
}

// Reschedule carries the fields a reschedule rewrites in place.
type Reschedule struct {
	Day           config.Weekday
	Date          string
	StartTime     string
	EndTime       string
	StartsAt      time.Time
	EndsAt        time.Time
	SlotKey       string
	RescheduledAt time.Time
}

type BookingRepository interface {
	// Create inserts booking; ErrSlotTaken if its slot key is already held.
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindActiveBySlotKey(ctx context.Context, slotKey string) (*model.Booking, error)
	// BookedStartTimes lists start times of non-cancelled bookings; empty date matches any date.
	BookedStartTimes(ctx context.Context, teacherID string, day config.Weekday, date string) (map[string]bool, error)
	Find(ctx context.Context, filter BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter BookingFilter) (int64, error)
	CountNoShows(ctx context.Context, filter BookingFilter, now time.Time) (int64, error)
	Reschedule(ctx context.Context, id string, r Reschedule) (*model.Booking, error)
	Cancel(ctx context.Context, id string, at time.Time) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, status config.BookingStatus) (*model.Booking, error)
	Delete(ctx context.Context, id string) (*model.Booking, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func activeStatus() bson.M {
	return bson.M{"$ne": config.Cancelled}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrSlotTaken
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *mongoBookingRepository) FindActiveBySlotKey(ctx context.Context, slotKey string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"slot_key": slotKey, "status": activeStatus()})
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	var booking model.Booking
	if err := r.collection.FindOne(ctx, filter).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) BookedStartTimes(ctx context.Context, teacherID string, day config.Weekday, date string) (map[string]bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"teacher_id": teacherID,
		"day":        day,
		"status":     activeStatus(),
	}
	if date != "" {
		filter["date"] = date
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"start_time": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to find booked slots: %w", err)
	}
	defer cursor.Close(ctx)

	booked := make(map[string]bool)
	for cursor.Next(ctx) {
		var row struct {
			StartTime string `bson:"start_time"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode booked slot: %w", err)
		}
		booked[row.StartTime] = true
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate booked slots: %w", err)
	}
	return booked, nil
}

func (r *mongoBookingRepository) buildFilter(f BookingFilter) bson.M {
	filter := bson.M{}
	if f.StudentID != "" {
		filter["student_id"] = f.StudentID
	}
	if f.TeacherID != "" {
		filter["teacher_id"] = f.TeacherID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

func (r *mongoBookingRepository) Find(ctx context.Context, f BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "starts_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, r.buildFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := make([]*model.Booking, 0)
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context, f BookingFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, r.buildFilter(f))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// CountNoShows mirrors model.IsNoShow as a query.
func (r *mongoBookingRepository) CountNoShows(ctx context.Context, f BookingFilter, now time.Time) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := r.buildFilter(f)
	filter["status"] = config.Confirmed
	filter["cancellation_time"] = nil
	filter["ends_at"] = bson.M{"$lt": now}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count no-shows: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) Reschedule(ctx context.Context, id string, rs Reschedule) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{
		"day":              rs.Day,
		"date":             rs.Date,
		"start_time":       rs.StartTime,
		"end_time":         rs.EndTime,
		"starts_at":        rs.StartsAt,
		"ends_at":          rs.EndsAt,
		"slot_key":         rs.SlotKey,
		"rescheduled_time": rs.RescheduledAt,
	}}

	booking, err := r.findOneAndUpdate(ctx, bson.M{"_id": oid, "status": activeStatus()}, update)
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return nil, r.missOrCancelled(ctx, oid)
	}
	return booking, err
}

// Cancel releases the slot key in the same update that flips the status.
func (r *mongoBookingRepository) Cancel(ctx context.Context, id string, at time.Time) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	update := bson.M{
		"$set": bson.M{
			"status":            config.Cancelled,
			"cancellation_time": at,
		},
		"$unset": bson.M{"slot_key": ""},
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, update)
}

func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, id string, status config.BookingStatus) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	booking, err := r.findOneAndUpdate(ctx, bson.M{"_id": oid, "status": activeStatus()}, bson.M{"$set": bson.M{"status": status}})
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return nil, r.missOrCancelled(ctx, oid)
	}
	return booking, err
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var booking model.Booking
	if err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*model.Booking, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking model.Booking
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking); err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, bookingserrors.ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, bookingserrors.ErrSlotTaken
		}
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) missOrCancelled(ctx context.Context, oid primitive.ObjectID) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check booking existence: %w", err)
	}
	if n == 0 {
		return bookingserrors.ErrNotFound
	}
	return bookingserrors.ErrCancelled
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
