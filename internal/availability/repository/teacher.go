package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	availabilityerrors "tutorbook/internal/availability/errors"
	"tutorbook/pkg/config"
	mongotx "tutorbook/pkg/db/mongo"
	"tutorbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Teachers"

type TeacherRepository interface {
	Create(ctx context.Context, teacher *model.Teacher) error
	FindByID(ctx context.Context, id string) (*model.Teacher, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Teacher, error)
	Count(ctx context.Context) (int64, error)
	// AssignSlots appends slots only if the teacher has none for day yet.
	AssignSlots(ctx context.Context, id string, day config.Weekday, slots []model.Slot) error
	// ReplaceDaySlots swaps every entry for day with slots in a single update.
	ReplaceDaySlots(ctx context.Context, id string, day config.Weekday, slots []model.Slot) error
	PullSlot(ctx context.Context, id string, day config.Weekday, startTime string) error
}

type mongoTeacherRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTeacherRepository(cfg *config.Config) TeacherRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTeacherRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoTeacherRepository) Create(ctx context.Context, teacher *model.Teacher) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if teacher.AvailableSlots == nil {
		teacher.AvailableSlots = []model.Slot{}
	}
	teacher.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, teacher)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return availabilityerrors.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create teacher: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		teacher.ID = oid.Hex()
	}
	return nil
}

func (r *mongoTeacherRepository) FindByID(ctx context.Context, id string) (*model.Teacher, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var teacher model.Teacher
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&teacher); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, availabilityerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find teacher: %w", err)
	}
	return &teacher, nil
}

func (r *mongoTeacherRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Teacher, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find teachers: %w", err)
	}
	defer cursor.Close(ctx)

	teachers := make([]*model.Teacher, 0)
	if err := cursor.All(ctx, &teachers); err != nil {
		return nil, fmt.Errorf("failed to decode teachers: %w", err)
	}
	return teachers, nil
}

func (r *mongoTeacherRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count teachers: %w", err)
	}
	return count, nil
}

func (r *mongoTeacherRepository) AssignSlots(ctx context.Context, id string, day config.Weekday, slots []model.Slot) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	filter := bson.M{
		"_id":                 oid,
		"available_slots.day": bson.M{"$ne": day},
	}
	update := bson.M{"$push": bson.M{"available_slots": bson.M{"$each": slots}}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to assign slots: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// The guard failed: either the teacher is missing or the day is already taken.
	exists, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check teacher existence: %w", err)
	}
	if exists == 0 {
		return availabilityerrors.ErrNotFound
	}
	return availabilityerrors.ErrSlotsAlreadyAssigned
}

func (r *mongoTeacherRepository) ReplaceDaySlots(ctx context.Context, id string, day config.Weekday, slots []model.Slot) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	// Aggregation-pipeline update: keep other days, then append the new day entries.
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"available_slots": bson.M{
				"$concatArrays": bson.A{
					bson.M{"$filter": bson.M{
						"input": bson.M{"$ifNull": bson.A{"$available_slots", bson.A{}}},
						"cond":  bson.M{"$ne": bson.A{"$$this.day", day}},
					}},
					bson.M{"$literal": slots},
				},
			},
		}}},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, pipeline)
	if err != nil {
		return fmt.Errorf("failed to replace slots: %w", err)
	}
	if result.MatchedCount == 0 {
		return availabilityerrors.ErrNotFound
	}
	return nil
}

func (r *mongoTeacherRepository) PullSlot(ctx context.Context, id string, day config.Weekday, startTime string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	update := bson.M{"$pull": bson.M{"available_slots": bson.M{"day": day, "start_time": startTime}}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if result.MatchedCount == 0 {
		return availabilityerrors.ErrNotFound
	}
	return nil
}
