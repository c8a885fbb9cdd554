package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	notificationserrors "tutorbook/internal/notifications/errors"
	"tutorbook/pkg/config"
	mongotx "tutorbook/pkg/db/mongo"
	"tutorbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Notifications"

type NotificationRepository interface {
	// Create returns ErrDuplicate when (event_id, user_id) was already stored.
	Create(ctx context.Context, n *model.Notification) error
	FindByUser(ctx context.Context, userID string, unreadOnly bool, limit int, offset int64) ([]*model.Notification, error)
	CountByUser(ctx context.Context, userID string, unreadOnly bool) (int64, error)
	MarkRead(ctx context.Context, id, userID string) (*model.Notification, error)
}

type mongoNotificationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoNotificationRepository(cfg *config.Config) NotificationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoNotificationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	result, err := r.collection.InsertOne(ctx, n)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return notificationserrors.ErrDuplicate
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		n.ID = oid.Hex()
	}
	return nil
}

func userFilter(userID string, unreadOnly bool) bson.M {
	filter := bson.M{"user_id": userID}
	if unreadOnly {
		filter["read"] = false
	}
	return filter
}

func (r *mongoNotificationRepository) FindByUser(ctx context.Context, userID string, unreadOnly bool, limit int, offset int64) ([]*model.Notification, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, userFilter(userID, unreadOnly), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := make([]*model.Notification, 0)
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

func (r *mongoNotificationRepository) CountByUser(ctx context.Context, userID string, unreadOnly bool) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, userFilter(userID, unreadOnly))
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead only matches the owner's notification, so other users see ErrNotFound.
func (r *mongoNotificationRepository) MarkRead(ctx context.Context, id, userID string) (*model.Notification, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", notificationserrors.ErrInvalidID, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var n model.Notification
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}},
		opts,
	).Decode(&n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notificationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return &n, nil
}
