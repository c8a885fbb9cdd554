package repository

import (
	"context"
	"errors"
	"fmt"

	notificationserrors "tutorbook/internal/notifications/errors"
	"tutorbook/pkg/config"
	mongotx "tutorbook/pkg/db/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	TeachersCollection = "Teachers"
	// UsersCollection is owned by the accounts service; it is only read here.
	UsersCollection = "Users"
)

type Contact struct {
	Name  string `bson:"name"`
	Email string `bson:"email"`
}

// ContactDirectory resolves a user id to a display name and email address.
type ContactDirectory interface {
	Lookup(ctx context.Context, userID string) (Contact, error)
}

type mongoContactDirectory struct {
	cfg         *config.Config
	collections []*mongo.Collection
}

func NewMongoContactDirectory(cfg *config.Config) ContactDirectory {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoContactDirectory{
		cfg: cfg,
		collections: []*mongo.Collection{
			db.Collection(TeachersCollection),
			db.Collection(UsersCollection),
		},
	}
}

// Lookup checks Teachers first, then Users. Ids that are not ObjectIDs are matched as strings.
func (d *mongoContactDirectory) Lookup(ctx context.Context, userID string) (Contact, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, d.cfg.ReadTimeout)
	defer cancel()

	var id any = userID
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		id = oid
	}

	opts := options.FindOne().SetProjection(bson.M{"name": 1, "email": 1})
	for _, coll := range d.collections {
		var c Contact
		err := coll.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return Contact{}, fmt.Errorf("failed to look up contact in %s: %w", coll.Name(), err)
		}
	}
	return Contact{}, notificationserrors.ErrContactNotFound
}
