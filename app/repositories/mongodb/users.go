package mongodb

import (
	"context"

	"coahub/app/models"
	"coahub/app/repositories"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// UserRepo relies on the unique username and email indexes created by
// Store.EnsureIndexes to reject duplicates.
type UserRepo struct {
	col *mongo.Collection
}

var _ repositories.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = models.NewID()
	}
	_, err := r.col.InsertOne(ctx, user)
	return mapError(err)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepo) Update(ctx context.Context, user *models.User) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}
