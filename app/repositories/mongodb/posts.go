package mongodb

import (
	"context"
	"errors"

	"coahub/app/models"
	"coahub/app/repositories"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type PostRepo struct {
	col *mongo.Collection
}

var _ repositories.PostRepository = (*PostRepo)(nil)

func (r *PostRepo) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = models.NewID()
	}
	_, err := r.col.InsertOne(ctx, post.Clone())
	return mapError(err)
}

func (r *PostRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, mapError(err)
	}
	post.Normalize()
	return &post, nil
}

func (r *PostRepo) List(ctx context.Context, category models.Category) ([]*models.Post, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	posts := []*models.Post{}
	for cur.Next(ctx) {
		var post models.Post
		if err := cur.Decode(&post); err != nil {
			return nil, err
		}
		post.Normalize()
		posts = append(posts, &post)
	}
	return posts, cur.Err()
}

func (r *PostRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// AddLike only matches when userID is not yet in the set, so two concurrent
// likes by the same user cannot both succeed.
func (r *PostRepo) AddLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	post, err := r.findAndUpdate(ctx,
		bson.M{"_id": postID, "likes": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"likes": userID}},
	)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missOr(ctx, postID, models.ErrAlreadyLiked)
	}
	return post, mapError(err)
}

func (r *PostRepo) RemoveLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	post, err := r.findAndUpdate(ctx,
		bson.M{"_id": postID, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
	)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missOr(ctx, postID, models.ErrNotLiked)
	}
	return post, mapError(err)
}

// AdjustCommentsCount uses a pipeline update so the floor at zero is applied
// by the server in the same write.
func (r *PostRepo) AdjustCommentsCount(ctx context.Context, postID string, delta int) error {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "comments_count", Value: bson.D{{Key: "$max", Value: bson.A{
			0,
			bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$comments_count", 0}}},
				delta,
			}}},
		}}}}}}},
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": postID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// SetCommentsCount only writes when the stored counter still equals expected,
// so an increment that landed after the caller's read is not overwritten.
func (r *PostRepo) SetCommentsCount(ctx context.Context, postID string, expected, count int) (bool, error) {
	if count < 0 {
		count = 0
	}
	filter := bson.M{"_id": postID, "comments_count": expected}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"comments_count": count}})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		if err := r.missOr(ctx, postID, nil); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *PostRepo) findAndUpdate(ctx context.Context, filter, update bson.M) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post models.Post
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&post); err != nil {
		return nil, err
	}
	post.Normalize()
	return &post, nil
}

// missOr distinguishes a missing post from a failed like-set condition.
func (r *PostRepo) missOr(ctx context.Context, postID string, conditionErr error) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": postID}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return conditionErr
}
