package mongodb

import (
	"context"

	"coahub/app/models"
	"coahub/app/repositories"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type CommentRepo struct {
	col *mongo.Collection
}

var _ repositories.CommentRepository = (*CommentRepo)(nil)

func (r *CommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = models.NewID()
	}
	_, err := r.col.InsertOne(ctx, comment.Clone())
	return mapError(err)
}

func (r *CommentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&comment); err != nil {
		return nil, mapError(err)
	}
	return &comment, nil
}

func (r *CommentRepo) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"post_id": postID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	comments := []*models.Comment{}
	if err := cur.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *CommentRepo) CountByPost(ctx context.Context, postID string) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"post_id": postID})
	return int(n), err
}

func (r *CommentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *CommentRepo) DeleteByPost(ctx context.Context, postID string) (int, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"post_id": postID})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}
