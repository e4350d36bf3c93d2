package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"coahub/app/models"
	"coahub/app/repositories"
	"coahub/app/uploads"

	"github.com/sirupsen/logrus"
)

// LikeAction selects the direction of ToggleLike.
type LikeAction int

const (
	Like LikeAction = iota
	Unlike
)

// NewPostInput is the payload for creating a post.
type NewPostInput struct {
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Category models.Category `json:"category"`
}

// ImageUpload is an optional image attached to a new post.
type ImageUpload struct {
	Filename string
	Body     io.Reader
}

// PostService handles business logic for posts and their likes
type PostService struct {
	posts    repositories.PostRepository
	comments repositories.CommentRepository
	users    repositories.UserRepository
	images   uploads.ImageStore
}

// NewPostService creates a new PostService. images may be nil, in which case
// posts with an image are rejected.
func NewPostService(posts repositories.PostRepository, comments repositories.CommentRepository, users repositories.UserRepository, images uploads.ImageStore) *PostService {
	return &PostService{
		posts:    posts,
		comments: comments,
		users:    users,
		images:   images,
	}
}

// CreatePost stores the image first, if any, then inserts the post. A failed
// insert removes the stored image again.
func (s *PostService) CreatePost(ctx context.Context, author models.Principal, in NewPostInput, image *ImageUpload) (*models.Post, error) {
	post := &models.Post{
		ID:       models.NewID(),
		Title:    strings.TrimSpace(in.Title),
		Content:  strings.TrimSpace(in.Content),
		Category: models.Category(strings.ToLower(strings.TrimSpace(string(in.Category)))),
		AuthorID: author.ID,
	}
	post.BeforeCreate()
	if err := post.Validate(); err != nil {
		return nil, invalid(err)
	}

	logCtx := logrus.WithFields(logrus.Fields{"post_id": post.ID, "user_id": author.ID})

	if image != nil {
		if s.images == nil {
			return nil, validationError("Image uploads are not enabled")
		}
		url, err := s.images.Save(ctx, image.Filename, image.Body)
		switch {
		case errors.Is(err, uploads.ErrUnsupportedType):
			return nil, validationError("Only image files are allowed")
		case errors.Is(err, uploads.ErrTooLarge):
			return nil, validationError("Image is too large")
		case err != nil:
			logCtx.WithError(err).Error("Failed to store post image")
			return nil, internalError(err)
		}
		post.Image = url
	}

	if err := s.posts.Create(ctx, post); err != nil {
		logCtx.WithError(err).Error("Failed to create post")
		if post.Image != "" {
			if derr := s.images.Delete(context.WithoutCancel(ctx), post.Image); derr != nil {
				logCtx.WithError(derr).Warn("Failed to remove orphaned post image")
			}
		}
		return nil, internalError(err)
	}

	if err := newAuthorCache(s.users).posts(ctx, post); err != nil {
		logCtx.WithError(err).Warn("Failed to load post author")
	}
	logCtx.Info("Post created")
	return post, nil
}

// DeletePost removes a post and all of its comments. Only the author or a
// moderator may delete.
func (s *PostService) DeletePost(ctx context.Context, requester models.Principal, postID string) error {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return err
	}
	if !requester.CanDelete(post.AuthorID) {
		return errNotAuthorized
	}

	logCtx := logrus.WithFields(logrus.Fields{"post_id": postID, "user_id": requester.ID})

	removed, err := s.comments.DeleteByPost(ctx, postID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to delete comments of post")
		return internalError(err)
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return errPostNotFound
		}
		logCtx.WithError(err).Error("Failed to delete post")
		return internalError(err)
	}

	if post.Image != "" && s.images != nil {
		if err := s.images.Delete(ctx, post.Image); err != nil {
			logCtx.WithError(err).Warn("Failed to remove post image")
		}
	}

	logCtx.WithField("comments_removed", removed).Info("Post deleted")
	return nil
}

// ToggleLike adds or removes the requester from the post's like set and
// returns the updated post.
func (s *PostService) ToggleLike(ctx context.Context, requester models.Principal, postID string, action LikeAction) (*models.Post, error) {
	var (
		post *models.Post
		err  error
	)
	if action == Like {
		post, err = s.posts.AddLike(ctx, postID, requester.ID)
	} else {
		post, err = s.posts.RemoveLike(ctx, postID, requester.ID)
	}

	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, errPostNotFound
	case errors.Is(err, models.ErrAlreadyLiked):
		return nil, conflictError("Post already liked")
	case errors.Is(err, models.ErrNotLiked):
		return nil, conflictError("Post not liked")
	case err != nil:
		logrus.WithError(err).WithField("post_id", postID).Error("Failed to update likes")
		return nil, internalError(err)
	}

	if err := newAuthorCache(s.users).posts(ctx, post); err != nil {
		return nil, internalError(err)
	}
	return post, nil
}

// ListPosts returns posts newest first, optionally restricted to a category
// given in its raw query form.
func (s *PostService) ListPosts(ctx context.Context, category string) ([]*models.Post, error) {
	c, err := models.ParseCategory(category)
	if err != nil {
		return nil, validationError("Invalid category")
	}

	posts, err := s.posts.List(ctx, c)
	if err != nil {
		logrus.WithError(err).Error("Failed to list posts")
		return nil, internalError(err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	if err := newAuthorCache(s.users).posts(ctx, posts...); err != nil {
		return nil, internalError(err)
	}
	return posts, nil
}

var errPostNotFound = notFoundError("Post not found")

func (s *PostService) getPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, errPostNotFound
	}
	if err != nil {
		return nil, internalError(err)
	}
	return post, nil
}
