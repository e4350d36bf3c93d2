package repositories

import (
	"context"

	"coahub/app/models"
)

// UserRepository defines the interface for identity data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// PostRepository defines the interface for post data access. Every mutating
// method touches exactly one post document atomically.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List returns posts newest first; an empty category means all posts.
	List(ctx context.Context, category models.Category) ([]*models.Post, error)
	Delete(ctx context.Context, id string) error
	// AddLike returns models.ErrAlreadyLiked when userID is already present.
	AddLike(ctx context.Context, postID, userID string) (*models.Post, error)
	// RemoveLike returns models.ErrNotLiked when userID is absent.
	RemoveLike(ctx context.Context, postID, userID string) (*models.Post, error)
	// AdjustCommentsCount adds delta to the counter, flooring it at zero.
	AdjustCommentsCount(ctx context.Context, postID string, delta int) error
	// SetCommentsCount writes count only if the stored counter equals
	// expected and reports whether it did.
	SetCommentsCount(ctx context.Context, postID string, expected, count int) (bool, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	// ListByPost returns a thread oldest first.
	ListByPost(ctx context.Context, postID string) ([]*models.Comment, error)
	CountByPost(ctx context.Context, postID string) (int, error)
	Delete(ctx context.Context, id string) error
	// DeleteByPost removes every comment of a post and reports how many.
	DeleteByPost(ctx context.Context, postID string) (int, error)
}
