package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"coahub/app/models"
	"coahub/app/repositories"

	"github.com/sirupsen/logrus"
)

// CommentService handles comment threads and keeps each post's
// commentsCount in step with them.
type CommentService struct {
	posts    repositories.PostRepository
	comments repositories.CommentRepository
	users    repositories.UserRepository
}

// NewCommentService creates a new CommentService
func NewCommentService(posts repositories.PostRepository, comments repositories.CommentRepository, users repositories.UserRepository) *CommentService {
	return &CommentService{
		posts:    posts,
		comments: comments,
		users:    users,
	}
}

// CreateComment inserts the comment, then increments the post's counter. The
// two writes are separate; a failed increment is logged and left for
// ReconcileCommentCounts.
func (s *CommentService) CreateComment(ctx context.Context, requester models.Principal, postID, content string) (*models.Comment, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, errPostNotFound
	}
	if err != nil {
		return nil, internalError(err)
	}

	comment := &models.Comment{
		ID:       models.NewID(),
		Content:  strings.TrimSpace(content),
		AuthorID: requester.ID,
	}
	if err := comment.SetPost(post); err != nil {
		return nil, internalError(err)
	}
	comment.BeforeCreate()
	if err := comment.Validate(); err != nil {
		return nil, invalid(err)
	}

	logCtx := logrus.WithFields(logrus.Fields{"post_id": postID, "comment_id": comment.ID, "user_id": requester.ID})

	if err := s.comments.Create(ctx, comment); err != nil {
		logCtx.WithError(err).Error("Failed to create comment")
		return nil, internalError(err)
	}
	if err := s.posts.AdjustCommentsCount(ctx, postID, 1); err != nil {
		logCtx.WithError(err).Error("Comment stored but commentsCount not incremented")
	}

	if err := newAuthorCache(s.users).comments(ctx, comment); err != nil {
		logCtx.WithError(err).Warn("Failed to load comment author")
	}
	return comment, nil
}

// DeleteComment removes a comment and decrements its post's counter, never
// below zero.
func (s *CommentService) DeleteComment(ctx context.Context, requester models.Principal, commentID string) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if errors.Is(err, repositories.ErrNotFound) {
		return errCommentNotFound
	}
	if err != nil {
		return internalError(err)
	}
	if !requester.CanDelete(comment.AuthorID) {
		return errNotAuthorized
	}

	logCtx := logrus.WithFields(logrus.Fields{"post_id": comment.PostID, "comment_id": commentID, "user_id": requester.ID})

	if err := s.comments.Delete(ctx, commentID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return errCommentNotFound
		}
		logCtx.WithError(err).Error("Failed to delete comment")
		return internalError(err)
	}
	err = s.posts.AdjustCommentsCount(ctx, comment.PostID, -1)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logCtx.WithError(err).Error("Comment deleted but commentsCount not decremented")
	}
	return nil
}

// ListComments returns a post's thread oldest first. A post that does not
// exist has an empty thread.
func (s *CommentService) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		logrus.WithError(err).WithField("post_id", postID).Error("Failed to list comments")
		return nil, internalError(err)
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	if err := newAuthorCache(s.users).comments(ctx, comments...); err != nil {
		return nil, internalError(err)
	}
	return comments, nil
}

// ReconcileCommentCounts recounts every post's live comments and rewrites
// commentsCount where it drifted. The write is conditional on the counter
// still holding the value read before counting; a post whose counter moved
// in between is left for the next pass. It returns how many posts were
// repaired.
func (s *CommentService) ReconcileCommentCounts(ctx context.Context) (int, error) {
	posts, err := s.posts.List(ctx, "")
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		actual, err := s.comments.CountByPost(ctx, post.ID)
		if err != nil {
			return repaired, err
		}
		if actual == post.CommentsCount {
			continue
		}
		swapped, err := s.posts.SetCommentsCount(ctx, post.ID, post.CommentsCount, actual)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			return repaired, err
		}
		if !swapped {
			logrus.WithField("post_id", post.ID).Debug("commentsCount moved during reconciliation, skipping")
			continue
		}
		logrus.WithFields(logrus.Fields{
			"post_id": post.ID,
			"stored":  post.CommentsCount,
			"actual":  actual,
		}).Warn("Repaired drifted commentsCount")
		repaired++
	}
	return repaired, nil
}

// RunReconciler calls ReconcileCommentCounts every interval until ctx is done.
func (s *CommentService) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ReconcileCommentCounts(ctx)
			if err != nil && ctx.Err() == nil {
				logrus.WithError(err).Error("Comment count reconciliation failed")
				continue
			}
			if n > 0 {
				logrus.WithField("repaired", n).Info("Comment count reconciliation finished")
			}
		}
	}
}

var errCommentNotFound = notFoundError("Comment not found")
