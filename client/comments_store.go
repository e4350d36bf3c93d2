package client

import (
	"context"
	"sync"

	"coahub/app/models"
)

// CommentsStore caches comment threads keyed by post id.
type CommentsStore struct {
	subscribers

	api      *API
	notifier Notifier

	mu      sync.RWMutex
	threads map[string][]*models.Comment
	loading bool
	err     error
}

var _ Store = (*CommentsStore)(nil)

func NewCommentsStore(api *API, notifier Notifier) *CommentsStore {
	return &CommentsStore{
		api:      api,
		notifier: notifierOrDefault(notifier),
		threads:  make(map[string][]*models.Comment),
	}
}

// Fetch replaces the cached thread of postID with the server's.
func (s *CommentsStore) Fetch(ctx context.Context, postID string) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notify()

	comments, err := s.api.ListComments(ctx, postID)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = err
	} else {
		if comments == nil {
			comments = []*models.Comment{}
		}
		s.threads[postID] = comments
		s.err = nil
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.notifier.Error("Failed to load comments")
		return err
	}
	return nil
}

// Add posts a comment and appends the server's copy to the thread.
func (s *CommentsStore) Add(ctx context.Context, postID, content string) (*models.Comment, error) {
	comment, err := s.api.AddComment(ctx, postID, content)
	if err != nil {
		s.notifier.Error(messageOf(err, "Failed to add comment"))
		return nil, err
	}

	s.mu.Lock()
	thread := s.threads[postID]
	next := make([]*models.Comment, len(thread), len(thread)+1)
	copy(next, thread)
	s.threads[postID] = append(next, comment)
	s.mu.Unlock()
	s.notify()

	s.notifier.Success("Comment added")
	return comment, nil
}

// Delete removes the comment on the server, then from postID's thread.
func (s *CommentsStore) Delete(ctx context.Context, commentID, postID string) error {
	if err := s.api.DeleteComment(ctx, commentID); err != nil {
		s.notifier.Error(messageOf(err, "Failed to delete comment"))
		return err
	}

	s.mu.Lock()
	thread := s.threads[postID]
	kept := make([]*models.Comment, 0, len(thread))
	for _, c := range thread {
		if c.ID != commentID {
			kept = append(kept, c)
		}
	}
	s.threads[postID] = kept
	s.mu.Unlock()
	s.notify()

	s.notifier.Success("Comment deleted")
	return nil
}

// Comments returns a snapshot of postID's cached thread, oldest first.
func (s *CommentsStore) Comments(postID string) []*models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Comment(nil), s.threads[postID]...)
}

// Forget drops postID's thread, for example after the post was deleted.
func (s *CommentsStore) Forget(postID string) {
	s.mu.Lock()
	delete(s.threads, postID)
	s.mu.Unlock()
	s.notify()
}

func (s *CommentsStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *CommentsStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
