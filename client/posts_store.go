package client

import (
	"context"
	"sync"

	"coahub/app/models"
)

// PostsStore caches the post list. Mutations substitute the server's copy of
// the affected post; only list membership is computed locally.
type PostsStore struct {
	subscribers

	api      *API
	notifier Notifier

	mu      sync.RWMutex
	posts   []*models.Post
	filter  models.Category
	loading bool
	err     error
}

var _ Store = (*PostsStore)(nil)

func NewPostsStore(api *API, notifier Notifier) *PostsStore {
	return &PostsStore{
		api:      api,
		notifier: notifierOrDefault(notifier),
		posts:    []*models.Post{},
	}
}

// Fetch replaces the cache with the server's list for the active filter. A
// response that arrives after the filter changed again is dropped.
func (s *PostsStore) Fetch(ctx context.Context) error {
	s.mu.Lock()
	filter := s.filter
	s.loading = true
	s.mu.Unlock()
	s.notify()

	posts, err := s.api.ListPosts(ctx, filter)

	s.mu.Lock()
	stale := s.filter != filter
	if !stale {
		s.loading = false
		if err != nil {
			s.err = err
		} else {
			if posts == nil {
				posts = []*models.Post{}
			}
			s.posts = posts
			s.err = nil
		}
	}
	s.mu.Unlock()

	if stale {
		return nil
	}
	s.notify()
	if err != nil {
		s.notifier.Error("Failed to load posts")
		return err
	}
	return nil
}

// FilterByCategory sets the active filter and re-fetches from the server. An
// empty category clears the filter.
func (s *PostsStore) FilterByCategory(ctx context.Context, category models.Category) error {
	s.mu.Lock()
	s.filter = category
	s.mu.Unlock()
	return s.Fetch(ctx)
}

// Create posts a new entry and inserts the server's copy at the head.
func (s *PostsStore) Create(ctx context.Context, p NewPost) (*models.Post, error) {
	s.setLoading(true)
	post, err := s.api.CreatePost(ctx, p)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = err
	} else {
		s.posts = append([]*models.Post{post}, s.posts...)
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.notifier.Error(messageOf(err, "Failed to create post"))
		return nil, err
	}
	s.notifier.Success("Post created successfully")
	return post, nil
}

// Delete removes the post on the server, then drops it from the cache.
func (s *PostsStore) Delete(ctx context.Context, postID string) error {
	if err := s.api.DeletePost(ctx, postID); err != nil {
		s.notifier.Error(messageOf(err, "Failed to delete post"))
		return err
	}

	s.mu.Lock()
	kept := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if p.ID != postID {
			kept = append(kept, p)
		}
	}
	s.posts = kept
	s.mu.Unlock()
	s.notify()

	s.notifier.Success("Post deleted successfully")
	return nil
}

func (s *PostsStore) Like(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.api.LikePost(ctx, postID)
	if err != nil {
		s.notifier.Error(messageOf(err, "Failed to like post"))
		return nil, err
	}
	s.replace(post)
	return post, nil
}

func (s *PostsStore) Unlike(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.api.UnlikePost(ctx, postID)
	if err != nil {
		s.notifier.Error(messageOf(err, "Failed to unlike post"))
		return nil, err
	}
	s.replace(post)
	return post, nil
}

// Posts returns a snapshot of the cached list. Entries are shared; treat them
// as read-only.
func (s *PostsStore) Posts() []*models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Post(nil), s.posts...)
}

// Filtered returns the cached posts in the active category.
func (s *PostsStore) Filtered() []*models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.filter == "" {
		return append([]*models.Post(nil), s.posts...)
	}
	out := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if p.Category == s.filter {
			out = append(out, p)
		}
	}
	return out
}

func (s *PostsStore) ActiveFilter() models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

func (s *PostsStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err is the last fetch or create failure, cleared by a successful fetch.
func (s *PostsStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *PostsStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.notify()
}

func (s *PostsStore) replace(post *models.Post) {
	s.mu.Lock()
	next := make([]*models.Post, len(s.posts))
	for i, p := range s.posts {
		if p.ID == post.ID {
			p = post
		}
		next[i] = p
	}
	s.posts = next
	s.mu.Unlock()
	s.notify()
}
