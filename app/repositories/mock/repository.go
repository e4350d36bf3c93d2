package mock

import (
	"context"
	"sync"

	"coahub/app/models"
	"coahub/app/repositories"
)

// PostRepository is an in-memory PostRepository. Stored values are cloned on
// the way in and out so callers never share state with the store.
type PostRepository struct {
	posts map[string]*models.Post
	mutex sync.RWMutex

	// AdjustErr, when set, is returned by AdjustCommentsCount.
	AdjustErr error
}

type CommentRepository struct {
	comments map[string]*models.Comment
	mutex    sync.RWMutex

	// AfterCount, when set, runs after CountByPost has counted and before it
	// returns, outside the lock.
	AfterCount func(postID string)
}

type UserRepository struct {
	users map[string]*models.User
	mutex sync.RWMutex
}

var (
	_ repositories.PostRepository    = (*PostRepository)(nil)
	_ repositories.CommentRepository = (*CommentRepository)(nil)
	_ repositories.UserRepository    = (*UserRepository)(nil)
)

func NewPostRepository() *PostRepository {
	return &PostRepository{posts: make(map[string]*models.Post)}
}

func NewCommentRepository() *CommentRepository {
	return &CommentRepository{comments: make(map[string]*models.Comment)}
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*models.User)}
}

// PostRepository implementation
func (m *PostRepository) Create(ctx context.Context, post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if post.ID == "" {
		post.ID = models.NewID()
	}
	if _, exists := m.posts[post.ID]; exists {
		return repositories.ErrDuplicate
	}
	m.posts[post.ID] = post.Clone()
	return nil
}

func (m *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	post, exists := m.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return post.Clone(), nil
}

func (m *PostRepository) List(ctx context.Context, category models.Category) ([]*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	posts := make([]*models.Post, 0, len(m.posts))
	for _, post := range m.posts {
		if category != "" && post.Category != category {
			continue
		}
		posts = append(posts, post.Clone())
	}
	models.SortPostsNewestFirst(posts)
	return posts, nil
}

func (m *PostRepository) Delete(ctx context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.posts[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *PostRepository) AddLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	return m.mutate(postID, func(post *models.Post) error {
		return post.AddLike(userID)
	})
}

func (m *PostRepository) RemoveLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	return m.mutate(postID, func(post *models.Post) error {
		return post.RemoveLike(userID)
	})
}

func (m *PostRepository) AdjustCommentsCount(ctx context.Context, postID string, delta int) error {
	if m.AdjustErr != nil {
		return m.AdjustErr
	}
	_, err := m.mutate(postID, func(post *models.Post) error {
		post.AdjustCommentsCount(delta)
		return nil
	})
	return err
}

func (m *PostRepository) SetCommentsCount(ctx context.Context, postID string, expected, count int) (bool, error) {
	swapped := false
	_, err := m.mutate(postID, func(post *models.Post) error {
		if post.CommentsCount != expected {
			return nil
		}
		post.CommentsCount = 0
		post.AdjustCommentsCount(count)
		swapped = true
		return nil
	})
	return swapped, err
}

func (m *PostRepository) mutate(postID string, fn func(post *models.Post) error) (*models.Post, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stored, exists := m.posts[postID]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	post := stored.Clone()
	post.Normalize()
	if err := fn(post); err != nil {
		return nil, err
	}
	m.posts[postID] = post
	return post.Clone(), nil
}

// CommentRepository implementation
func (m *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if comment.ID == "" {
		comment.ID = models.NewID()
	}
	if _, exists := m.comments[comment.ID]; exists {
		return repositories.ErrDuplicate
	}
	m.comments[comment.ID] = comment.Clone()
	return nil
}

func (m *CommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	comment, exists := m.comments[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return comment.Clone(), nil
}

func (m *CommentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	comments := []*models.Comment{}
	for _, comment := range m.comments {
		if comment.PostID == postID {
			comments = append(comments, comment.Clone())
		}
	}
	models.SortCommentsOldestFirst(comments)
	return comments, nil
}

func (m *CommentRepository) CountByPost(ctx context.Context, postID string) (int, error) {
	m.mutex.RLock()
	count := 0
	for _, comment := range m.comments {
		if comment.PostID == postID {
			count++
		}
	}
	m.mutex.RUnlock()

	if m.AfterCount != nil {
		m.AfterCount(postID)
	}
	return count, nil
}

func (m *CommentRepository) Delete(ctx context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.comments[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

func (m *CommentRepository) DeleteByPost(ctx context.Context, postID string) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	count := 0
	for id, comment := range m.comments {
		if comment.PostID == postID {
			delete(m.comments, id)
			count++
		}
	}
	return count, nil
}

// UserRepository implementation
func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if user.ID == "" {
		user.ID = models.NewID()
	}
	for _, existing := range m.users {
		if existing.ID == user.ID || existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username == username })
}

func (m *UserRepository) Update(ctx context.Context, user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.users[user.ID]; !exists {
		return repositories.ErrNotFound
	}
	for _, existing := range m.users {
		if existing.ID != user.ID && (existing.Username == user.Username || existing.Email == user.Email) {
			return repositories.ErrDuplicate
		}
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *UserRepository) find(match func(u *models.User) bool) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, user := range m.users {
		if match(user) {
			found := *user
			return &found, nil
		}
	}
	return nil, repositories.ErrNotFound
}
