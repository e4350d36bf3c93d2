package mongodb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"coahub/app/models"
	"coahub/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to MONGODB_TEST_URI, skipping when it is unset, and
// uses a throwaway database that is dropped afterwards.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := Connect(ctx, uri, "coahub_test_"+models.NewID())
	require.NoError(t, err)
	require.NoError(t, store.EnsureIndexes(ctx))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = store.Drop(ctx)
		_ = store.Close(ctx)
	})
	return store
}

func TestMongoPosts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	posts := store.Posts()

	post := &models.Post{Title: "Hi", Content: "there", Category: models.CategoryQuestion, AuthorID: models.NewID()}
	post.BeforeCreate()
	require.NoError(t, posts.Create(ctx, post))

	got, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi", got.Title)
	assert.True(t, post.CreatedAt.Equal(got.CreatedAt))

	t.Run("likes", func(t *testing.T) {
		liked, err := posts.AddLike(ctx, post.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, liked.Likes)

		_, err = posts.AddLike(ctx, post.ID, "u1")
		assert.ErrorIs(t, err, models.ErrAlreadyLiked)

		_, err = posts.RemoveLike(ctx, post.ID, "u1")
		require.NoError(t, err)
		_, err = posts.RemoveLike(ctx, post.ID, "u1")
		assert.ErrorIs(t, err, models.ErrNotLiked)

		_, err = posts.AddLike(ctx, models.NewID(), "u1")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("concurrent likes by one user", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		successes := 0
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := posts.AddLike(ctx, post.ID, "racer"); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, successes)
	})

	t.Run("counter floors at zero", func(t *testing.T) {
		require.NoError(t, posts.AdjustCommentsCount(ctx, post.ID, 2))
		require.NoError(t, posts.AdjustCommentsCount(ctx, post.ID, -5))
		got, err := posts.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.CommentsCount)
	})

	t.Run("list by category", func(t *testing.T) {
		other := &models.Post{Title: "News", Content: "c", Category: models.CategoryAnnouncement, AuthorID: models.NewID()}
		other.BeforeCreate()
		require.NoError(t, posts.Create(ctx, other))

		list, err := posts.List(ctx, models.CategoryAnnouncement)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, other.ID, list[0].ID)
	})
}

func TestMongoComments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	comments := store.Comments()
	postID := models.NewID()

	for i := 0; i < 3; i++ {
		c := &models.Comment{Content: fmt.Sprintf("c%d", i), AuthorID: models.NewID(), PostID: postID}
		c.CreatedAt = models.Now().Add(time.Duration(i) * time.Second)
		require.NoError(t, comments.Create(ctx, c))
	}

	thread, err := comments.ListByPost(ctx, postID)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "c0", thread[0].Content)

	n, err := comments.DeleteByPost(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMongoUsersUnique(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	users := store.Users()

	u := &models.User{Username: "ada", Email: "ada@example.com", PasswordHash: "h", Role: models.RoleStudent}
	u.BeforeCreate()
	require.NoError(t, users.Create(ctx, u))

	dup := &models.User{Username: "ada", Email: "x@example.com", PasswordHash: "h", Role: models.RoleStudent}
	assert.ErrorIs(t, users.Create(ctx, dup), repositories.ErrDuplicate)

	got, err := users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash)
}
