package repositories

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"coahub/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func newPost(title string, category models.Category) *models.Post {
	post := &models.Post{
		Title:    title,
		Content:  "content of " + title,
		Category: category,
		AuthorID: models.NewID(),
	}
	post.BeforeCreate()
	return post
}

func TestPostRepo(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Posts()

	t.Run("create and get post", func(t *testing.T) {
		post := newPost("Hello", models.CategoryQuestion)
		require.NoError(t, repo.Create(ctx, post))
		assert.Len(t, post.ID, 24)

		got, err := repo.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, post.Title, got.Title)
		assert.Equal(t, post.Category, got.Category)
		assert.True(t, post.CreatedAt.Equal(got.CreatedAt))
		assert.NotNil(t, got.Likes)
		assert.Equal(t, 0, got.CommentsCount)
	})

	t.Run("get missing post", func(t *testing.T) {
		_, err := repo.GetByID(ctx, models.NewID())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete post", func(t *testing.T) {
		post := newPost("Doomed", models.CategoryDiscussion)
		require.NoError(t, repo.Create(ctx, post))
		require.NoError(t, repo.Delete(ctx, post.ID))

		_, err := repo.GetByID(ctx, post.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, post.ID), ErrNotFound)
	})
}

func TestPostRepoList(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Posts()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, c := range []models.Category{models.CategoryQuestion, models.CategoryAnnouncement, models.CategoryQuestion} {
		post := newPost(fmt.Sprintf("post %d", i), c)
		post.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, post))
	}

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "post 2", all[0].Title)
	assert.Equal(t, "post 0", all[2].Title)

	questions, err := repo.List(ctx, models.CategoryQuestion)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	for _, p := range questions {
		assert.Equal(t, models.CategoryQuestion, p.Category)
	}

	discussions, err := repo.List(ctx, models.CategoryDiscussion)
	require.NoError(t, err)
	assert.Empty(t, discussions)
}

func TestPostRepoLikes(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Posts()

	post := newPost("Likeable", models.CategoryQuestion)
	require.NoError(t, repo.Create(ctx, post))

	updated, err := repo.AddLike(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, updated.Likes)

	_, err = repo.AddLike(ctx, post.ID, "u1")
	assert.ErrorIs(t, err, models.ErrAlreadyLiked)

	updated, err = repo.RemoveLike(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.Empty(t, updated.Likes)

	_, err = repo.RemoveLike(ctx, post.ID, "u1")
	assert.ErrorIs(t, err, models.ErrNotLiked)

	_, err = repo.AddLike(ctx, models.NewID(), "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostRepoConcurrentLikes(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Posts()

	post := newPost("Popular", models.CategoryDiscussion)
	require.NoError(t, repo.Create(ctx, post))

	const users = 200
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := repo.AddLike(ctx, post.ID, fmt.Sprintf("user-%d", i))
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.AdjustCommentsCount(ctx, post.ID, 1))
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, got.Likes, users)
	assert.Equal(t, users, got.CommentsCount)
}

func TestPostRepoConcurrentWritersAcrossRepos(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	post := newPost("Shared", models.CategoryDiscussion)
	require.NoError(t, store.Posts().Create(ctx, post))

	const users = 100
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Posts().AddLike(ctx, post.ID, fmt.Sprintf("user-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.Posts().GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, got.Likes, users)
}

func TestPostRepoCommentsCount(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Posts()

	post := newPost("Counted", models.CategoryQuestion)
	require.NoError(t, repo.Create(ctx, post))

	require.NoError(t, repo.AdjustCommentsCount(ctx, post.ID, 1))
	require.NoError(t, repo.AdjustCommentsCount(ctx, post.ID, 1))
	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentsCount)

	require.NoError(t, repo.AdjustCommentsCount(ctx, post.ID, -5))
	got, err = repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CommentsCount)

	swapped, err := repo.SetCommentsCount(ctx, post.ID, 0, 4)
	require.NoError(t, err)
	assert.True(t, swapped)
	got, err = repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.CommentsCount)

	swapped, err = repo.SetCommentsCount(ctx, post.ID, 0, 7)
	require.NoError(t, err)
	assert.False(t, swapped, "stale expected value")
	got, err = repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.CommentsCount)

	_, err = repo.SetCommentsCount(ctx, models.NewID(), 0, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.AdjustCommentsCount(ctx, models.NewID(), 1), ErrNotFound)
}

func TestCommentRepo(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Comments()

	postID := models.NewID()
	otherPostID := models.NewID()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		c := &models.Comment{
			Content:   fmt.Sprintf("comment %d", i),
			AuthorID:  models.NewID(),
			PostID:    postID,
			CreatedAt: base.Add(time.Duration(3-i) * time.Second),
		}
		require.NoError(t, repo.Create(ctx, c))
		ids = append(ids, c.ID)
	}
	require.NoError(t, repo.Create(ctx, &models.Comment{
		Content: "elsewhere", AuthorID: models.NewID(), PostID: otherPostID, CreatedAt: base,
	}))

	t.Run("list oldest first", func(t *testing.T) {
		thread, err := repo.ListByPost(ctx, postID)
		require.NoError(t, err)
		require.Len(t, thread, 3)
		assert.Equal(t, "comment 2", thread[0].Content)
		assert.Equal(t, "comment 0", thread[2].Content)
	})

	t.Run("list unknown post is empty", func(t *testing.T) {
		thread, err := repo.ListByPost(ctx, models.NewID())
		require.NoError(t, err)
		assert.NotNil(t, thread)
		assert.Empty(t, thread)
	})

	t.Run("get by id", func(t *testing.T) {
		c, err := repo.GetByID(ctx, ids[1])
		require.NoError(t, err)
		assert.Equal(t, "comment 1", c.Content)
		assert.Equal(t, postID, c.PostID)
	})

	t.Run("count", func(t *testing.T) {
		n, err := repo.CountByPost(ctx, postID)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("delete one", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, ids[0]))
		_, err := repo.GetByID(ctx, ids[0])
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, ids[0]), ErrNotFound)
	})

	t.Run("delete by post", func(t *testing.T) {
		n, err := repo.DeleteByPost(ctx, postID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = repo.GetByID(ctx, ids[1])
		assert.ErrorIs(t, err, ErrNotFound)

		left, err := repo.CountByPost(ctx, otherPostID)
		require.NoError(t, err)
		assert.Equal(t, 1, left)
	})
}

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Users()

	user := &models.User{
		Username:     "ada",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         models.RoleStudent,
	}
	user.BeforeCreate()
	require.NoError(t, repo.Create(ctx, user))

	t.Run("password hash is persisted", func(t *testing.T) {
		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "$2a$10$hash", got.PasswordHash)
	})

	t.Run("lookup by email and username", func(t *testing.T) {
		byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		byName, err := repo.GetByUsername(ctx, "ada")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)

		_, err = repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate email or username", func(t *testing.T) {
		dup := &models.User{Username: "ada", Email: "other@example.com", PasswordHash: "x", Role: models.RoleStudent}
		assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicate)

		dup = &models.User{Username: "other", Email: "ada@example.com", PasswordHash: "x", Role: models.RoleStudent}
		assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicate)
	})

	t.Run("update moves indexes", func(t *testing.T) {
		updated := *user
		updated.Username = "lovelace"
		require.NoError(t, repo.Update(ctx, &updated))

		_, err := repo.GetByUsername(ctx, "ada")
		assert.ErrorIs(t, err, ErrNotFound)
		got, err := repo.GetByUsername(ctx, "lovelace")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("update onto taken username", func(t *testing.T) {
		other := &models.User{Username: "grace", Email: "grace@example.com", PasswordHash: "x", Role: models.RoleTeacher}
		other.BeforeCreate()
		require.NoError(t, repo.Create(ctx, other))

		other.Username = "lovelace"
		assert.ErrorIs(t, repo.Update(ctx, other), ErrDuplicate)
	})
}

func TestStoreBackupRestore(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	post := newPost("Backed up", models.CategoryAnnouncement)
	require.NoError(t, src.Posts().Create(ctx, post))

	var buf bytes.Buffer
	require.NoError(t, src.Backup(&buf))

	dst := newTestStore(t)
	require.NoError(t, dst.Restore(&buf))

	got, err := dst.Posts().GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Backed up", got.Title)
}

func TestUpdateRetriesConflicts(t *testing.T) {
	store := newTestStore(t)
	calls := 0
	err := update(context.Background(), store.db, func(txn *badger.Txn) error {
		calls++
		if calls < 25 {
			return badger.ErrConflict
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 25, calls)
}

func TestUpdateStopsRetryingWhenContextEnds(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := update(ctx, store.db, func(txn *badger.Txn) error {
		return badger.ErrConflict
	})
	assert.ErrorIs(t, err, badger.ErrConflict)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConflictBackoff(t *testing.T) {
	for attempt := 0; attempt < 20; attempt++ {
		d := conflictBackoff(attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, conflictBackoffMax)
	}
}
