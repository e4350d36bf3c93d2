package services

import (
	"context"
	"testing"

	"coahub/app/models"
	"coahub/app/repositories/mock"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	posts    *mock.PostRepository
	comments *mock.CommentRepository
	users    *mock.UserRepository
	post     *PostService
	comment  *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		posts:    mock.NewPostRepository(),
		comments: mock.NewCommentRepository(),
		users:    mock.NewUserRepository(),
	}
	f.post = NewPostService(f.posts, f.comments, f.users, nil)
	f.comment = NewCommentService(f.posts, f.comments, f.users)
	return f
}

// addUser stores an identity directly and returns it as a caller.
func (f *fixture) addUser(t *testing.T, username string, role models.Role) models.Principal {
	t.Helper()
	u := &models.User{
		ID:           models.NewID(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         role,
	}
	u.BeforeCreate()
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.Principal()
}

func (f *fixture) addPost(t *testing.T, author models.Principal, title string, category models.Category) *models.Post {
	t.Helper()
	p, err := f.post.CreatePost(context.Background(), author, NewPostInput{
		Title:    title,
		Content:  "content",
		Category: category,
	}, nil)
	require.NoError(t, err)
	return p
}

// setCommentsCount overwrites a post's counter regardless of its current value.
func (f *fixture) setCommentsCount(t *testing.T, postID string, count int) {
	t.Helper()
	ctx := context.Background()
	p, err := f.posts.GetByID(ctx, postID)
	require.NoError(t, err)
	swapped, err := f.posts.SetCommentsCount(ctx, postID, p.CommentsCount, count)
	require.NoError(t, err)
	require.True(t, swapped)
}
