package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommentValidation(t *testing.T) {
	tests := []struct {
		name    string
		comment *Comment
		wantErr bool
	}{
		{
			name: "valid comment",
			comment: &Comment{
				PostID:    NewID(),
				AuthorID:  NewID(),
				Content:   "This is a valid comment",
				CreatedAt: time.Now(),
			},
			wantErr: false,
		},
		{
			name: "missing post",
			comment: &Comment{
				AuthorID:  NewID(),
				Content:   "This is a valid comment",
				CreatedAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "empty content",
			comment: &Comment{
				PostID:    NewID(),
				AuthorID:  NewID(),
				Content:   "",
				CreatedAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "content too long",
			comment: &Comment{
				PostID:    NewID(),
				AuthorID:  NewID(),
				Content:   strings.Repeat("a", 1001),
				CreatedAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "zero creation time",
			comment: &Comment{
				PostID:   NewID(),
				AuthorID: NewID(),
				Content:  "Valid content",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.comment.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCommentBeforeCreate(t *testing.T) {
	comment := &Comment{Content: "Test Comment"}

	assert.True(t, comment.CreatedAt.IsZero())
	comment.BeforeCreate()
	assert.False(t, comment.CreatedAt.IsZero())
	assert.Equal(t, comment.CreatedAt, comment.CreatedAt.Truncate(time.Millisecond))
}

func TestCommentSetPost(t *testing.T) {
	comment := &Comment{Content: "Test Comment"}

	t.Run("set valid post", func(t *testing.T) {
		post := &Post{ID: NewID()}
		err := comment.SetPost(post)
		assert.NoError(t, err)
		assert.Equal(t, post.ID, comment.PostID)
	})

	t.Run("set nil post", func(t *testing.T) {
		err := comment.SetPost(nil)
		assert.Error(t, err)
	})
}

func TestSortCommentsOldestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	comments := []*Comment{
		{ID: "c", CreatedAt: base.Add(2 * time.Second)},
		{ID: "b", CreatedAt: base.Add(time.Second)},
		{ID: "a", CreatedAt: base.Add(time.Second)},
		{ID: "z", CreatedAt: base},
	}

	SortCommentsOldestFirst(comments)

	var ids []string
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"z", "a", "b", "c"}, ids)
}
