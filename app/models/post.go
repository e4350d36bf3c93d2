package models

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrAlreadyLiked = errors.New("post already liked")
	ErrNotLiked     = errors.New("post not liked")
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}

	if p.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}

	return nil
}

// BeforeCreate resets the fields a new post always starts with.
func (p *Post) BeforeCreate() {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = Now()
	}
	p.Likes = []string{}
	p.CommentsCount = 0
}

// Normalize makes the like set serialize as an array, never null.
func (p *Post) Normalize() {
	if p.Likes == nil {
		p.Likes = []string{}
	}
}

// HasLiked reports whether userID is in the like set.
func (p *Post) HasLiked(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// AddLike inserts userID into the like set.
func (p *Post) AddLike(userID string) error {
	if p.HasLiked(userID) {
		return ErrAlreadyLiked
	}
	p.Likes = append(p.Likes, userID)
	return nil
}

// RemoveLike removes userID from the like set.
func (p *Post) RemoveLike(userID string) error {
	for i, id := range p.Likes {
		if id == userID {
			p.Likes = append(p.Likes[:i], p.Likes[i+1:]...)
			return nil
		}
	}
	return ErrNotLiked
}

// AdjustCommentsCount applies delta to the counter, never going below zero.
func (p *Post) AdjustCommentsCount(delta int) {
	p.CommentsCount += delta
	if p.CommentsCount < 0 {
		p.CommentsCount = 0
	}
}

// Clone returns a deep copy of the post without its populated author.
func (p *Post) Clone() *Post {
	c := *p
	c.Author = nil
	c.Likes = append([]string{}, p.Likes...)
	return &c
}

// SortPostsNewestFirst orders posts by creation time descending, ties by id.
func SortPostsNewestFirst(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return newer(posts[i].CreatedAt, posts[i].ID, posts[j].CreatedAt, posts[j].ID)
	})
}

func newer(a time.Time, aID string, b time.Time, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}
