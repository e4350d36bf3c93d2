package models

import (
	"errors"
	"sort"
)

// Validate checks if the comment meets all validation requirements
func (c *Comment) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}

	return nil
}

// BeforeCreate sets up any necessary fields before creation
func (c *Comment) BeforeCreate() {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = Now()
	}
}

// SetPost ties the comment to its parent post.
func (c *Comment) SetPost(post *Post) error {
	if post == nil {
		return errors.New("post cannot be nil")
	}
	c.PostID = post.ID
	return nil
}

// Clone returns a copy of the comment without its populated author.
func (c *Comment) Clone() *Comment {
	cp := *c
	cp.Author = nil
	return &cp
}

// SortCommentsOldestFirst orders a thread chronologically, ties by id.
func SortCommentsOldestFirst(comments []*Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return newer(comments[j].CreatedAt, comments[j].ID, comments[i].CreatedAt, comments[i].ID)
	})
}
