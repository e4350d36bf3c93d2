package services

import (
	"context"
	"errors"

	"coahub/app/models"
	"coahub/app/repositories"

	"github.com/sirupsen/logrus"
)

// authorCache resolves author ids to public profiles once per request.
type authorCache struct {
	users repositories.UserRepository
	seen  map[string]*models.User
}

func newAuthorCache(users repositories.UserRepository) *authorCache {
	return &authorCache{users: users, seen: make(map[string]*models.User)}
}

// get returns nil for authors that no longer exist.
func (c *authorCache) get(ctx context.Context, id string) (*models.User, error) {
	if u, ok := c.seen[id]; ok {
		return u, nil
	}
	u, err := c.users.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		logrus.WithField("user_id", id).Warn("Author of content no longer exists")
		c.seen[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.seen[id] = u.Public()
	return c.seen[id], nil
}

func (c *authorCache) posts(ctx context.Context, posts ...*models.Post) error {
	for _, p := range posts {
		author, err := c.get(ctx, p.AuthorID)
		if err != nil {
			return err
		}
		p.Author = author
		p.Normalize()
	}
	return nil
}

func (c *authorCache) comments(ctx context.Context, comments ...*models.Comment) error {
	for _, cm := range comments {
		author, err := c.get(ctx, cm.AuthorID)
		if err != nil {
			return err
		}
		cm.Author = author
	}
	return nil
}
