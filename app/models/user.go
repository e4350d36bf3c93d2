package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Role is the closed set of identity roles.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// CanModerate reports whether the role may delete content it did not author.
func (r Role) CanModerate() bool {
	return r == RoleTeacher
}

// Category classifies a post.
type Category string

const (
	CategoryQuestion     Category = "question"
	CategoryAnnouncement Category = "announcement"
	CategoryDiscussion   Category = "discussion"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryQuestion, CategoryAnnouncement, CategoryDiscussion}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory accepts the empty string as "no filter".
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" || c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// DefaultAvatar builds the generated avatar URL assigned at signup.
func DefaultAvatar(username string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(username) + "&background=random"
}

// Validate checks the user against its field rules.
func (u *User) Validate() error {
	if err := validate.Struct(u); err != nil {
		return err
	}
	if u.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}
	return nil
}

// BeforeCreate fills the defaults a new identity needs.
func (u *User) BeforeCreate() {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = Now()
	}
	if u.Avatar == "" {
		u.Avatar = DefaultAvatar(u.Username)
	}
}

// Principal returns the identity as it is embedded in a bearer token.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// Public returns a copy safe to embed in other documents' responses.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	return &c
}

// NormalizeEmail lowercases and trims an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CanDelete reports whether the caller may remove content authored by authorID.
func (p Principal) CanDelete(authorID string) bool {
	return p.ID == authorID || p.Role.CanModerate()
}
