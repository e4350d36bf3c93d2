// Package client is a Go client for the forum API together with the
// in-memory state stores that mirror server data for a UI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"coahub/app/models"
)

// TokenSource supplies the bearer token attached to each request. An empty
// token sends the request anonymously.
type TokenSource interface {
	Token() string
}

// APIError is a non-2xx response. Message is the server's "message" field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Session is what login and signup return.
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type SignupRequest struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role,omitempty"`
}

// ProfileUpdate carries only the fields to change.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// NewPost is sent as a multipart form; Image is optional.
type NewPost struct {
	Title     string
	Content   string
	Category  models.Category
	Image     io.Reader
	ImageName string
}

// API calls the REST endpoints under baseURL (for example
// "http://localhost:5000/api").
type API struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewAPI returns an API client. A nil httpClient uses http.DefaultClient.
func NewAPI(baseURL string, httpClient *http.Client, tokens TokenSource) *API {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
	}
}

// SetTokenSource replaces the token source; typically a SessionStore.
func (a *API) SetTokenSource(tokens TokenSource) {
	a.tokens = tokens
}

func (a *API) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := a.doJSON(ctx, http.MethodPost, "/auth/login", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *API) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	var s Session
	if err := a.doJSON(ctx, http.MethodPost, "/auth/signup", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *API) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*models.User, error) {
	var u models.User
	if err := a.doJSON(ctx, http.MethodPut, "/users/profile", upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListPosts fetches posts newest first, optionally for one category.
func (a *API) ListPosts(ctx context.Context, category models.Category) ([]*models.Post, error) {
	path := "/posts"
	if category != "" {
		path += "?" + url.Values{"category": {string(category)}}.Encode()
	}
	var posts []*models.Post
	if err := a.doJSON(ctx, http.MethodGet, path, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (a *API) CreatePost(ctx context.Context, p NewPost) (*models.Post, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range [][2]string{{"title", p.Title}, {"content", p.Content}, {"category", string(p.Category)}} {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	if p.Image != nil {
		name := p.ImageName
		if name == "" {
			name = "image"
		}
		part, err := mw.CreateFormFile("image", name)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, p.Image); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var post models.Post
	if err := a.do(ctx, http.MethodPost, "/posts", mw.FormDataContentType(), &buf, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (a *API) DeletePost(ctx context.Context, postID string) error {
	return a.doJSON(ctx, http.MethodDelete, "/posts/"+url.PathEscape(postID), nil, nil)
}

func (a *API) LikePost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	if err := a.doJSON(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/like", nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (a *API) UnlikePost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	if err := a.doJSON(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/unlike", nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListComments fetches a post's comments oldest first.
func (a *API) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := a.doJSON(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID)+"/comments", nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (a *API) AddComment(ctx context.Context, postID, content string) (*models.Comment, error) {
	var c models.Comment
	body := map[string]string{"content": content}
	if err := a.doJSON(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/comments", body, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *API) DeleteComment(ctx context.Context, commentID string) error {
	return a.doJSON(ctx, http.MethodDelete, "/comments/"+url.PathEscape(commentID), nil, nil)
}

func (a *API) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return a.do(ctx, method, path, contentType, body, out)
}

func (a *API) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if a.tokens != nil {
		if token := a.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Message = payload.Message
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// messageOf returns the server's message for err, or fallback.
func messageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
