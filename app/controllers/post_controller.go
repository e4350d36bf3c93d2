package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"coahub/app/models"
	"coahub/app/services"

	"github.com/gorilla/mux"
)

// multipartOverhead is allowed on top of the image limit for the text fields.
const multipartOverhead = 1 << 20

// PostController handles HTTP requests for posts and likes
type PostController struct {
	postService *services.PostService
	maxUpload   int64
}

// NewPostController creates a new PostController. maxUpload bounds the size
// of a multipart create request's image.
func NewPostController(postService *services.PostService, maxUpload int64) *PostController {
	return &PostController{postService: postService, maxUpload: maxUpload}
}

// Index lists posts, optionally filtered by ?category=.
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := pc.postService.ListPosts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, posts)
}

// Create accepts either a multipart form with an optional "image" file or a
// JSON body.
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}

	var (
		input services.NewPostInput
		image *services.ImageUpload
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, pc.maxUpload+multipartOverhead)
		if err := r.ParseMultipartForm(multipartOverhead); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				sendError(w, "Image is too large", http.StatusBadRequest)
				return
			}
			sendError(w, "Failed to parse form: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		input = services.NewPostInput{
			Title:    r.FormValue("title"),
			Content:  r.FormValue("content"),
			Category: models.Category(r.FormValue("category")),
		}

		file, header, err := r.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			sendError(w, "Failed to read image: "+err.Error(), http.StatusBadRequest)
			return
		default:
			defer file.Close()
			image = imageUpload(file, header)
		}
	} else if !decodeJSON(w, r, &input) {
		return
	}

	post, err := pc.postService.CreatePost(r.Context(), caller, input, image)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, post)
}

func imageUpload(file multipart.File, header *multipart.FileHeader) *services.ImageUpload {
	return &services.ImageUpload{Filename: header.Filename, Body: file}
}

// Delete removes a post and its comments.
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	if err := pc.postService.DeletePost(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		handleServiceError(w, r, err)
		return
	}
	sendMessage(w, "Post deleted successfully")
}

// Like adds the caller to the post's likes and returns the post.
func (pc *PostController) Like(w http.ResponseWriter, r *http.Request) {
	pc.toggleLike(w, r, services.Like)
}

// Unlike removes the caller from the post's likes and returns the post.
func (pc *PostController) Unlike(w http.ResponseWriter, r *http.Request) {
	pc.toggleLike(w, r, services.Unlike)
}

func (pc *PostController) toggleLike(w http.ResponseWriter, r *http.Request, action services.LikeAction) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	post, err := pc.postService.ToggleLike(r.Context(), caller, mux.Vars(r)["id"], action)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}
