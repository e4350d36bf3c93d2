package controllers

import (
	"net/http"

	"coahub/app/services"

	"github.com/gorilla/mux"
)

// CommentController handles HTTP requests for comments
type CommentController struct {
	commentService *services.CommentService
}

// NewCommentController creates a new comment controller
func NewCommentController(commentService *services.CommentService) *CommentController {
	return &CommentController{commentService: commentService}
}

// Index lists a post's comments oldest first.
func (cc *CommentController) Index(w http.ResponseWriter, r *http.Request) {
	comments, err := cc.commentService.ListComments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, comments)
}

type commentRequest struct {
	Content string `json:"content"`
}

// Create adds a comment to the post named in the path.
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := cc.commentService.CreateComment(r.Context(), caller, mux.Vars(r)["id"], req.Content)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, comment)
}

// Delete removes a comment by id.
func (cc *CommentController) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	if err := cc.commentService.DeleteComment(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		handleServiceError(w, r, err)
		return
	}
	sendMessage(w, "Comment deleted successfully")
}
