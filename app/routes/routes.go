package routes

import (
	"net/http"
	"time"

	"coahub/app/controllers"
	"coahub/app/middleware"
	"coahub/app/services"

	"github.com/gorilla/mux"
)

// Deps are the services and settings the route table is built from.
type Deps struct {
	Auth     *services.AuthService
	Posts    *services.PostService
	Comments *services.CommentService

	// Uploads serves stored images under UploadsPath when non-nil.
	Uploads     http.Handler
	UploadsPath string

	MaxUploadBytes int64
	RequestTimeout time.Duration
}

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(deps Deps) *mux.Router {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Timeout(deps.RequestTimeout))

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	authController := controllers.NewAuthController(deps.Auth)
	postController := controllers.NewPostController(deps.Posts, deps.MaxUploadBytes)
	commentController := controllers.NewCommentController(deps.Comments)

	auth := middleware.RequireAuth(deps.Auth)
	protect := func(h http.HandlerFunc) http.Handler { return auth(h) }

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	if deps.Uploads != nil && deps.UploadsPath != "" {
		router.PathPrefix(deps.UploadsPath + "/").
			Handler(http.StripPrefix(deps.UploadsPath, deps.Uploads)).
			Methods("GET", "HEAD")
	}

	// API routes
	api := router.PathPrefix("/api").Subrouter()

	// Auth endpoints
	api.HandleFunc("/auth/login", authController.Login).Methods("POST")
	api.HandleFunc("/auth/signup", authController.Signup).Methods("POST")
	api.Handle("/users/profile", protect(authController.UpdateProfile)).Methods("PUT")

	// Posts endpoints
	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", postController.Index).Methods("GET")
	posts.Handle("", protect(postController.Create)).Methods("POST")
	posts.Handle("/{id}", protect(postController.Delete)).Methods("DELETE")
	posts.Handle("/{id}/like", protect(postController.Like)).Methods("POST")
	posts.Handle("/{id}/unlike", protect(postController.Unlike)).Methods("POST")

	// Comments endpoints
	posts.HandleFunc("/{id}/comments", commentController.Index).Methods("GET")
	posts.Handle("/{id}/comments", protect(commentController.Create)).Methods("POST")
	api.Handle("/comments/{id}", protect(commentController.Delete)).Methods("DELETE")

	return router
}
