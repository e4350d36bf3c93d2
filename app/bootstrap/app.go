package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"coahub/app/config"
	"coahub/app/repositories"
	"coahub/app/repositories/mongodb"
	"coahub/app/routes"
	"coahub/app/services"
	"coahub/app/uploads"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// App holds the wired components of a running server.
type App struct {
	Config   *config.Config
	Auth     *services.AuthService
	Posts    *services.PostService
	Comments *services.CommentService
	Handler  http.Handler

	// Badger is set only for the embedded backend; backup and restore use it.
	Badger *repositories.Store

	closers []func(context.Context) error
}

// NewApp opens the configured storage backend and builds services and routes
// on top of it.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	var (
		users    repositories.UserRepository
		posts    repositories.PostRepository
		comments repositories.CommentRepository
	)

	switch cfg.Storage {
	case config.StorageMongo:
		store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		app.closers = append(app.closers, store.Close)
		if err := store.EnsureIndexes(ctx); err != nil {
			app.Close(ctx)
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		users, posts, comments = store.Users(), store.Posts(), store.Comments()
		logrus.WithField("database", cfg.MongoDatabase).Info("MongoDB storage ready")
	default:
		store, err := repositories.Open(cfg.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open Badger DB: %w", err)
		}
		app.Badger = store
		app.closers = append(app.closers, func(context.Context) error { return store.Close() })
		users, posts, comments = store.Users(), store.Posts(), store.Comments()
		logrus.WithField("path", cfg.BadgerPath).Info("Badger storage ready")
	}

	images, err := uploads.NewDiskStore(cfg.UploadDir, cfg.UploadBaseURL, cfg.MaxUploadBytes)
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("failed to prepare upload dir: %w", err)
	}

	app.Auth, err = services.NewAuthService(users, cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.Posts = services.NewPostService(posts, comments, users, images)
	app.Comments = services.NewCommentService(posts, comments, users)

	deps := routes.Deps{
		Auth:           app.Auth,
		Posts:          app.Posts,
		Comments:       app.Comments,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RequestTimeout: cfg.RequestTimeout,
	}
	// Absolute base URLs point at a separate file host.
	if len(cfg.UploadBaseURL) > 0 && cfg.UploadBaseURL[0] == '/' {
		deps.Uploads = images.Handler()
		deps.UploadsPath = cfg.UploadBaseURL
	}
	app.Handler = routes.SetupRoutes(deps)

	return app, nil
}

// Run serves HTTP on the configured address until ctx is cancelled, then
// shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr(),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.Config.ReconcileEvery > 0 {
		go a.Comments.RunReconciler(runCtx, a.Config.ReconcileEvery)
		logrus.WithField("interval", a.Config.ReconcileEvery).Info("Comment count reconciler started")
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("HTTP server starting to listen on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logrus.Info("Shutting down HTTP server...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logrus.Info("HTTP server stopped")
	return nil
}

// Close releases the storage backend.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
