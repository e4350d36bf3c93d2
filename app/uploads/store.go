// Package uploads stores post images and serves them back by URL.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("only jpg, png and gif images are allowed")
	ErrTooLarge        = errors.New("image exceeds the upload size limit")
)

// allowedTypes maps accepted MIME types to the extension files are saved with.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// ImageStore saves image bytes and returns the URL they are served from.
type ImageStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// DiskStore keeps images in a directory and serves them under baseURL.
type DiskStore struct {
	dir      string
	baseURL  string
	maxBytes int64
}

var _ ImageStore = (*DiskStore)(nil)

// NewDiskStore creates dir if needed.
func NewDiskStore(dir, baseURL string, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
	}, nil
}

// Save sniffs the content type instead of trusting filename, then writes the
// bytes under a random name. filename only appears in error messages.
func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filename, err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedTypes[mtype.String()]
	if !ok {
		return "", fmt.Errorf("%s (%s): %w", filename, mtype.String(), ErrUnsupportedType)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return s.baseURL + "/" + name, nil
}

// Delete removes the file behind url. URLs outside baseURL and files that are
// already gone are ignored.
func (s *DiskStore) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return nil
	}
	name := path.Base(url)
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Handler serves stored files. Mount it with http.StripPrefix(baseURL, ...).
func (s *DiskStore) Handler() http.Handler {
	return http.FileServer(onlyFiles{http.Dir(s.dir)})
}

// onlyFiles hides directory listings.
type onlyFiles struct {
	fs http.FileSystem
}

func (o onlyFiles) Open(name string) (http.File, error) {
	f, err := o.fs.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if stat.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
