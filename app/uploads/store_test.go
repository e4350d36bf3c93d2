package uploads

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	gifBytes = append([]byte("GIF89a"), make([]byte, 32)...)
)

func newTestStore(t *testing.T, maxBytes int64) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(filepath.Join(t.TempDir(), "uploads"), "/uploads/", maxBytes)
	require.NoError(t, err)
	return store
}

func TestDiskStoreSave(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 1024)

	tests := []struct {
		name    string
		data    []byte
		ext     string
		wantErr error
	}{
		{name: "png", data: pngBytes, ext: ".png"},
		{name: "gif", data: gifBytes, ext: ".gif"},
		{name: "plain text", data: []byte("just some words"), wantErr: ErrUnsupportedType},
		{name: "too large", data: append(append([]byte{}, pngBytes...), make([]byte, 2048)...), wantErr: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := store.Save(ctx, "upload"+tt.ext, bytes.NewReader(tt.data))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(url, "/uploads/"))
			assert.True(t, strings.HasSuffix(url, tt.ext))

			saved, err := os.ReadFile(filepath.Join(store.dir, filepath.Base(url)))
			require.NoError(t, err)
			assert.Equal(t, tt.data, saved)
		})
	}
}

func TestDiskStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 1024)

	url, err := store.Save(ctx, "a.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(store.dir, filepath.Base(url)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, url), "deleting twice is not an error")
	assert.NoError(t, store.Delete(ctx, "https://elsewhere.example/a.png"))
}

func TestDiskStoreHandler(t *testing.T) {
	store := newTestStore(t, 1024)
	url, err := store.Save(context.Background(), "a.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	srv := httptest.NewServer(http.StripPrefix("/uploads", store.Handler()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/uploads/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
