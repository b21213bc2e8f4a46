package imagestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techsymposium/internal/config"
	"techsymposium/internal/logger"
	"techsymposium/internal/metrics"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeStore struct {
	url  string
	err  error
	got  []byte
	name string
}

func (f *fakeStore) Name() string { return "fake" }

func (f *fakeStore) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	f.name = filename
	f.got, _ = io.ReadAll(r)
	return f.url, f.err
}

func newUploader(store Store) *Uploader {
	return NewUploader(store, metrics.NewCollector(), logger.NewTestLogger(nil))
}

func TestUploaderPassesFullContent(t *testing.T) {
	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 2048)...)
	store := &fakeStore{url: "https://cdn/x.png"}

	url, err := newUploader(store).Upload(context.Background(), "proof.png", bytes.NewReader(content))

	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.png", url)
	assert.Equal(t, content, store.got)
	assert.Equal(t, "proof.png", store.name)
}

func TestUploaderRejectsNonImages(t *testing.T) {
	store := &fakeStore{url: "https://cdn/x"}

	_, err := newUploader(store).Upload(context.Background(), "notes.txt", strings.NewReader("plain text"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = newUploader(store).Upload(context.Background(), "empty.png", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmptyFile)
	assert.Nil(t, store.got)
}

func TestUploaderTreatsEmptyURLAsFailure(t *testing.T) {
	_, err := newUploader(&fakeStore{url: ""}).Upload(context.Background(), "proof.png", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrUploadFailed)
}

func TestUploaderWrapsStoreErrors(t *testing.T) {
	_, err := newUploader(&fakeStore{err: errors.New("quota exceeded")}).Upload(context.Background(), "proof.png", bytes.NewReader(pngHeader))

	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestDiskStoreWritesFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	url, err := store.Upload(context.Background(), "Proof.PNG", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestDiskStoreHonoursCancelledContext(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Upload(ctx, "a.png", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewCloudinaryStoreRequiresCredentials(t *testing.T) {
	_, err := NewCloudinaryStore(config.CloudinaryConfig{CloudName: "demo"})
	assert.Error(t, err)

	store, err := NewCloudinaryStore(config.CloudinaryConfig{CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "techsymposium"})
	require.NoError(t, err)
	assert.Equal(t, "cloudinary", store.Name())
	assert.Equal(t, "techsymposium", store.folder)
}

func TestCloudinaryUploadsSameFilenameToDistinctAssets(t *testing.T) {
	var (
		mu        sync.Mutex
		publicIDs []string
		overwrite []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.FormValue("public_id")
		mu.Lock()
		publicIDs = append(publicIDs, id)
		overwrite = append(overwrite, r.FormValue("overwrite"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"public_id":  id,
			"secure_url": "https://res/" + r.FormValue("folder") + "/" + id + ".png",
		})
	}))
	defer srv.Close()

	store, err := NewCloudinaryStore(config.CloudinaryConfig{CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "techsymposium"})
	require.NoError(t, err)
	store.cld.Upload.Config.API.UploadPrefix = srv.URL

	first, err := store.Upload(context.Background(), "image.png", strings.NewReader("AAA"))
	require.NoError(t, err)
	second, err := store.Upload(context.Background(), "image.png", strings.NewReader("BBB"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	require.Len(t, publicIDs, 2)
	assert.NotEqual(t, publicIDs[0], publicIDs[1])
	for i, id := range publicIDs {
		assert.NotEqual(t, "image", id)
		assert.Contains(t, []string{"false", "0"}, overwrite[i])
	}
}
