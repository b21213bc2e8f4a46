package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"techsymposium/internal/logger"
	"techsymposium/internal/metrics"
)

const sniffLen = 512

var (
	ErrUploadFailed = errors.New("image upload failed")
	ErrNotImage     = errors.New("file is not an image")
	ErrEmptyFile    = errors.New("file is empty")
)

// Store persists an image and returns its public URL.
type Store interface {
	Name() string
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Uploader checks that content is an image before handing it to the Store.
// An empty URL from the store counts as a failure.
type Uploader struct {
	Store   Store
	Metrics *metrics.Collector
	Logger  *logger.Logger
	Timeout time.Duration
}

func NewUploader(store Store, m *metrics.Collector, log *logger.Logger) *Uploader {
	return &Uploader{Store: store, Metrics: m, Logger: log, Timeout: 30 * time.Second}
}

func (u *Uploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	body, contentType, err := Sniff(r)
	if err != nil {
		u.Metrics.ObserveUpload(u.Store.Name(), "rejected")
		return "", err
	}

	if u.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.Timeout)
		defer cancel()
	}

	url, err := u.Store.Upload(ctx, filename, body)
	if err == nil && strings.TrimSpace(url) == "" {
		err = errors.New("store returned an empty url")
	}
	if err != nil {
		u.Metrics.ObserveUpload(u.Store.Name(), "failed")
		u.Logger.Error("UPLOAD", fmt.Sprintf("Upload of %s to %s failed: %v", filename, u.Store.Name(), err))
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	u.Metrics.ObserveUpload(u.Store.Name(), "stored")
	u.Logger.LogUpload("STORE", filename, fmt.Sprintf("%s via %s -> %s", contentType, u.Store.Name(), url))
	return url, nil
}

// Sniff reads the head of r to detect its content type and returns a
// reader that still yields the full content.
func Sniff(r io.Reader) (io.Reader, string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return nil, "", ErrEmptyFile
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, contentType, ErrNotImage
	}
	return io.MultiReader(bytes.NewReader(head), r), contentType, nil
}
