package storage

import (
	"context"
	"path"
	"strings"

	"github.com/juju/errors"
)

// Store keeps uploaded blobs (product photos) and hands out a public URL
// for each of them.
type Store interface {
	// Put writes data under key and returns the URL clients fetch it from.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	// Get returns the blob stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// KeyFor maps a URL produced by Put back to its key, or false when the
	// URL does not belong to this store.
	KeyFor(url string) (string, bool)
}

// Config selects and configures a Store.
type Config struct {
	Backend   string // "disk" or "s3"
	MediaDir  string
	PublicURL string // URL prefix for disk blobs, e.g. /media

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PublicURL string
}

func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "disk":
		return NewDiskStore(cfg.MediaDir, cfg.PublicURL)
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
		})
	}
	return nil, errors.NotValidf("blob backend %q", cfg.Backend)
}

// CleanKey rejects keys that are empty, absolute or escape the store root.
func CleanKey(key string) (string, error) {
	k := path.Clean(strings.TrimPrefix(key, "/"))
	if k == "." || k == "" || strings.HasPrefix(k, "../") || k == ".." || strings.Contains(k, "\\") {
		return "", errors.NotValidf("blob key %q", key)
	}
	return k, nil
}
