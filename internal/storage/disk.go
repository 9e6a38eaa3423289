package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/juju/errors"
)

// DiskStore keeps blobs under a directory served at a URL prefix.
type DiskStore struct {
	baseDir   string
	publicURL string
	mu        sync.RWMutex
}

func NewDiskStore(baseDir, publicURL string) (*DiskStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.Annotate(err, "create media dir")
	}
	return &DiskStore{baseDir: baseDir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *DiskStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	k, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := filepath.Join(s.baseDir, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", errors.Trace(err)
	}
	// Write to temp, then rename.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", errors.Annotate(err, "write blob")
	}
	if err := os.Rename(tmp, p); err != nil {
		return "", errors.Annotate(err, "commit blob")
	}
	return s.publicURL + "/" + k, nil
}

func (s *DiskStore) Get(_ context.Context, key string) ([]byte, error) {
	k, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := os.ReadFile(filepath.Join(s.baseDir, filepath.FromSlash(k)))
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("blob %q", k)
	}
	return b, errors.Trace(err)
}

func (s *DiskStore) Delete(_ context.Context, key string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(k)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Annotate(err, "delete blob")
	}
	return nil
}

func (s *DiskStore) KeyFor(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok {
		return "", false
	}
	k, err := CleanKey(rest)
	return k, err == nil
}
