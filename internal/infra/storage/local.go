package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
)

// LocalStore keeps blobs as files under root. Locators are slash-separated
// keys relative to root.
type LocalStore struct {
	root string
}

func NewLocal(root string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, ".tmp"), 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{root: abs}, nil
}

// Store writes to a temp file, syncs and renames it into place, so a reader
// never sees a partial blob.
func (s *LocalStore) Store(ctx context.Context, key string, data []byte, _ string) (string, error) {
	const op = "local.store"
	if err := ctx.Err(); err != nil {
		return "", domain.E(domain.KindStorage, op, err)
	}
	dst, err := s.pathFromKey(key)
	if err != nil {
		return "", domain.E(domain.KindStorage, op, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", domain.E(domain.KindStorage, op, err)
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, ".tmp"), "put-*")
	if err != nil {
		return "", domain.E(domain.KindStorage, op, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return "", domain.E(domain.KindStorage, op, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", domain.E(domain.KindStorage, op, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", domain.E(domain.KindStorage, op, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return "", domain.E(domain.KindStorage, op, err)
	}
	return filepath.ToSlash(key), nil
}

func (s *LocalStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.E(domain.KindStorage, "local.open", err)
	}
	path, err := s.pathFromKey(locator)
	if err != nil {
		return nil, domain.E(domain.KindStorage, "local.open", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.E(domain.KindStorage, "local.open", err)
	}
	return f, nil
}

func (s *LocalStore) Exists(ctx context.Context, locator string) (bool, error) {
	path, err := s.pathFromKey(locator)
	if err != nil {
		return false, domain.E(domain.KindStorage, "local.exists", err)
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, domain.E(domain.KindStorage, "local.exists", err)
	}
}

// Delete removes a blob. Missing files are ignored.
func (s *LocalStore) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return domain.E(domain.KindStorage, "local.delete", err)
	}
	path, err := s.pathFromKey(locator)
	if err != nil {
		return domain.E(domain.KindStorage, "local.delete", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.E(domain.KindStorage, "local.delete", err)
	}
	return nil
}

// Check is the health probe.
func (s *LocalStore) Check(ctx context.Context) error {
	_, err := os.Stat(s.root)
	return err
}

func (s *LocalStore) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	if strings.HasPrefix(key, "/") || strings.HasPrefix(key, `\`) {
		return "", fmt.Errorf("blob key must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || strings.HasPrefix(clean, ".tmp") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}
