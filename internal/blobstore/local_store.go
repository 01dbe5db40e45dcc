package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var _ Store = (*LocalStore)(nil)

// LocalStore 把对象写入本地上传目录，由 gin 的静态路由对外提供。
// 新写入的文件只有属主可读，MakePublic 之后才对所有人可读。
type LocalStore struct {
	root    string
	urlPath string
}

func NewLocalStore(root, urlPath string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("upload dir is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	urlPath = strings.TrimRight(strings.TrimSpace(urlPath), "/")
	if urlPath == "" {
		urlPath = "/static/uploads"
	}
	return &LocalStore{root: root, urlPath: urlPath}, nil
}

// Root returns the directory objects are written to.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) URLPath() string {
	return s.urlPath
}

func (s *LocalStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close blob %s: %w", key, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod blob %s: %w", key, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return fmt.Errorf("store blob %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) MakePublic(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.Chmod(full, 0o644); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("publish blob %s: %w", key, err)
	}

	clean, _ := cleanKey(key)
	return s.urlPath + "/" + path.Clean(clean), nil
}

// Delete removes the object. A missing object is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return full, nil
}
