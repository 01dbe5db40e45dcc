// Package blobstore 提供按 key 存取二进制对象的客户端。
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidKey = errors.New("invalid blob key")
	ErrNotFound   = errors.New("blob not found")
)

// Store uploads objects by key and exposes them under a public URL.
type Store interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	// MakePublic grants anonymous read access and returns the object's URL.
	MakePublic(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// cleanKey rejects keys that could escape the store's namespace.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}

const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

// Options selects the blob backend.
type Options struct {
	Driver        string
	UploadDir     string
	UploadURLPath string
	S3            S3Options
}

func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverLocal:
		store, err := NewLocalStore(opts.UploadDir, opts.UploadURLPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverS3:
		store, err := NewS3Store(ctx, opts.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blobstore driver %q", opts.Driver)
	}
}
