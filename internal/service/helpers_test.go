package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quillpress/internal/blobstore"
	"github.com/quillpress/internal/docstore"
)

func setupTestStore(t *testing.T) *docstore.GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	store, err := docstore.NewGormStore(gdb)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func setupTestBlobs(t *testing.T) *blobstore.LocalStore {
	t.Helper()
	blobs, err := blobstore.NewLocalStore(t.TempDir(), "/static/uploads")
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}
	return blobs
}

// stepClock advances one second per call.
type stepClock struct {
	t time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

var errBackend = errors.New("backend unavailable")

// failingBlobs rejects every upload.
type failingBlobs struct{}

func (failingBlobs) Upload(context.Context, string, []byte, string) error { return errBackend }
func (failingBlobs) MakePublic(context.Context, string) (string, error) { return "", errBackend }
func (failingBlobs) Delete(context.Context, string) error               { return errBackend }

// failingStore fails every call.
type failingStore struct{}

func (failingStore) Get(context.Context, string, string) (docstore.Document, error) {
	return nil, errBackend
}
func (failingStore) Set(context.Context, string, string, docstore.Document) error { return errBackend }
func (failingStore) Update(context.Context, string, string, docstore.Document) error {
	return errBackend
}
func (failingStore) Delete(context.Context, string, string) error { return errBackend }
func (failingStore) Query(context.Context, docstore.Query) ([]docstore.Snapshot, error) {
	return nil, errBackend
}
func (failingStore) Close() error { return nil }

// countingStore counts Get calls on top of another store.
type countingStore struct {
	docstore.Store
	gets int
}

func (c *countingStore) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	c.gets++
	return c.Store.Get(ctx, collection, id)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
