package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"

	"github.com/quillpress/internal/blobstore"
	"github.com/quillpress/internal/db"
	"github.com/quillpress/internal/docstore"
)

var (
	ErrMediaNotFound    = errors.New("media not found")
	ErrMediaType        = errors.New("only png, jpg, jpeg and gif images are allowed")
	ErrMediaUnreadable  = errors.New("file is not a readable image")
	ErrMediaEmpty       = errors.New("file is empty")
	ErrInvalidMediaName = errors.New("invalid media name")
)

var allowedMediaFormats = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".gif":  "gif",
}

// MediaService 管理后台媒体库：图片写入 blob 存储，元数据写入文档存储。
type MediaService struct {
	store docstore.Store
	blobs blobstore.Store
	now   func() time.Time
}

func NewMediaService(store docstore.Store, blobs blobstore.Store) *MediaService {
	return &MediaService{store: store, blobs: blobs, now: time.Now}
}

func (s *MediaService) WithClock(now func() time.Time) *MediaService {
	s.now = now
	return s
}

// Upload stores an image as media/<yyyymmdd-hhmmss>-<filename>. The
// extension must be an allowed one and agree with the decoded header.
func (s *MediaService) Upload(ctx context.Context, upload Upload) (*db.MediaItem, error) {
	if len(upload.Data) == 0 {
		return nil, ErrMediaEmpty
	}
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	want, ok := allowedMediaFormats[ext]
	if !ok {
		return nil, ErrMediaType
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(upload.Data))
	if err != nil {
		return nil, ErrMediaUnreadable
	}
	if format != want {
		return nil, ErrMediaType
	}

	now := s.now().UTC()
	name := fmt.Sprintf("%s-%s", now.Format("20060102-150405"), SanitizeFilename(upload.Filename))
	key := "media/" + name

	contentType := upload.ContentType
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = "image/" + format
	}

	if err := s.blobs.Upload(ctx, key, upload.Data, contentType); err != nil {
		log.Error().Err(err).Str("key", key).Msg("media upload failed")
		return nil, fmt.Errorf("upload media: %w: %w", ErrStoreFailure, err)
	}
	url, err := s.blobs.MakePublic(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("media publish failed")
		return nil, fmt.Errorf("upload media: %w: %w", ErrStoreFailure, err)
	}

	item := db.MediaItem{
		Name:        name,
		Key:         key,
		URL:         url,
		ContentType: contentType,
		Size:        int64(len(upload.Data)),
		UpdatedAt:   now,
	}
	if err := s.store.Set(ctx, db.CollectionMedia, name, item.ToDocument()); err != nil {
		log.Error().Err(err).Str("media", name).Msg("save media failed")
		return nil, fmt.Errorf("upload media: %w: %w", ErrStoreFailure, err)
	}
	return &item, nil
}

// List returns media newest first.
func (s *MediaService) List(ctx context.Context) []db.MediaItem {
	snapshots, err := s.store.Query(ctx, docstore.Query{
		Collection: db.CollectionMedia,
		OrderBy:    "updated_at",
		Direction:  docstore.Descending,
	})
	if err != nil {
		log.Error().Err(err).Msg("list media failed")
		return []db.MediaItem{}
	}

	now := s.now()
	items := make([]db.MediaItem, 0, len(snapshots))
	for _, snap := range snapshots {
		items = append(items, db.MediaItemFromDocument(snap.ID, snap.Data, now))
	}
	return items
}

// Delete removes the blob and its record.
func (s *MediaService) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return ErrInvalidMediaName
	}

	doc, err := s.store.Get(ctx, db.CollectionMedia, name)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrMediaNotFound
		}
		log.Error().Err(err).Str("media", name).Msg("get media failed")
		return fmt.Errorf("delete media: %w: %w", ErrStoreFailure, err)
	}
	item := db.MediaItemFromDocument(name, doc, s.now())
	key := item.Key
	if key == "" {
		key = "media/" + name
	}

	if err := s.blobs.Delete(ctx, key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("delete media blob failed")
		return fmt.Errorf("delete media: %w: %w", ErrStoreFailure, err)
	}
	if err := s.store.Delete(ctx, db.CollectionMedia, name); err != nil {
		log.Error().Err(err).Str("media", name).Msg("delete media record failed")
		return fmt.Errorf("delete media: %w: %w", ErrStoreFailure, err)
	}
	return nil
}
