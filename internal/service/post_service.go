package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quillpress/internal/blobstore"
	"github.com/quillpress/internal/db"
	"github.com/quillpress/internal/docstore"
)

var (
	ErrPostNotFound   = errors.New("post not found")
	ErrNilPost        = errors.New("post is nil")
	ErrImageNotStored = errors.New("featured image could not be stored")
)

const (
	defaultPageSize = 10
	// statsScanLimit bounds the dashboard scan.
	statsScanLimit = 1000
)

// PostService maps posts onto the document store and their featured images
// onto the blob store.
type PostService struct {
	store docstore.Store
	blobs blobstore.Store
	now   func() time.Time
}

// PostInput represents fields accepted when creating a post.
type PostInput struct {
	Title           string
	Content         string
	Author          *db.User
	Categories      []string
	IsPublished     bool
	Excerpt         string
	MetaDescription string
	FeaturedImage   *Upload
}

// PostUpdate carries a partial update. Nil fields are left untouched.
type PostUpdate struct {
	Title           *string
	Content         *string
	Categories      *[]string
	IsPublished     *bool
	Excerpt         *string
	MetaDescription *string
	FeaturedImage   *ImageChange
}

// ImageChange distinguishes clearing the featured image from replacing it.
type ImageChange struct {
	upload *Upload
}

func ClearImage() *ImageChange {
	return &ImageChange{}
}

func ReplaceImage(upload Upload) *ImageChange {
	return &ImageChange{upload: &upload}
}

// Upload returns the replacement file, or nil when the change clears the image.
func (c *ImageChange) Upload() *Upload {
	if c == nil {
		return nil
	}
	return c.upload
}

// PostFilter describes filters for listing posts.
type PostFilter struct {
	Limit         int
	Offset        int
	PublishedOnly bool
}

// PostStats 汇总仪表盘所需的文章数量。
type PostStats struct {
	Total     int `json:"total_posts"`
	Published int `json:"published_posts"`
	Drafts    int `json:"draft_posts"`
}

// NewPostService creates a PostService instance.
func NewPostService(store docstore.Store, blobs blobstore.Store) *PostService {
	return &PostService{store: store, blobs: blobs, now: time.Now}
}

// WithClock replaces the time source.
func (s *PostService) WithClock(now func() time.Time) *PostService {
	s.now = now
	return s
}

func (s *PostService) clock() time.Time {
	return s.now().UTC()
}

// Create persists a new post. A featured image that cannot be stored is
// logged and dropped; the post is still created with an empty image URL.
func (s *PostService) Create(ctx context.Context, input PostInput) (*db.Post, error) {
	id := uuid.NewString()

	imageURL := ""
	if input.FeaturedImage != nil {
		url, err := s.storeImage(ctx, id, *input.FeaturedImage)
		if err != nil {
			log.Warn().Err(err).Str("post_id", id).Msg("featured image upload failed, continuing without image")
		} else {
			imageURL = url
		}
	}

	categories := append([]string{}, input.Categories...)
	now := s.clock()
	post := db.Post{
		ID:              id,
		Title:           input.Title,
		Content:         input.Content,
		Author:          db.SnapshotOf(input.Author),
		Categories:      categories,
		IsPublished:     input.IsPublished,
		Excerpt:         input.Excerpt,
		FeaturedImage:   imageURL,
		MetaDescription: input.MetaDescription,
		CreatedAt:       now,
		Timestamp:       now,
		UpdatedAt:       now,
	}

	if err := s.store.Set(ctx, db.CollectionPosts, id, post.ToDocument()); err != nil {
		log.Error().Err(err).Str("post_id", id).Msg("create post failed")
		return nil, fmt.Errorf("create post: %w: %w", ErrStoreFailure, err)
	}

	return &post, nil
}

// Get fetches a post by id.
func (s *PostService) Get(ctx context.Context, id string) (*db.Post, error) {
	doc, err := s.store.Get(ctx, db.CollectionPosts, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		log.Error().Err(err).Str("post_id", id).Msg("get post failed")
		return nil, fmt.Errorf("get post: %w: %w", ErrStoreFailure, err)
	}

	post := db.PostFromDocument(id, doc, s.clock())
	return &post, nil
}

// List returns posts newest first. The store has no offset, so the first
// Offset+Limit posts are fetched and the leading Offset are dropped. Deep
// pages therefore cost proportionally more. Store failures yield an empty
// list.
func (s *PostService) List(ctx context.Context, filter PostFilter) []db.Post {
	return s.list(ctx, "", filter)
}

// ListByCategory lists posts tagged with categoryID, with the same ordering
// and pagination as List.
func (s *PostService) ListByCategory(ctx context.Context, categoryID string, filter PostFilter) []db.Post {
	if categoryID == "" {
		return []db.Post{}
	}
	return s.list(ctx, categoryID, filter)
}

func (s *PostService) list(ctx context.Context, categoryID string, filter PostFilter) []db.Post {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	q := docstore.Query{
		Collection: db.CollectionPosts,
		OrderBy:    db.PostFieldTimestamp,
		Direction:  docstore.Descending,
		Limit:      offset + limit,
	}
	if filter.PublishedOnly {
		q = q.Where(db.PostFieldIsPublished, true)
	}
	if categoryID != "" {
		q = q.WhereArrayContains(db.PostFieldCategories, categoryID)
	}

	snapshots, err := s.store.Query(ctx, q)
	if err != nil {
		log.Error().Err(err).
			Str("category_id", categoryID).
			Int("offset", offset).
			Int("limit", limit).
			Msg("list posts failed")
		return []db.Post{}
	}
	if offset >= len(snapshots) {
		return []db.Post{}
	}

	now := s.clock()
	posts := make([]db.Post, 0, len(snapshots)-offset)
	for _, snap := range snapshots[offset:] {
		posts = append(posts, db.PostFromDocument(snap.ID, snap.Data, now))
	}
	return posts
}

// Update applies a partial update to the stored post and, once the store
// accepts it, to post itself. The ordering timestamp always moves forward.
func (s *PostService) Update(ctx context.Context, post *db.Post, update PostUpdate) error {
	if post == nil {
		return ErrNilPost
	}

	fields := docstore.Document{}
	if update.Title != nil {
		fields[db.PostFieldTitle] = *update.Title
	}
	if update.Content != nil {
		fields[db.PostFieldContent] = *update.Content
	}
	var categories []string
	if update.Categories != nil {
		categories = append([]string{}, (*update.Categories)...)
		fields[db.PostFieldCategories] = categories
	}
	if update.IsPublished != nil {
		fields[db.PostFieldIsPublished] = *update.IsPublished
	}
	if update.Excerpt != nil {
		fields[db.PostFieldExcerpt] = *update.Excerpt
	}
	if update.MetaDescription != nil {
		fields[db.PostFieldMetaDescription] = *update.MetaDescription
	}

	imageURL := ""
	if update.FeaturedImage != nil {
		if upload := update.FeaturedImage.Upload(); upload != nil {
			url, err := s.storeImage(ctx, post.ID, *upload)
			if err != nil {
				log.Error().Err(err).Str("post_id", post.ID).Msg("featured image upload failed")
				return fmt.Errorf("update post: %w: %w", ErrImageNotStored, err)
			}
			imageURL = url
		}
		fields[db.PostFieldFeaturedImage] = imageURL
	}

	now := s.clock()
	if !now.After(post.Timestamp) {
		now = post.Timestamp.Add(time.Microsecond)
	}
	fields[db.PostFieldTimestamp] = now
	fields[db.PostFieldUpdatedAt] = now

	if err := s.store.Update(ctx, db.CollectionPosts, post.ID, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrPostNotFound
		}
		log.Error().Err(err).Str("post_id", post.ID).Msg("update post failed")
		return fmt.Errorf("update post: %w: %w", ErrStoreFailure, err)
	}

	if update.Title != nil {
		post.Title = *update.Title
	}
	if update.Content != nil {
		post.Content = *update.Content
	}
	if update.Categories != nil {
		post.Categories = categories
	}
	if update.IsPublished != nil {
		post.IsPublished = *update.IsPublished
	}
	if update.Excerpt != nil {
		post.Excerpt = *update.Excerpt
	}
	if update.MetaDescription != nil {
		post.MetaDescription = *update.MetaDescription
	}
	if update.FeaturedImage != nil {
		post.FeaturedImage = imageURL
	}
	post.Timestamp = now
	post.UpdatedAt = now
	return nil
}

// Delete removes the post document. Stored images are kept.
func (s *PostService) Delete(ctx context.Context, post *db.Post) error {
	if post == nil {
		return ErrNilPost
	}
	if err := s.store.Delete(ctx, db.CollectionPosts, post.ID); err != nil {
		log.Error().Err(err).Str("post_id", post.ID).Msg("delete post failed")
		return fmt.Errorf("delete post: %w: %w", ErrStoreFailure, err)
	}
	return nil
}

// Stats counts posts among the most recent statsScanLimit.
func (s *PostService) Stats(ctx context.Context) PostStats {
	posts := s.List(ctx, PostFilter{Limit: statsScanLimit})

	stats := PostStats{Total: len(posts)}
	for _, p := range posts {
		if p.IsPublished {
			stats.Published++
		}
	}
	stats.Drafts = stats.Total - stats.Published
	return stats
}

// storeImage uploads under posts/<post id>/<sanitized filename> and returns
// the public URL.
func (s *PostService) storeImage(ctx context.Context, postID string, upload Upload) (string, error) {
	if s.blobs == nil {
		return "", errors.New("no blob store configured")
	}
	if len(upload.Data) == 0 {
		return "", errors.New("empty upload")
	}

	key := fmt.Sprintf("posts/%s/%s", postID, SanitizeFilename(upload.Filename))
	if err := s.blobs.Upload(ctx, key, upload.Data, upload.ContentType); err != nil {
		return "", err
	}
	return s.blobs.MakePublic(ctx, key)
}
