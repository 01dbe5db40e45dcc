package db

import (
	"time"

	"github.com/quillpress/internal/docstore"
)

// 文章文档字段名
const (
	PostFieldTitle           = "title"
	PostFieldContent         = "content"
	PostFieldAuthor          = "author"
	PostFieldCategories      = "categories"
	PostFieldIsPublished     = "is_published"
	PostFieldExcerpt         = "excerpt"
	PostFieldFeaturedImage   = "featured_image"
	PostFieldMetaDescription = "meta_description"
	PostFieldTimestamp       = "timestamp"
	PostFieldCreatedAt       = "created_at"
	PostFieldUpdatedAt       = "updated_at"
)

// Post 定义了文章模型
type Post struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Content         string         `json:"content"`
	Author          AuthorSnapshot `json:"author"`
	Categories      []string       `json:"categories"`
	IsPublished     bool           `json:"is_published"`
	Excerpt         string         `json:"excerpt"`
	FeaturedImage   string         `json:"featured_image"`
	MetaDescription string         `json:"meta_description"`
	CreatedAt       time.Time      `json:"created_at"`
	// Timestamp orders listings and moves forward on every update.
	Timestamp time.Time `json:"timestamp"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthorUser returns the embedded author as a user, or nil when the post
// carries no author.
func (p *Post) AuthorUser() *User {
	return p.Author.User()
}

func (p *Post) HasCategory(id string) bool {
	for _, c := range p.Categories {
		if c == id {
			return true
		}
	}
	return false
}

// ToDocument lists every persisted field.
func (p Post) ToDocument() docstore.Document {
	categories := p.Categories
	if categories == nil {
		categories = []string{}
	}
	return docstore.Document{
		PostFieldTitle:           p.Title,
		PostFieldContent:         p.Content,
		PostFieldAuthor:          p.Author.toDocument(),
		PostFieldCategories:      categories,
		PostFieldIsPublished:     p.IsPublished,
		PostFieldExcerpt:         p.Excerpt,
		PostFieldFeaturedImage:   p.FeaturedImage,
		PostFieldMetaDescription: p.MetaDescription,
		PostFieldTimestamp:       p.Timestamp.UTC(),
		PostFieldCreatedAt:       p.CreatedAt.UTC(),
		PostFieldUpdatedAt:       p.UpdatedAt.UTC(),
	}
}

// PostFromDocument hydrates a post. Absent strings become "", and missing or
// unreadable timestamps fall back to now.
func PostFromDocument(id string, doc docstore.Document, now time.Time) Post {
	ts := NormalizeTimestamp(doc[PostFieldTimestamp], now)

	created := ts
	if v, ok := doc[PostFieldCreatedAt]; ok && v != nil {
		created = NormalizeTimestamp(v, ts)
	}
	updated := ts
	if v, ok := doc[PostFieldUpdatedAt]; ok && v != nil {
		updated = NormalizeTimestamp(v, ts)
	}

	return Post{
		ID:              id,
		Title:           stringField(doc, PostFieldTitle),
		Content:         stringField(doc, PostFieldContent),
		Author:          authorFromDocument(mapField(doc, PostFieldAuthor)),
		Categories:      stringsField(doc, PostFieldCategories),
		IsPublished:     boolField(doc, PostFieldIsPublished),
		Excerpt:         stringField(doc, PostFieldExcerpt),
		FeaturedImage:   stringField(doc, PostFieldFeaturedImage),
		MetaDescription: stringField(doc, PostFieldMetaDescription),
		CreatedAt:       created,
		Timestamp:       ts,
		UpdatedAt:       updated,
	}
}
