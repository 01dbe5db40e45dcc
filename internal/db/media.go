package db

import (
	"time"

	"github.com/quillpress/internal/docstore"
)

// MediaItem is an uploaded file in the media library. Name doubles as the
// document id and the last segment of the blob key.
type MediaItem struct {
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (m MediaItem) ToDocument() docstore.Document {
	return docstore.Document{
		"key":          m.Key,
		"url":          m.URL,
		"content_type": m.ContentType,
		"size":         m.Size,
		"updated_at":   m.UpdatedAt.UTC(),
	}
}

func MediaItemFromDocument(name string, doc docstore.Document, now time.Time) MediaItem {
	return MediaItem{
		Name:        name,
		Key:         stringField(doc, "key"),
		URL:         stringField(doc, "url"),
		ContentType: stringField(doc, "content_type"),
		Size:        int64Field(doc, "size"),
		UpdatedAt:   NormalizeTimestamp(doc["updated_at"], now),
	}
}
