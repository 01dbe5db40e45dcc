package db

import "github.com/quillpress/internal/docstore"

// Category 定义了分类模型，创建后只读。
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c Category) ToDocument() docstore.Document {
	return docstore.Document{
		"name":        c.Name,
		"description": c.Description,
	}
}

func CategoryFromDocument(id string, doc docstore.Document) Category {
	return Category{
		ID:          id,
		Name:        stringField(doc, "name"),
		Description: stringField(doc, "description"),
	}
}
