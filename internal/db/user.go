package db

import (
	"time"

	"github.com/quillpress/internal/docstore"
)

// User 定义了用户模型。ID 由身份提供方分配。
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) ToDocument() docstore.Document {
	return docstore.Document{
		"username":   u.Username,
		"email":      u.Email,
		"is_admin":   u.IsAdmin,
		"created_at": u.CreatedAt.UTC(),
	}
}

func UserFromDocument(id string, doc docstore.Document, now time.Time) User {
	return User{
		ID:        id,
		Username:  stringField(doc, "username"),
		Email:     stringField(doc, "email"),
		IsAdmin:   boolField(doc, "is_admin"),
		CreatedAt: NormalizeTimestamp(doc["created_at"], now),
	}
}

// AuthorSnapshot is the copy of a user embedded into each post.
type AuthorSnapshot struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func SnapshotOf(u *User) AuthorSnapshot {
	if u == nil {
		return AuthorSnapshot{}
	}
	return AuthorSnapshot{ID: u.ID, Username: u.Username, Email: u.Email}
}

// IsZero reports whether no author was recorded.
func (a AuthorSnapshot) IsZero() bool {
	return a.ID == "" && a.Username == "" && a.Email == ""
}

// User rebuilds a user value from the snapshot. Admin status is not embedded
// in posts, so the result is never an admin.
func (a AuthorSnapshot) User() *User {
	if a.IsZero() {
		return nil
	}
	return &User{ID: a.ID, Username: a.Username, Email: a.Email}
}

func (a AuthorSnapshot) toDocument() map[string]any {
	if a.IsZero() {
		return map[string]any{}
	}
	return map[string]any{
		"id":       a.ID,
		"username": a.Username,
		"email":    a.Email,
	}
}

func authorFromDocument(m map[string]any) AuthorSnapshot {
	if len(m) == 0 {
		return AuthorSnapshot{}
	}
	doc := docstore.Document(m)
	a := AuthorSnapshot{
		ID:       stringField(doc, "id"),
		Username: stringField(doc, "username"),
		Email:    stringField(doc, "email"),
	}
	if a.Username == "" {
		a.Username = "Unknown"
	}
	return a
}
