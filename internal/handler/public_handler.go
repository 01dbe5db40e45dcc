package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quillpress/internal/db"
	"github.com/quillpress/internal/service"
)

type categoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// postView 是文章的 JSON 表示，附带分类名称
type postView struct {
	db.Post
	CategoryRefs []categoryRef `json:"category_refs"`
	HTML         string        `json:"html,omitempty"`
}

func (a *API) toPostView(ctx context.Context, post db.Post) postView {
	refs := make([]categoryRef, 0, len(post.Categories))
	for _, id := range post.Categories {
		refs = append(refs, categoryRef{ID: id, Name: a.categoryNames.Name(ctx, id)})
	}
	return postView{Post: post, CategoryRefs: refs}
}

func (a *API) toPostViews(ctx context.Context, posts []db.Post) []postView {
	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		views = append(views, a.toPostView(ctx, p))
	}
	return views
}

// canView reports whether user may read post. Drafts are limited to their
// author and admins.
func canView(post *db.Post, user *db.User) bool {
	if post.IsPublished {
		return true
	}
	if user == nil {
		return false
	}
	return user.IsAdmin || user.ID == post.Author.ID
}

// ListPosts 前台文章列表，仅包含已发布文章
func (a *API) ListPosts(c *gin.Context) {
	page := parsePage(c)
	posts := a.posts.List(c.Request.Context(), service.PostFilter{
		Limit:         a.pageSize,
		Offset:        (page - 1) * a.pageSize,
		PublishedOnly: true,
	})

	c.JSON(http.StatusOK, gin.H{
		"posts": a.toPostViews(c.Request.Context(), posts),
		"page":  page,
	})
}

// GetPost 获取单篇文章，草稿仅作者与管理员可见
func (a *API) GetPost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := a.posts.Get(ctx, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPostNotFound):
			respondError(c, http.StatusNotFound, "post not found")
		default:
			respondError(c, http.StatusInternalServerError, "error loading post")
		}
		return
	}

	if !canView(post, a.currentUser(c)) {
		respondError(c, http.StatusNotFound, "post not found")
		return
	}

	view := a.toPostView(ctx, *post)
	view.HTML = string(a.renderer.Render(post.Content))
	c.JSON(http.StatusOK, gin.H{"post": view})
}

// CategoryPosts 按分类列出已发布文章
func (a *API) CategoryPosts(c *gin.Context) {
	ctx := c.Request.Context()
	category, err := a.categories.Get(ctx, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, http.StatusNotFound, "category not found")
		default:
			respondError(c, http.StatusInternalServerError, "error loading category posts")
		}
		return
	}

	page := parsePage(c)
	posts := a.posts.ListByCategory(ctx, category.ID, service.PostFilter{
		Limit:         a.pageSize,
		Offset:        (page - 1) * a.pageSize,
		PublishedOnly: true,
	})

	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"posts":    a.toPostViews(ctx, posts),
		"page":     page,
	})
}
