package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quillpress/internal/service"
)

const (
	maxTitleLength           = 200
	maxExcerptLength         = 500
	maxMetaDescriptionLength = 160
)

var allowedImageExts = []string{".png", ".jpg", ".jpeg", ".gif"}

// AdminListPosts 后台文章列表，包含草稿
func (a *API) AdminListPosts(c *gin.Context) {
	page := parsePage(c)
	posts := a.posts.List(c.Request.Context(), service.PostFilter{
		Limit:  adminPageSize,
		Offset: (page - 1) * adminPageSize,
	})
	c.JSON(http.StatusOK, gin.H{
		"posts": a.toPostViews(c.Request.Context(), posts),
		"page":  page,
	})
}

// AdminGetPost 后台预览，草稿同样可见
func (a *API) AdminGetPost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := a.posts.Get(ctx, c.Param("id"))
	if err != nil {
		a.respondPostError(c, err, "error loading post")
		return
	}
	view := a.toPostView(ctx, *post)
	view.HTML = string(a.renderer.Render(post.Content))
	c.JSON(http.StatusOK, gin.H{"post": view})
}

// CreatePost 创建文章，action=publish 时直接发布
func (a *API) CreatePost(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	content := c.PostForm("content")
	if title == "" || strings.TrimSpace(content) == "" {
		respondError(c, http.StatusBadRequest, "title and content are required")
		return
	}
	excerpt := c.PostForm("excerpt")
	meta := c.PostForm("meta_description")
	if msg := validatePostLengths(title, excerpt, meta); msg != "" {
		respondError(c, http.StatusBadRequest, msg)
		return
	}

	image, ok := a.featuredImage(c)
	if !ok {
		return
	}

	post, err := a.posts.Create(c.Request.Context(), service.PostInput{
		Title:           title,
		Content:         content,
		Author:          a.currentUser(c),
		Categories:      formStrings(c.PostFormArray("categories")),
		IsPublished:     c.PostForm("action") == "publish",
		Excerpt:         excerpt,
		MetaDescription: meta,
		FeaturedImage:   image,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "error creating post")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": publishMessage(post.IsPublished), "post": a.toPostView(c.Request.Context(), *post)})
}

// UpdatePost 部分更新文章，只修改请求中出现的字段
func (a *API) UpdatePost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := a.posts.Get(ctx, c.Param("id"))
	if err != nil {
		a.respondPostError(c, err, "error updating post")
		return
	}

	var update service.PostUpdate
	if v, ok := c.GetPostForm("title"); ok {
		v = strings.TrimSpace(v)
		if v == "" {
			respondError(c, http.StatusBadRequest, "title cannot be empty")
			return
		}
		update.Title = &v
	}
	if v, ok := c.GetPostForm("content"); ok {
		update.Content = &v
	}
	if values, ok := c.GetPostFormArray("categories"); ok {
		categories := formStrings(values)
		update.Categories = &categories
	}
	if v, ok := c.GetPostForm("action"); ok {
		published := v == "publish"
		update.IsPublished = &published
	} else if v, ok := c.GetPostForm("is_published"); ok {
		published := formBool(v)
		update.IsPublished = &published
	}
	if v, ok := c.GetPostForm("excerpt"); ok {
		update.Excerpt = &v
	}
	if v, ok := c.GetPostForm("meta_description"); ok {
		update.MetaDescription = &v
	}
	if msg := validatePostLengths(deref(update.Title), deref(update.Excerpt), deref(update.MetaDescription)); msg != "" {
		respondError(c, http.StatusBadRequest, msg)
		return
	}

	image, ok := a.featuredImage(c)
	if !ok {
		return
	}
	switch {
	case image != nil:
		update.FeaturedImage = service.ReplaceImage(*image)
	case formBool(c.PostForm("clear_featured_image")):
		update.FeaturedImage = service.ClearImage()
	}

	if err := a.posts.Update(ctx, post, update); err != nil {
		a.respondPostError(c, err, "error updating post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": publishMessage(post.IsPublished), "post": a.toPostView(ctx, *post)})
}

// DeletePost 删除文章
func (a *API) DeletePost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := a.posts.Get(ctx, c.Param("id"))
	if err != nil {
		a.respondPostError(c, err, "error deleting post")
		return
	}
	if err := a.posts.Delete(ctx, post); err != nil {
		respondError(c, http.StatusInternalServerError, "error deleting post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

func (a *API) respondPostError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		respondError(c, http.StatusNotFound, "post not found")
	case errors.Is(err, service.ErrImageNotStored):
		respondError(c, http.StatusBadGateway, "featured image could not be stored")
	default:
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

// featuredImage reads the optional featured_image file. It writes the error
// response itself and reports false when the request must stop.
func (a *API) featuredImage(c *gin.Context) (*service.Upload, bool) {
	upload, err := readUpload(c, "featured_image")
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "featured image is too large")
		} else {
			respondError(c, http.StatusBadRequest, "invalid featured image")
		}
		return nil, false
	}
	if upload == nil {
		return nil, true
	}
	if !hasAllowedImageExt(upload.Filename) {
		respondError(c, http.StatusBadRequest, "images only")
		return nil, false
	}
	return upload, true
}

func hasAllowedImageExt(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range allowedImageExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func validatePostLengths(title, excerpt, meta string) string {
	switch {
	case len([]rune(title)) > maxTitleLength:
		return "title is too long"
	case len([]rune(excerpt)) > maxExcerptLength:
		return "excerpt is too long"
	case len([]rune(meta)) > maxMetaDescriptionLength:
		return "meta description is too long"
	}
	return ""
}

func publishMessage(published bool) string {
	if published {
		return "post published successfully"
	}
	return "post saved as draft"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
