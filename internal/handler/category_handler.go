package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quillpress/internal/service"
)

const (
	maxCategoryName        = 50
	maxCategoryDescription = 200
)

type categoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ListCategories 获取分类列表
func (a *API) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": a.categories.List(c.Request.Context())})
}

// CreateCategory 创建新分类
func (a *API) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req, "category name is required") {
		return
	}
	if len([]rune(strings.TrimSpace(req.Name))) > maxCategoryName ||
		len([]rune(strings.TrimSpace(req.Description))) > maxCategoryDescription {
		respondError(c, http.StatusBadRequest, "category name or description is too long")
		return
	}

	category, err := a.categories.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNameRequired):
			respondError(c, http.StatusBadRequest, "category name is required")
		default:
			respondError(c, http.StatusInternalServerError, "failed to create category")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "category created", "category": category})
}

// DeleteCategory 删除分类，被文章引用时拒绝
func (a *API) DeleteCategory(c *gin.Context) {
	ctx := c.Request.Context()

	category, err := a.categories.Get(ctx, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, http.StatusNotFound, "category not found")
		default:
			respondError(c, http.StatusInternalServerError, "failed to delete category")
		}
		return
	}

	if err := a.categories.Delete(ctx, category); err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryInUse):
			respondError(c, http.StatusConflict, "category is used by posts and cannot be deleted")
		default:
			respondError(c, http.StatusInternalServerError, "failed to delete category")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
}
