package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quillpress/internal/service"
)

// ListUsers 获取用户列表
func (a *API) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": a.users.List(c.Request.Context())})
}

// MakeAdmin 授予管理员权限
func (a *API) MakeAdmin(c *gin.Context) {
	id := c.Param("id")
	if err := a.users.MakeAdmin(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "user not found")
		default:
			respondError(c, http.StatusInternalServerError, "failed to update user")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user is now an admin"})
}
