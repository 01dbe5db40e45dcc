package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/quillpress/internal/db"
	"github.com/quillpress/internal/service"
)

const (
	sessionUserKey    = "user_id"
	currentUserCtxKey = "__current_user"
)

type registerRequest struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 注册新用户
func (a *API) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req, "username, email and password are required") {
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		respondError(c, http.StatusBadRequest, "passwords do not match")
		return
	}

	user, err := a.users.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUsername),
			errors.Is(err, service.ErrInvalidEmail),
			errors.Is(err, service.ErrWeakPassword):
			respondError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrEmailTaken):
			respondError(c, http.StatusConflict, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "registration failed, please try again")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "registration successful", "user": user})
}

// Login 校验邮箱密码并写入会话
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "email and password are required") {
		return
	}

	user, err := a.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusUnauthorized, "login unsuccessful, please check email and password")
		default:
			respondError(c, http.StatusInternalServerError, "login failed, please try again")
		}
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("save session failed")
		respondError(c, http.StatusInternalServerError, "could not save session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged in", "user": user})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		log.Warn().Err(err).Msg("clear session failed")
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the signed-in user.
func (a *API) Me(c *gin.Context) {
	user := a.currentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// currentUser loads the session user once per request. Stale sessions whose
// user no longer exists count as anonymous.
func (a *API) currentUser(c *gin.Context) *db.User {
	if cached, ok := c.Get(currentUserCtxKey); ok {
		user, _ := cached.(*db.User)
		return user
	}

	var user *db.User
	if id, ok := sessions.Default(c).Get(sessionUserKey).(string); ok && id != "" {
		loaded, err := a.users.Get(c.Request.Context(), id)
		if err != nil && !errors.Is(err, service.ErrUserNotFound) {
			log.Warn().Err(err).Str("user_id", id).Msg("load session user failed")
		}
		user = loaded
	}
	c.Set(currentUserCtxKey, user)
	return user
}

// AuthRequired 要求已登录
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.currentUser(c) == nil {
			respondError(c, http.StatusUnauthorized, "login required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminRequired 要求管理员权限，需放在 AuthRequired 之后
func (a *API) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := a.currentUser(c)
		if user == nil {
			respondError(c, http.StatusUnauthorized, "login required")
			c.Abort()
			return
		}
		if !user.IsAdmin {
			respondError(c, http.StatusForbidden, "you do not have permission to access the admin area")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Dashboard 返回后台统计
func (a *API) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	stats := a.posts.Stats(ctx)
	c.JSON(http.StatusOK, gin.H{
		"total_posts":     stats.Total,
		"published_posts": stats.Published,
		"draft_posts":     stats.Drafts,
		"categories":      len(a.categories.List(ctx)),
	})
}
