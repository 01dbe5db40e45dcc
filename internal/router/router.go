package router

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/quillpress/internal/handler"
)

const sessionName = "quillpress_session"

// Options configures SetupRouter. UploadDir is served under UploadURLPath
// when set, which the local blob backend relies on.
type Options struct {
	SessionSecret string
	UploadDir     string
	UploadURLPath string
	SecureCookies bool
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	// 静态文件服务
	if dir := strings.TrimSpace(opts.UploadDir); dir != "" {
		urlPath := strings.TrimRight(strings.TrimSpace(opts.UploadURLPath), "/")
		if urlPath == "" {
			urlPath = "/static/uploads"
		}
		r.Static(urlPath, dir)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	apiGroup := r.Group("/api")
	{
		auth := apiGroup.Group("/auth")
		{
			auth.POST("/register", api.Register)
			auth.POST("/login", api.Login)
			auth.POST("/logout", api.Logout)
			auth.GET("/me", api.Me)
		}

		apiGroup.GET("/posts", api.ListPosts)
		apiGroup.GET("/posts/:id", api.GetPost)
		apiGroup.GET("/categories", api.ListCategories)
		apiGroup.GET("/categories/:id/posts", api.CategoryPosts)
	}

	// 后台管理路由
	admin := r.Group("/admin/api")
	admin.Use(api.AuthRequired(), api.AdminRequired())
	{
		admin.GET("/dashboard", api.Dashboard)

		admin.GET("/posts", api.AdminListPosts)
		admin.GET("/posts/:id", api.AdminGetPost)
		admin.POST("/posts", api.CreatePost)
		admin.PUT("/posts/:id", api.UpdatePost)
		admin.DELETE("/posts/:id", api.DeletePost)

		admin.GET("/categories", api.ListCategories)
		admin.POST("/categories", api.CreateCategory)
		admin.DELETE("/categories/:id", api.DeleteCategory)

		admin.GET("/media", api.ListMedia)
		admin.POST("/media", api.UploadMedia)
		admin.DELETE("/media/:name", api.DeleteMedia)

		admin.GET("/users", api.ListUsers)
		admin.POST("/users/:id/make-admin", api.MakeAdmin)
	}

	return r
}
