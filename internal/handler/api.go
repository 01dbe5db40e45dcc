package handler

import (
	"github.com/quillpress/internal/blobstore"
	"github.com/quillpress/internal/docstore"
	"github.com/quillpress/internal/identity"
	"github.com/quillpress/internal/service"
)

const (
	defaultPageSize = 10
	adminPageSize   = 50
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	posts         *service.PostService
	categories    *service.CategoryService
	categoryNames *service.CategoryNameCache
	users         *service.UserService
	media         *service.MediaService
	renderer      *service.Renderer
	pageSize      int
}

// Dependencies are the backends the handlers are built on.
type Dependencies struct {
	Store    docstore.Store
	Blobs    blobstore.Store
	Identity identity.Provider
	PageSize int
}

// NewAPI constructs a handler set with shared services. The category name
// cache lives as long as the API.
func NewAPI(deps Dependencies) *API {
	provider := deps.Identity
	if provider == nil {
		provider = identity.NewLocalProvider(deps.Store)
	}
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	categories := service.NewCategoryService(deps.Store)
	return &API{
		posts:         service.NewPostService(deps.Store, deps.Blobs),
		categories:    categories,
		categoryNames: service.NewCategoryNameCache(categories),
		users:         service.NewUserService(deps.Store, provider),
		media:         service.NewMediaService(deps.Store, deps.Blobs),
		renderer:      service.NewRenderer(),
		pageSize:      pageSize,
	}
}

// Users exposes the user service for bootstrap scripts.
func (a *API) Users() *service.UserService {
	return a.users
}
