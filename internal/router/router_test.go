package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quillpress/internal/blobstore"
	"github.com/quillpress/internal/docstore"
	"github.com/quillpress/internal/handler"
	"github.com/quillpress/internal/identity"
)

type testServer struct {
	router    *gin.Engine
	api       *handler.API
	uploadDir string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	store, err := docstore.NewGormStore(gdb)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	uploadDir := t.TempDir()
	blobs, err := blobstore.NewLocalStore(uploadDir, "/static/uploads")
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}

	api := handler.NewAPI(handler.Dependencies{
		Store:    store,
		Blobs:    blobs,
		Identity: identity.NewLocalProvider(store).WithCost(bcrypt.MinCost),
		PageSize: 2,
	})
	r := SetupRouter(api, Options{
		SessionSecret: "test-secret",
		UploadDir:     uploadDir,
		UploadURLPath: "/static/uploads",
	})
	return &testServer{router: r, api: api, uploadDir: uploadDir}
}

func (s *testServer) do(t *testing.T, req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) doJSON(t *testing.T, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req, cookies)
}

func (s *testServer) doForm(t *testing.T, method, path string, fields map[string][]string, file *formFile, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, v := range values {
			_ = w.WriteField(key, v)
		}
	}
	if file != nil {
		fw, err := w.CreateFormFile(file.field, file.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write(file.data)
	}
	_ = w.Close()

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.do(t, req, cookies)
}

type formFile struct {
	field string
	name  string
	data  []byte
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

// loginAs registers a user and returns its session cookies.
func (s *testServer) loginAs(t *testing.T, username string, admin bool) []*http.Cookie {
	t.Helper()
	email := username + "@example.com"
	rr := s.doJSON(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username, "email": email, "password": "secret1",
	}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rr.Code, rr.Body.String())
	}
	if admin {
		id := decode(t, rr)["user"].(map[string]any)["id"].(string)
		if err := s.api.Users().MakeAdmin(context.Background(), id); err != nil {
			t.Fatalf("make admin: %v", err)
		}
	}

	rr = s.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": "secret1",
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rr.Code, rr.Body.String())
	}
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login did not set a session cookie")
	}
	return cookies
}

func TestPing(t *testing.T) {
	s := setupTestServer(t)

	rr := s.do(t, httptest.NewRequest(http.MethodGet, "/ping", nil), nil)
	if rr.Code != http.StatusOK || decode(t, rr)["message"] != "pong" {
		t.Fatalf("unexpected response: %d %s", rr.Code, rr.Body.String())
	}
}

func TestSetupRouterServesUploads(t *testing.T) {
	s := setupTestServer(t)
	if err := os.WriteFile(filepath.Join(s.uploadDir, "example.txt"), []byte("hello uploads"), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	rr := s.do(t, httptest.NewRequest(http.MethodGet, "/static/uploads/example.txt", nil), nil)
	if rr.Code != http.StatusOK || rr.Body.String() != "hello uploads" {
		t.Fatalf("unexpected response: %d %q", rr.Code, rr.Body.String())
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := setupTestServer(t)

	rr := s.do(t, httptest.NewRequest(http.MethodGet, "/admin/api/dashboard", nil), nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rr.Code)
	}

	reader := s.loginAs(t, "reader", false)
	rr = s.do(t, httptest.NewRequest(http.MethodGet, "/admin/api/dashboard", nil), reader)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("non-admin: expected 403, got %d", rr.Code)
	}

	admin := s.loginAs(t, "boss", true)
	rr = s.do(t, httptest.NewRequest(http.MethodGet, "/admin/api/dashboard", nil), admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := setupTestServer(t)
	s.loginAs(t, "ann", false)

	rr := s.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ann@example.com", "password": "wrong-one",
	}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	rr = s.doJSON(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "ann", "email": "other@example.com", "password": "secret1",
	}, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate username: expected 409, got %d", rr.Code)
	}
}

func TestContentLifecycle(t *testing.T) {
	s := setupTestServer(t)
	admin := s.loginAs(t, "boss", true)

	rr := s.doJSON(t, http.MethodPost, "/admin/api/categories", map[string]string{"name": "Tech"}, admin)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create category: %d %s", rr.Code, rr.Body.String())
	}
	categoryID := decode(t, rr)["category"].(map[string]any)["id"].(string)

	rr = s.doForm(t, http.MethodPost, "/admin/api/posts", map[string][]string{
		"title":      {"Hello"},
		"content":    {"# Hello\n\nworld"},
		"categories": {categoryID},
		"action":     {"publish"},
	}, nil, admin)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create post: %d %s", rr.Code, rr.Body.String())
	}
	post := decode(t, rr)["post"].(map[string]any)
	postID := post["id"].(string)
	if post["is_published"] != true {
		t.Fatalf("post should be published: %v", post)
	}

	draft := s.doForm(t, http.MethodPost, "/admin/api/posts", map[string][]string{
		"title":   {"Draft"},
		"content": {"wip"},
		"action":  {"save_draft"},
	}, nil, admin)
	if draft.Code != http.StatusCreated {
		t.Fatalf("create draft: %d %s", draft.Code, draft.Body.String())
	}
	draftID := decode(t, draft)["post"].(map[string]any)["id"].(string)

	rr = s.do(t, httptest.NewRequest(http.MethodGet, "/api/posts", nil), nil)
	posts := decode(t, rr)["posts"].([]any)
	if len(posts) != 1 || posts[0].(map[string]any)["id"] != postID {
		t.Fatalf("public list = %v", posts)
	}
	refs := posts[0].(map[string]any)["category_refs"].([]any)
	if len(refs) != 1 || refs[0].(map[string]any)["name"] != "Tech" {
		t.Fatalf("category refs = %v", refs)
	}

	rr = s.do(t, httptest.NewRequest(http.MethodGet, "/api/posts/"+draftID, nil), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("anonymous draft read: expected 404, got %d", rr.Code)
	}
	rr = s.do(t, httptest.NewRequest(http.MethodGet, "/api/posts/"+draftID, nil), admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin draft read: expected 200, got %d", rr.Code)
	}

	rr = s.do(t, httptest.NewRequest(http.MethodGet, "/api/posts/"+postID, nil), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get post: %d", rr.Code)
	}
	if html := decode(t, rr)["post"].(map[string]any)["html"].(string); html == "" {
		t.Fatal("expected rendered html")
	}

	rr = s.do(t, httptest.NewRequest(http.MethodGet, "/api/categories/"+categoryID+"/posts", nil), nil)
	if rr.Code != http.StatusOK || len(decode(t, rr)["posts"].([]any)) != 1 {
		t.Fatalf("category posts: %d %s", rr.Code, rr.Body.String())
	}

	rr = s.do(t, httptest.NewRequest(http.MethodDelete, "/admin/api/categories/"+categoryID, nil), admin)
	if rr.Code != http.StatusConflict {
		t.Fatalf("delete referenced category: expected 409, got %d", rr.Code)
	}

	rr = s.doForm(t, http.MethodPut, "/admin/api/posts/"+postID, map[string][]string{
		"title": {"Hello again"},
	}, nil, admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("update post: %d %s", rr.Code, rr.Body.String())
	}
	updated := decode(t, rr)["post"].(map[string]any)
	if updated["title"] != "Hello again" || updated["is_published"] != true || updated["content"] != "# Hello\n\nworld" {
		t.Fatalf("partial update changed other fields: %v", updated)
	}

	rr = s.do(t, httptest.NewRequest(http.MethodDelete, "/admin/api/posts/"+postID, nil), admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete post: %d", rr.Code)
	}
	rr = s.do(t, httptest.NewRequest(http.MethodDelete, "/admin/api/categories/"+categoryID, nil), admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete category: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	rr = s.do(t, httptest.NewRequest(http.MethodGet, "/api/posts/"+postID, nil), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("deleted post: expected 404, got %d", rr.Code)
	}
}

func TestCreatePostRejectsNonImage(t *testing.T) {
	s := setupTestServer(t)
	admin := s.loginAs(t, "boss", true)

	rr := s.doForm(t, http.MethodPost, "/admin/api/posts", map[string][]string{
		"title":   {"Hello"},
		"content": {"body"},
	}, &formFile{field: "featured_image", name: "evil.exe", data: []byte("MZ")}, admin)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestPublicListPaginates(t *testing.T) {
	s := setupTestServer(t)
	admin := s.loginAs(t, "boss", true)

	for i := 0; i < 3; i++ {
		rr := s.doForm(t, http.MethodPost, "/admin/api/posts", map[string][]string{
			"title":   {fmt.Sprintf("post %d", i)},
			"content": {"body"},
			"action":  {"publish"},
		}, nil, admin)
		if rr.Code != http.StatusCreated {
			t.Fatalf("create post %d: %d", i, rr.Code)
		}
	}

	first := decode(t, s.do(t, httptest.NewRequest(http.MethodGet, "/api/posts?page=1", nil), nil))["posts"].([]any)
	second := decode(t, s.do(t, httptest.NewRequest(http.MethodGet, "/api/posts?page=2", nil), nil))["posts"].([]any)
	if len(first) != 2 || len(second) != 1 {
		t.Fatalf("page sizes = %d, %d", len(first), len(second))
	}
	if first[0].(map[string]any)["title"] != "post 2" {
		t.Fatalf("newest post should come first, got %v", first[0])
	}
}
