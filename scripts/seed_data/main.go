package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/quillpress/internal/config"
	"github.com/quillpress/internal/db"
	"github.com/quillpress/internal/docstore"
	"github.com/quillpress/internal/identity"
	"github.com/quillpress/internal/service"
)

type samplePost struct {
	title      string
	content    string
	excerpt    string
	categories []string
	published  bool
}

var sampleCategories = []struct {
	name        string
	description string
}{
	{"Go", "Go language notes"},
	{"Web", "Web development"},
	{"Life", "Everything else"},
}

var samplePosts = []samplePost{
	{
		title:      "Building web services in Go",
		content:    "## Why Go\n\nGo has a small standard library surface and great concurrency primitives.\n\n```go\nfmt.Println(\"hello\")\n```",
		excerpt:    "Notes on building HTTP services with Go.",
		categories: []string{"Go", "Web"},
		published:  true,
	},
	{
		title:      "Markdown everywhere",
		content:    "Posts are written in **Markdown** and rendered on read.\n\n| a | b |\n|---|---|\n| 1 | 2 |",
		excerpt:    "How post content is rendered.",
		categories: []string{"Web"},
		published:  true,
	},
	{
		title:      "Weekend plans",
		content:    "Still a draft.",
		categories: []string{"Life"},
	},
}

// 测试数据生成器
func main() {
	var password string
	flag.StringVar(&password, "password", "admin123", "password for the seeded admin")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal("load .env: ", err)
	}
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := db.Open(ctx, db.Options{
		Driver:        cfg.DocstoreDriver,
		DatabasePath:  cfg.DatabasePath,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
	})
	if err != nil {
		log.Fatal("数据库初始化失败: ", err)
	}
	defer store.Close()

	fmt.Println("开始生成测试数据...")
	if err := seed(ctx, store, password); err != nil {
		log.Fatal(err)
	}
	fmt.Println("测试数据生成完成！")
	fmt.Printf("用户: admin@example.com (密码: %s)\n", password)
}

// seed creates an admin, sample categories and sample posts. An existing
// admin account is reused.
func seed(ctx context.Context, store docstore.Store, password string) error {
	users := service.NewUserService(store, identity.NewLocalProvider(store))
	admin, err := users.Register(ctx, service.RegisterInput{
		Username: "admin",
		Email:    "admin@example.com",
		Password: password,
		IsAdmin:  true,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrEmailTaken):
		fmt.Println("用户已存在，跳过创建")
		admin, err = users.Authenticate(ctx, "admin@example.com", password)
		if err != nil {
			return fmt.Errorf("reuse admin: %w", err)
		}
	default:
		return fmt.Errorf("create admin: %w", err)
	}

	categories := service.NewCategoryService(store)
	ids := make(map[string]string, len(sampleCategories))
	for _, c := range sampleCategories {
		created, err := categories.Create(ctx, c.name, c.description)
		if err != nil {
			return fmt.Errorf("create category %q: %w", c.name, err)
		}
		ids[c.name] = created.ID
	}

	posts := service.NewPostService(store, nil)
	for _, p := range samplePosts {
		refs := make([]string, 0, len(p.categories))
		for _, name := range p.categories {
			refs = append(refs, ids[name])
		}
		if _, err := posts.Create(ctx, service.PostInput{
			Title:       p.title,
			Content:     p.content,
			Author:      admin,
			Categories:  refs,
			IsPublished: p.published,
			Excerpt:     p.excerpt,
		}); err != nil {
			return fmt.Errorf("create post %q: %w", p.title, err)
		}
	}
	return nil
}
