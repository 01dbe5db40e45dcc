package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/quillpress/internal/config"
	"github.com/quillpress/internal/db"
	"github.com/quillpress/internal/identity"
	"github.com/quillpress/internal/service"
)

// 创建管理员账号，存储配置与服务端一致
func main() {
	var username, email, password string
	flag.StringVar(&username, "username", "admin", "admin username")
	flag.StringVar(&email, "email", "", "admin email")
	flag.StringVar(&password, "password", "", "admin password (at least 6 characters)")
	flag.Parse()

	if email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "usage: create_admin -email <email> -password <password> [-username admin]")
		os.Exit(2)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := db.Open(ctx, db.Options{
		Driver:        cfg.DocstoreDriver,
		DatabasePath:  cfg.DatabasePath,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	users := service.NewUserService(store, identity.NewLocalProvider(store))
	user, err := users.Register(ctx, service.RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
		IsAdmin:  true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create admin: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("admin created: %s <%s> (id %s)\n", user.Username, user.Email, user.ID)
}
