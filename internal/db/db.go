package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quillpress/internal/docstore"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Options 选择文档存储后端及其连接参数。
type Options struct {
	Driver        string
	DatabasePath  string
	MongoURI      string
	MongoDatabase string
}

// Open 打开文档存储。
// Driver 为空时使用 SQLite，DatabasePath 为空时回退到 quillpress.db。
func Open(ctx context.Context, opts Options) (docstore.Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverSQLite:
		return openSQLite(opts.DatabasePath)
	case DriverMongo:
		if strings.TrimSpace(opts.MongoURI) == "" {
			return nil, errors.New("MONGO_URI is required for the mongo driver")
		}
		store, err := docstore.NewMongoStore(ctx, opts.MongoURI, opts.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown docstore driver %q", opts.Driver)
	}
}

func openSQLite(databasePath string) (docstore.Store, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "quillpress.db"
	}

	if err := ensureParentDir(path); err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	store, err := docstore.NewGormStore(gdb)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
