package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LISTEN_ADDR", "DOCSTORE_DRIVER", "PAGE_SIZE", "UPLOAD_URL_PATH", "BLOBSTORE_DRIVER"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.DocstoreDriver != "sqlite" || cfg.BlobstoreDriver != "local" {
		t.Fatalf("drivers = %q/%q", cfg.DocstoreDriver, cfg.BlobstoreDriver)
	}
	if cfg.PageSize != 10 || cfg.UploadURLPath != "/static/uploads" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", " 9090 ")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("DOCSTORE_DRIVER", "Mongo")
	t.Setenv("PAGE_SIZE", "25")

	cfg := Load()
	if cfg.ListenAddr != ":9090" || cfg.DocstoreDriver != "mongo" || cfg.PageSize != 25 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv("PAGE_SIZE", "abc")
	if got := Load().PageSize; got != 10 {
		t.Fatalf("invalid page size should fall back, got %d", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("QUILLPRESS_DOTENV_TEST=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("QUILLPRESS_DOTENV_TEST", "")
	os.Unsetenv("QUILLPRESS_DOTENV_TEST")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("QUILLPRESS_DOTENV_TEST"); got != "from-file" {
		t.Fatalf("env = %q, want from-file", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}
