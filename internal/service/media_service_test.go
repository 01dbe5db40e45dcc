package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMediaService_UploadListDelete(t *testing.T) {
	blobs := setupTestBlobs(t)
	clock := newStepClock()
	svc := NewMediaService(setupTestStore(t), blobs).WithClock(clock.Now)
	ctx := context.Background()

	item, err := svc.Upload(ctx, Upload{Filename: "Holiday Photo.PNG", Data: pngBytes(t)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if item.Name != "20240101-000001-Holiday_Photo.PNG" {
		t.Fatalf("name = %q", item.Name)
	}
	if item.ContentType != "image/png" || item.URL != "/static/uploads/media/"+item.Name {
		t.Fatalf("unexpected item: %+v", item)
	}
	if _, err := os.Stat(filepath.Join(blobs.Root(), "media", item.Name)); err != nil {
		t.Fatalf("blob missing: %v", err)
	}

	second, err := svc.Upload(ctx, Upload{Filename: "b.png", Data: pngBytes(t)})
	if err != nil {
		t.Fatalf("upload second: %v", err)
	}
	items := svc.List(ctx)
	if len(items) != 2 || items[0].Name != second.Name {
		t.Fatalf("list = %+v", items)
	}

	if err := svc.Delete(ctx, item.Name); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(blobs.Root(), "media", item.Name)); !os.IsNotExist(err) {
		t.Fatalf("blob should be removed, stat err = %v", err)
	}
	if err := svc.Delete(ctx, item.Name); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound, got %v", err)
	}
}

func TestMediaService_UploadRejects(t *testing.T) {
	svc := NewMediaService(setupTestStore(t), setupTestBlobs(t))
	ctx := context.Background()

	tests := []struct {
		name   string
		upload Upload
		want   error
	}{
		{"empty", Upload{Filename: "a.png"}, ErrMediaEmpty},
		{"extension", Upload{Filename: "a.svg", Data: []byte("<svg/>")}, ErrMediaType},
		{"not an image", Upload{Filename: "a.png", Data: []byte("hello")}, ErrMediaUnreadable},
		{"mismatched header", Upload{Filename: "a.gif", Data: pngBytes(t)}, ErrMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Upload(ctx, tt.upload); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if err := svc.Delete(ctx, "../etc/passwd"); !errors.Is(err, ErrInvalidMediaName) {
		t.Fatalf("expected ErrInvalidMediaName, got %v", err)
	}
}

func TestMediaService_BlobFailure(t *testing.T) {
	svc := NewMediaService(setupTestStore(t), failingBlobs{})

	_, err := svc.Upload(context.Background(), Upload{Filename: "a.png", Data: pngBytes(t)})
	if !errors.Is(err, ErrStoreFailure) {
		t.Fatalf("expected ErrStoreFailure, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My cover.png", "My_cover.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\ann\photo.jpg`, "photo.jpg"},
		{"café.gif", "cafe.gif"},
		{".hidden", "hidden"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Fatalf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if got := SanitizeFilename("日本語"); got == "" || strings.ContainsAny(got, "/\\") {
		t.Fatalf("expected generated fallback name, got %q", got)
	}
}

func TestRendererSanitizes(t *testing.T) {
	out := string(NewRenderer().Render("# Title\n\n<script>alert(1)</script>\n\nhttps://example.com"))

	if !strings.Contains(out, "<h1") || !strings.Contains(out, "Title") {
		t.Fatalf("heading missing: %s", out)
	}
	if strings.Contains(out, "<script") {
		t.Fatalf("script not removed: %s", out)
	}
	if !strings.Contains(out, `href="https://example.com"`) {
		t.Fatalf("link not generated: %s", out)
	}
}
