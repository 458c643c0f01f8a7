package boundary

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseObjectURL(t *testing.T) {
	scheme, bucket, key, err := ParseObjectURL("s3://my-bucket/path/to/key.wav")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if scheme != "s3" || bucket != "my-bucket" || key != "path/to/key.wav" {
		t.Fatalf("got (%s, %s, %s)", scheme, bucket, key)
	}
}

func TestParseObjectURLInvalid(t *testing.T) {
	if _, _, _, err := ParseObjectURL("not-a-url"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestLocalStoreUploadDownloadExists(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}

	srcPath := filepath.Join(t.TempDir(), "source.txt")
	if err := os.WriteFile(srcPath, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	ctx := context.Background()
	url, err := store.Upload(ctx, srcPath, "abc123/analysis.json")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	exists, err := store.Exists(ctx, url)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("expected uploaded object to exist")
	}

	missingExists, err := store.Exists(ctx, "file://local/does/not/exist")
	if err != nil {
		t.Fatalf("exists(missing): %v", err)
	}
	if missingExists {
		t.Fatal("expected missing object to report false")
	}

	destPath := filepath.Join(t.TempDir(), "downloaded.txt")
	if err := store.Download(ctx, url, destPath); err != nil {
		t.Fatalf("download: %v", err)
	}
	data, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("read downloaded: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("downloaded content = %q, want %q", data, "hello")
	}
}

func TestLocalStoreDownloadMissingSource(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	err = store.Download(context.Background(), "file://local/nope.wav", filepath.Join(t.TempDir(), "out.wav"))
	if err == nil {
		t.Fatal("expected error downloading nonexistent object")
	}
}
