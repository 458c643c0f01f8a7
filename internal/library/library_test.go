package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/streamsplice/junction/internal/cache"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	return c
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestScanFindsSupportedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mp3"), []byte("mp3 bytes"))
	writeFile(t, filepath.Join(root, "b.flac"), []byte("flac bytes"))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("ignore me"))

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(sub, "c.mp3"), []byte("nested mp3"))

	s := NewScanner(newTestCache(t), nil)
	progress := make(chan Progress, 16)
	entries, err := s.Scan(context.Background(), []string{root}, progress)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	for range progress {
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(entries), entries)
	}
	for _, e := range entries {
		if !e.NeedsAnalyze {
			t.Fatalf("entry %s should need analysis with an empty cache", e.Path)
		}
		if e.ContentHash == "" {
			t.Fatalf("entry %s has empty content hash", e.Path)
		}
	}
}

func TestScanSkipsCachedFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.mp3")
	writeFile(t, path, []byte("known bytes"))

	c := newTestCache(t)
	hash, err := ComputeContentHash(path)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := c.SaveAnalysisResult(hash, []byte(`{"duration_seconds":1}`)); err != nil {
		t.Fatalf("save analysis result: %v", err)
	}

	s := NewScanner(c, nil)
	progress := make(chan Progress, 16)
	entries, err := s.Scan(context.Background(), []string{root}, progress)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	for range progress {
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].NeedsAnalyze {
		t.Fatal("cached file should not need analysis")
	}
}

func TestComputeContentHashStable(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.mp3")
	writeFile(t, path, []byte("stable bytes"))

	h1, err := ComputeContentHash(path)
	if err != nil {
		t.Fatalf("hash 1: %v", err)
	}
	h2, err := ComputeContentHash(path)
	if err != nil {
		t.Fatalf("hash 2: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash not stable: %s vs %s", h1, h2)
	}
	if len(h1) != 32 {
		t.Fatalf("expected 32-char hash prefix, got %d", len(h1))
	}
}
