package stemstore

import (
	"path/filepath"
	"testing"

	"github.com/streamsplice/junction/internal/audio"
	"github.com/streamsplice/junction/internal/audioio"
)

func writeTestStems(t *testing.T, root, songID string, sampleRate, n int) {
	t.Helper()
	dir := filepath.Join(root, songID)
	for name, filename := range stemFilenames {
		b := audio.NewBuffer(sampleRate, n)
		for i := range b.Left {
			b.Left[i] = float32(i) / float32(n)
			b.Right[i] = float32(i) / float32(n)
		}
		_ = name
		if err := audioio.WriteWAV(filepath.Join(dir, filename), b); err != nil {
			t.Fatalf("write stem %s: %v", filename, err)
		}
	}
}

func TestHasStemsMissingDirectory(t *testing.T) {
	s := New(t.TempDir(), 4)
	if s.HasStems("nope") {
		t.Fatal("expected HasStems to be false for missing directory")
	}
}

func TestLoadSectionCacheHit(t *testing.T) {
	root := t.TempDir()
	writeTestStems(t, root, "song1", 44100, 44100)

	s := New(root, 4)
	first, err := s.LoadSection("song1", 0, 0, 1.0)
	if err != nil {
		t.Fatalf("load section: %v", err)
	}
	second, err := s.LoadSection("song1", 0, 0, 1.0)
	if err != nil {
		t.Fatalf("load section (cached): %v", err)
	}
	if len(first) != 4 || len(second) != 4 {
		t.Fatalf("expected 4 stems, got %d/%d", len(first), len(second))
	}
}

func TestLoadSectionUnavailable(t *testing.T) {
	s := New(t.TempDir(), 4)
	if _, err := s.LoadSection("absent", 0, 0, 1.0); err == nil {
		t.Fatal("expected StemsUnavailable error")
	}
}

func TestLRUEviction(t *testing.T) {
	root := t.TempDir()
	writeTestStems(t, root, "a", 44100, 4410)
	writeTestStems(t, root, "b", 44100, 4410)
	writeTestStems(t, root, "c", 44100, 4410)

	s := New(root, 2)
	if _, err := s.LoadSection("a", 0, 0, 0.1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadSection("b", 0, 0, 0.1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadSection("c", 0, 0, 0.1); err != nil {
		t.Fatal(err)
	}
	if s.ll.Len() != 2 {
		t.Fatalf("expected LRU length capped at 2, got %d", s.ll.Len())
	}
	if _, ok := s.index[cacheKey{songID: "a", sectionIndex: 0}]; ok {
		t.Fatal("expected oldest entry 'a' to be evicted")
	}
}
