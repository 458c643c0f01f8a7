package song

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLibraryFile(t *testing.T) {
	entries := []FileSong{
		{
			ID:              "opening-set",
			AudioPath:       "/music/opening-set.flac",
			DurationSeconds: 240,
			Tempo:           120,
			KeyPitchClass:   "C",
			KeyMode:         "major",
			Sections: []FileSection{
				{Label: "verse", Start: 0, End: 60, Tempo: 120, KeyString: "C major", Energy: 40},
				{Label: "chorus", Start: 60, End: 120, Tempo: 120, KeyString: "C major", Energy: 70},
			},
		},
	}
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "library.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	reg, audioPaths, err := LoadLibraryFile(path)
	if err != nil {
		t.Fatalf("LoadLibraryFile: %v", err)
	}

	s, ok := reg.Get("opening-set")
	if !ok {
		t.Fatal("expected song to be registered")
	}
	if len(s.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(s.Sections))
	}
	if s.Sections[1].Label != "chorus" || s.Sections[1].Index != 1 {
		t.Fatalf("unexpected second section: %+v", s.Sections[1])
	}
	if audioPaths["opening-set"] != "/music/opening-set.flac" {
		t.Fatalf("audio path = %q", audioPaths["opening-set"])
	}
}
