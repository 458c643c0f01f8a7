package playlist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/streamsplice/junction/internal/transition"
)

func TestLoadEntriesFile(t *testing.T) {
	wire := []WireEntry{
		{SongID: "a", StartSection: 0, EndSection: 0, Transition: &transition.WireParams{
			Kind: "gap",
			Gap: &transition.WireGapParams{
				GapBeats:        2,
				FadeWindowBeats: 8,
				FadeBottom:      0.33,
				StemsToFade:     []string{"drums", "bass", "other"},
			},
		}},
		{SongID: "b", StartSection: 0, EndSection: 1},
	}
	data, err := json.Marshal(wire)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "entries.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	entries, err := LoadEntriesFile(path)
	if err != nil {
		t.Fatalf("LoadEntriesFile: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Transition == nil || entries[0].Transition.Kind != transition.KindGap {
		t.Fatalf("expected entry 0 to carry a Gap transition, got %+v", entries[0].Transition)
	}
	if entries[1].Transition != nil {
		t.Fatalf("expected entry 1 to have no transition, got %+v", entries[1].Transition)
	}
}
