package song

import "testing"

func TestRegistrySectionLookup(t *testing.T) {
	reg := NewRegistry()
	s := &Song{
		ID:              "abc123",
		DurationSeconds: 180,
		Tempo:           120,
		Key:             Key{PitchClass: "C", Mode: "major"},
		Sections: []Section{
			{SongID: "abc123", Index: 0, Label: "verse", Start: 0, End: 30},
			{SongID: "abc123", Index: 1, Label: "chorus", Start: 30, End: 60},
		},
	}
	reg.Add(s)

	got, sec, err := reg.Section("abc123", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != s.ID {
		t.Fatalf("expected song %s, got %s", s.ID, got.ID)
	}
	if sec.Label != "chorus" {
		t.Fatalf("expected chorus, got %s", sec.Label)
	}
}

func TestRegistrySectionMissing(t *testing.T) {
	reg := NewRegistry()
	if _, _, err := reg.Section("nope", 0); err == nil {
		t.Fatal("expected error for unknown song")
	}

	reg.Add(&Song{ID: "x", Sections: []Section{{Index: 0}}})
	if _, _, err := reg.Section("x", 5); err == nil {
		t.Fatal("expected error for out-of-range section")
	}
}

func TestBeatDuration(t *testing.T) {
	s := &Song{Tempo: 120}
	if got := s.BeatDuration(); got != 0.5 {
		t.Fatalf("expected 0.5s per beat at 120bpm, got %v", got)
	}
}
