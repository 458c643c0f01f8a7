package cache

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/streamsplice/junction/internal/audio"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	return c
}

func TestHashPrefixLength(t *testing.T) {
	prefix := HashPrefix([]byte("some audio bytes"))
	if len(prefix) != hashPrefixLen {
		t.Fatalf("expected %d hex chars, got %d (%s)", hashPrefixLen, len(prefix), prefix)
	}
}

func TestCompositeLRCKeyStable(t *testing.T) {
	k1 := CompositeLRCKey("abc123", "la la la")
	k2 := CompositeLRCKey("abc123", "la la la")
	if k1 != k2 {
		t.Fatal("composite key not deterministic")
	}
	k3 := CompositeLRCKey("abc123", "different lyrics")
	if k1 == k3 {
		t.Fatal("composite key did not vary with lyrics text")
	}
}

// TestAnalysisResultRoundTrip is Testable Property 10: a cached
// analysis record round-trips bitwise on its numeric fields.
func TestAnalysisResultRoundTrip(t *testing.T) {
	c := newTestCache(t)
	hash := HashPrefix([]byte("song bytes"))

	type record struct {
		DurationSeconds float64 `json:"duration_seconds"`
		TempoBPM        float64 `json:"tempo_bpm"`
	}
	want := record{DurationSeconds: 183.456789, TempoBPM: 127.5}
	raw, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if _, ok := c.AnalysisResult(hash); ok {
		t.Fatal("expected miss before save")
	}

	if err := c.SaveAnalysisResult(hash, raw); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok := c.AnalysisResult(hash)
	if !ok {
		t.Fatal("expected hit after save")
	}
	var decoded record
	if err := json.Unmarshal(got, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, want)
	}
}

func TestAnalysisResultOnDiskPath(t *testing.T) {
	c := newTestCache(t)
	hash := HashPrefix([]byte("x"))
	if err := c.SaveAnalysisResult(hash, json.RawMessage(`{"ok":true}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	want := filepath.Join(c.root, hash+".json")
	if got := c.analysisPath(hash); got != want {
		t.Fatalf("path = %s, want %s", got, want)
	}
}

func TestSaveAnalysisResultRejectsInvalidJSON(t *testing.T) {
	c := newTestCache(t)
	hash := HashPrefix([]byte("y"))
	if err := c.SaveAnalysisResult(hash, json.RawMessage(`not json`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
	if _, ok := c.AnalysisResult(hash); ok {
		t.Fatal("invalid write must not leave a partial entry")
	}
}

func TestWhisperTranscriptionRoundTrip(t *testing.T) {
	c := newTestCache(t)
	hash := HashPrefix([]byte("lyrics source"))
	phrases := []Phrase{{Text: "hello", Start: 0, End: 1.2}, {Text: "world", Start: 1.2, End: 2.5}}

	if err := c.SaveWhisperTranscription(hash, phrases); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok := c.WhisperTranscription(hash)
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 2 || got[0].Text != "hello" || got[1].End != 2.5 {
		t.Fatalf("unexpected phrases: %+v", got)
	}
}

func TestLRCResultRoundTrip(t *testing.T) {
	c := newTestCache(t)
	key := CompositeLRCKey("audiohash", "lyrics text")

	if err := c.SaveLRCResult(key, "https://example.test/song.lrc", 42); err != nil {
		t.Fatalf("save: %v", err)
	}
	entry, ok := c.LRCResult(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if entry.LineCount != 42 || entry.LRCURL != "https://example.test/song.lrc" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

// TestHasStemsRequiresAllFour exercises §4.9: presence of all four
// stem files is required to count as a hit.
func TestHasStemsRequiresAllFour(t *testing.T) {
	c := newTestCache(t)
	hash := HashPrefix([]byte("z"))
	buf := audio.NewBuffer(44100, 100)

	partial := map[string]*audio.Buffer{"bass": buf, "drums": buf}
	if err := c.SaveStems(hash, partial); err != nil {
		t.Fatalf("save partial stems: %v", err)
	}
	if c.HasStems(hash) {
		t.Fatal("expected miss with only 2 of 4 stems present")
	}

	full := map[string]*audio.Buffer{"bass": buf, "drums": buf, "other": buf, "vocals": buf}
	if err := c.SaveStems(hash, full); err != nil {
		t.Fatalf("save full stems: %v", err)
	}
	if !c.HasStems(hash) {
		t.Fatal("expected hit with all 4 stems present")
	}

	loaded, err := c.LoadStems(hash)
	if err != nil {
		t.Fatalf("load stems: %v", err)
	}
	if len(loaded) != 4 {
		t.Fatalf("expected 4 loaded stems, got %d", len(loaded))
	}
	if loaded["bass"].Len() != buf.Len() {
		t.Fatalf("loaded stem length mismatch: got %d, want %d", loaded["bass"].Len(), buf.Len())
	}
}

func TestClearRemovesEntries(t *testing.T) {
	c := newTestCache(t)
	hash := HashPrefix([]byte("to be cleared"))
	if err := c.SaveAnalysisResult(hash, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := c.AnalysisResult(hash); ok {
		t.Fatal("expected miss after clear")
	}
}
