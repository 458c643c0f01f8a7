package fixtures

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateProducesAudioAndManifest(t *testing.T) {
	dir := t.TempDir()

	cfg := Config{
		OutputDir:    dir,
		SampleRate:   48000,
		BPMLadder:    []float64{120, 128},
		SwingRatio:   0.6,
		IncludeSwing: true,
		IncludeRamp:  true,
		RampStartBPM: 128,
		RampEndBPM:   100,
		IncludeChord: true,
		ChordKey:     "A minor",
	}

	manifest, err := Generate(cfg)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(manifest.Fixtures) < 4 {
		t.Fatalf("expected at least 4 fixtures, got %d", len(manifest.Fixtures))
	}

	wavPath := filepath.Join(dir, "click_120bpm.wav")
	if _, err := os.Stat(wavPath); err != nil {
		t.Fatalf("wav missing: %v", err)
	}

	data, err := os.ReadFile(wavPath)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}

	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("not a wav header")
	}

	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	if sampleRate != uint32(cfg.SampleRate) {
		t.Fatalf("unexpected sample rate %d", sampleRate)
	}
}

func TestGeneratePhraseTrackHasWorshipSetSections(t *testing.T) {
	dir := t.TempDir()

	cfg := Config{
		OutputDir:     dir,
		SampleRate:    44100,
		IncludePhrase: true,
		PhraseBPM:     120,
	}

	manifest, err := Generate(cfg)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var phrase *ManifestFixture
	for i := range manifest.Fixtures {
		if manifest.Fixtures[i].Type == "phrase_track" {
			phrase = &manifest.Fixtures[i]
		}
	}
	if phrase == nil {
		t.Fatal("expected a phrase_track fixture")
	}

	wantLabels := []string{"intro", "verse", "chorus", "bridge", "outro"}
	if len(phrase.Sections) != len(wantLabels) {
		t.Fatalf("expected %d sections, got %d", len(wantLabels), len(phrase.Sections))
	}
	for i, label := range wantLabels {
		if phrase.Sections[i].Label != label {
			t.Fatalf("section %d label = %q, want %q", i, phrase.Sections[i].Label, label)
		}
		if phrase.Sections[i].EndTime <= phrase.Sections[i].StartTime {
			t.Fatalf("section %d has non-positive duration", i)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, phrase.File)); err != nil {
		t.Fatalf("phrase track wav missing: %v", err)
	}
}

func TestGenerateKeySetProducesCompatibleTracks(t *testing.T) {
	dir := t.TempDir()

	cfg := Config{
		OutputDir:     dir,
		SampleRate:    44100,
		IncludeKeySet: true,
		KeySetKeys:    []string{"A minor", "C major"},
	}

	manifest, err := Generate(cfg)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var setTracks []ManifestFixture
	for _, f := range manifest.Fixtures {
		if f.Type == "key_set_track" {
			setTracks = append(setTracks, f)
		}
	}
	if len(setTracks) != 2 {
		t.Fatalf("expected 2 key set tracks, got %d", len(setTracks))
	}
	if setTracks[0].SetID == "" || setTracks[0].SetID != setTracks[1].SetID {
		t.Fatalf("expected shared set id, got %q and %q", setTracks[0].SetID, setTracks[1].SetID)
	}
	if setTracks[0].Key != "A minor" || setTracks[1].Key != "C major" {
		t.Fatalf("unexpected keys: %q, %q", setTracks[0].Key, setTracks[1].Key)
	}
}
