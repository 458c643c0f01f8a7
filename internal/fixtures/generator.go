// Package fixtures generates deterministic synthetic audio for tests
// and demos: click tracks across a BPM ladder, a tempo ramp, harmonic
// chord pads, and full phrase tracks carrying the intro/verse/chorus/
// bridge/outro section structure a worship set's Song model expects.
package fixtures

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/streamsplice/junction/internal/audio"
	"github.com/streamsplice/junction/internal/audioio"
)

// Config controls which fixtures Generate emits.
type Config struct {
	OutputDir    string
	SampleRate   int
	Seed         int64
	BPMLadder    []float64
	SwingRatio   float64 // e.g., 0.6 means offbeat delayed to 60% of beat duration
	IncludeSwing bool
	IncludeRamp  bool
	RampStartBPM float64
	RampEndBPM   float64
	IncludeChord bool
	ChordKey     string // pitch class + mode, e.g. "A minor"

	IncludePhrase bool // phrase track with intro/verse/chorus/bridge/outro
	PhraseBPM     float64
	IncludeKeySet bool     // set of key-compatible tracks
	KeySetKeys    []string // pitch-class+mode strings, e.g. ["A minor", "E minor"]
}

// Manifest describes the fixtures Generate wrote.
type Manifest struct {
	SampleRate int               `json:"sample_rate"`
	Seed       int64             `json:"seed"`
	Fixtures   []ManifestFixture `json:"fixtures"`
}

// ManifestFixture describes one generated file.
type ManifestFixture struct {
	File        string            `json:"file"`
	Type        string            `json:"type"`
	BPM         float64           `json:"bpm,omitempty"`
	TargetBPM   float64           `json:"target_bpm,omitempty"`
	Beats       int               `json:"beats,omitempty"`
	DurationSec float64           `json:"duration_sec"`
	SwingRatio  float64           `json:"swing_ratio,omitempty"`
	Key         string            `json:"key,omitempty"`
	Sections    []ManifestSection `json:"sections,omitempty"`
	SetID       string            `json:"set_id,omitempty"`
}

// ManifestSection describes one section of a phrase track fixture.
type ManifestSection struct {
	Label     string  `json:"label"`
	StartBeat int     `json:"start_beat"`
	EndBeat   int     `json:"end_beat"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Energy    float64 `json:"energy"`
}

// Generate writes WAV fixtures and a manifest.json into cfg.OutputDir.
func Generate(cfg Config) (*Manifest, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 44100
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./testdata/audio"
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir output: %w", err)
	}

	manifest := &Manifest{SampleRate: cfg.SampleRate, Seed: cfg.Seed}

	for _, bpm := range cfg.BPMLadder {
		filename := fmt.Sprintf("click_%dbpm.wav", int(bpm))
		path := filepath.Join(cfg.OutputDir, filename)
		duration, err := renderClickTrack(path, cfg.SampleRate, bpm, 32, 0)
		if err != nil {
			return nil, err
		}
		manifest.Fixtures = append(manifest.Fixtures, ManifestFixture{
			File: filename, Type: "click", BPM: bpm, Beats: 32, DurationSec: duration,
		})
	}

	if cfg.IncludeSwing && len(cfg.BPMLadder) > 0 {
		bpm := cfg.BPMLadder[len(cfg.BPMLadder)/2]
		filename := "swing_click.wav"
		path := filepath.Join(cfg.OutputDir, filename)
		duration, err := renderClickTrack(path, cfg.SampleRate, bpm, 32, cfg.SwingRatio)
		if err != nil {
			return nil, err
		}
		manifest.Fixtures = append(manifest.Fixtures, ManifestFixture{
			File: filename, Type: "swing_click", BPM: bpm, SwingRatio: cfg.SwingRatio, Beats: 32, DurationSec: duration,
		})
	}

	if cfg.IncludeRamp {
		filename := "tempo_ramp.wav"
		path := filepath.Join(cfg.OutputDir, filename)
		duration, err := renderTempoRamp(path, cfg.SampleRate, cfg.RampStartBPM, cfg.RampEndBPM, 64)
		if err != nil {
			return nil, err
		}
		manifest.Fixtures = append(manifest.Fixtures, ManifestFixture{
			File: filename, Type: "tempo_ramp", BPM: cfg.RampStartBPM, TargetBPM: cfg.RampEndBPM, Beats: 64, DurationSec: duration,
		})
	}

	if cfg.IncludeChord {
		key := cfg.ChordKey
		if key == "" {
			key = "A minor"
		}
		filename := fmt.Sprintf("chord_%s.wav", sanitizeKey(key))
		path := filepath.Join(cfg.OutputDir, filename)
		duration, err := renderChord(path, cfg.SampleRate, key, 8.0)
		if err != nil {
			return nil, err
		}
		manifest.Fixtures = append(manifest.Fixtures, ManifestFixture{
			File: filename, Type: "chord", Key: key, DurationSec: duration,
		})
	}

	if cfg.IncludePhrase {
		bpm := cfg.PhraseBPM
		if bpm == 0 {
			bpm = 120
		}
		filename := "phrase_track.wav"
		path := filepath.Join(cfg.OutputDir, filename)
		duration, sections, err := renderPhraseTrack(path, cfg.SampleRate, bpm, "A minor")
		if err != nil {
			return nil, err
		}
		manifest.Fixtures = append(manifest.Fixtures, ManifestFixture{
			File: filename, Type: "phrase_track", BPM: bpm, Key: "A minor", DurationSec: duration, Sections: sections,
		})
	}

	if cfg.IncludeKeySet {
		keys := cfg.KeySetKeys
		if len(keys) == 0 {
			keys = []string{"A minor", "C major", "E minor", "G major"}
		}
		setID := fmt.Sprintf("key_set_%d", cfg.Seed)
		bpms := []float64{118, 122, 126, 124}
		for i, key := range keys {
			filename := fmt.Sprintf("key_set_%d_%s.wav", i+1, sanitizeKey(key))
			path := filepath.Join(cfg.OutputDir, filename)
			bpm := bpms[i%len(bpms)]
			duration, sections, err := renderPhraseTrack(path, cfg.SampleRate, bpm, key)
			if err != nil {
				return nil, err
			}
			manifest.Fixtures = append(manifest.Fixtures, ManifestFixture{
				File: filename, Type: "key_set_track", BPM: bpm, Key: key, DurationSec: duration, Sections: sections, SetID: setID,
			})
		}
	}

	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return manifest, nil
}

func sanitizeKey(key string) string {
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == ' ' {
			out = append(out, '_')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// renderClickTrack writes a stereo WAV with short decaying clicks on
// each beat, optionally placing each odd-numbered click swingRatio of
// a beat after the click before it.
func renderClickTrack(path string, sampleRate int, bpm float64, beats int, swingRatio float64) (float64, error) {
	secondsPerBeat := 60.0 / bpm
	totalDuration := secondsPerBeat * float64(beats)
	n := int(totalDuration * float64(sampleRate))
	buf := audio.NewBuffer(sampleRate, n)

	clickLen := int(0.01 * float64(sampleRate))
	for i := 0; i < beats; i++ {
		offsetSec := secondsPerBeat * float64(i)
		if swingRatio > 0 && i%2 == 1 {
			offsetSec = secondsPerBeat*float64(i-1) + secondsPerBeat*swingRatio
		}
		offset := int(offsetSec * float64(sampleRate))
		for j := 0; j < clickLen && offset+j < n; j++ {
			v := float32(math.Exp(-4 * float64(j) / float64(clickLen)))
			buf.Left[offset+j] += v
			buf.Right[offset+j] += v
		}
	}
	buf.Clip()
	return totalDuration, audioio.WriteWAV(path, buf)
}

// renderTempoRamp writes clicks whose interval ramps linearly from
// startBPM to endBPM across the given beat count.
func renderTempoRamp(path string, sampleRate int, startBPM, endBPM float64, beats int) (float64, error) {
	clickLen := int(0.01 * float64(sampleRate))
	var samples []float32
	currentTime := 0.0
	for i := 0; i < beats; i++ {
		progress := float64(i) / float64(beats-1)
		bpm := startBPM + (endBPM-startBPM)*progress
		secondsPerBeat := 60.0 / bpm
		offset := int(currentTime * float64(sampleRate))

		need := offset + clickLen
		if need > len(samples) {
			samples = append(samples, make([]float32, need-len(samples))...)
		}
		for j := 0; j < clickLen; j++ {
			samples[offset+j] += float32(math.Exp(-4 * float64(j) / float64(clickLen)))
		}
		currentTime += secondsPerBeat
	}

	buf := &audio.Buffer{Left: samples, Right: append([]float32(nil), samples...), SampleRate: sampleRate}
	buf.Clip()
	return currentTime, audioio.WriteWAV(path, buf)
}

// renderChord writes a sustained triad pad for the given pitch-class
// + mode key string (e.g. "A minor", "C major").
func renderChord(path string, sampleRate int, key string, durationSec float64) (float64, error) {
	freqs := keyTriadFrequencies(key)
	n := int(durationSec * float64(sampleRate))
	buf := audio.NewBuffer(sampleRate, n)

	for _, f := range freqs {
		for i := 0; i < n; i++ {
			t := float64(i) / float64(sampleRate)
			v := float32(0.2 * math.Sin(2*math.Pi*f*t))
			buf.Left[i] += v
			buf.Right[i] += v
		}
	}

	fadeSamples := int(0.05 * float64(sampleRate))
	for i := 0; i < fadeSamples && i < n; i++ {
		gain := float32(float64(i) / float64(fadeSamples))
		buf.Left[i] *= gain
		buf.Right[i] *= gain
		buf.Left[n-1-i] *= gain
		buf.Right[n-1-i] *= gain
	}
	buf.Clip()
	return durationSec, audioio.WriteWAV(path, buf)
}

// keyTriadFrequencies returns an approximate root-third-fifth triad
// for a handful of common worship-set keys, defaulting to A minor.
func keyTriadFrequencies(key string) []float64 {
	switch key {
	case "A minor":
		return []float64{220.0, 261.63, 329.63}
	case "E minor":
		return []float64{164.81, 196.0, 246.94}
	case "D minor":
		return []float64{146.83, 174.61, 220.0}
	case "C major":
		return []float64{261.63, 329.63, 392.0}
	case "G major":
		return []float64{196.0, 246.94, 293.66}
	case "F major":
		return []float64{174.61, 220.0, 261.63}
	default:
		return []float64{220.0, 261.63, 329.63}
	}
}

// phraseLayout is the section structure a worship-set phrase track
// carries: intro, verse, chorus, bridge, outro, each with a bar count
// and a rough 0-1 energy level used to scale synthesized amplitude.
var phraseLayout = []struct {
	label  string
	bars   int
	energy float64
}{
	{"intro", 8, 0.3},
	{"verse", 16, 0.5},
	{"chorus", 16, 0.8},
	{"bridge", 8, 0.6},
	{"outro", 8, 0.3},
}

// renderPhraseTrack synthesizes a full track with the phraseLayout
// section structure: a kick on downbeats, a sustained bass line, and
// a key-appropriate pad, each scaled by its section's energy.
func renderPhraseTrack(path string, sampleRate int, bpm float64, key string) (float64, []ManifestSection, error) {
	secondsPerBeat := 60.0 / bpm
	const beatsPerBar = 4

	var sections []ManifestSection
	totalBeats := 0
	for _, def := range phraseLayout {
		beats := def.bars * beatsPerBar
		startBeat := totalBeats
		endBeat := totalBeats + beats
		sections = append(sections, ManifestSection{
			Label:     def.label,
			StartBeat: startBeat,
			EndBeat:   endBeat,
			StartTime: float64(startBeat) * secondsPerBeat,
			EndTime:   float64(endBeat) * secondsPerBeat,
			Energy:    def.energy,
		})
		totalBeats = endBeat
	}

	totalDuration := float64(totalBeats) * secondsPerBeat
	n := int(totalDuration * float64(sampleRate))
	buf := audio.NewBuffer(sampleRate, n)

	freqs := keyTriadFrequencies(key)
	bassFreq := freqs[0] / 2

	for idx, sec := range sections {
		startSample := int(sec.StartTime * float64(sampleRate))
		endSample := int(sec.EndTime * float64(sampleRate))
		energy := phraseLayout[idx].energy

		for beat := sec.StartBeat; beat < sec.EndBeat; beat++ {
			if beat%beatsPerBar != 0 {
				continue
			}
			beatSample := int(float64(beat) * secondsPerBeat * float64(sampleRate))
			kickLen := int(0.12 * float64(sampleRate))
			for j := 0; j < kickLen && beatSample+j < n; j++ {
				t := float64(j) / float64(sampleRate)
				freq := 55.0 * math.Exp(-12*t)
				v := float32(energy * 0.6 * math.Exp(-8*t) * math.Sin(2*math.Pi*freq*t))
				buf.Left[beatSample+j] += v
				buf.Right[beatSample+j] += v
			}
		}

		for i := startSample; i < endSample && i < n; i++ {
			t := float64(i) / float64(sampleRate)
			v := float32(energy * 0.25 * math.Sin(2*math.Pi*bassFreq*t))
			buf.Left[i] += v
			buf.Right[i] += v
			for _, f := range freqs {
				pv := float32(energy * 0.08 * math.Sin(2*math.Pi*f*t))
				buf.Left[i] += pv
				buf.Right[i] += pv
			}
		}
	}

	fadeSamples := int(0.3 * float64(sampleRate))
	for i := 0; i < fadeSamples && i < n; i++ {
		gain := float32(float64(i) / float64(fadeSamples))
		buf.Left[i] *= gain
		buf.Right[i] *= gain
		buf.Left[n-1-i] *= gain
		buf.Right[n-1-i] *= gain
	}
	buf.Clip()
	return totalDuration, sections, audioio.WriteWAV(path, buf)
}
