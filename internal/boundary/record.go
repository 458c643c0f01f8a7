// Package boundary implements the External Boundary Adapters (§4.10):
// the object-store adapter, the analyzer driver, and the aligner
// driver. Only their contracts are load-bearing for the rest of the
// module; this package also supplies a real (if lower-fidelity) CPU
// analyzer, a local-filesystem object store, and an S3-compatible
// object store so the pipeline runs end to end without external
// services.
package boundary

import (
	"context"
)

// AnalysisRecord is the canonical JSON shape an analyzer driver
// produces and the cache round-trips (§6 Analysis record schema).
type AnalysisRecord struct {
	DurationSeconds float64          `json:"duration_seconds"`
	TempoBPM        float64          `json:"tempo_bpm"`
	MusicalKey      string           `json:"musical_key"`
	MusicalMode     string           `json:"musical_mode"`
	KeyConfidence   float64          `json:"key_confidence"`
	LoudnessDB      float64          `json:"loudness_db"`
	Beats           []float64        `json:"beats"`
	Downbeats       []float64        `json:"downbeats"`
	Sections        []RecordSection  `json:"sections"`
	EmbeddingsShape []int            `json:"embeddings_shape,omitempty"`
}

// RecordSection is one entry of AnalysisRecord.Sections.
type RecordSection struct {
	Label string  `json:"label"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// AnalyzerDriver analyzes one audio file, blocking. Implementations
// are called from a worker goroutine, never from the scheduler's own
// dispatch loop (§4.10, §5). When wantStems is true and the driver is
// backed by a stem-separator, it also writes
// <stemsDir>/{bass,drums,other,vocals}.wav and returns stemsDir;
// stemsDir is empty when no stems were produced, which the Analyze job
// body treats as "no separation available" rather than an error.
type AnalyzerDriver interface {
	Analyze(ctx context.Context, path string, wantStems bool) (record *AnalysisRecord, stemsDir string, err error)
}

// AlignerDriver aligns lyrics text to an audio file, producing an LRC
// file plus the intermediate transcription phrases so the caller can
// cache them separately (§4.10).
type AlignerDriver interface {
	Align(ctx context.Context, audioPath, lyricsText string, opts AlignOptions) (AlignResult, error)
}

// AlignOptions configures an Align call. An empty LLMEndpoint means
// skip the correction step and use the raw transcript timing.
type AlignOptions struct {
	LLMEndpoint string
	LLMKey      string
	LLMModel    string
}

// AlignResult is what AlignerDriver.Align produces.
type AlignResult struct {
	LRCPath   string
	LineCount int
	Phrases   []AlignedPhrase
}

// AlignedPhrase is one transcribed span with its matched lyric line,
// if any.
type AlignedPhrase struct {
	Text  string
	Start float64
	End   float64
}
