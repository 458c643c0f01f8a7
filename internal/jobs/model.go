// Package jobs implements the Job Model & Persistent Store (§4.7) and
// the Job Scheduler (§4.8): a durable SQLite-backed queue for the two
// externally-triggered workloads (Analyze, Lrc), with crash recovery,
// bounded concurrency per job kind, and coalesced progress reporting.
package jobs

import (
	"encoding/json"
	"time"
)

// Kind identifies the two job families this system runs.
type Kind string

const (
	KindAnalyze Kind = "analyze"
	KindLrc     Kind = "lrc"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Stage names are part of the public surface (§4.8): callers poll on
// these exact strings.
const (
	StageDownloading  = "downloading"
	StageAnalyzing    = "analyzing"
	StageSeparating   = "separating"
	StageTranscribing = "transcribing"
	StageAligning     = "aligning"
	StageUploading    = "uploading"
	StageComplete     = "complete"
	StageCached       = "cached"
	StageError        = "error"
	StageRequeued     = "requeued"
)

// Job is one row of the persistent store, mirroring §3's Job type.
type Job struct {
	ID          string
	Kind        Kind
	Status      Status
	Progress    float64
	Stage       string
	Error       string
	Request     json.RawMessage
	Result      json.RawMessage
	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DefaultTimeout returns the per-kind hard timeout from §5.
func DefaultTimeout(k Kind) time.Duration {
	switch k {
	case KindAnalyze:
		return 10 * time.Minute
	case KindLrc:
		return 5 * time.Minute
	default:
		return 10 * time.Minute
	}
}

// DefaultRetention is how long a terminal job survives before reap
// deletes it (§4.7).
const DefaultRetention = 7 * 24 * time.Hour

// DefaultInMemoryGrace is how long a finished job stays in the
// scheduler's in-memory map before eviction (§4.8 step 6), answering
// immediate polls without a store round trip in the meantime.
const DefaultInMemoryGrace = 5 * time.Minute

// DefaultProgressCoalesce is the minimum interval between durable
// progress writes for the same job (§4.8 step 4).
const DefaultProgressCoalesce = 500 * time.Millisecond
