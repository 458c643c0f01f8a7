// Package engine implements the Transition Synthesis Engine (§4.5):
// given two analyzed songs, chosen sections, a transition type, and a
// parameter set, it loads stems, applies fades, aligns to beat-derived
// sample offsets, mixes, and produces a deterministic stereo PCM
// result.
package engine

import (
	"time"

	"github.com/streamsplice/junction/internal/audio"
	"github.com/streamsplice/junction/internal/song"
	"github.com/streamsplice/junction/internal/stemstore"
	"github.com/streamsplice/junction/internal/transition"
	"github.com/streamsplice/junction/internal/xerrors"
)

// DefaultOutputSampleRate is the engine's default output rate (§6).
const DefaultOutputSampleRate = 44100

// canonicalStemOrder is used only to populate StemsFadedActual with a
// deterministic ordering when the whole-mixdown fallback fires.
var canonicalStemOrder = []transition.StemName{transition.Vocals, transition.Drums, transition.Bass, transition.Other}

// StemLoader is the subset of stemstore.Store the engine depends on.
type StemLoader interface {
	HasStems(songID string) bool
	LoadRange(songID string, startSec, endSec float64) (stemstore.Stems, error)
}

// MixdownLoader resolves a song to its full, non-separated mix for
// the fallback path entered when stems are unavailable or no stems
// were selected for fading.
type MixdownLoader interface {
	LoadMixdown(songID string, startSec, endSec float64) (*audio.Buffer, error)
}

// Offsets records the computed sample positions of a synthesized
// junction, independent of audio content, so tests can re-verify
// geometry (§4.5, last paragraph).
type Offsets struct {
	AStartSample        int
	FadeStartSample     int
	JunctionStartSample int
	BStartSample        int
	TotalLengthSamples  int
}

// ResultMetadata captures the full input parameter set and computed
// offsets for later audit/replay (§3 TransitionResult).
type ResultMetadata struct {
	Params            transition.Params
	Offsets           Offsets
	StemsFadedActual  []string
	SourceSongA       string
	SourceSongB       string
	GeneratedAt       time.Time
}

// Result is the engine's output (§3 TransitionResult). OutputPath is
// left empty by Synthesize, and no caller in this module sets it:
// cmd/junction writes Buffer with audioio.WriteWAV and reports only
// Metadata.
type Result struct {
	Buffer          *audio.Buffer
	OutputPath      string
	DurationSeconds float64
	SampleRate      int
	Metadata        ResultMetadata
}

// Engine is the synthesis engine. Registry resolves song/section
// identifiers; Stems loads separated stems; Mixdown loads the
// whole-file fallback mix.
type Engine struct {
	Registry         *song.Registry
	Stems            StemLoader
	Mixdown          MixdownLoader
	OutputSampleRate int
}

func (e *Engine) outputRate() int {
	if e.OutputSampleRate > 0 {
		return e.OutputSampleRate
	}
	return DefaultOutputSampleRate
}

// EffectiveWindow applies the four-integer beat adjustment
// (transition.BeatAdjustments) to a section's [start,end) and clamps to the owning
// song's duration. Exported so the playlist assembler can compute the
// same window a junction will consume without re-running synthesis.
func EffectiveWindow(s *song.Song, sec song.Section, startAdjustBeats, endAdjustBeats int) (start, end float64) {
	beatDur := sec.Tempo
	if beatDur > 0 {
		beatDur = 60.0 / sec.Tempo
	}
	start = sec.Start + float64(startAdjustBeats)*beatDur
	end = sec.End + float64(endAdjustBeats)*beatDur
	if start < 0 {
		start = 0
	}
	if end > s.DurationSeconds {
		end = s.DurationSeconds
	}
	if end < start {
		end = start
	}
	return start, end
}

// ConsumedSeconds returns how much of one side's effective window
// (effStart, effEnd) a junction of this kind actually consumes into
// its output. Gap consumes the side's whole effective span; Crossfade
// and Overlap consume only their configured side-load window. The
// playlist assembler uses this to know how much of the surrounding
// song to trim before splicing in the junction's own output.
func ConsumedSeconds(params transition.Params, effStart, effEnd float64) float64 {
	switch params.Kind {
	case transition.KindGap:
		return effEnd - effStart
	case transition.KindCrossfade:
		return params.Crossfade.OverlapWindow
	case transition.KindOverlap:
		return params.Overlap.TransitionWindow
	default:
		return 0
	}
}

// Synthesize is the engine's public operation (§4.5).
func (e *Engine) Synthesize(songAID string, sectionAIdx int, songBID string, sectionBIdx int, params transition.Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	songA, secA, err := e.Registry.Section(songAID, sectionAIdx)
	if err != nil {
		return nil, xerrors.NewInvalidParameters("section_a", err.Error(), sectionAIdx)
	}
	songB, secB, err := e.Registry.Section(songBID, sectionBIdx)
	if err != nil {
		return nil, xerrors.NewInvalidParameters("section_b", err.Error(), sectionBIdx)
	}

	effStartA, effEndA := EffectiveWindow(songA, secA, params.Adjustments.AStart, params.Adjustments.AEnd)
	effStartB, effEndB := EffectiveWindow(songB, secB, params.Adjustments.BStart, params.Adjustments.BEnd)

	if err := checkWindowSufficient(params, effEndA-effStartA, effEndB-effStartB); err != nil {
		return nil, err
	}

	ctx := &synthContext{
		e:          e,
		songA:      songA,
		songB:      songB,
		secA:       secA,
		secB:       secB,
		effStartA:  effStartA,
		effEndA:    effEndA,
		effStartB:  effStartB,
		effEndB:    effEndB,
		outputRate: e.outputRate(),
	}

	var buf *audio.Buffer
	var offsets Offsets
	var stemsFadedActual []string

	switch params.Kind {
	case transition.KindGap:
		buf, offsets, stemsFadedActual, err = ctx.synthesizeGap(params.Gap)
	case transition.KindCrossfade:
		buf, offsets, stemsFadedActual, err = ctx.synthesizeCrossfade(params.Crossfade)
	case transition.KindOverlap:
		buf, offsets, stemsFadedActual, err = ctx.synthesizeOverlap(params.Overlap)
	default:
		return nil, xerrors.NewInvalidParameters("kind", "unrecognized transition kind", params.Kind)
	}
	if err != nil {
		return nil, err
	}

	buf.Clip()

	return &Result{
		Buffer:          buf,
		DurationSeconds: float64(buf.Len()) / float64(buf.SampleRate),
		SampleRate:      buf.SampleRate,
		Metadata: ResultMetadata{
			Params:           params,
			Offsets:          offsets,
			StemsFadedActual: stemsFadedActual,
			SourceSongA:      songAID,
			SourceSongB:      songBID,
			GeneratedAt:      time.Now(),
		},
	}, nil
}

func checkWindowSufficient(params transition.Params, durA, durB float64) error {
	var needed float64
	switch params.Kind {
	case transition.KindCrossfade:
		needed = params.Crossfade.OverlapWindow
	case transition.KindOverlap:
		needed = params.Overlap.TransitionWindow
	default:
		return nil
	}
	if durA < needed {
		return xerrors.NewInvalidParameters("section_a", "duration shorter than effective transition window", durA)
	}
	if durB < needed {
		return xerrors.NewInvalidParameters("section_b", "duration shorter than effective transition window", durB)
	}
	return nil
}

// synthContext carries the per-call state shared by the three
// transition-kind synthesizers.
type synthContext struct {
	e *Engine

	songA, songB *song.Song
	secA, secB   song.Section

	effStartA, effEndA float64
	effStartB, effEndB float64

	outputRate int
}

// loadStems returns the individual decoded stems for one side of a
// junction over [start,end) seconds, via the stem-accurate path.
// Callers are responsible for deciding when the whole-mixdown
// fallback applies instead (§4.2's contract stays crisp; the engine
// owns the fallback decision, not the store).
func (c *synthContext) loadStems(s *song.Song, start, end float64) (stemstore.Stems, error) {
	return c.e.Stems.LoadRange(s.ID, start, end)
}

func stemNamesToStrings(names []transition.StemName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

func allCanonicalStemNames() []string {
	return stemNamesToStrings(canonicalStemOrder)
}
