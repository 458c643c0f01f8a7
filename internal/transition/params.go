// Package transition defines the TransitionParameters discriminated
// union and its single consolidated validation pass, per design note
// "Dynamic per-parameter validation".
package transition

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/streamsplice/junction/internal/xerrors"
)

// StemName is one of the four canonical source-separated stems.
type StemName string

const (
	Vocals StemName = "vocals"
	Drums  StemName = "drums"
	Bass   StemName = "bass"
	Other  StemName = "other"
)

// CanonicalStems is the fixed universe stems_to_fade is checked
// against.
func CanonicalStems() mapset.Set[StemName] {
	return mapset.NewSet(Vocals, Drums, Bass, Other)
}

// Kind identifies which of the three transition families a Params
// value carries. It is a closed set of three values, and the switches
// over Kind in this module cover all three; the compiler does not check
// that, so a fourth kind reaches each switch's default branch (or none).
type Kind int

const (
	KindGap Kind = iota
	KindCrossfade
	KindOverlap
)

func (k Kind) String() string {
	switch k {
	case KindGap:
		return "gap"
	case KindCrossfade:
		return "crossfade"
	case KindOverlap:
		return "overlap"
	default:
		return "unknown"
	}
}

// GapParams configures a Gap transition (§4.5 "Gap (with optional fade)").
type GapParams struct {
	GapBeats        float64
	FadeWindowBeats float64
	FadeBottom      float64
	StemsToFade     mapset.Set[StemName]
}

// CrossfadeParams configures a Crossfade ("No Break") transition.
type CrossfadeParams struct {
	OverlapWindow float64
	FadeWindowPct float64
	FadeBottom    float64
	StemsToFade   mapset.Set[StemName]
}

// OverlapParams configures an Overlap ("Intro Overlap") transition.
type OverlapParams struct {
	TransitionWindow float64
	OverlapWindow    float64
	FadeWindowPct    float64
	StemsToFade      mapset.Set[StemName]
}

// BeatAdjustments holds the four integer per-side start/end nudges
// applied before synthesis, each constrained to [-4, 4].
type BeatAdjustments struct {
	AStart int
	AEnd   int
	BStart int
	BEnd   int
}

// Params is the tagged discriminated TransitionParameters value. Only
// the field matching Kind is populated; callers match on Kind, not on
// which pointer is non-nil.
type Params struct {
	Kind        Kind
	Gap         *GapParams
	Crossfade   *CrossfadeParams
	Overlap     *OverlapParams
	Adjustments BeatAdjustments
}

// Validate performs the single consolidated validation pass described
// in design note 2: match once on the variant, check its fields; no
// variant inherits validation from another. Returns an
// *xerrors.InvalidParametersError (wrapped in the plain error
// interface) describing the first violated bound.
func (p Params) Validate() error {
	if err := validateAdjustments(p.Adjustments); err != nil {
		return err
	}

	switch p.Kind {
	case KindGap:
		return validateGap(p.Gap)
	case KindCrossfade:
		return validateCrossfade(p.Crossfade)
	case KindOverlap:
		return validateOverlap(p.Overlap)
	default:
		return xerrors.NewInvalidParameters("kind", "unrecognized transition kind", p.Kind)
	}
}

func validateAdjustments(a BeatAdjustments) error {
	for name, v := range map[string]int{"a_start": a.AStart, "a_end": a.AEnd, "b_start": a.BStart, "b_end": a.BEnd} {
		if v < -4 || v > 4 {
			return xerrors.NewInvalidParameters(name, "beat adjustment must be in [-4,4]", v)
		}
	}
	return nil
}

func validateStemsToFade(stems mapset.Set[StemName]) error {
	if stems == nil {
		return nil
	}
	canonical := CanonicalStems()
	if !stems.IsSubset(canonical) {
		return xerrors.NewInvalidParameters("stems_to_fade", "must be a subset of {vocals,drums,bass,other}", stems.ToSlice())
	}
	return nil
}

func validateGap(g *GapParams) error {
	if g == nil {
		return xerrors.NewInvalidParameters("gap", "missing Gap parameters for Kind=Gap", nil)
	}
	if g.GapBeats <= 0 {
		return xerrors.NewInvalidParameters("gap_beats", "must be > 0", g.GapBeats)
	}
	if g.FadeWindowBeats < 0 {
		return xerrors.NewInvalidParameters("fade_window_beats", "must be >= 0", g.FadeWindowBeats)
	}
	if g.FadeBottom < 0 || g.FadeBottom > 1 {
		return xerrors.NewInvalidParameters("fade_bottom", "must be in [0,1]", g.FadeBottom)
	}
	return validateStemsToFade(g.StemsToFade)
}

func validateCrossfade(c *CrossfadeParams) error {
	if c == nil {
		return xerrors.NewInvalidParameters("crossfade", "missing Crossfade parameters for Kind=Crossfade", nil)
	}
	if c.OverlapWindow <= 0 {
		return xerrors.NewInvalidParameters("overlap_window", "must be > 0", c.OverlapWindow)
	}
	if c.FadeWindowPct < 0 || c.FadeWindowPct > 100 {
		return xerrors.NewInvalidParameters("fade_window_pct", "must be in [0,100]", c.FadeWindowPct)
	}
	if c.FadeBottom < 0 || c.FadeBottom > 1 {
		return xerrors.NewInvalidParameters("fade_bottom", "must be in [0,1]", c.FadeBottom)
	}
	return validateStemsToFade(c.StemsToFade)
}

func validateOverlap(o *OverlapParams) error {
	if o == nil {
		return xerrors.NewInvalidParameters("overlap", "missing Overlap parameters for Kind=Overlap", nil)
	}
	if o.TransitionWindow <= 0 {
		return xerrors.NewInvalidParameters("transition_window", "must be > 0", o.TransitionWindow)
	}
	if o.OverlapWindow > o.TransitionWindow {
		return xerrors.NewInvalidParameters("overlap_window", "must be <= transition_window", o.OverlapWindow)
	}
	if o.FadeWindowPct < 0 || o.FadeWindowPct > 100 {
		return xerrors.NewInvalidParameters("fade_window_pct", "must be in [0,100]", o.FadeWindowPct)
	}
	return validateStemsToFade(o.StemsToFade)
}
