package transition

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/streamsplice/junction/internal/xerrors"
)

// WireParams is the JSON-facing shape of Params (§6): Kind is a plain
// string instead of the internal enum and StemsToFade is a string
// slice instead of a mapset.Set, so it round-trips through an ordinary
// JSON file or job request payload.
type WireParams struct {
	Kind        string               `json:"kind"`
	Gap         *WireGapParams       `json:"gap,omitempty"`
	Crossfade   *WireCrossfadeParams `json:"crossfade,omitempty"`
	Overlap     *WireOverlapParams   `json:"overlap,omitempty"`
	Adjustments BeatAdjustments      `json:"adjustments"`
}

// WireGapParams is GapParams' JSON shape.
type WireGapParams struct {
	GapBeats        float64  `json:"gap_beats"`
	FadeWindowBeats float64  `json:"fade_window_beats"`
	FadeBottom      float64  `json:"fade_bottom"`
	StemsToFade     []string `json:"stems_to_fade,omitempty"`
}

// WireCrossfadeParams is CrossfadeParams' JSON shape.
type WireCrossfadeParams struct {
	OverlapWindow float64  `json:"overlap_window"`
	FadeWindowPct float64  `json:"fade_window_pct"`
	FadeBottom    float64  `json:"fade_bottom"`
	StemsToFade   []string `json:"stems_to_fade,omitempty"`
}

// WireOverlapParams is OverlapParams' JSON shape.
type WireOverlapParams struct {
	TransitionWindow float64  `json:"transition_window"`
	OverlapWindow    float64  `json:"overlap_window"`
	FadeWindowPct    float64  `json:"fade_window_pct"`
	StemsToFade      []string `json:"stems_to_fade,omitempty"`
}

// ParseKind maps a wire-format kind name to its Kind value.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "gap":
		return KindGap, nil
	case "crossfade":
		return KindCrossfade, nil
	case "overlap":
		return KindOverlap, nil
	default:
		return 0, xerrors.NewInvalidParameters("kind", "must be one of gap, crossfade, overlap", name)
	}
}

func stemSet(names []string) mapset.Set[StemName] {
	if len(names) == 0 {
		return nil
	}
	set := mapset.NewSet[StemName]()
	for _, n := range names {
		set.Add(StemName(n))
	}
	return set
}

// ToParams converts a WireParams into a Params value, ready for
// Params.Validate. It does not itself validate beyond resolving Kind.
func (w WireParams) ToParams() (Params, error) {
	kind, err := ParseKind(w.Kind)
	if err != nil {
		return Params{}, err
	}

	p := Params{Kind: kind, Adjustments: w.Adjustments}
	switch kind {
	case KindGap:
		if w.Gap == nil {
			return Params{}, xerrors.NewInvalidParameters("gap", "missing gap parameters for kind=gap", nil)
		}
		p.Gap = &GapParams{
			GapBeats:        w.Gap.GapBeats,
			FadeWindowBeats: w.Gap.FadeWindowBeats,
			FadeBottom:      w.Gap.FadeBottom,
			StemsToFade:     stemSet(w.Gap.StemsToFade),
		}
	case KindCrossfade:
		if w.Crossfade == nil {
			return Params{}, xerrors.NewInvalidParameters("crossfade", "missing crossfade parameters for kind=crossfade", nil)
		}
		p.Crossfade = &CrossfadeParams{
			OverlapWindow: w.Crossfade.OverlapWindow,
			FadeWindowPct: w.Crossfade.FadeWindowPct,
			FadeBottom:    w.Crossfade.FadeBottom,
			StemsToFade:   stemSet(w.Crossfade.StemsToFade),
		}
	case KindOverlap:
		if w.Overlap == nil {
			return Params{}, xerrors.NewInvalidParameters("overlap", "missing overlap parameters for kind=overlap", nil)
		}
		p.Overlap = &OverlapParams{
			TransitionWindow: w.Overlap.TransitionWindow,
			OverlapWindow:    w.Overlap.OverlapWindow,
			FadeWindowPct:    w.Overlap.FadeWindowPct,
			StemsToFade:      stemSet(w.Overlap.StemsToFade),
		}
	}
	return p, nil
}
