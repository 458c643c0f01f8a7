package transition

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
)

func TestSeedS6InvalidOverlapWindow(t *testing.T) {
	p := Params{
		Kind: KindOverlap,
		Overlap: &OverlapParams{
			TransitionWindow: 10,
			OverlapWindow:    12,
			FadeWindowPct:    50,
			StemsToFade:      mapset.NewSet(Vocals),
		},
	}
	if err := p.Validate(); err == nil {
		t.Fatal("expected InvalidParameters for overlap_window > transition_window")
	}
}

func TestValidGapParams(t *testing.T) {
	p := Params{
		Kind: KindGap,
		Gap: &GapParams{
			GapBeats:        2.0,
			FadeWindowBeats: 8.0,
			FadeBottom:      0.33,
			StemsToFade:     mapset.NewSet(Drums, Bass, Other),
		},
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid params, got %v", err)
	}
}

func TestBeatAdjustmentBounds(t *testing.T) {
	p := Params{
		Kind:        KindGap,
		Gap:         &GapParams{GapBeats: 1, StemsToFade: mapset.NewSet[StemName]()},
		Adjustments: BeatAdjustments{AStart: 5},
	}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for beat adjustment out of [-4,4]")
	}
}

func TestStemsToFadeMustBeSubset(t *testing.T) {
	p := Params{
		Kind: KindGap,
		Gap: &GapParams{
			GapBeats:    1,
			StemsToFade: mapset.NewSet[StemName]("synth"),
		},
	}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for stem name outside canonical set")
	}
}

func TestMissingVariantForKind(t *testing.T) {
	p := Params{Kind: KindCrossfade}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error when Crossfade params are nil")
	}
}
