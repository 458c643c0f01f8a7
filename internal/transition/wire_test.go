package transition

import "testing"

func TestWireParamsToParamsGap(t *testing.T) {
	w := WireParams{
		Kind: "gap",
		Gap: &WireGapParams{
			GapBeats:        2.0,
			FadeWindowBeats: 8.0,
			FadeBottom:      0.33,
			StemsToFade:     []string{"drums", "bass", "other"},
		},
	}
	p, err := w.ToParams()
	if err != nil {
		t.Fatalf("ToParams: %v", err)
	}
	if p.Kind != KindGap {
		t.Fatalf("kind = %v, want KindGap", p.Kind)
	}
	if p.Gap.StemsToFade.Cardinality() != 3 || !p.Gap.StemsToFade.Contains(Drums) {
		t.Fatalf("unexpected stems to fade: %v", p.Gap.StemsToFade)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid params, got %v", err)
	}
}

func TestWireParamsToParamsMissingVariant(t *testing.T) {
	w := WireParams{Kind: "crossfade"}
	if _, err := w.ToParams(); err == nil {
		t.Fatal("expected error for missing crossfade parameters")
	}
}

func TestWireParamsToParamsUnknownKind(t *testing.T) {
	w := WireParams{Kind: "sidechain"}
	if _, err := w.ToParams(); err == nil {
		t.Fatal("expected error for unrecognized kind")
	}
}
