package engine

import (
	"github.com/streamsplice/junction/internal/audio"
	"github.com/streamsplice/junction/internal/song"
	"github.com/streamsplice/junction/internal/transition"
	"github.com/streamsplice/junction/internal/xerrors"
)

// junctionConfig parameterizes the windowed junction primitive shared
// by Crossfade and Overlap (Open Question 2): both load a window off
// the tail of A and the head of B, fade some stems at the seam, and
// splice the two sides together over an overlap region. They differ
// only in curve family and whether B also fades.
type junctionConfig struct {
	windowSeconds  float64
	fadeSamples    int
	overlapSamples int
	equalPower     bool // true: sqrt curves (Crossfade). false: linear (Overlap).
	bFades         bool // true: B gets a symmetric fade-in (Crossfade). false: B plays intact (Overlap).
	fadeBottom     float64
	selected       []transition.StemName
}

func (c *synthContext) synthesizeCrossfade(p *transition.CrossfadeParams) (*audio.Buffer, Offsets, []string, error) {
	var selected []transition.StemName
	if p.StemsToFade != nil {
		selected = p.StemsToFade.ToSlice()
	}
	fadeSamples := int(p.OverlapWindow * p.FadeWindowPct / 100 * float64(c.outputRate))
	return c.junction(junctionConfig{
		windowSeconds:  p.OverlapWindow,
		fadeSamples:    fadeSamples,
		overlapSamples: fadeSamples,
		equalPower:     true,
		bFades:         true,
		fadeBottom:     p.FadeBottom,
		selected:       selected,
	})
}

func (c *synthContext) synthesizeOverlap(p *transition.OverlapParams) (*audio.Buffer, Offsets, []string, error) {
	var selected []transition.StemName
	if p.StemsToFade != nil {
		selected = p.StemsToFade.ToSlice()
	}
	fadeSamples := int(p.TransitionWindow * p.FadeWindowPct / 100 * float64(c.outputRate))
	overlapSamples := int(p.OverlapWindow * float64(c.outputRate))
	return c.junction(junctionConfig{
		windowSeconds:  p.TransitionWindow,
		fadeSamples:    fadeSamples,
		overlapSamples: overlapSamples,
		equalPower:     false,
		bFades:         false,
		selected:       selected,
	})
}

// junction implements the shared windowed-splice algorithm: load the
// last cfg.windowSeconds of A and the first cfg.windowSeconds of B,
// fade A's tail (and, if cfg.bFades, B's head), then splice so the
// last cfg.overlapSamples of A sum with the first cfg.overlapSamples
// of B.
func (c *synthContext) junction(cfg junctionConfig) (*audio.Buffer, Offsets, []string, error) {
	tw := cfg.windowSeconds
	startA := c.effEndA - tw
	endA := c.effEndA
	startB := c.effStartB
	endB := c.effStartB + tw

	var fadeA func(*audio.Buffer)
	if cfg.equalPower {
		fadeA = func(b *audio.Buffer) { audio.ApplyEqualPowerFade(b, audio.FadeOut, cfg.fadeSamples, false) }
	} else {
		fadeA = func(b *audio.Buffer) { audio.ApplyLinearFade(b, audio.FadeOut, cfg.fadeSamples, false) }
	}
	var fadeB func(*audio.Buffer)
	if cfg.bFades {
		fadeB = func(b *audio.Buffer) { audio.ApplyEqualPowerFade(b, audio.FadeIn, cfg.fadeSamples, true) }
	}

	bufA, fallbackA, err := c.loadJunctionSide(c.songA, startA, endA, cfg.selected, fadeA)
	if err != nil {
		return nil, Offsets{}, nil, err
	}
	bufB, fallbackB, err := c.loadJunctionSide(c.songB, startB, endB, cfg.selected, fadeB)
	if err != nil {
		return nil, Offsets{}, nil, err
	}

	if cfg.overlapSamples > bufA.Len() || cfg.overlapSamples > bufB.Len() {
		return nil, Offsets{}, nil, xerrors.NewInvalidParameters("overlap_window", "exceeds loaded window length", cfg.overlapSamples)
	}

	lead := bufA.Slice(0, bufA.Len()-cfg.overlapSamples)
	aTail := bufA.Slice(bufA.Len()-cfg.overlapSamples, bufA.Len())
	bHead := bufB.Slice(0, cfg.overlapSamples)
	trail := bufB.Slice(cfg.overlapSamples, bufB.Len())

	overlapMixed, err := audio.Mix(aTail, bHead)
	if err != nil {
		return nil, Offsets{}, nil, err
	}

	out, err := audio.Concat(lead, overlapMixed, trail)
	if err != nil {
		return nil, Offsets{}, nil, err
	}

	offsets := Offsets{
		AStartSample:        0,
		FadeStartSample:      bufA.Len() - cfg.fadeSamples,
		JunctionStartSample: lead.Len(),
		BStartSample:        lead.Len(),
		TotalLengthSamples:  out.Len(),
	}

	stemsFadedActual := stemNamesToStrings(cfg.selected)
	if fallbackA || fallbackB {
		stemsFadedActual = allCanonicalStemNames()
	}

	return out, offsets, stemsFadedActual, nil
}

// loadJunctionSide loads one side's window and, if apply is non-nil,
// fades the stems in selected (or the whole mixdown on fallback)
// before mixing down to a single stereo buffer.
func (c *synthContext) loadJunctionSide(s *song.Song, start, end float64, selected []transition.StemName, apply func(*audio.Buffer)) (*audio.Buffer, bool, error) {
	useFallback := len(selected) == 0 || !c.e.Stems.HasStems(s.ID)

	if useFallback {
		if c.e.Mixdown == nil {
			return nil, true, &xerrors.StemsUnavailableError{SongID: s.ID, Reason: "no mixdown fallback configured"}
		}
		mix, err := c.e.Mixdown.LoadMixdown(s.ID, start, end)
		if err != nil {
			return nil, true, err
		}
		mix = audio.Resample(mix, c.outputRate)
		if apply != nil && len(selected) > 0 {
			apply(mix)
		}
		return mix, true, nil
	}

	stems, err := c.loadStems(s, start, end)
	if err != nil {
		return nil, false, err
	}
	selectedSet := make(map[transition.StemName]bool, len(selected))
	for _, n := range selected {
		selectedSet[n] = true
	}
	for name, buf := range stems {
		buf = audio.Resample(buf, c.outputRate)
		stems[name] = buf
		if apply != nil && selectedSet[name] {
			apply(buf)
		}
	}
	mixed, err := stems.Mix()
	if err != nil {
		return nil, false, err
	}
	return mixed, false, nil
}
