package engine

import (
	"github.com/streamsplice/junction/internal/audio"
	"github.com/streamsplice/junction/internal/song"
	"github.com/streamsplice/junction/internal/transition"
	"github.com/streamsplice/junction/internal/xerrors"
)

// synthesizeGap implements §4.5 "Gap (with optional fade)". Both sides
// are loaded over their full effective window (not a boundary
// sub-window, since GapParams carries no transition_window field);
// the only shared-timing quantity is the silence in between.
func (c *synthContext) synthesizeGap(p *transition.GapParams) (*audio.Buffer, Offsets, []string, error) {
	var selected []transition.StemName
	if p.StemsToFade != nil {
		selected = p.StemsToFade.ToSlice()
	}

	fadeSamplesA := beatsToSamples(p.FadeWindowBeats/2, c.secA.Tempo, c.outputRate)
	fadeSamplesB := beatsToSamples(p.FadeWindowBeats/2, c.secB.Tempo, c.outputRate)

	bufA, fallbackA, err := c.loadFadedSide(c.songA, c.effStartA, c.effEndA, selected, audio.FadeOut, fadeSamplesA, false, p.FadeBottom)
	if err != nil {
		return nil, Offsets{}, nil, err
	}
	bufB, fallbackB, err := c.loadFadedSide(c.songB, c.effStartB, c.effEndB, selected, audio.FadeIn, fadeSamplesB, true, p.FadeBottom)
	if err != nil {
		return nil, Offsets{}, nil, err
	}

	gapSamples := beatsToSamples(p.GapBeats, c.secA.Tempo, c.outputRate)
	silence := audio.Silence(c.outputRate, gapSamples)

	out, err := audio.Concat(bufA, silence, bufB)
	if err != nil {
		return nil, Offsets{}, nil, err
	}

	offsets := Offsets{
		AStartSample:        0,
		FadeStartSample:      bufA.Len() - fadeSamplesA,
		JunctionStartSample: bufA.Len(),
		BStartSample:        bufA.Len() + gapSamples,
		TotalLengthSamples:  out.Len(),
	}

	stemsFadedActual := stemNamesToStrings(selected)
	if fallbackA || fallbackB {
		stemsFadedActual = allCanonicalStemNames()
	}

	return out, offsets, stemsFadedActual, nil
}

// beatsToSamples converts a beat count to samples at sampleRate using
// bpm's implied beat duration (60/bpm seconds). A non-positive bpm
// yields zero samples rather than dividing by zero.
func beatsToSamples(beats, bpm float64, sampleRate int) int {
	if bpm <= 0 {
		return 0
	}
	seconds := beats * 60 / bpm
	return int(seconds * float64(sampleRate))
}

// loadFadedSide loads one side of a Gap transition over
// [start,end), applies the dB-linear fade to the stems in selected
// (or to the whole mixdown on fallback), and returns the mixed
// result.
func (c *synthContext) loadFadedSide(s *song.Song, start, end float64, selected []transition.StemName, kind audio.FadeKind, fadeSamples int, atStart bool, fadeBottom float64) (*audio.Buffer, bool, error) {
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
		audio.ApplyFade(mix, kind, fadeSamples, atStart, fadeBottom)
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
		if selectedSet[name] {
			audio.ApplyFade(buf, kind, fadeSamples, atStart, fadeBottom)
		}
	}
	mixed, err := stems.Mix()
	if err != nil {
		return nil, false, err
	}
	return mixed, false, nil
}
