package playlist

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/streamsplice/junction/internal/audio"
	"github.com/streamsplice/junction/internal/engine"
	"github.com/streamsplice/junction/internal/song"
	"github.com/streamsplice/junction/internal/stemstore"
	"github.com/streamsplice/junction/internal/transition"
)

const testRate = 44100

type constMixdown struct{ value float32 }

func (c *constMixdown) LoadMixdown(songID string, startSec, endSec float64) (*audio.Buffer, error) {
	n := int((endSec - startSec) * testRate)
	if n < 0 {
		n = 0
	}
	b := audio.NewBuffer(testRate, n)
	for i := range b.Left {
		b.Left[i] = c.value
		b.Right[i] = c.value
	}
	return b, nil
}

type constStems struct{ value float32 }

func (c *constStems) HasStems(songID string) bool { return true }

func (c *constStems) LoadRange(songID string, startSec, endSec float64) (stemstore.Stems, error) {
	n := int((endSec - startSec) * testRate)
	if n < 0 {
		n = 0
	}
	out := make(stemstore.Stems, 4)
	for _, name := range []transition.StemName{transition.Vocals, transition.Drums, transition.Bass, transition.Other} {
		b := audio.NewBuffer(testRate, n)
		for i := range b.Left {
			b.Left[i] = c.value
			b.Right[i] = c.value
		}
		out[name] = b
	}
	return out, nil
}

// TestAssembleDurationInvariant verifies §4.6's invariant: output
// duration equals the sum of included section durations, minus the
// windows the junctions already consumed, plus the junctions'
// own lengths.
func TestAssembleDurationInvariant(t *testing.T) {
	reg := song.NewRegistry()
	reg.Add(&song.Song{
		ID: "one", Tempo: 120, DurationSeconds: 60, SampleRate: testRate,
		Sections: []song.Section{{SongID: "one", Index: 0, Start: 0, End: 30, Tempo: 120}},
	})
	reg.Add(&song.Song{
		ID: "two", Tempo: 120, DurationSeconds: 60, SampleRate: testRate,
		Sections: []song.Section{
			{SongID: "two", Index: 0, Start: 0, End: 20, Tempo: 120},
			{SongID: "two", Index: 1, Start: 20, End: 50, Tempo: 120},
		},
	})

	stems := &constStems{value: 0.1}
	e := &engine.Engine{Registry: reg, Stems: stems, OutputSampleRate: testRate}

	crossfadeParams := transition.Params{
		Kind: transition.KindCrossfade,
		Crossfade: &transition.CrossfadeParams{
			OverlapWindow: 5,
			FadeWindowPct: 100,
			FadeBottom:    0.1,
			StemsToFade:   mapset.NewSet(transition.Vocals, transition.Drums, transition.Bass, transition.Other),
		},
	}

	entries := []Entry{
		{SongID: "one", StartSection: 0, EndSection: 0, Transition: &crossfadeParams},
		{SongID: "two", StartSection: 0, EndSection: 1},
	}

	assembler := &Assembler{Registry: reg, Engine: e, Audio: &constMixdown{value: 0.1}, OutputSampleRate: testRate}
	out, err := assembler.Assemble(entries)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	sectionTotal := 30.0 + 50.0 // sum of included section durations (song one's [0,30], song two's [0,50])
	replacedWindows := 5.0 + 5.0 // OverlapWindow consumed from both sides of the single crossfade
	junctionLength := (2*5.0 - 5.0) // windowSeconds*2 - overlapSamples, in seconds (FadeWindowPct=100 means fade==overlap)

	wantSeconds := sectionTotal - replacedWindows + junctionLength
	wantSamples := int(wantSeconds * testRate)

	if out.Len() != wantSamples {
		t.Fatalf("assembled length = %d samples (%.3fs), want %d samples (%.3fs)", out.Len(), float64(out.Len())/testRate, wantSamples, wantSeconds)
	}
}
