// Package playlist implements the Playlist Assembler (§4.6): it
// chains the Transition Synthesis Engine across an ordered run of
// songs, splicing each song's own unmodified audio around the
// junctions the engine produces. It never re-runs analysis; every
// transition call receives a fully prepared parameter set.
package playlist

import (
	"fmt"

	"github.com/streamsplice/junction/internal/audio"
	"github.com/streamsplice/junction/internal/engine"
	"github.com/streamsplice/junction/internal/song"
	"github.com/streamsplice/junction/internal/transition"
)

// Entry is one song's contribution to the playlist: the inclusive
// range of sections to play, and (if not the last entry) the
// transition used to reach the next song.
type Entry struct {
	SongID       string
	StartSection int
	EndSection   int
	Transition   *transition.Params
}

// AudioLoader resolves a song's own, unseparated mix for an arbitrary
// [startSec, endSec) span — the "without modification" contribution
// of §4.6. It is the same shape as engine.MixdownLoader; kept as a
// distinct interface here so playlist doesn't require importing an
// engine implementation detail to be satisfied.
type AudioLoader interface {
	LoadMixdown(songID string, startSec, endSec float64) (*audio.Buffer, error)
}

// Assembler chains Engine.Synthesize calls across a playlist.
type Assembler struct {
	Registry         *song.Registry
	Engine           *engine.Engine
	Audio            AudioLoader
	OutputSampleRate int
}

func (a *Assembler) outputRate() int {
	if a.OutputSampleRate > 0 {
		return a.OutputSampleRate
	}
	return engine.DefaultOutputSampleRate
}

// Assemble produces one continuous buffer from the given entries.
func (a *Assembler) Assemble(entries []Entry) (*audio.Buffer, error) {
	if len(entries) == 0 {
		return audio.Silence(a.outputRate(), 0), nil
	}

	var pieces []*audio.Buffer

	for i, entry := range entries {
		startSong, startSec, err := a.Registry.Section(entry.SongID, entry.StartSection)
		if err != nil {
			return nil, fmt.Errorf("playlist entry %d: %w", i, err)
		}
		_, endSec, err := a.Registry.Section(entry.SongID, entry.EndSection)
		if err != nil {
			return nil, fmt.Errorf("playlist entry %d: %w", i, err)
		}

		plainStart := startSec.Start
		plainEnd := endSec.End

		if i > 0 {
			prev := entries[i-1]
			if prev.Transition != nil {
				plainStart = headTrimStart(startSong, startSec, *prev.Transition)
			}
		}

		if i < len(entries)-1 && entry.Transition != nil {
			endSong, lastSec, err := a.Registry.Section(entry.SongID, entry.EndSection)
			if err != nil {
				return nil, fmt.Errorf("playlist entry %d: %w", i, err)
			}
			plainEnd = tailTrimEnd(endSong, lastSec, *entry.Transition)
		}

		if plainEnd > plainStart {
			buf, err := a.Audio.LoadMixdown(entry.SongID, plainStart, plainEnd)
			if err != nil {
				return nil, fmt.Errorf("playlist entry %d: load mixdown: %w", i, err)
			}
			pieces = append(pieces, audio.Resample(buf, a.outputRate()))
		}

		if i < len(entries)-1 && entry.Transition != nil {
			next := entries[i+1]
			result, err := a.Engine.Synthesize(entry.SongID, entry.EndSection, next.SongID, next.StartSection, *entry.Transition)
			if err != nil {
				return nil, fmt.Errorf("playlist junction %d->%d: %w", i, i+1, err)
			}
			pieces = append(pieces, result.Buffer)
		}
	}

	return audio.Concat(pieces...)
}

// tailTrimEnd returns the point within sec's song at which the plain
// (unmodified) portion of the song must stop, because everything from
// there to the section's effective end is already reproduced inside
// the following junction's output.
func tailTrimEnd(s *song.Song, sec song.Section, params transition.Params) float64 {
	effStart, effEnd := engine.EffectiveWindow(s, sec, params.Adjustments.AStart, params.Adjustments.AEnd)
	consumed := engine.ConsumedSeconds(params, effStart, effEnd)
	return effEnd - consumed
}

// headTrimStart returns the point within sec's song at which the
// plain portion may resume, because everything from the section's
// effective start up to that point is already reproduced inside the
// preceding junction's output.
func headTrimStart(s *song.Song, sec song.Section, params transition.Params) float64 {
	effStart, effEnd := engine.EffectiveWindow(s, sec, params.Adjustments.BStart, params.Adjustments.BEnd)
	consumed := engine.ConsumedSeconds(params, effStart, effEnd)
	return effStart + consumed
}
