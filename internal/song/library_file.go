package song

import (
	"encoding/json"
	"fmt"
	"os"
)

// FileSection is the JSON wire shape of one Section within a library
// file.
type FileSection struct {
	Label            string  `json:"label"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Tempo            float64 `json:"tempo"`
	KeyString        string  `json:"key_string"`
	Energy           float64 `json:"energy"`
	LoudnessDB       float64 `json:"loudness_db"`
	SpectralCentroid float64 `json:"spectral_centroid"`
}

// FileSong is the JSON wire shape of one Song, paired with the
// on-disk path its unmodified mix is read from (§4.6's "song's own
// audio, without modification").
type FileSong struct {
	ID                 string        `json:"id"`
	AudioPath          string        `json:"audio_path"`
	SourceFilename     string        `json:"source_filename"`
	DurationSeconds    float64       `json:"duration_seconds"`
	Tempo              float64       `json:"tempo"`
	KeyPitchClass      string        `json:"key_pitch_class"`
	KeyMode            string        `json:"key_mode"`
	KeyConfidence      float64       `json:"key_confidence"`
	LoudnessDB         float64       `json:"loudness_db"`
	SpectralCentroidHz float64       `json:"spectral_centroid_hz"`
	SampleRate         int           `json:"sample_rate"`
	Sections           []FileSection `json:"sections"`
}

// LoadLibraryFile reads a JSON array of FileSong from path, returning
// a populated Registry plus a songID -> audio path map so callers can
// build a mixdown loader without re-parsing the file.
func LoadLibraryFile(path string) (*Registry, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read library file: %w", err)
	}
	var entries []FileSong
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("decode library file: %w", err)
	}

	reg := NewRegistry()
	audioPaths := make(map[string]string, len(entries))
	for _, e := range entries {
		sections := make([]Section, len(e.Sections))
		for i, s := range e.Sections {
			sections[i] = Section{
				SongID:           e.ID,
				Index:            i,
				Label:            s.Label,
				Start:            s.Start,
				End:              s.End,
				Tempo:            s.Tempo,
				KeyString:        s.KeyString,
				Energy:           s.Energy,
				LoudnessDB:       s.LoudnessDB,
				SpectralCentroid: s.SpectralCentroid,
			}
		}
		reg.Add(&Song{
			ID:                 e.ID,
			SourceFilename:     e.SourceFilename,
			DurationSeconds:    e.DurationSeconds,
			Tempo:              e.Tempo,
			Key:                Key{PitchClass: e.KeyPitchClass, Mode: e.KeyMode},
			KeyConfidence:      e.KeyConfidence,
			LoudnessDB:         e.LoudnessDB,
			SpectralCentroidHz: e.SpectralCentroidHz,
			Sections:           sections,
			SampleRate:         e.SampleRate,
		})
		if e.AudioPath != "" {
			audioPaths[e.ID] = e.AudioPath
		}
	}
	return reg, audioPaths, nil
}
