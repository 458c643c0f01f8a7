package playlist

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/streamsplice/junction/internal/transition"
)

// WireEntry is an Entry's JSON wire shape: Transition is the string-
// keyed transition.WireParams rather than the internal Params value.
type WireEntry struct {
	SongID       string                 `json:"song_id"`
	StartSection int                    `json:"start_section"`
	EndSection   int                    `json:"end_section"`
	Transition   *transition.WireParams `json:"transition,omitempty"`
}

// LoadEntriesFile reads a JSON array of WireEntry from path and
// resolves each one into an Entry ready for Assembler.Assemble.
func LoadEntriesFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entries file: %w", err)
	}
	var wire []WireEntry
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode entries file: %w", err)
	}

	entries := make([]Entry, len(wire))
	for i, w := range wire {
		entries[i] = Entry{SongID: w.SongID, StartSection: w.StartSection, EndSection: w.EndSection}
		if w.Transition != nil {
			params, err := w.Transition.ToParams()
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			entries[i].Transition = &params
		}
	}
	return entries, nil
}
