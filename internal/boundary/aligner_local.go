package boundary

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/streamsplice/junction/internal/audioio"
)

// LocalAligner is a deterministic, model-free AlignerDriver: it
// distributes each non-blank line of lyrics_text evenly across the
// decoded audio's duration. There is no real speech alignment here
// (that is Qwen3ForcedAligner's job in the original), so this only
// exists to exercise the full Lrc job pipeline without a model
// dependency, the same role CPUAnalyzer plays for Analyze jobs.
type LocalAligner struct {
	logger *slog.Logger
}

// NewLocalAligner constructs a LocalAligner.
func NewLocalAligner(logger *slog.Logger) *LocalAligner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalAligner{logger: logger}
}

// Align decodes audioPath to get its duration, splits lyricsText into
// non-blank lines, spaces them evenly across [0, duration), and writes
// an LRC file at a sibling path. opts is accepted for interface
// compatibility; LocalAligner never reaches an LLM correction step.
func (a *LocalAligner) Align(ctx context.Context, audioPath, lyricsText string, opts AlignOptions) (AlignResult, error) {
	a.logger.Warn("using local aligner fallback, timings are evenly spaced rather than transcribed", "audio_path", audioPath)

	buf, err := audioio.DecodeFile(audioPath)
	if err != nil {
		return AlignResult{}, err
	}
	duration := float64(buf.Len()) / float64(buf.SampleRate)

	var lines []string
	for _, line := range strings.Split(lyricsText, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return AlignResult{LRCPath: "", LineCount: 0}, nil
	}

	step := duration / float64(len(lines))
	phrases := make([]AlignedPhrase, len(lines))
	for i, line := range lines {
		start := float64(i) * step
		end := start + step
		if end > duration {
			end = duration
		}
		phrases[i] = AlignedPhrase{Text: line, Start: start, End: end}
	}

	lrcPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".lrc"
	if err := WriteLRC(lrcPath, phrases, duration); err != nil {
		return AlignResult{}, err
	}

	return AlignResult{LRCPath: lrcPath, LineCount: len(phrases), Phrases: phrases}, nil
}

// WriteLRC writes phrases to path in the §6 LRC format: one
// `[mm:ss.xx] text` line per phrase, sorted by start time, no blank
// lines, times floored at 0 and ceiled at duration.
func WriteLRC(path string, phrases []AlignedPhrase, duration float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create lrc file %s: %w", path, err)
	}
	defer f.Close()

	sorted := append([]AlignedPhrase(nil), phrases...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	w := bufio.NewWriter(f)
	for _, p := range sorted {
		if p.Text == "" {
			continue
		}
		t := clampTime(p.Start, duration)
		fmt.Fprintf(w, "[%s] %s\n", formatLRCTime(t), p.Text)
	}
	return w.Flush()
}

func clampTime(t, duration float64) float64 {
	if t < 0 {
		return 0
	}
	if t > duration {
		return duration
	}
	return t
}

func formatLRCTime(t float64) string {
	minutes := int(t) / 60
	seconds := t - float64(minutes*60)
	return fmt.Sprintf("%02d:%05.2f", minutes, seconds)
}
