package boundary

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/streamsplice/junction/internal/audio"
	"github.com/streamsplice/junction/internal/audioio"
)

func TestLocalAlignerEvenlySpacesLines(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "song.wav")
	buf := audio.NewBuffer(44100, 44100*10)
	if err := audioio.WriteWAV(audioPath, buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}

	aligner := NewLocalAligner(nil)
	lyrics := "line one\nline two\nline three\n"
	result, err := aligner.Align(context.Background(), audioPath, lyrics, AlignOptions{})
	if err != nil {
		t.Fatalf("align: %v", err)
	}

	if result.LineCount != 3 {
		t.Fatalf("line count = %d, want 3", result.LineCount)
	}
	if result.Phrases[0].Start != 0 {
		t.Fatalf("first phrase should start at 0, got %f", result.Phrases[0].Start)
	}
	if result.Phrases[len(result.Phrases)-1].End > 10.0001 {
		t.Fatalf("last phrase end %f exceeds duration", result.Phrases[len(result.Phrases)-1].End)
	}

	data, err := os.ReadFile(result.LRCPath)
	if err != nil {
		t.Fatalf("read lrc: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lrc lines, got %d: %v", len(lines), lines)
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "[") {
			t.Fatalf("lrc line missing timestamp bracket: %q", l)
		}
	}
}

func TestLocalAlignerEmptyLyrics(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "song.wav")
	buf := audio.NewBuffer(44100, 44100*5)
	if err := audioio.WriteWAV(audioPath, buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}

	aligner := NewLocalAligner(nil)
	result, err := aligner.Align(context.Background(), audioPath, "   \n\n  ", AlignOptions{})
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	if result.LineCount != 0 {
		t.Fatalf("expected 0 lines for blank lyrics, got %d", result.LineCount)
	}
}

func TestWriteLRCFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.lrc")
	phrases := []AlignedPhrase{
		{Text: "hello", Start: 65.5, End: 70},
	}
	if err := WriteLRC(path, phrases, 120); err != nil {
		t.Fatalf("write lrc: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Scan()
	line := scanner.Text()
	if line != "[01:05.50] hello" {
		t.Fatalf("got %q", line)
	}
}
