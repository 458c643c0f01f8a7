// Package library scans a directory tree for audio files and reports
// which ones still need analysis, by consulting the result cache.
package library

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/streamsplice/junction/internal/cache"
)

// SupportedFormats lists the input audio extensions Scan picks up (§6).
// audioio also decodes WAV, which Scan does not pick up.
var SupportedFormats = map[string]bool{
	".mp3":  true,
	".flac": true,
}

// Scanner walks directory roots looking for audio files and checks
// each one against the result cache.
type Scanner struct {
	cache  *cache.Cache
	logger *slog.Logger
}

// NewScanner builds a Scanner backed by the given result cache.
func NewScanner(c *cache.Cache, logger *slog.Logger) *Scanner {
	return &Scanner{cache: c, logger: logger}
}

// Entry describes one discovered audio file.
type Entry struct {
	Path         string
	ContentHash  string
	NeedsAnalyze bool
}

// Progress reports scan progress on the channel passed to Scan.
type Progress struct {
	Path      string
	Processed int
	Total     int
	Error     string
}

// Scan walks roots, hashes every supported audio file, and reports
// each as an Entry. Entries whose content hash is not already present
// in the result cache are flagged as analysis candidates. Progress is
// reported on the progress channel, which is closed when Scan returns.
func (s *Scanner) Scan(ctx context.Context, roots []string, progress chan<- Progress) ([]Entry, error) {
	defer close(progress)

	var paths []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if SupportedFormats[strings.ToLower(filepath.Ext(path))] {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	entries := make([]Entry, 0, len(paths))
	for i, path := range paths {
		select {
		case <-ctx.Done():
			return entries, ctx.Err()
		default:
		}

		hash, err := ComputeContentHash(path)
		p := Progress{Path: path, Processed: i + 1, Total: len(paths)}
		if err != nil {
			p.Error = err.Error()
			progress <- p
			if s.logger != nil {
				s.logger.Warn("failed to hash file", "path", path, "error", err)
			}
			continue
		}

		_, cached := s.cache.AnalysisResult(hash)
		entries = append(entries, Entry{Path: path, ContentHash: hash, NeedsAnalyze: !cached})
		progress <- p
	}

	return entries, nil
}

// ComputeContentHash hashes the full contents of path, returning the
// same hash-prefix key the result cache uses (§6).
func ComputeContentHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return cache.HashPrefix(data), nil
}
