// Package manifest writes an M3U8 + JSON description of a completed
// playlist assembly alongside a checksummed tar.gz bundle, the way
// the original's utils/export.py wrote a FLAC + JSON pair for a
// single transition, generalized to describe a whole assembled set.
package manifest

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/streamsplice/junction/internal/playlist"
	"github.com/streamsplice/junction/internal/song"
)

// EntryDescription is the JSON-facing view of one playlist.Entry,
// resolved against the song registry it was assembled with.
type EntryDescription struct {
	SongID         string  `json:"song_id"`
	SourceFilename string  `json:"source_filename"`
	StartSection   int     `json:"start_section"`
	EndSection     int     `json:"end_section"`
	TransitionKind string  `json:"transition_kind,omitempty"`
	Tempo          float64 `json:"tempo"`
	Key            string  `json:"key,omitempty"`
}

// Description is the full JSON manifest written alongside the bundle.
type Description struct {
	Name                 string             `json:"name"`
	Entries              []EntryDescription `json:"entries"`
	TotalDurationSeconds float64            `json:"total_duration_seconds"`
	SampleRate           int                `json:"sample_rate"`
	GeneratedAt          string             `json:"generated_at"`
}

// Result holds paths to everything WriteBundle produced.
type Result struct {
	PlaylistPath    string
	DescriptionPath string
	ChecksumsPath   string
	BundlePath      string
}

// WriteBundle writes an M3U8 playlist, a JSON description, a SHA-256
// checksum manifest, and a tar.gz bundle of the three, describing the
// assembly produced from entries against registry, with a total
// duration and sample rate taken from the assembled output.
func WriteBundle(outputDir, name string, registry *song.Registry, entries []playlist.Entry, totalDuration float64, sampleRate int) (*Result, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries to export")
	}
	if name == "" {
		name = "set"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	desc := Description{
		Name:                 name,
		TotalDurationSeconds: totalDuration,
		SampleRate:           sampleRate,
		GeneratedAt:          time.Now().UTC().Format(time.RFC3339),
	}
	for _, e := range entries {
		ed := EntryDescription{
			SongID:       e.SongID,
			StartSection: e.StartSection,
			EndSection:   e.EndSection,
		}
		if s, ok := registry.Get(e.SongID); ok {
			ed.SourceFilename = s.SourceFilename
			ed.Tempo = s.Tempo
			ed.Key = s.Key.String()
		}
		if e.Transition != nil {
			ed.TransitionKind = e.Transition.Kind.String()
		}
		desc.Entries = append(desc.Entries, ed)
	}

	result := &Result{
		PlaylistPath:    filepath.Join(outputDir, name+".m3u8"),
		DescriptionPath: filepath.Join(outputDir, name+".json"),
		ChecksumsPath:   filepath.Join(outputDir, name+"-checksums.txt"),
		BundlePath:      filepath.Join(outputDir, name+"-bundle.tar.gz"),
	}

	if err := writeM3U(result.PlaylistPath, desc); err != nil {
		return nil, err
	}
	if err := writeDescription(result.DescriptionPath, desc); err != nil {
		return nil, err
	}
	if err := writeChecksums(result.ChecksumsPath, result.PlaylistPath, result.DescriptionPath); err != nil {
		return nil, err
	}
	if err := writeBundle(result.BundlePath, result.PlaylistPath, result.DescriptionPath, result.ChecksumsPath); err != nil {
		return nil, err
	}

	return result, nil
}

func writeM3U(path string, desc Description) error {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, e := range desc.Entries {
		title := e.SourceFilename
		if title == "" {
			title = e.SongID
		}
		fmt.Fprintf(&b, "#EXTINF:0,%s\n", title)
		fmt.Fprintln(&b, e.SongID)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func writeDescription(path string, desc Description) error {
	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeChecksums(path string, files ...string) error {
	var b strings.Builder
	for _, fp := range files {
		sum, err := FileSHA256(fp)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%s  %s\n", sum, filepath.Base(fp))
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func writeBundle(bundlePath string, files ...string) error {
	f, err := os.Create(bundlePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	for _, fp := range files {
		info, err := os.Stat(fp)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.Base(fp)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		data, err := os.ReadFile(fp)
		if err != nil {
			return err
		}
		if _, err := tw.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// FileSHA256 returns the hex-encoded SHA-256 of a file's contents.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
