// Package cache implements the Result Cache (§4.9): a content-addressed
// on-disk directory holding analysis records, stem sets, raw Whisper
// transcriptions, and LRC outputs, keyed by hash prefixes of the source
// audio (and, for LRC, a composite of audio and lyrics hashes).
//
// Grounded on the original's
// services/analysis/src/sow_analysis/storage/cache.py: same four entry
// kinds, same hash-prefix-32 keying scheme, same stems/<hash> layout.
// Writes are atomic (tempfile + rename) per §4.9, which cache.py does
// not do (a direct write_text can leave a truncated file on crash) —
// adapted here using the write-then-rename discipline cancun's own
// backup/export code applies to its durable files.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/streamsplice/junction/internal/audio"
	"github.com/streamsplice/junction/internal/audioio"
)

const hashPrefixLen = 32

// stemNames mirrors the four canonical stems in a fixed order so the
// presence check and the save/load paths agree on filenames.
var stemNames = [4]string{"bass", "drums", "other", "vocals"}

// Cache is the content-addressed directory described in §4.9.
type Cache struct {
	root string
}

// Open ensures root and its stems/ subdirectory exist and returns a
// Cache rooted there.
func Open(root string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Join(root, "stems"), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{root: root}, nil
}

// HashPrefix returns the first 32 hex characters of the SHA-256 of
// data, the key used for analysis and stem cache entries.
func HashPrefix(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashPrefixLen]
}

// CompositeLRCKey returns the first 32 hex characters of
// SHA-256(audioHash + ":" + sha256(lyricsText)[:16]), the key used for
// LRC cache entries (§6 Content hash).
func CompositeLRCKey(audioHash string, lyricsText string) string {
	lyricsSum := sha256.Sum256([]byte(lyricsText))
	lyricsPrefix := hex.EncodeToString(lyricsSum[:])[:16]
	composite := sha256.Sum256([]byte(audioHash + ":" + lyricsPrefix))
	return hex.EncodeToString(composite[:])[:hashPrefixLen]
}

// AnalysisResult returns the cached analysis record for hashPrefix, or
// nil if absent. The value is the raw JSON document; callers decode it
// into whatever Song/Section shape they need.
func (c *Cache) AnalysisResult(hashPrefix string) (json.RawMessage, bool) {
	return c.readJSON(c.analysisPath(hashPrefix))
}

// SaveAnalysisResult writes result atomically to the analysis slot for
// hashPrefix.
func (c *Cache) SaveAnalysisResult(hashPrefix string, result json.RawMessage) error {
	return atomicWriteJSON(c.analysisPath(hashPrefix), result)
}

func (c *Cache) analysisPath(hashPrefix string) string {
	return filepath.Join(c.root, hashPrefix+".json")
}

// WhisperEntry is the persisted shape of a raw transcription (§4.9).
type WhisperEntry struct {
	Phrases  []Phrase  `json:"phrases"`
	CachedAt time.Time `json:"cached_at"`
}

// Phrase is one Whisper-transcribed span.
type Phrase struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// WhisperTranscription returns the cached phrases for hashPrefix, or
// nil if absent.
func (c *Cache) WhisperTranscription(hashPrefix string) ([]Phrase, bool) {
	raw, ok := c.readJSON(c.whisperPath(hashPrefix))
	if !ok {
		return nil, false
	}
	var entry WhisperEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	return entry.Phrases, true
}

// SaveWhisperTranscription writes phrases atomically, stamped with the
// current time.
func (c *Cache) SaveWhisperTranscription(hashPrefix string, phrases []Phrase) error {
	entry := WhisperEntry{Phrases: phrases, CachedAt: time.Now()}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal whisper entry: %w", err)
	}
	return atomicWrite(c.whisperPath(hashPrefix), data)
}

func (c *Cache) whisperPath(hashPrefix string) string {
	return filepath.Join(c.root, hashPrefix+"_whisper.json")
}

// LRCEntry is the persisted shape of a cached LRC result (§4.9).
type LRCEntry struct {
	LRCURL    string    `json:"lrc_url"`
	LineCount int       `json:"line_count"`
	CachedAt  time.Time `json:"cached_at"`
}

// LRCResult returns the cached LRC entry for compositeKey, or false if
// absent.
func (c *Cache) LRCResult(compositeKey string) (LRCEntry, bool) {
	raw, ok := c.readJSON(c.lrcPath(compositeKey))
	if !ok {
		return LRCEntry{}, false
	}
	var entry LRCEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return LRCEntry{}, false
	}
	return entry, true
}

// SaveLRCResult writes an LRC entry atomically, stamped with the
// current time.
func (c *Cache) SaveLRCResult(compositeKey string, lrcURL string, lineCount int) error {
	entry := LRCEntry{LRCURL: lrcURL, LineCount: lineCount, CachedAt: time.Now()}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lrc entry: %w", err)
	}
	return atomicWrite(c.lrcPath(compositeKey), data)
}

func (c *Cache) lrcPath(compositeKey string) string {
	return filepath.Join(c.root, compositeKey+"_lrc.json")
}

// HasStems reports whether all four canonical stem files exist for
// hashPrefix (§4.9: presence of all four required to count as a hit).
func (c *Cache) HasStems(hashPrefix string) bool {
	dir := c.stemsDir(hashPrefix)
	for _, name := range stemNames {
		if _, err := os.Stat(filepath.Join(dir, name+".wav")); err != nil {
			return false
		}
	}
	return true
}

// LoadStems decodes the four cached stem WAVs for hashPrefix. Callers
// should check HasStems first; LoadStems returns an error on any
// missing or undecodable file.
func (c *Cache) LoadStems(hashPrefix string) (map[string]*audio.Buffer, error) {
	dir := c.stemsDir(hashPrefix)
	out := make(map[string]*audio.Buffer, len(stemNames))
	for _, name := range stemNames {
		buf, err := audioio.DecodeFile(filepath.Join(dir, name+".wav"))
		if err != nil {
			return nil, fmt.Errorf("decode cached stem %s: %w", name, err)
		}
		out[name] = buf
	}
	return out, nil
}

// SaveStems writes each named stem buffer atomically under
// stems/<hashPrefix>/. stems keys must be a subset of {bass, drums,
// other, vocals}; unrecognized keys are ignored.
func (c *Cache) SaveStems(hashPrefix string, stems map[string]*audio.Buffer) error {
	dir := c.stemsDir(hashPrefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create stems dir: %w", err)
	}
	for _, name := range stemNames {
		buf, ok := stems[name]
		if !ok {
			continue
		}
		finalPath := filepath.Join(dir, name+".wav")
		tmp, err := os.CreateTemp(dir, "."+name+"-*.wav.tmp")
		if err != nil {
			return fmt.Errorf("create temp stem file: %w", err)
		}
		tmpPath := tmp.Name()
		tmp.Close()
		if err := audioio.WriteWAV(tmpPath, buf); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("write stem %s: %w", name, err)
		}
		if err := os.Rename(tmpPath, finalPath); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("rename stem %s into place: %w", name, err)
		}
	}
	return nil
}

func (c *Cache) stemsDir(hashPrefix string) string {
	return filepath.Join(c.root, "stems", hashPrefix)
}

// Clear removes every cached entry, recreating the empty directory
// structure afterward.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.root); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return os.MkdirAll(filepath.Join(c.root, "stems"), 0o755)
}

func (c *Cache) readJSON(path string) (json.RawMessage, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	if !json.Valid(data) {
		return nil, false
	}
	return json.RawMessage(data), true
}

// atomicWriteJSON validates raw is well-formed JSON before delegating
// to atomicWrite.
func atomicWriteJSON(path string, raw json.RawMessage) error {
	if !json.Valid(raw) {
		return fmt.Errorf("refusing to cache invalid json for %s", filepath.Base(path))
	}
	return atomicWrite(path, raw)
}

// atomicWrite writes data to a temp file in the same directory as path
// and renames it into place, so a crash mid-write never leaves a
// partial file at path (§4.9).
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
