package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/streamsplice/junction/internal/audio"
	"github.com/streamsplice/junction/internal/audioio"
	"github.com/streamsplice/junction/internal/boundary"
	"github.com/streamsplice/junction/internal/cache"
)

// AnalyzeRequest is the JSON shape of an Analyze job's request payload.
type AnalyzeRequest struct {
	AudioURL    string `json:"audio_url"`
	ContentHash string `json:"content_hash"`
	WantStems   bool   `json:"want_stems"`
}

// AnalyzeResponse is the JSON shape of an Analyze job's result payload.
type AnalyzeResponse struct {
	Analysis  *boundary.AnalysisRecord `json:"analysis"`
	StemsURL  string                   `json:"stems_url,omitempty"`
	FromCache bool                     `json:"from_cache"`
}

var stemFileNames = [4]string{"bass", "drums", "other", "vocals"}

// NewAnalyzeRunner builds the RunFunc for Analyze jobs (§4.8 "Analyze
// job body"): cache check, download, analyze, (optionally) separate,
// upload, cache, in that order, reporting the stage names §4.8
// specifies at each step.
func NewAnalyzeRunner(store boundary.ObjectStore, driver boundary.AnalyzerDriver, c *cache.Cache, workDir string) RunFunc {
	return func(ctx context.Context, job *Job, report func(float64, string)) (json.RawMessage, error) {
		var req AnalyzeRequest
		if err := json.Unmarshal(job.Request, &req); err != nil {
			return nil, fmt.Errorf("decode analyze request: %w", err)
		}

		if raw, hit := c.AnalysisResult(req.ContentHash); hit {
			report(1.0, StageCached)
			var analysis boundary.AnalysisRecord
			if err := json.Unmarshal(raw, &analysis); err != nil {
				return nil, fmt.Errorf("decode cached analysis: %w", err)
			}
			// StemsURL is only populated when this call actually uploads
			// stems; a cache hit means any previously separated stems
			// already live in the result cache (c.HasStems/c.LoadStems),
			// not freshly re-uploaded, so there is no new URL to report.
			return json.Marshal(AnalyzeResponse{Analysis: &analysis, FromCache: true})
		}

		report(0.1, StageDownloading)
		localPath := filepath.Join(workDir, req.ContentHash+filepath.Ext(req.AudioURL))
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
		if err := store.Download(ctx, req.AudioURL, localPath); err != nil {
			return nil, fmt.Errorf("download audio: %w", err)
		}
		defer os.Remove(localPath)

		report(0.4, StageAnalyzing)
		analysis, stemsDir, err := driver.Analyze(ctx, localPath, req.WantStems)
		if err != nil {
			return nil, fmt.Errorf("analyze: %w", err)
		}

		stemsURL := ""
		if stemsDir != "" {
			report(0.6, StageSeparating)
			stemsURL, err = uploadAndCacheStems(ctx, store, c, req.ContentHash, stemsDir)
			if err != nil {
				return nil, err
			}
		}

		report(0.8, StageUploading)
		analysisJSON, err := json.Marshal(analysis)
		if err != nil {
			return nil, fmt.Errorf("marshal analysis: %w", err)
		}
		analysisPath := filepath.Join(workDir, req.ContentHash+".analysis.json")
		if err := os.WriteFile(analysisPath, analysisJSON, 0o644); err != nil {
			return nil, fmt.Errorf("stage analysis json: %w", err)
		}
		defer os.Remove(analysisPath)
		if _, err := store.Upload(ctx, analysisPath, req.ContentHash+"/analysis.json"); err != nil {
			return nil, fmt.Errorf("upload analysis: %w", err)
		}
		if err := c.SaveAnalysisResult(req.ContentHash, analysisJSON); err != nil {
			return nil, fmt.Errorf("cache analysis: %w", err)
		}

		report(1.0, StageComplete)
		return json.Marshal(AnalyzeResponse{Analysis: analysis, StemsURL: stemsURL, FromCache: false})
	}
}

// uploadAndCacheStems decodes the four canonical stem files the
// analyzer driver wrote under stemsDir, uploads each to the object
// store, and saves the decoded set to the result cache under
// contentHash (§4.8, §4.9). The returned URL is the stems directory's
// object-store prefix, derived from whichever adapter's Upload
// returned for the individual stem keys rather than assumed.
func uploadAndCacheStems(ctx context.Context, store boundary.ObjectStore, c *cache.Cache, contentHash, stemsDir string) (string, error) {
	buffers := make(map[string]*audio.Buffer, len(stemFileNames))
	prefixURL := ""
	for _, name := range stemFileNames {
		path := filepath.Join(stemsDir, name+".wav")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		buf, err := audioio.DecodeFile(path)
		if err != nil {
			return "", fmt.Errorf("decode stem %s: %w", name, err)
		}
		buffers[name] = buf
		key := fmt.Sprintf("%s/stems/%s.wav", contentHash, name)
		url, err := store.Upload(ctx, path, key)
		if err != nil {
			return "", fmt.Errorf("upload stem %s: %w", name, err)
		}
		prefixURL = strings.TrimSuffix(url, name+".wav")
	}
	if len(buffers) == 0 {
		return "", nil
	}
	if err := c.SaveStems(contentHash, buffers); err != nil {
		return "", fmt.Errorf("cache stems: %w", err)
	}
	return prefixURL, nil
}

// LrcRequest is the JSON shape of an Lrc job's request payload.
type LrcRequest struct {
	AudioURL    string `json:"audio_url"`
	ContentHash string `json:"content_hash"`
	LyricsText  string `json:"lyrics_text"`
}

// LrcResponse is the JSON shape of an Lrc job's result payload.
type LrcResponse struct {
	LRCURL    string `json:"lrc_url"`
	LineCount int    `json:"line_count"`
	FromCache bool   `json:"from_cache"`
}

// NewLrcRunner builds the RunFunc for Lrc jobs (§4.8 "Lrc job body"):
// composite-key cache check, download, align, upload, cache the LRC
// result by composite key and the raw phrases by audio hash alone.
func NewLrcRunner(store boundary.ObjectStore, driver boundary.AlignerDriver, c *cache.Cache, workDir string) RunFunc {
	return func(ctx context.Context, job *Job, report func(float64, string)) (json.RawMessage, error) {
		var req LrcRequest
		if err := json.Unmarshal(job.Request, &req); err != nil {
			return nil, fmt.Errorf("decode lrc request: %w", err)
		}

		compositeKey := cache.CompositeLRCKey(req.ContentHash, req.LyricsText)
		if entry, hit := c.LRCResult(compositeKey); hit {
			report(1.0, StageCached)
			return json.Marshal(LrcResponse{LRCURL: entry.LRCURL, LineCount: entry.LineCount, FromCache: true})
		}

		report(0.1, StageDownloading)
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
		localPath := filepath.Join(workDir, req.ContentHash+filepath.Ext(req.AudioURL))
		if err := store.Download(ctx, req.AudioURL, localPath); err != nil {
			return nil, fmt.Errorf("download audio: %w", err)
		}
		defer os.Remove(localPath)

		report(0.5, StageAligning)
		result, err := driver.Align(ctx, localPath, req.LyricsText, boundary.AlignOptions{})
		if err != nil {
			return nil, fmt.Errorf("align: %w", err)
		}

		report(0.8, StageUploading)
		lrcURL, err := store.Upload(ctx, result.LRCPath, req.ContentHash+"/lyrics.lrc")
		if err != nil {
			return nil, fmt.Errorf("upload lrc: %w", err)
		}

		if err := c.SaveLRCResult(compositeKey, lrcURL, result.LineCount); err != nil {
			return nil, fmt.Errorf("cache lrc result: %w", err)
		}
		phrases := make([]cache.Phrase, len(result.Phrases))
		for i, p := range result.Phrases {
			phrases[i] = cache.Phrase{Text: p.Text, Start: p.Start, End: p.End}
		}
		if err := c.SaveWhisperTranscription(req.ContentHash, phrases); err != nil {
			return nil, fmt.Errorf("cache whisper transcription: %w", err)
		}

		report(1.0, StageComplete)
		return json.Marshal(LrcResponse{LRCURL: lrcURL, LineCount: result.LineCount, FromCache: false})
	}
}
