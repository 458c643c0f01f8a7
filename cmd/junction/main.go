// Command junction wires the Job Store, Scheduler, Result Cache, and
// External Boundary Adapters together into a long-running worker
// process, and exposes the synthesis engine, playlist assembler, job
// surface, and library scan utility as one-shot subcommands (§6 exit
// codes: 0 success, 1 runtime error, 2 invalid arguments/config).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/streamsplice/junction/internal/audio"
	"github.com/streamsplice/junction/internal/audioio"
	"github.com/streamsplice/junction/internal/boundary"
	"github.com/streamsplice/junction/internal/cache"
	"github.com/streamsplice/junction/internal/config"
	"github.com/streamsplice/junction/internal/engine"
	"github.com/streamsplice/junction/internal/jobs"
	"github.com/streamsplice/junction/internal/library"
	"github.com/streamsplice/junction/internal/manifest"
	"github.com/streamsplice/junction/internal/playlist"
	"github.com/streamsplice/junction/internal/scoring"
	"github.com/streamsplice/junction/internal/song"
	"github.com/streamsplice/junction/internal/stemstore"
	"github.com/streamsplice/junction/internal/transition"
)

// exitCodeError lets a Run method request a specific process exit
// code (§6: 2 for invalid arguments/config, 1 otherwise).
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func invalidConfig(format string, args ...interface{}) error {
	return &exitCodeError{code: 2, err: fmt.Errorf(format, args...)}
}

type ServeCmd struct {
	DataDir        string `help:"Data directory for the job store and result cache."`
	LogLevel       string `help:"Log level (debug, info, warn, error)." default:"info" enum:"debug,info,warn,error"`
	WorkDir        string `help:"Scratch directory for in-flight downloads."`
	LrcConcurrency int    `help:"Maximum concurrent Lrc jobs." default:"2"`

	ObjectStoreKind     string `help:"Object store backend: local or s3." default:"local" enum:"local,s3"`
	ObjectStoreRoot     string `help:"Root directory for the local object store."`
	ObjectStoreEndpoint string `help:"Custom S3-compatible endpoint URL (R2, MinIO)."`
	ObjectStoreRegion   string `help:"S3 region." default:"auto"`
	ObjectStoreBucket   string `help:"S3 bucket name."`

	JobAPIToken string `help:"Bearer token required of job API callers." env:"JUNCTION_JOB_API_TOKEN"`
	LLMEndpoint string `help:"LLM endpoint used to correct lyric alignment timing." env:"JUNCTION_LLM_ENDPOINT"`
	LLMAPIKey   string `help:"API key for LLMEndpoint." env:"JUNCTION_LLM_API_KEY"`
	LLMModel    string `help:"LLM model name." env:"JUNCTION_LLM_MODEL"`
}

func (c *ServeCmd) Run() error {
	dataDir := c.DataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	workDir := c.WorkDir
	if workDir == "" {
		workDir = dataDir + "/work"
	}

	logger := newLogger(c.LogLevel)
	slog.SetDefault(logger)

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	cfg := config.Config{
		JobAPIToken: c.JobAPIToken,
		LLMEndpoint: c.LLMEndpoint,
		LLMAPIKey:   c.LLMAPIKey,
		LLMModel:    c.LLMModel,
	}
	if cfg.JobAPIToken == "" {
		return invalidConfig("%s must be set", config.EnvJobAPIToken)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := jobs.Open(dataDir, logger)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	resultCache, err := cache.Open(dataDir + "/cache")
	if err != nil {
		return fmt.Errorf("open result cache: %w", err)
	}

	objectStore, err := c.buildObjectStore(ctx)
	if err != nil {
		return err
	}

	analyzer := boundary.NewCPUAnalyzer(logger)
	aligner := boundary.NewLocalAligner(logger)

	sched := jobs.NewScheduler(store, logger, c.LrcConcurrency)
	sched.RegisterRunner(jobs.KindAnalyze, jobs.NewAnalyzeRunner(objectStore, analyzer, resultCache, workDir))
	sched.RegisterRunner(jobs.KindLrc, jobs.NewLrcRunner(objectStore, aligner, resultCache, workDir))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	logger.Info("junction serving", "data_dir", dataDir, "object_store", c.ObjectStoreKind, "llm_enabled", cfg.HasLLM())

	<-ctx.Done()
	logger.Info("shutting down")
	sched.Stop()
	return nil
}

func (c *ServeCmd) buildObjectStore(ctx context.Context) (boundary.ObjectStore, error) {
	switch c.ObjectStoreKind {
	case "s3":
		if c.ObjectStoreBucket == "" {
			return nil, invalidConfig("--object-store-bucket is required for the s3 backend")
		}
		return boundary.NewS3Store(ctx, c.ObjectStoreEndpoint, c.ObjectStoreRegion, c.ObjectStoreBucket)
	default:
		root := c.ObjectStoreRoot
		if root == "" {
			root = config.DefaultDataDir() + "/objects"
		}
		return boundary.NewLocalStore(root)
	}
}

type ScanCmd struct {
	DataDir string   `help:"Data directory holding the result cache."`
	Roots   []string `arg:"" name:"roots" help:"Directories to scan for audio files."`
}

func (c *ScanCmd) Run() error {
	dataDir := c.DataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	resultCache, err := cache.Open(dataDir + "/cache")
	if err != nil {
		return fmt.Errorf("open result cache: %w", err)
	}

	logger := newLogger("info")
	scanner := library.NewScanner(resultCache, logger)

	progress := make(chan library.Progress, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			if p.Error != "" {
				fmt.Printf("error %s: %s\n", p.Path, p.Error)
				continue
			}
			fmt.Printf("[%d/%d] %s\n", p.Processed, p.Total, p.Path)
		}
	}()

	entries, err := scanner.Scan(context.Background(), c.Roots, progress)
	<-done
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	needsAnalysis := 0
	for _, e := range entries {
		if e.NeedsAnalyze {
			needsAnalysis++
		}
	}
	fmt.Printf("found %d audio files, %d need analysis\n", len(entries), needsAnalysis)
	return nil
}

// fileMixdownLoader resolves a song's own unmodified mix by decoding
// its source audio file and slicing the requested span, the same
// whole-decode-then-slice approach internal/stemstore uses for stems.
type fileMixdownLoader struct {
	paths map[string]string
}

func (f *fileMixdownLoader) LoadMixdown(songID string, startSec, endSec float64) (*audio.Buffer, error) {
	path, ok := f.paths[songID]
	if !ok {
		return nil, fmt.Errorf("no audio path registered for song %s", songID)
	}
	full, err := audioio.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	startSample := int(startSec * float64(full.SampleRate))
	endSample := int(endSec * float64(full.SampleRate))
	return full.Slice(startSample, endSample), nil
}

type SynthesizeCmd struct {
	Library     string `arg:"" help:"Path to a JSON library file describing songs and sections."`
	StemsDir    string `help:"Root directory of per-song separated stems."`
	SongA       string `required:"" name:"song-a" help:"Song ID for the A side."`
	SectionA    int    `required:"" name:"section-a" help:"Section index for the A side."`
	SongB       string `required:"" name:"song-b" help:"Song ID for the B side."`
	SectionB    int    `required:"" name:"section-b" help:"Section index for the B side."`
	ParamsFile  string `required:"" name:"params-file" help:"Path to a JSON transition parameter file."`
	Output      string `required:"" help:"Output WAV path."`
}

func (c *SynthesizeCmd) Run() error {
	reg, audioPaths, err := song.LoadLibraryFile(c.Library)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(c.ParamsFile)
	if err != nil {
		return fmt.Errorf("read params file: %w", err)
	}
	var wireParams transition.WireParams
	if err := json.Unmarshal(data, &wireParams); err != nil {
		return fmt.Errorf("decode params file: %w", err)
	}
	params, err := wireParams.ToParams()
	if err != nil {
		return err
	}

	mixdown := &fileMixdownLoader{paths: audioPaths}
	eng := &engine.Engine{
		Registry: reg,
		Stems:    stemstore.New(c.StemsDir, 0),
		Mixdown:  mixdown,
	}

	result, err := eng.Synthesize(c.SongA, c.SectionA, c.SongB, c.SectionB, params)
	if err != nil {
		return err
	}
	if err := audioio.WriteWAV(c.Output, result.Buffer); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return json.NewEncoder(os.Stdout).Encode(result.Metadata)
}

type PlaylistCmd struct {
	Rank     PlaylistRankCmd     `cmd:"" help:"Score and rank candidate sections against a reference section."`
	Assemble PlaylistAssembleCmd `cmd:"" help:"Assemble a run of songs and transitions into one continuous mix."`
}

type PlaylistRankCmd struct {
	Library        string   `arg:"" help:"Path to a JSON library file describing songs and sections."`
	ReferenceSong  string   `required:"" name:"reference-song" help:"Song ID of the reference section."`
	ReferenceIndex int      `required:"" name:"reference-section" help:"Section index of the reference section."`
	Candidates     []string `required:"" help:"song_id:section_index pairs to rank against the reference."`
}

func parseSectionSpec(spec string) (songID string, index int, err error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("candidate %q must be of the form song_id:section_index", spec)
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("candidate %q: invalid section index: %w", spec, err)
	}
	return parts[0], idx, nil
}

func (c *PlaylistRankCmd) Run() error {
	reg, _, err := song.LoadLibraryFile(c.Library)
	if err != nil {
		return err
	}
	_, reference, err := reg.Section(c.ReferenceSong, c.ReferenceIndex)
	if err != nil {
		return fmt.Errorf("reference section: %w", err)
	}

	candidates := make([]scoring.Candidate, 0, len(c.Candidates))
	for _, spec := range c.Candidates {
		songID, idx, err := parseSectionSpec(spec)
		if err != nil {
			return err
		}
		_, sec, err := reg.Section(songID, idx)
		if err != nil {
			return fmt.Errorf("candidate %q: %w", spec, err)
		}
		candidates = append(candidates, scoring.Candidate{SongID: songID, SectionIndex: idx, Section: sec})
	}

	ranked := scoring.RankCandidates(reference, candidates)
	return json.NewEncoder(os.Stdout).Encode(ranked)
}

type PlaylistAssembleCmd struct {
	Library      string `arg:"" help:"Path to a JSON library file describing songs and sections."`
	StemsDir     string `help:"Root directory of per-song separated stems."`
	EntriesFile  string `required:"" name:"entries-file" help:"Path to a JSON playlist entries file."`
	Output       string `required:"" help:"Output WAV path."`
	ManifestDir  string `help:"Directory to write the M3U8/JSON/bundle manifest into (defaults to the output's directory)."`
	ManifestName string `help:"Base name for the manifest bundle." default:"set"`
}

func (c *PlaylistAssembleCmd) Run() error {
	reg, audioPaths, err := song.LoadLibraryFile(c.Library)
	if err != nil {
		return err
	}
	entries, err := playlist.LoadEntriesFile(c.EntriesFile)
	if err != nil {
		return err
	}

	mixdown := &fileMixdownLoader{paths: audioPaths}
	eng := &engine.Engine{
		Registry: reg,
		Stems:    stemstore.New(c.StemsDir, 0),
		Mixdown:  mixdown,
	}
	assembler := &playlist.Assembler{Registry: reg, Engine: eng, Audio: mixdown}

	buf, err := assembler.Assemble(entries)
	if err != nil {
		return err
	}
	if err := audioio.WriteWAV(c.Output, buf); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	manifestDir := c.ManifestDir
	if manifestDir == "" {
		manifestDir = filepath.Dir(c.Output)
	}
	durationSeconds := float64(buf.Len()) / float64(buf.SampleRate)
	result, err := manifest.WriteBundle(manifestDir, c.ManifestName, reg, entries, durationSeconds, buf.SampleRate)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return json.NewEncoder(os.Stdout).Encode(result)
}

type JobCmd struct {
	Submit JobSubmitCmd `cmd:"" help:"Submit a new Analyze or Lrc job."`
	Get    JobGetCmd    `cmd:"" help:"Fetch a job by ID."`
	List   JobListCmd   `cmd:"" help:"List jobs, optionally filtered by status or kind."`
}

// openJobStore is shared by the job subcommands; none of them start
// a scheduler (that is serve's job), they operate directly on the
// durable store through a Scheduler wrapper so Submit still gets its
// "has a runner" validation (§4.8 step 2).
func openJobStore(dataDir string) (*jobs.Store, error) {
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	return jobs.Open(dataDir, newLogger("warn"))
}

// stubRunner satisfies Scheduler.Submit's "a runner is registered"
// check for job kinds submitted out-of-process from serve; the
// submitting CLI invocation never executes the job body itself, it
// only persists the Queued row and enqueues it for whichever serve
// process picks it up next.
func stubRunner(ctx context.Context, job *jobs.Job, report func(float64, string)) (json.RawMessage, error) {
	return nil, fmt.Errorf("job %s submitted by the CLI but no serve process claimed it", job.ID)
}

type JobSubmitCmd struct {
	DataDir     string `help:"Data directory for the job store."`
	Kind        string `arg:"" enum:"analyze,lrc" help:"Job kind."`
	RequestFile string `arg:"" name:"request-file" help:"Path to a JSON request payload."`
	ContentHash string `required:"" name:"content-hash" help:"Content hash used as the cache/idempotency key."`
}

func (c *JobSubmitCmd) Run() error {
	store, err := openJobStore(c.DataDir)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	request, err := os.ReadFile(c.RequestFile)
	if err != nil {
		return fmt.Errorf("read request file: %w", err)
	}

	sched := jobs.NewScheduler(store, newLogger("warn"), 1)
	sched.RegisterRunner(jobs.KindAnalyze, stubRunner)
	sched.RegisterRunner(jobs.KindLrc, stubRunner)

	job, err := sched.Submit(jobs.Kind(c.Kind), json.RawMessage(request), c.ContentHash)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(job)
}

type JobGetCmd struct {
	DataDir string `help:"Data directory for the job store."`
	ID      string `arg:"" help:"Job ID."`
}

func (c *JobGetCmd) Run() error {
	store, err := openJobStore(c.DataDir)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	sched := jobs.NewScheduler(store, newLogger("warn"), 1)
	job, ok := sched.Get(c.ID)
	if !ok {
		return fmt.Errorf("job %s not found", c.ID)
	}
	return json.NewEncoder(os.Stdout).Encode(job)
}

type JobListCmd struct {
	DataDir string `help:"Data directory for the job store."`
	Status  string `help:"Filter by status (queued, processing, completed, failed)." enum:",queued,processing,completed,failed" default:""`
	Kind    string `help:"Filter by kind (analyze, lrc)." enum:",analyze,lrc" default:""`
	Limit   int    `help:"Maximum number of jobs to return." default:"50"`
}

func (c *JobListCmd) Run() error {
	store, err := openJobStore(c.DataDir)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	sched := jobs.NewScheduler(store, newLogger("warn"), 1)
	filter := jobs.ListFilter{Status: jobs.Status(c.Status), Kind: jobs.Kind(c.Kind)}
	list, err := sched.List(filter, c.Limit)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(list)
}

type CLI struct {
	Serve      ServeCmd      `cmd:"" help:"Run the job scheduler against the configured object store."`
	Scan       ScanCmd       `cmd:"" help:"Scan directories for audio files needing analysis."`
	Synthesize SynthesizeCmd `cmd:"" help:"Synthesize a single transition between two song sections."`
	Playlist   PlaylistCmd   `cmd:"" help:"Rank candidate sections or assemble a full playlist."`
	Job        JobCmd        `cmd:"" help:"Submit, fetch, or list background jobs."`
}

func newLogger(levelName string) *slog.Logger {
	level := slog.LevelInfo
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("junction"),
		kong.Description("Worship-set audio transition synthesis worker."),
		kong.UsageOnError(),
	)

	err := kctx.Run()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "junction:", err)
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	os.Exit(1)
}
