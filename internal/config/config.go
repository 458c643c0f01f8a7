// Package config holds junction's process-wide configuration. Values
// that come from the environment are read by kong directly onto the
// command structs via their `env:"..."` tags (see cmd/junction); this
// package only collects the resolved result plus the defaults and
// derived checks that don't belong on a flag struct.
package config

import "os"

const (
	EnvJobAPIToken = "JUNCTION_JOB_API_TOKEN"
	EnvLLMEndpoint = "JUNCTION_LLM_ENDPOINT"
	EnvLLMAPIKey   = "JUNCTION_LLM_API_KEY"
	EnvLLMModel    = "JUNCTION_LLM_MODEL"
)

// Config is the fully resolved runtime configuration for cmd/junction.
type Config struct {
	DataDir        string
	LogLevel       string
	WorkDir        string
	LrcConcurrency int
	RetentionHours int

	// ObjectStoreKind selects the boundary.ObjectStore implementation:
	// "local" (default, filesystem-backed) or "s3".
	ObjectStoreKind     string
	ObjectStoreEndpoint string
	ObjectStoreRegion   string
	ObjectStoreBucket   string
	ObjectStoreRoot     string

	JobAPIToken string

	LLMEndpoint string
	LLMAPIKey   string
	LLMModel    string
}

// HasLLM reports whether enough configuration is present to enable
// the Lrc aligner's LLM correction step.
func (c *Config) HasLLM() bool {
	return c.LLMEndpoint != "" && c.LLMAPIKey != ""
}

// DefaultDataDir resolves the data directory default: JUNCTION_DATA_DIR
// if set, otherwise a dotdir under the user's home.
func DefaultDataDir() string {
	if dir := os.Getenv("JUNCTION_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".junction"
	}
	return home + "/.junction"
}
